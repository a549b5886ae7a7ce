package handler

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/marketplace-management/internal/model"
	"github.com/mmeshcher/marketplace-management/internal/service"
)

// Коды ошибок в теле ответа.
const (
	CodeValidation   = "VALIDATION"
	CodeNotFound     = "NOT_FOUND"
	CodeForbidden    = "FORBIDDEN"
	CodeOutOfStock   = "OUT_OF_STOCK"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeServerError  = "SERVER_ERROR"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify сопоставляет ошибку сервиса с сообщением и кодом ответа.
func classify(err error) errorResponse {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return errorResponse{Error: ve.Message, Code: CodeValidation}
	case errors.Is(err, service.ErrOutOfStock):
		return errorResponse{Error: "Not enough stock available", Code: CodeOutOfStock}
	case errors.Is(err, service.ErrForbidden):
		return errorResponse{Error: "Unauthorized access to cart item", Code: CodeForbidden}
	case errors.Is(err, service.ErrProductNotFound):
		return errorResponse{Error: "Product not found", Code: CodeNotFound}
	case errors.Is(err, service.ErrCartItemNotFound):
		return errorResponse{Error: "Cart item not found", Code: CodeNotFound}
	case errors.Is(err, service.ErrCartNotFound):
		return errorResponse{Error: "Cart not found", Code: CodeNotFound}
	case errors.Is(err, service.ErrAddressNotFound):
		return errorResponse{Error: "Address not found", Code: CodeNotFound}
	case errors.Is(err, service.ErrEmptyCart):
		return errorResponse{Error: "Cart is empty", Code: CodeValidation}
	case errors.Is(err, service.ErrValidation):
		return errorResponse{Error: err.Error(), Code: CodeValidation}
	default:
		return errorResponse{Error: "Failed to process request", Code: CodeServerError}
	}
}

// money: сумма в сентаво, в JSON выводится числом в реалах с двумя знаками.
type money int64

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.New(int64(m), -2).StringFixed(2)), nil
}

type productResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"nome"`
	Price     money   `json:"preco"`
	ImageURL  string  `json:"imagem_url,omitempty"`
	Category  string  `json:"categoria,omitempty"`
	Stock     int     `json:"estoque"`
	StoreID   string  `json:"loja_id,omitempty"`
	Rating    float64 `json:"avaliacao"`
	CreatedAt string  `json:"created_at,omitempty"`
}

func newProductResponse(p model.Product) productResponse {
	resp := productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Price:    money(p.PriceCents),
		ImageURL: p.ImageURL,
		Category: p.Category,
		Stock:    p.Stock,
		StoreID:  p.StoreID,
		Rating:   p.Rating,
	}
	if !p.CreatedAt.IsZero() {
		resp.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func newProductList(products []model.Product) []productResponse {
	res := make([]productResponse, 0, len(products))
	for _, p := range products {
		res = append(res, newProductResponse(p))
	}
	return res
}

type storeResponse struct {
	ID      string `json:"id"`
	Name    string `json:"nome"`
	LogoURL string `json:"logo_url,omitempty"`
}

func newStoreResponse(s model.Store) storeResponse {
	return storeResponse{ID: s.ID, Name: s.Name, LogoURL: s.LogoURL}
}

type cartItemResponse struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	Quantity   int             `json:"quantity"`
	PriceAtAdd money           `json:"priceAtAdd"`
	Subtotal   money           `json:"subtotal"`
	Points     int64           `json:"pontos"`
	Product    productResponse `json:"product"`
}

type summaryResponse struct {
	Subtotal    money `json:"subtotal"`
	Shipping    money `json:"shipping"`
	Total       money `json:"total"`
	TotalPoints int64 `json:"totalPoints"`
	ItemCount   int   `json:"itemCount"`
}

type cartResponse struct {
	CartID  string             `json:"cartId"`
	Items   []cartItemResponse `json:"items"`
	Stores  []storeResponse    `json:"stores"`
	Summary summaryResponse    `json:"summary"`
	Message string             `json:"message,omitempty"`
}

func newCartResponse(v *model.CartView, message string) cartResponse {
	resp := cartResponse{
		CartID: v.CartID,
		Items:  make([]cartItemResponse, 0, len(v.Lines)),
		Stores: make([]storeResponse, 0, len(v.Stores)),
		Summary: summaryResponse{
			Subtotal:    money(v.Summary.SubtotalCents),
			Shipping:    money(v.Summary.ShippingCents),
			Total:       money(v.Summary.TotalCents),
			TotalPoints: v.Summary.TotalPoints,
			ItemCount:   v.Summary.ItemCount,
		},
		Message: message,
	}

	for _, l := range v.Lines {
		resp.Items = append(resp.Items, cartItemResponse{
			ID:         l.Item.ID,
			ProductID:  l.Item.ProductID,
			Quantity:   l.Item.Quantity,
			PriceAtAdd: money(l.Item.PriceAtAddCents),
			Subtotal:   money(l.SubtotalCents),
			Points:     l.Points,
			Product:    newProductResponse(l.Product),
		})
	}
	for _, s := range v.Stores {
		resp.Stores = append(resp.Stores, newStoreResponse(s))
	}
	return resp
}

type messageResponse struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message"`
}

type checkoutResponse struct {
	Success      bool   `json:"success"`
	OrderID      string `json:"orderId"`
	Message      string `json:"message"`
	PointsEarned int64  `json:"pointsEarned"`
}

type productsResponse struct {
	Products []productResponse `json:"products"`
}

type productDetailsResponse struct {
	Product productResponse `json:"product"`
	Store   *storeResponse  `json:"store"`
}
