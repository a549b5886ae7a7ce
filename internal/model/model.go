// Package model содержит доменные сущности маркетплейса.
package model

import (
	"strings"
	"time"
)

// CartStatus описывает состояние корзины.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
)

// OrderStatusProcessing: статус, с которым создаётся каждый новый заказ.
const OrderStatusProcessing = "processando"

// PointsTypeEarned: тип записи в журнале баллов при начислении за покупку.
const PointsTypeEarned = "ganho"

// Cart представляет корзину пользователя.
type Cart struct {
	ID        string
	UserID    string
	Status    CartStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem описывает одну товарную позицию корзины. Цена фиксируется в момент добавления.
type CartItem struct {
	ID              string
	CartID          string
	ProductID       string
	Quantity        int
	PriceAtAddCents int64
	CreatedAt       time.Time
}

// Product описывает товар каталога.
type Product struct {
	ID         string
	Name       string
	PriceCents int64
	ImageURL   string
	Category   string
	Stock      int
	StoreID    string
	Rating     float64
	Active     bool
	CreatedAt  time.Time
}

// Store описывает магазин продавца.
type Store struct {
	ID      string
	Name    string
	LogoURL string
	OwnerID string
}

// Address описывает адрес доставки пользователя.
type Address struct {
	ID           string
	UserID       string
	Street       string
	Number       string
	Complement   string
	Neighborhood string
	City         string
	State        string
	PostalCode   string
}

// Format возвращает адрес одной строкой в том виде, в котором он сохраняется в заказе.
func (a Address) Format() string {
	var b strings.Builder
	b.WriteString(a.Street)
	if a.Number != "" {
		b.WriteString(", ")
		b.WriteString(a.Number)
	}
	if a.Complement != "" {
		b.WriteString(" - ")
		b.WriteString(a.Complement)
	}
	if a.Neighborhood != "" {
		b.WriteString(" - ")
		b.WriteString(a.Neighborhood)
	}
	b.WriteString(", ")
	b.WriteString(a.City)
	b.WriteString("/")
	b.WriteString(a.State)
	if a.PostalCode != "" {
		b.WriteString(" - CEP ")
		b.WriteString(a.PostalCode)
	}
	return b.String()
}

// Order описывает оформленный заказ.
type Order struct {
	ID              string
	CustomerID      string
	CartID          string
	DeliveryAddress string
	PaymentMethod   string
	Status          string
	TotalCents      int64
	PointsEarned    int64
	CreatedAt       time.Time
}

// OrderItem: неизменяемый снимок позиции корзины на момент оформления заказа.
type OrderItem struct {
	OrderID        string
	ProductID      string
	Quantity       int
	UnitPriceCents int64
	SubtotalCents  int64
}

// PointsTransaction: запись журнала баллов, только добавляется.
type PointsTransaction struct {
	UserID      string
	Points      int64
	Type        string
	Description string
	ReferenceID string
	CreatedAt   time.Time
}

// CartLine: позиция корзины вместе с данными товара и рассчитанными суммами.
type CartLine struct {
	Item          CartItem
	Product       Product
	SubtotalCents int64
	Points        int64
}

// CartSummary содержит итоги корзины.
type CartSummary struct {
	SubtotalCents int64
	ShippingCents int64
	TotalCents    int64
	TotalPoints   int64
	ItemCount     int
}

// CartView: полное представление корзины, которое возвращается после каждого чтения и изменения.
type CartView struct {
	CartID  string
	Lines   []CartLine
	Stores  []Store
	Summary CartSummary
}

// CheckoutResult описывает результат успешного оформления заказа.
type CheckoutResult struct {
	OrderID      string
	PointsEarned int64
}
