// Package service реализует бизнес-логику корзины, оформления заказа и каталога маркетплейса.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-management/internal/model"
)

// CartRepository описывает доступ к корзинам и их позициям.
type CartRepository interface {
	GetActiveCart(ctx context.Context, userID string) (*model.Cart, error)
	CreateActiveCart(ctx context.Context, userID string) (*model.Cart, error)
	SetCartStatus(ctx context.Context, cartID string, status model.CartStatus) error
	GetCartItems(ctx context.Context, cartID string) ([]model.CartItem, error)
	GetCartItem(ctx context.Context, itemID string) (*model.CartItem, *model.Cart, error)
	FindCartItemByProduct(ctx context.Context, cartID, productID string) (*model.CartItem, error)
	InsertCartItem(ctx context.Context, item model.CartItem) (*model.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) error
	DeleteCartItem(ctx context.Context, itemID string) error
	ClearCartItems(ctx context.Context, cartID string) error
}

// ProductRepository описывает доступ к каталогу и магазинам.
type ProductRepository interface {
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	GetProducts(ctx context.Context, productIDs []string) (map[string]model.Product, error)
	ListRecentProducts(ctx context.Context, limit int) ([]model.Product, error)
	ListPopularProducts(ctx context.Context, limit int) ([]model.Product, error)
	ReserveStock(ctx context.Context, productID string, quantity int) error
	ReleaseStock(ctx context.Context, productID string, quantity int) error
	GetStore(ctx context.Context, storeID string) (*model.Store, error)
	GetStores(ctx context.Context, storeIDs []string) ([]model.Store, error)
}

// AddressRepository описывает доступ к адресам доставки.
type AddressRepository interface {
	GetAddress(ctx context.Context, addressID string) (*model.Address, error)
}

// OrderRepository описывает доступ к заказам.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order model.Order) (*model.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
	InsertOrderItems(ctx context.Context, items []model.OrderItem) error
	DeleteOrderItems(ctx context.Context, orderID string) error
	GetOrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error)
	ListOrdersWithoutPoints(ctx context.Context, before time.Time, limit int) ([]model.Order, error)
	ListOrdersWithActiveCart(ctx context.Context, before time.Time, limit int) ([]model.Order, error)
}

// PointsRepository описывает журнал и баланс баллов.
type PointsRepository interface {
	InsertPointsTransaction(ctx context.Context, t model.PointsTransaction) (bool, error)
	AddUserPoints(ctx context.Context, userID string, points int64) (int64, error)
	CreditOrderPoints(ctx context.Context, t model.PointsTransaction) (bool, error)
}

// FavoriteRepository описывает доступ к избранному.
type FavoriteRepository interface {
	AddFavorite(ctx context.Context, userID, productID string) (bool, error)
	RemoveFavorite(ctx context.Context, userID, productID string) error
}

// Repository объединяет все хранилища, которые нужны сервису.
type Repository interface {
	CartRepository
	ProductRepository
	AddressRepository
	OrderRepository
	PointsRepository
	FavoriteRepository
	Ping(ctx context.Context) error
	Close() error
}

// ProductCache кэширует списки товаров каталога.
type ProductCache interface {
	GetProducts(ctx context.Context, key string) ([]model.Product, bool)
	SetProducts(ctx context.Context, key string, products []model.Product)
	Invalidate(ctx context.Context, keys ...string) error
}

// OrderPublisher публикует событие об оформленном заказе.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, order model.Order, items []model.OrderItem) error
}

// Recorder собирает метрики бизнес-операций.
type Recorder interface {
	CheckoutStepFailed(step string)
	CheckoutCompensated()
	PointsReconciled(n int)
}

type nopRecorder struct{}

func (nopRecorder) CheckoutStepFailed(string) {}
func (nopRecorder) CheckoutCompensated()      {}
func (nopRecorder) PointsReconciled(int)      {}

type nopPublisher struct{}

func (nopPublisher) PublishOrderPlaced(context.Context, model.Order, []model.OrderItem) error {
	return nil
}

// Service содержит бизнес-логику маркетплейса.
type Service struct {
	carts     CartRepository
	products  ProductRepository
	addresses AddressRepository
	orders    OrderRepository
	points    PointsRepository
	favorites FavoriteRepository
	store     Repository

	cache     ProductCache
	publisher OrderPublisher
	metrics   Recorder
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option настраивает необязательные зависимости сервиса.
type Option func(*Service)

// WithCache подключает кэш списков каталога.
func WithCache(c ProductCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPublisher подключает публикацию событий о заказах.
func WithPublisher(p OrderPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRecorder подключает сбор метрик.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// NewService создаёт новый сервис поверх указанного хранилища.
func NewService(repo Repository, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		carts:     repo,
		products:  repo,
		addresses: repo,
		orders:    repo,
		points:    repo,
		favorites: repo,
		store:     repo,
		publisher: nopPublisher{},
		metrics:   nopRecorder{},
		logger:    logger,
		tracer:    otel.Tracer("github.com/mmeshcher/marketplace-management/internal/service"),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
