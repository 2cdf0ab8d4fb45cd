package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/db/models"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

const maxLineQuantity = 99

type productLookup interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// KeyFunc maps a cart token to its storage key.
type KeyFunc func(token string) string

// View is the cart as returned over HTTP.
type View struct {
	Items      []Item `json:"items"`
	TotalItems int    `json:"totalItems"`
	TotalPrice int64  `json:"totalPrice"`
}

// AddItemInput is the body of POST /api/cart/items.
type AddItemInput struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=99"`
}

// Service runs cart operations against the cart identified by a token.
type Service interface {
	Get(ctx context.Context, token string) (*View, error)
	AddItem(ctx context.Context, token string, input AddItemInput) (*View, error)
	UpdateQuantity(ctx context.Context, token, itemID string, qty int) (*View, error)
	RemoveItem(ctx context.Context, token, itemID string) (*View, error)
	RemoveItems(ctx context.Context, token string, ids []string) (*View, error)
	Clear(ctx context.Context, token string) (*View, error)
	Lines(ctx context.Context, token string, ids []string) ([]Item, error)
}

type ServiceParams struct {
	Storage  Storage
	Products productLookup
	Key      KeyFunc
	Logger   *logger.Logger
}

type service struct {
	storage  Storage
	products productLookup
	key      KeyFunc
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	key := params.Key
	if key == nil {
		key = func(token string) string { return token + ":" + StorageKey }
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{storage: params.Storage, products: params.Products, key: key, logg: logg}, nil
}

func (s *service) open(ctx context.Context, token string) (*Store, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart token is required")
	}
	store := NewStore(s.storage, s.key(token), s.logg)
	if err := store.Load(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return store, nil
}

func (s *service) Get(ctx context.Context, token string) (*View, error) {
	store, err := s.open(ctx, token)
	if err != nil {
		return nil, err
	}
	return view(store), nil
}

func (s *service) AddItem(ctx context.Context, token string, input AddItemInput) (*View, error) {
	productID, err := uuid.Parse(strings.TrimSpace(input.ProductID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	qty := input.Quantity
	if qty <= 0 {
		qty = 1
	}
	store, err := s.open(ctx, token)
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindActiveByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	for _, line := range store.Items() {
		if line.ID == product.ID.String() && line.Quantity+qty > maxLineQuantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d", maxLineQuantity))
		}
	}
	if err := store.AddItem(ctx, itemFromProduct(product), qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return view(store), nil
}

func (s *service) UpdateQuantity(ctx context.Context, token, itemID string, qty int) (*View, error) {
	if qty > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d", maxLineQuantity))
	}
	return s.mutate(ctx, token, func(store *Store) error {
		return store.UpdateQuantity(ctx, itemID, qty)
	})
}

func (s *service) RemoveItem(ctx context.Context, token, itemID string) (*View, error) {
	return s.mutate(ctx, token, func(store *Store) error {
		return store.RemoveItem(ctx, itemID)
	})
}

func (s *service) RemoveItems(ctx context.Context, token string, ids []string) (*View, error) {
	return s.mutate(ctx, token, func(store *Store) error {
		return store.RemoveItems(ctx, ids)
	})
}

func (s *service) Clear(ctx context.Context, token string) (*View, error) {
	return s.mutate(ctx, token, func(store *Store) error {
		return store.ClearCart(ctx)
	})
}

// Lines returns the selected lines, or every line when ids is empty. Unknown ids are ignored.
func (s *service) Lines(ctx context.Context, token string, ids []string) ([]Item, error) {
	store, err := s.open(ctx, token)
	if err != nil {
		return nil, err
	}
	items := store.Items()
	if len(ids) == 0 {
		return items, nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]Item, 0, len(ids))
	for _, item := range items {
		if _, ok := want[item.ID]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *service) mutate(ctx context.Context, token string, fn func(*Store) error) (*View, error) {
	store, err := s.open(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := fn(store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return view(store), nil
}

func view(store *Store) *View {
	return &View{
		Items:      store.Items(),
		TotalItems: store.TotalItems(),
		TotalPrice: store.TotalPrice(),
	}
}

func itemFromProduct(p *models.Product) Item {
	item := Item{
		ID:      p.ID.String(),
		Name:    p.Name,
		Price:   p.Price,
		Tagline: p.Tagline,
	}
	if p.Image != nil {
		item.Image = *p.Image
	}
	return item
}
