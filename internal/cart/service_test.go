package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonaskin/storefront-backend/pkg/db/models"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
)

type fakeProducts struct {
	products map[uuid.UUID]*models.Product
}

func (f *fakeProducts) FindActiveByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

func newCartService(t *testing.T) (Service, *models.Product) {
	t.Helper()
	image := "/images/serum.jpg"
	product := &models.Product{ID: uuid.New(), Name: "Serum B5", Price: 219000, Image: &image, IsActive: true}
	svc, err := NewService(ServiceParams{
		Storage:  NewMemoryStorage(),
		Products: &fakeProducts{products: map[uuid.UUID]*models.Product{product.ID: product}},
	})
	require.NoError(t, err)
	return svc, product
}

func TestServiceAddItemUsesCatalogPrice(t *testing.T) {
	svc, product := newCartService(t)
	ctx := context.Background()

	view, err := svc.AddItem(ctx, "tok", AddItemInput{ProductID: product.ID.String(), Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Serum B5", view.Items[0].Name)
	assert.Equal(t, "/images/serum.jpg", view.Items[0].Image)
	assert.Equal(t, int64(438000), view.TotalPrice)
	assert.Equal(t, 2, view.TotalItems)

	view, err = svc.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(438000), view.TotalPrice)

	other, err := svc.Get(ctx, "other-token")
	require.NoError(t, err)
	assert.Empty(t, other.Items, "carts are scoped by token")
}

func TestServiceAddItemErrors(t *testing.T) {
	svc, product := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "tok", AddItemInput{ProductID: "nope"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddItem(ctx, "tok", AddItemInput{ProductID: uuid.NewString()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(ctx, "", AddItemInput{ProductID: product.ID.String()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddItem(ctx, "tok", AddItemInput{ProductID: product.ID.String(), Quantity: 99})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "tok", AddItemInput{ProductID: product.ID.String(), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceMutations(t *testing.T) {
	svc, product := newCartService(t)
	ctx := context.Background()
	id := product.ID.String()

	_, err := svc.AddItem(ctx, "tok", AddItemInput{ProductID: id, Quantity: 1})
	require.NoError(t, err)

	view, err := svc.UpdateQuantity(ctx, "tok", id, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.TotalItems)

	_, err = svc.UpdateQuantity(ctx, "tok", id, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	view, err = svc.UpdateQuantity(ctx, "tok", id, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = svc.AddItem(ctx, "tok", AddItemInput{ProductID: id})
	require.NoError(t, err)
	view, err = svc.RemoveItem(ctx, "tok", id)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = svc.AddItem(ctx, "tok", AddItemInput{ProductID: id})
	require.NoError(t, err)
	view, err = svc.Clear(ctx, "tok")
	require.NoError(t, err)
	assert.Zero(t, view.TotalPrice)
}

func TestServiceLinesAndRemoveItems(t *testing.T) {
	storage := NewMemoryStorage()
	svc, err := NewService(ServiceParams{Storage: storage, Products: &fakeProducts{}})
	require.NoError(t, err)
	ctx := context.Background()

	store := NewStore(storage, "tok:"+StorageKey, nil)
	require.NoError(t, store.Load(ctx))
	require.NoError(t, store.AddItem(ctx, Item{ID: "a", Price: 100}, 1))
	require.NoError(t, store.AddItem(ctx, Item{ID: "b", Price: 200}, 2))

	all, err := svc.Lines(ctx, "tok", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := svc.Lines(ctx, "tok", []string{"b", "ghost"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "b", some[0].ID)

	view, err := svc.RemoveItems(ctx, "tok", []string{"b"})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "a", view.Items[0].ID)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(ServiceParams{Products: &fakeProducts{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Storage: NewMemoryStorage()})
	assert.Error(t, err)
}
