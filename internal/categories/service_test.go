package categories

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/db/models"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}, &models.Product{}))
	svc, err := NewService(NewRepository(conn), logger.Nop(), nil)
	require.NoError(t, err)
	return svc, conn
}

func TestCategoryLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	toner, err := svc.Create(ctx, CreateCategoryInput{Name: "Nước Hoa Hồng", SortOrder: 2})
	require.NoError(t, err)
	assert.Equal(t, "nuoc-hoa-hong", toner.Slug)
	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Serum", SortOrder: 1})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Serum", list[0].Name)

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Dup", Slug: "serum"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	id := uuid.MustParse(toner.ID)
	renamed, err := svc.Update(ctx, id, UpdateCategoryInput{Slug: strPtr("Toner")})
	require.NoError(t, err)
	assert.Equal(t, "toner", renamed.Slug)

	bySlug, err := svc.GetBySlug(ctx, "toner")
	require.NoError(t, err)
	assert.Equal(t, toner.ID, bySlug.ID)

	require.NoError(t, svc.Delete(ctx, id))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, id), pkgerrors.CodeNotFound))
}

func TestDeleteCategoryWithProductsConflicts(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	cat, err := svc.Create(ctx, CreateCategoryInput{Name: "Mask"})
	require.NoError(t, err)
	id := uuid.MustParse(cat.ID)
	require.NoError(t, conn.Create(&models.Product{ID: uuid.New(), Name: "Sheet mask", Slug: "sheet-mask", CategoryID: &id}).Error)

	err = svc.Delete(ctx, id)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func strPtr(v string) *string { return &v }
