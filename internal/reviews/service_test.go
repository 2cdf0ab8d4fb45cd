package reviews

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
	"github.com/sonaskin/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, uuid.UUID, uuid.UUID) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}, &models.Review{}))

	active := models.Product{ID: uuid.New(), Name: "Serum", Slug: "serum", IsActive: true}
	hidden := models.Product{ID: uuid.New(), Name: "Old", Slug: "old"}
	require.NoError(t, conn.Create(&active).Error)
	require.NoError(t, conn.Create(&hidden).Error)

	svc, err := NewService(NewRepository(conn), logger.Nop(), nil)
	require.NoError(t, err)
	return svc, active.ID, hidden.ID
}

func TestSubmitStartsUnapprovedAndIsHiddenUntilApproved(t *testing.T) {
	svc, productID, _ := newTestService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, SubmitReviewInput{ProductID: productID.String(), CustomerName: "Lan", Rating: 5, Content: "Rất tốt"})
	require.NoError(t, err)
	assert.False(t, submitted.IsApproved)

	public, err := svc.ListApproved(ctx, productID, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, public.Reviews)

	approved := true
	_, err = svc.Update(ctx, uuid.MustParse(submitted.ID), UpdateReviewInput{IsApproved: &approved})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateReviewInput{SubmitReviewInput: SubmitReviewInput{ProductID: productID.String(), CustomerName: "Minh", Rating: 4, Content: "Ổn"}, IsApproved: true})
	require.NoError(t, err)

	public, err = svc.ListApproved(ctx, productID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, public.Reviews, 2)

	summary, err := svc.Summary(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Count)
	assert.Equal(t, "4.5", summary.Average.String())
}

func TestSubmitValidation(t *testing.T) {
	svc, productID, hiddenID := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitReviewInput{ProductID: productID.String(), CustomerName: "Lan", Rating: 6, Content: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Submit(ctx, SubmitReviewInput{ProductID: hiddenID.String(), CustomerName: "Lan", Rating: 5, Content: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Create(ctx, CreateReviewInput{SubmitReviewInput: SubmitReviewInput{ProductID: hiddenID.String(), CustomerName: "Lan", Rating: 5, Content: "x"}})
	assert.NoError(t, err, "admins can review inactive products")
}

func TestDeleteReview(t *testing.T) {
	svc, productID, _ := newTestService(t)
	created, err := svc.Submit(context.Background(), SubmitReviewInput{ProductID: productID.String(), CustomerName: "Lan", Rating: 3, Content: "x"})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.True(t, pkgerrors.IsCode(svc.Delete(context.Background(), id), pkgerrors.CodeNotFound))
}
