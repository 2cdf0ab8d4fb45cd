package reviews

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
)

// ReviewDTO is the API shape of a review.
type ReviewDTO struct {
	ID           string `json:"id"`
	ProductID    string `json:"productId"`
	CustomerName string `json:"customerName"`
	Rating       int    `json:"rating"`
	Content      string `json:"content"`
	IsApproved   bool   `json:"isApproved"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// ListResult is one page of reviews.
type ListResult struct {
	Reviews    []ReviewDTO `json:"reviews"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"totalPages"`
}

// Summary is the approved rating aggregate shown on a product page.
type Summary struct {
	Count   int64           `json:"count"`
	Average decimal.Decimal `json:"average"`
}

// SubmitReviewInput is a storefront submission; it always starts unapproved.
type SubmitReviewInput struct {
	ProductID    string `json:"productId" validate:"required,uuid"`
	CustomerName string `json:"customerName" validate:"required,max=120"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Content      string `json:"content" validate:"required,max=2000"`
}

// CreateReviewInput is the admin variant that can approve on creation.
type CreateReviewInput struct {
	SubmitReviewInput
	IsApproved bool `json:"isApproved"`
}

// UpdateReviewInput applies only the provided fields.
type UpdateReviewInput struct {
	CustomerName *string `json:"customerName,omitempty" validate:"omitempty,min=1,max=120"`
	Rating       *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Content      *string `json:"content,omitempty" validate:"omitempty,min=1,max=2000"`
	IsApproved   *bool   `json:"isApproved,omitempty"`
}

// Service manages product reviews.
type Service interface {
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	ListApproved(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ListResult, error)
	Summary(ctx context.Context, productID uuid.UUID) (*Summary, error)
	Get(ctx context.Context, id uuid.UUID) (*ReviewDTO, error)
	Submit(ctx context.Context, input SubmitReviewInput) (*ReviewDTO, error)
	Create(ctx context.Context, input CreateReviewInput) (*ReviewDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateReviewInput) (*ReviewDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the review service.
func NewService(repo Repository, logg *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, logg: logg, now: now}, nil
}

func toDTO(r models.Review) ReviewDTO {
	return ReviewDTO{
		ID:           r.ID.String(),
		ProductID:    r.ProductID.String(),
		CustomerName: r.CustomerName,
		Rating:       r.Rating,
		Content:      r.Content,
		IsApproved:   r.IsApproved,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	out := make([]ReviewDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	meta := pagination.NewMeta(params, total)
	return &ListResult{Reviews: out, Page: meta.Page, Limit: meta.Limit, Total: meta.Total, TotalPages: meta.TotalPages}, nil
}

func (s *service) ListApproved(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ListResult, error) {
	approved := true
	return s.List(ctx, ListFilters{ProductID: productID, Approved: &approved}, params)
}

func (s *service) Summary(ctx context.Context, productID uuid.UUID) (*Summary, error) {
	stats, err := s.repo.ApprovedStats(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rating summary")
	}
	avg := decimal.Zero
	if stats.Count > 0 {
		avg = decimal.NewFromInt(stats.Sum).Div(decimal.NewFromInt(stats.Count)).Round(1)
	}
	return &Summary{Count: stats.Count, Average: avg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "review not found", "load review")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Submit(ctx context.Context, input SubmitReviewInput) (*ReviewDTO, error) {
	return s.create(ctx, input, false, true)
}

func (s *service) Create(ctx context.Context, input CreateReviewInput) (*ReviewDTO, error) {
	return s.create(ctx, input.SubmitReviewInput, input.IsApproved, false)
}

func (s *service) create(ctx context.Context, input SubmitReviewInput, approved, activeOnly bool) (*ReviewDTO, error) {
	productID, err := uuid.Parse(strings.TrimSpace(input.ProductID))
	if err != nil {
		return nil, fieldError("productId", "productId must be a valid UUID")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, fieldError("rating", "rating must be between 1 and 5")
	}
	name := strings.TrimSpace(input.CustomerName)
	content := strings.TrimSpace(input.Content)
	if name == "" {
		return nil, fieldError("customerName", "customerName is required")
	}
	if content == "" {
		return nil, fieldError("content", "content is required")
	}
	exists, err := s.repo.ProductExists(ctx, productID, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	stamp := s.now().Unix()
	row := &models.Review{
		ID:           uuid.New(),
		ProductID:    productID,
		CustomerName: name,
		Rating:       input.Rating,
		Content:      content,
		IsApproved:   approved,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	s.logg.Info(s.logg.WithField(ctx, "review_id", row.ID.String()), "review created")
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateReviewInput) (*ReviewDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "review not found", "load review")
	}
	if input.CustomerName != nil {
		name := strings.TrimSpace(*input.CustomerName)
		if name == "" {
			return nil, fieldError("customerName", "customerName is required")
		}
		row.CustomerName = name
	}
	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return nil, fieldError("content", "content is required")
		}
		row.Content = content
	}
	if input.Rating != nil {
		if *input.Rating < 1 || *input.Rating > 5 {
			return nil, fieldError("rating", "rating must be between 1 and 5")
		}
		row.Rating = *input.Rating
	}
	if input.IsApproved != nil {
		row.IsApproved = *input.IsApproved
	}
	row.UpdatedAt = s.now().Unix()
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{field: msg})
}
