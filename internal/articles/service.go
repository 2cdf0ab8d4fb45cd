package articles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/epoch"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
	"github.com/sonaskin/storefront-backend/pkg/slugs"
	"github.com/sonaskin/storefront-backend/pkg/types"
)

// Service manages articles for the back office and the public blog.
type Service interface {
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	ListPublished(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*ArticleDTO, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*ArticleDTO, error)
	Create(ctx context.Context, authorID uuid.UUID, input CreateArticleInput) (*ArticleDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateArticleInput) (*ArticleDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the article service.
func NewService(repo Repository, logg *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("article repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, logg: logg, now: now}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	filters.PublishedBefore = 0
	return s.list(ctx, filters, params)
}

func (s *service) ListPublished(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	filters.PublishedBefore = s.now().Unix()
	return s.list(ctx, filters, params)
}

func (s *service) list(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list articles")
	}
	out := make([]ArticleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	meta := pagination.NewMeta(params, total)
	return &ListResult{Articles: out, Page: meta.Page, Limit: meta.Limit, Total: meta.Total, TotalPages: meta.TotalPages}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ArticleDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "article not found", "load article")
	}
	dto := toDTO(*row)
	return &dto, nil
}

// GetPublishedBySlug hides drafts and scheduled posts.
func (s *service) GetPublishedBySlug(ctx context.Context, slug string) (*ArticleDTO, error) {
	row, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, db.MapError(err, "article not found", "load article")
	}
	if !row.IsPublished || row.PublishedAt == nil || epoch.Seconds(*row.PublishedAt) > s.now().Unix() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "article not found")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, authorID uuid.UUID, input CreateArticleInput) (*ArticleDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fieldError("title", "title is required")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, fieldError("content", "content is required")
	}
	publishedAt, err := parsePublishedAt(input.PublishedAt)
	if err != nil {
		return nil, err
	}
	slug, err := s.resolveSlug(ctx, input.Slug, title, uuid.Nil)
	if err != nil {
		return nil, err
	}

	stamp := s.now().Unix()
	if input.IsPublished && publishedAt == nil {
		publishedAt = &stamp
	}
	row := &models.Article{
		ID:          uuid.New(),
		Title:       title,
		Slug:        slug,
		Excerpt:     types.TrimmedString(input.Excerpt),
		Content:     input.Content,
		CoverImage:  types.TrimmedString(input.CoverImage),
		Tags:        cleanTags(input.Tags),
		IsPublished: input.IsPublished,
		PublishedAt: publishedAt,
		CreatedAt:   stamp,
		UpdatedAt:   stamp,
	}
	if authorID != uuid.Nil {
		row.AuthorID = &authorID
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, db.MapError(err, "article not found", "create article")
	}
	s.logg.Info(s.logg.WithField(ctx, "article_id", row.ID.String()), "article created")
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateArticleInput) (*ArticleDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "article not found", "load article")
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fieldError("title", "title is required")
		}
		row.Title = title
	}
	if input.Slug != nil {
		slug, err := s.resolveSlug(ctx, *input.Slug, row.Title, row.ID)
		if err != nil {
			return nil, err
		}
		row.Slug = slug
	}
	if input.Content != nil {
		if strings.TrimSpace(*input.Content) == "" {
			return nil, fieldError("content", "content is required")
		}
		row.Content = *input.Content
	}
	if input.Excerpt != nil {
		row.Excerpt = types.TrimmedString(input.Excerpt)
	}
	if input.CoverImage != nil {
		row.CoverImage = types.TrimmedString(input.CoverImage)
	}
	if input.Tags != nil {
		row.Tags = cleanTags(*input.Tags)
	}
	if input.PublishedAt != nil {
		publishedAt, err := parsePublishedAt(input.PublishedAt)
		if err != nil {
			return nil, err
		}
		row.PublishedAt = publishedAt
	}
	stamp := s.now().Unix()
	if input.IsPublished != nil {
		row.IsPublished = *input.IsPublished
	}
	if row.IsPublished && row.PublishedAt == nil {
		row.PublishedAt = &stamp
	}
	row.UpdatedAt = stamp

	if err := s.repo.Save(ctx, row); err != nil {
		return nil, db.MapError(err, "article not found", "update article")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete article")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "article not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "article_id", id.String()), "article deleted")
	return nil
}

func (s *service) resolveSlug(ctx context.Context, raw, title string, self uuid.UUID) (string, error) {
	exists := func(ctx context.Context, candidate string) (bool, error) {
		return s.repo.SlugTaken(ctx, candidate, self)
	}
	if strings.TrimSpace(raw) == "" {
		slug, err := slugs.Unique(ctx, title, exists)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cannot derive slug")
		}
		return slug, nil
	}
	slug := slugs.Make(raw)
	if slug == "" {
		return "", fieldError("slug", "slug must contain letters or digits")
	}
	taken, err := exists(ctx, slug)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slug")
	}
	if taken {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "slug already in use").
			WithDetails(map[string]string{"slug": slug})
	}
	return slug, nil
}

// parsePublishedAt normalises the accepted timestamp shapes; nil and "" mean unset.
func parsePublishedAt(v any) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	secs, err := epoch.Normalize(v)
	if err != nil {
		return nil, fieldError("publishedAt", err.Error())
	}
	return &secs, nil
}

func cleanTags(in types.JSONList[string]) types.JSONList[string] {
	seen := map[string]struct{}{}
	out := types.JSONList[string]{}
	for _, tag := range in {
		t := strings.TrimSpace(tag)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{field: msg})
}
