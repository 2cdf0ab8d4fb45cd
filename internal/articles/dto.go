package articles

import (
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/epoch"
	"github.com/sonaskin/storefront-backend/pkg/types"
)

// ArticleDTO is the API shape of an article.
type ArticleDTO struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Slug        string                 `json:"slug"`
	Excerpt     *string                `json:"excerpt,omitempty"`
	Content     string                 `json:"content"`
	CoverImage  *string                `json:"coverImage,omitempty"`
	Tags        types.JSONList[string] `json:"tags"`
	IsPublished bool                   `json:"isPublished"`
	PublishedAt *int64                 `json:"publishedAt,omitempty"`
	AuthorID    *string                `json:"authorId,omitempty"`
	CreatedAt   int64                  `json:"createdAt"`
	UpdatedAt   int64                  `json:"updatedAt"`
}

// ListResult is one page of articles.
type ListResult struct {
	Articles   []ArticleDTO `json:"articles"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int64        `json:"total"`
	TotalPages int          `json:"totalPages"`
}

// CreateArticleInput is the body of POST /api/admin/articles. PublishedAt accepts
// epoch seconds or milliseconds, numeric strings and ISO dates.
type CreateArticleInput struct {
	Title       string                 `json:"title" validate:"required,max=255"`
	Slug        string                 `json:"slug,omitempty" validate:"omitempty,max=280"`
	Excerpt     *string                `json:"excerpt,omitempty" validate:"omitempty,max=1000"`
	Content     string                 `json:"content" validate:"required"`
	CoverImage  *string                `json:"coverImage,omitempty" validate:"omitempty,max=500"`
	Tags        types.JSONList[string] `json:"tags,omitempty"`
	IsPublished bool                   `json:"isPublished"`
	PublishedAt any                    `json:"publishedAt,omitempty"`
}

// UpdateArticleInput applies only the provided fields. A null publishedAt is treated as absent.
type UpdateArticleInput struct {
	Title       *string                 `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Slug        *string                 `json:"slug,omitempty" validate:"omitempty,max=280"`
	Excerpt     *string                 `json:"excerpt,omitempty" validate:"omitempty,max=1000"`
	Content     *string                 `json:"content,omitempty" validate:"omitempty,min=1"`
	CoverImage  *string                 `json:"coverImage,omitempty" validate:"omitempty,max=500"`
	Tags        *types.JSONList[string] `json:"tags,omitempty"`
	IsPublished *bool                   `json:"isPublished,omitempty"`
	PublishedAt any                     `json:"publishedAt,omitempty"`
}

func toDTO(a models.Article) ArticleDTO {
	var authorID *string
	if a.AuthorID != nil {
		id := a.AuthorID.String()
		authorID = &id
	}
	var publishedAt *int64
	if a.PublishedAt != nil {
		v := epoch.Seconds(*a.PublishedAt)
		publishedAt = &v
	}
	tags := a.Tags
	if tags == nil {
		tags = types.JSONList[string]{}
	}
	return ArticleDTO{
		ID:          a.ID.String(),
		Title:       a.Title,
		Slug:        a.Slug,
		Excerpt:     a.Excerpt,
		Content:     a.Content,
		CoverImage:  a.CoverImage,
		Tags:        tags,
		IsPublished: a.IsPublished,
		PublishedAt: publishedAt,
		AuthorID:    authorID,
		CreatedAt:   epoch.Seconds(a.CreatedAt),
		UpdatedAt:   epoch.Seconds(a.UpdatedAt),
	}
}
