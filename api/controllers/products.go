package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/api/responses"
	"github.com/sonaskin/storefront-backend/api/validators"
	"github.com/sonaskin/storefront-backend/internal/categories"
	"github.com/sonaskin/storefront-backend/internal/products"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

type categoryBySlug interface {
	GetBySlug(ctx context.Context, slug string) (*categories.CategoryDTO, error)
}

// parseProductFilters reads the catalogue query. category accepts a slug, categoryId a uuid.
func parseProductFilters(r *http.Request, cats categoryBySlug) (products.ListFilters, error) {
	q := r.URL.Query()
	filters := products.ListFilters{
		Search: strings.TrimSpace(q.Get("search")),
		Need:   strings.TrimSpace(q.Get("need")),
		Sort:   products.ParseSort(q.Get("sort")),
	}

	if raw := strings.TrimSpace(q.Get("categoryId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter").WithDetails(map[string]string{"categoryId": "must be a valid UUID"})
		}
		filters.CategoryID = id
	} else if slug := strings.TrimSpace(q.Get("category")); slug != "" && cats != nil {
		category, err := cats.GetBySlug(r.Context(), slug)
		if err != nil {
			return filters, err
		}
		id, err := uuid.Parse(category.ID)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "category id")
		}
		filters.CategoryID = id
	}

	featured, err := validators.ParseQueryBool(r, "featured")
	if err != nil {
		return filters, err
	}
	filters.Featured = featured

	if filters.MinPrice, err = validators.ParseQueryInt64(r, "minPrice"); err != nil {
		return filters, err
	}
	if filters.MaxPrice, err = validators.ParseQueryInt64(r, "maxPrice"); err != nil {
		return filters, err
	}
	if filters.MinPrice != nil && filters.MaxPrice != nil && *filters.MinPrice > *filters.MaxPrice {
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "minPrice must not exceed maxPrice")
	}
	return filters, nil
}

// PublicListProducts lists active products for the storefront.
func PublicListProducts(svc products.Service, cats categoryBySlug, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseProductFilters(r, cats)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.ActiveOnly = true

		result, err := svc.ListProducts(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PublicGetProduct serves the product detail page by slug.
func PublicGetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		product, err := svc.GetPublishedBySlug(r.Context(), strings.TrimSpace(chi.URLParam(r, "slug")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminListProducts includes inactive products; ?active= narrows the list.
func AdminListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseProductFilters(r, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.ActiveOnly = active != nil && *active

		result, err := svc.ListProducts(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminGetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminCreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		var body products.CreateProductInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, product, "Đã tạo sản phẩm")
	}
}

func AdminUpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body products.UpdateProductInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, product, "Đã cập nhật sản phẩm")
	}
}

func AdminDeleteProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, nil, "Đã xoá sản phẩm")
	}
}
