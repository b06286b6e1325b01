package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/darzi-doorstep/darzi-backend/api/responses"
	"github.com/darzi-doorstep/darzi-backend/api/validators"
	"github.com/darzi-doorstep/darzi-backend/internal/catalog"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

// serviceView adds the display price to a catalog service.
type serviceView struct {
	catalog.Service
	StartingPrice types.Rupees `json:"starting_price"`
	PriceLabel    string       `json:"price_label"`
}

func newServiceView(svc catalog.Service) serviceView {
	price := catalog.StartingPrice(svc)
	return serviceView{
		Service:       svc,
		StartingPrice: price,
		PriceLabel:    "Starting from " + price.String(),
	}
}

func CatalogCategories(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": cat.Categories()})
	}
}

// CatalogServices lists services, optionally narrowed by category and subcategory.
func CatalogServices(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		filter := catalog.Filter{
			Subcategory: strings.ToLower(validators.ParseQueryString(r, "subcategory", 64)),
		}
		if raw := strings.ToLower(validators.ParseQueryString(r, "category", 16)); raw != "" {
			category := enums.ServiceCategory(raw)
			if !category.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid category").
					WithDetails(map[string]any{"field": "category"}))
				return
			}
			filter.Category = category
		}

		services := cat.List(filter)
		views := make([]serviceView, 0, len(services))
		for _, svc := range services {
			views = append(views, newServiceView(svc))
		}
		responses.WriteSuccess(w, map[string]any{"services": views})
	}
}

func CatalogService(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		svc, ok := cat.Lookup(chi.URLParam(r, "serviceID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "service not found"))
			return
		}
		responses.WriteSuccess(w, newServiceView(svc))
	}
}
