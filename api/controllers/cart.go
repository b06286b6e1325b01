package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/darzi-doorstep/darzi-backend/api/middleware"
	"github.com/darzi-doorstep/darzi-backend/api/responses"
	"github.com/darzi-doorstep/darzi-backend/api/validators"
	"github.com/darzi-doorstep/darzi-backend/internal/cart"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

type cartResponse struct {
	Items       []cart.Item  `json:"items"`
	TotalItems  int          `json:"total_items"`
	TotalAmount types.Rupees `json:"total_amount"`
	TotalLabel  string       `json:"total_label"`
	Version     int64        `json:"version"`
	Notice      string       `json:"notice,omitempty"`
}

func newCartResponse(c *cart.Cart, notice string) cartResponse {
	if c == nil {
		c = &cart.Cart{}
	}
	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	return cartResponse{
		Items:       items,
		TotalItems:  c.TotalItems(),
		TotalAmount: c.TotalAmount(),
		TotalLabel:  c.TotalAmount().String(),
		Version:     c.Version,
		Notice:      notice,
	}
}

type addCartItemRequest struct {
	ServiceID string `json:"service_id" validate:"required,max=64"`
	Variant   string `json:"variant" validate:"max=64"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,lte=99"`
}

// cartOwner resolves the device id set by the DeviceID middleware and the
// optional signed-in user.
func cartOwner(r *http.Request) (cart.Owner, error) {
	deviceID := middleware.DeviceIDFromContext(r.Context())
	if deviceID == "" {
		return cart.Owner{}, pkgerrors.New(pkgerrors.CodeValidation, middleware.DeviceIDHeader+" header required")
	}
	owner := cart.Owner{DeviceID: deviceID}
	if userID, ok := middleware.UserUUIDFromContext(r.Context()); ok {
		owner.UserID = &userID
	}
	return owner, nil
}

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c, ""))
	}
}

// CartAddItem adds one unit of a service. Re-adding a present service bumps its quantity.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Add(r.Context(), owner, strings.TrimSpace(body.ServiceID), body.Variant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(result.Cart, result.Notice))
	}
}

func CartSetQuantity(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body setQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.SetQuantity(r.Context(), owner, chi.URLParam(r, "serviceID"), *body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(result.Cart, result.Notice))
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Remove(r.Context(), owner, chi.URLParam(r, "serviceID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(result.Cart, result.Notice))
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.Clear(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c, ""))
	}
}
