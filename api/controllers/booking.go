package controllers

import (
	"net/http"

	"github.com/darzi-doorstep/darzi-backend/api/responses"
	"github.com/darzi-doorstep/darzi-backend/api/validators"
	"github.com/darzi-doorstep/darzi-backend/internal/booking"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
)

// BookingSubmit records a pickup booking from the cart or an explicit selection.
// Field validation happens in the booking service so errors carry field paths.
func BookingSubmit(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req booking.Request
		if err := validators.DecodeLenientJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		confirmation, err := svc.Submit(r.Context(), owner, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, confirmation)
	}
}
