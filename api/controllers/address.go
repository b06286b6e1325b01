package controllers

import (
	"net/http"

	"github.com/darzi-doorstep/darzi-backend/api/responses"
	"github.com/darzi-doorstep/darzi-backend/api/validators"
	"github.com/darzi-doorstep/darzi-backend/internal/address"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
)

// AddressReverse turns ?lat=&lng= into a pickup address prefill.
func AddressReverse(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		prefill, err := svc.Reverse(r.Context(), address.ReverseRequest{
			Lat: validators.ParseQueryString(r, "lat", 32),
			Lng: validators.ParseQueryString(r, "lng", 32),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, prefill)
	}
}
