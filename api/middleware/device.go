package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/darzi-doorstep/darzi-backend/api/responses"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
)

const DeviceIDHeader = "X-Device-ID"

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// DeviceID requires the X-Device-ID header that keys the guest cart.
func DeviceID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(DeviceIDHeader))
			if !deviceIDPattern.MatchString(id) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, DeviceIDHeader+" header required").
					WithDetails(map[string]string{"header": DeviceIDHeader}))
				return
			}
			ctx := WithDeviceID(r.Context(), id)
			if logg != nil {
				ctx = logg.WithDeviceID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
