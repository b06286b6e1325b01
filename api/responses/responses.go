package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
)

// SuccessEnvelope wraps every successful JSON body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public part of a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

var encodeLogger atomic.Pointer[logger.Logger]

// SetLogger sets where response encoding failures are reported.
func SetLogger(logg *logger.Logger) {
	encodeLogger.Store(logg)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

// WriteError maps err onto the error envelope. Client errors are logged at
// warn level and server errors at error level with the full chain.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	policy := pkgerrors.PolicyFor(typed.Code())
	payload := ErrorEnvelope{Error: APIError{
		Code:    string(typed.Code()),
		Message: policy.PublicMessage(typed),
	}}
	if policy.ShowDetails {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		fields := pkgerrors.Diagnose(err).Fields()
		fields["status"] = policy.Status
		ctx = logg.WithFields(ctx, fields)
		if policy.Status >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, policy.Status, payload)
}

// EdgeResult is the flat {success, message|error} shape served by the OTP edge endpoint.
type EdgeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func WriteEdgeSuccess(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, EdgeResult{Success: true, Message: message})
}

// WriteEdgeFailure always answers 400 so callers cannot tell failure causes apart.
func WriteEdgeFailure(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, EdgeResult{Success: false, Error: message})
}

// writeJSON encodes before writing the header so an unencodable payload still
// produces a clean 500.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		if logg := encodeLogger.Load(); logg != nil {
			logg.Error(context.Background(), "response.encode_failed", err)
		}
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorEnvelope{Error: APIError{
			Code:    string(pkgerrors.CodeInternal),
			Message: pkgerrors.PolicyFor(pkgerrors.CodeInternal).Fallback,
		}})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
