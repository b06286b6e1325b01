package controllers

import (
	"net/http"
	"strings"

	"github.com/darzi-doorstep/darzi-backend/api/middleware"
	"github.com/darzi-doorstep/darzi-backend/api/responses"
	"github.com/darzi-doorstep/darzi-backend/api/validators"
	"github.com/darzi-doorstep/darzi-backend/internal/otp"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
)

const (
	otpSentMessage     = "OTP sent successfully"
	otpVerifiedMessage = "OTP verified successfully"
	otpBadRequest      = "invalid request"
)

type otpEdgeRequest struct {
	Phone  string `json:"phone"`
	Action string `json:"action"`
	OTP    string `json:"otp"`
}

// OTPEdge serves the send/verify contract: 200 {success,message} or 400
// {success:false,error} with a cause-free message for every failure.
func OTPEdge(svc otp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteEdgeFailure(w, otpBadRequest)
			return
		}

		var body otpEdgeRequest
		if err := validators.DecodeLenientJSONBody(r, &body); err != nil {
			responses.WriteEdgeFailure(w, otpBadRequest)
			return
		}

		action, err := enums.ParseOTPAction(strings.ToLower(strings.TrimSpace(body.Action)))
		if err != nil || strings.TrimSpace(body.Phone) == "" {
			responses.WriteEdgeFailure(w, otpBadRequest)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"otp_action": action.String(),
				"phone":      logger.MaskPhone(body.Phone),
			})
		}

		switch action {
		case enums.OTPActionSend:
			if err := svc.Send(ctx, body.Phone, middleware.ClientIP(r)); err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "otp.send_failed")
				}
				responses.WriteEdgeFailure(w, otp.ErrSendFailed.Error())
				return
			}
			responses.WriteEdgeSuccess(w, otpSentMessage)
		case enums.OTPActionVerify:
			if _, err := svc.Verify(ctx, body.Phone, body.OTP); err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "otp.verify_failed")
				}
				responses.WriteEdgeFailure(w, otp.ErrVerifyFailed.Error())
				return
			}
			responses.WriteEdgeSuccess(w, otpVerifiedMessage)
		}
	}
}
