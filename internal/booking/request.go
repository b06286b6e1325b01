package booking

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darzi-doorstep/darzi-backend/internal/cart"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

// Request is the booking form as submitted by the storefront.
type Request struct {
	Source        enums.BookingSource `json:"source" validate:"required"`
	Services      []cart.Selection    `json:"services" validate:"omitempty,dive"`
	Name          string              `json:"name" validate:"required,max=120"`
	Phone         string              `json:"phone" validate:"required"`
	Email         string              `json:"email" validate:"omitempty,email,max=254"`
	Address       types.PickupAddress `json:"address"`
	PickupDate    string              `json:"pickup_date" validate:"required"`
	PickupTime    string              `json:"pickup_time" validate:"required"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	Notes         string              `json:"notes" validate:"max=500"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

func (r Request) normalize() Request {
	r.Source = enums.BookingSource(strings.TrimSpace(string(r.Source)))
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.TrimSpace(r.Email)
	r.Address = r.Address.Normalize()
	r.PickupDate = strings.TrimSpace(r.PickupDate)
	r.PickupTime = strings.TrimSpace(r.PickupTime)
	r.PaymentMethod = enums.PaymentMethod(strings.TrimSpace(string(r.PaymentMethod)))
	r.Notes = strings.TrimSpace(r.Notes)
	return r
}

// checked is a request that passed validation, with parsed values.
type checked struct {
	Request
	phone      string
	pickupDate time.Time
}

// check returns the normalized request or a field -> message map.
func (r Request) check(cal *Calendar) (*checked, map[string]string) {
	req := r.normalize()
	errs := map[string]string{}

	if err := validate.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errs[fieldPath(fe)] = message(fe)
			}
		}
	}
	if req.Source != "" && !req.Source.IsValid() {
		errs["source"] = "must be cart or selection"
	}
	if req.Source == enums.BookingSourceSelection && len(req.Services) == 0 {
		errs["services"] = "select at least one service"
	}

	phone, ok := types.NormalizeIndianMobile(req.Phone)
	if req.Phone != "" && !ok {
		errs["phone"] = "must be a valid 10-digit mobile number"
	}
	for field, msg := range req.Address.FieldErrors() {
		errs[field] = msg
	}

	var pickup time.Time
	if req.PickupDate != "" {
		var msg string
		if pickup, msg = cal.ParseDate(req.PickupDate); msg != "" {
			errs["pickup_date"] = msg
		}
	}
	if req.PickupTime != "" && !cal.HasSlot(req.PickupTime) {
		errs["pickup_time"] = "must be one of the available slots"
	}
	if req.PaymentMethod != "" && !req.PaymentMethod.IsValid() {
		errs["payment_method"] = "must be cash_on_delivery, upi or card"
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &checked{Request: req, phone: phone, pickupDate: pickup}, nil
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}
