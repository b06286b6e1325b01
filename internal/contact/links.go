package contact

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/darzi-doorstep/darzi-backend/internal/catalog"
	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

const (
	countryCode = "91"
	waBaseURL   = "https://wa.me/"
)

// Links is everything the storefront needs to offer call and chat buttons.
type Links struct {
	Phone                     string `json:"phone"`
	Tel                       string `json:"tel"`
	WhatsApp                  string `json:"whatsapp"`
	Message                   string `json:"message"`
	GeolocationTimeoutSeconds int    `json:"geolocation_timeout_seconds"`
}

// Builder renders contact links for the configured business number.
type Builder struct {
	national string
	message  string
	geoWait  int
	catalog  *catalog.Catalog
}

func NewBuilder(cfg config.ContactConfig, cat *catalog.Catalog) (*Builder, error) {
	national, ok := types.NormalizeIndianMobile(cfg.Phone)
	if !ok {
		return nil, fmt.Errorf("contact phone %q is not a valid indian mobile number", cfg.Phone)
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog required")
	}
	message := strings.TrimSpace(cfg.WhatsAppMessage)
	if message == "" {
		message = "Hi! I would like to book a doorstep tailoring pickup."
	}
	return &Builder{
		national: national,
		message:  message,
		geoWait:  cfg.GeolocationTimeoutSeconds,
		catalog:  cat,
	}, nil
}

// Build returns the links, tailoring the chat message when serviceID names a
// catalog service. An unknown id is a validation error.
func (b *Builder) Build(serviceID string) (Links, error) {
	message := b.message
	if id := strings.TrimSpace(serviceID); id != "" {
		svc, ok := b.catalog.Lookup(id)
		if !ok {
			return Links{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown service").
				WithDetails(map[string]any{"service_id": id})
		}
		message = fmt.Sprintf("Hi! I would like to book %s (from %s).", svc.Name, catalog.StartingPrice(svc))
	}
	return Links{
		Phone:                     "+" + countryCode + b.national,
		Tel:                       Tel(b.national),
		WhatsApp:                  WhatsApp(b.national, message),
		Message:                   message,
		GeolocationTimeoutSeconds: b.geoWait,
	}, nil
}

// Tel formats a national mobile number as a tel: URI.
func Tel(national string) string {
	return "tel:+" + countryCode + national
}

// WhatsApp formats a click-to-chat link with a pre-filled message.
func WhatsApp(national, message string) string {
	link := waBaseURL + countryCode + national
	if message == "" {
		return link
	}
	return link + "?text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}
