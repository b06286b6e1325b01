package address

import (
	"context"
	"strconv"
	"strings"

	"github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/maps"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

const prefillFailedMessage = "could not look up address for this location"

type geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*maps.Place, error)
}

type Service interface {
	Reverse(ctx context.Context, req ReverseRequest) (*Prefill, error)
}

type service struct {
	maps geocoder
	logg *logger.Logger
}

func NewService(client geocoder, logg *logger.Logger) Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{maps: client, logg: logg}
}

// Reverse resolves coordinates into the parts of a pickup address. Geocoder
// failures collapse into a single dependency error.
func (s *service) Reverse(ctx context.Context, req ReverseRequest) (*Prefill, error) {
	if s == nil || s.maps == nil {
		return nil, errors.New(errors.CodeDependency, "geocoder unavailable")
	}
	lat, lng, err := req.coordinates()
	if err != nil {
		return nil, err
	}

	place, err := s.maps.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		if errors.Is(err, errors.CodeValidation) {
			return nil, err
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"lat": strconv.FormatFloat(lat, 'f', 3, 64),
			"lng": strconv.FormatFloat(lng, 'f', 3, 64),
		})
		s.logg.Warn(logCtx, "reverse geocode failed: "+err.Error())
		return nil, errors.Wrap(errors.CodeDependency, err, prefillFailedMessage)
	}

	return mapPlace(place, lat, lng), nil
}

func mapPlace(place *maps.Place, lat, lng float64) *Prefill {
	out := &Prefill{
		DisplayName: strings.TrimSpace(place.DisplayName),
		Address: types.PickupAddress{
			Line1:    place.Road,
			Locality: place.Locality,
			City:     place.City,
			State:    place.State,
			Postcode: place.Postcode,
			Lat:      &lat,
			Lng:      &lng,
		}.Normalize(),
	}
	if out.Address.Line1 == "" && out.DisplayName != "" {
		parts := strings.Split(out.DisplayName, ",")
		out.Address.Line1 = strings.TrimSpace(parts[0])
	}
	return out
}

type ReverseRequest struct {
	Lat string
	Lng string
}

func (r ReverseRequest) coordinates() (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(r.Lat), 64)
	if err != nil {
		return 0, 0, errors.New(errors.CodeValidation, "lat must be a number").WithDetails(map[string]any{"lat": "invalid"})
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(r.Lng), 64)
	if err != nil {
		return 0, 0, errors.New(errors.CodeValidation, "lng must be a number").WithDetails(map[string]any{"lng": "invalid"})
	}
	if err := maps.ValidateCoordinates(lat, lng); err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

// Prefill is the address suggestion returned to the booking form.
type Prefill struct {
	DisplayName string              `json:"display_name"`
	Address     types.PickupAddress `json:"address"`
}
