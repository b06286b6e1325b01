package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darzi-doorstep/darzi-backend/internal/catalog"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
)

const defaultMirrorTimeout = 3 * time.Second

// Owner identifies whose cart is addressed: always a device, optionally a signed-in user.
type Owner struct {
	DeviceID string
	UserID   *uuid.UUID
}

func (o Owner) authenticated() bool {
	return o.UserID != nil && *o.UserID != uuid.Nil
}

// Result is a cart snapshot plus the confirmation notice of the mutation, if any.
type Result struct {
	Cart   *Cart
	Notice string
}

// Service exposes cart operations shared by browsing and booking.
type Service interface {
	Get(ctx context.Context, owner Owner) (*Cart, error)
	Add(ctx context.Context, owner Owner, serviceID, variant string) (*Result, error)
	Remove(ctx context.Context, owner Owner, serviceID string) (*Result, error)
	SetQuantity(ctx context.Context, owner Owner, serviceID string, quantity int) (*Result, error)
	Clear(ctx context.Context, owner Owner) (*Cart, error)
}

// ServiceParams groups the cart service dependencies.
type ServiceParams struct {
	Catalog       *catalog.Catalog
	Device        DeviceStore
	Server        Repository
	Logger        *logger.Logger
	MirrorTimeout time.Duration
}

type service struct {
	catalog       *catalog.Catalog
	device        DeviceStore
	server        Repository
	logg          *logger.Logger
	mirrorTimeout time.Duration
}

// NewService builds the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Device == nil {
		return nil, fmt.Errorf("device store required")
	}
	if params.Server == nil {
		return nil, fmt.Errorf("server cart repository required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.MirrorTimeout
	if timeout <= 0 {
		timeout = defaultMirrorTimeout
	}
	return &service{
		catalog:       params.Catalog,
		device:        params.Device,
		server:        params.Server,
		logg:          logg,
		mirrorTimeout: timeout,
	}, nil
}

// mutation edits a cart in place and reports the notice and whether anything changed.
type mutation func(c *Cart) (notice string, changed bool)

// Get hydrates the device cart and reconciles it with the server mirror for signed-in owners.
func (s *service) Get(ctx context.Context, owner Owner) (*Cart, error) {
	local, err := s.device.Load(ctx, owner.DeviceID)
	if err != nil {
		return nil, err
	}
	if !owner.authenticated() {
		return local, nil
	}

	remote, err := s.loadServer(ctx, *owner.UserID)
	if err != nil {
		s.logg.Error(ctx, "cart server read failed; using device cart", err)
		return local, nil
	}

	if remote.IsEmpty() {
		if local.IsEmpty() {
			return local, nil
		}
		// first authenticated load: push the device cart up once
		local.Version = remote.Version
		pushed := s.mirror(ctx, owner, local, nil)
		if err := s.device.Save(ctx, owner.DeviceID, pushed); err != nil {
			return nil, err
		}
		return pushed, nil
	}

	if err := s.device.Save(ctx, owner.DeviceID, remote); err != nil {
		return nil, err
	}
	return remote, nil
}

// Add puts a service in the cart. A service already present is incremented and
// keeps its original price whatever variant is passed.
func (s *service) Add(ctx context.Context, owner Owner, serviceID, variant string) (*Result, error) {
	svc, ok := s.catalog.Lookup(serviceID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown service").
			WithDetails(map[string]string{"service_id": "unknown service"})
	}
	if v := strings.TrimSpace(variant); v != "" && len(svc.Variants) > 0 {
		if _, ok := svc.Variant(v); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown variant").
				WithDetails(map[string]string{"variant": "unknown variant for " + svc.ID})
		}
	}
	capped := false
	res, err := s.apply(ctx, owner, func(c *Cart) (string, bool) {
		if !c.add(svc, 1) {
			capped = true
			return "", false
		}
		return svc.Name + " added to cart", true
	})
	if err != nil {
		return nil, err
	}
	if capped {
		return nil, quantityTooLarge()
	}
	return res, nil
}

// Remove deletes the line; removing an absent line is a no-op.
func (s *service) Remove(ctx context.Context, owner Owner, serviceID string) (*Result, error) {
	serviceID = strings.TrimSpace(serviceID)
	return s.apply(ctx, owner, func(c *Cart) (string, bool) {
		removed, ok := c.remove(serviceID)
		if !ok {
			return "", false
		}
		return removed.Name + " removed from cart", true
	})
}

// SetQuantity replaces the quantity of a line. Values below one leave the cart
// unchanged; values above MaxQuantity are rejected.
func (s *service) SetQuantity(ctx context.Context, owner Owner, serviceID string, quantity int) (*Result, error) {
	if quantity > MaxQuantity {
		return nil, quantityTooLarge()
	}
	serviceID = strings.TrimSpace(serviceID)
	return s.apply(ctx, owner, func(c *Cart) (string, bool) {
		return "", c.setQuantity(serviceID, quantity)
	})
}

// Clear empties the cart on the device and, for signed-in owners, on the server.
func (s *service) Clear(ctx context.Context, owner Owner) (*Cart, error) {
	if err := s.device.Delete(ctx, owner.DeviceID); err != nil {
		return nil, err
	}
	if owner.authenticated() {
		mctx, cancel := s.mirrorContext(ctx)
		defer cancel()
		if err := s.server.Clear(mctx, *owner.UserID); err != nil {
			s.logg.Error(ctx, "cart server clear failed", err)
		}
	}
	return &Cart{Items: []Item{}}, nil
}

func (s *service) apply(ctx context.Context, owner Owner, fn mutation) (*Result, error) {
	current, err := s.device.Load(ctx, owner.DeviceID)
	if err != nil {
		return nil, err
	}
	notice, changed := fn(current)
	if !changed {
		return &Result{Cart: current}, nil
	}
	if err := s.device.Save(ctx, owner.DeviceID, current); err != nil {
		return nil, err
	}
	if owner.authenticated() {
		before := current.Version
		mirrored := s.mirror(ctx, owner, current, fn)
		if mirrored != current || mirrored.Version != before {
			if err := s.device.Save(ctx, owner.DeviceID, mirrored); err != nil {
				return nil, err
			}
			current = mirrored
		}
	}
	return &Result{Cart: current, Notice: notice}, nil
}

// mirror writes the cart to the server guarded by its version. On a conflict the
// server cart is re-read, fn is re-applied to it and the write retried once.
// Failures are logged and the local cart is returned unchanged.
func (s *service) mirror(ctx context.Context, owner Owner, local *Cart, fn mutation) *Cart {
	mctx, cancel := s.mirrorContext(ctx)
	defer cancel()

	userID := *owner.UserID
	version, err := s.server.Replace(mctx, userID, local.Version, local.Items)
	if err == nil {
		local.Version = version
		return local
	}
	if !errors.Is(err, ErrVersionConflict) {
		s.logg.Error(ctx, "cart server write failed", err)
		return local
	}

	remote, err := s.server.Load(mctx, userID)
	if err != nil {
		s.logg.Error(ctx, "cart server re-read after conflict failed", err)
		return local
	}
	if fn == nil {
		if !remote.IsEmpty() {
			return remote
		}
		remote.Items = local.Items
	} else {
		fn(remote)
	}
	version, err = s.server.Replace(mctx, userID, remote.Version, remote.Items)
	if err != nil {
		s.logg.Error(ctx, "cart server retry failed", err)
		return local
	}
	remote.Version = version
	return remote
}

func (s *service) loadServer(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	mctx, cancel := s.mirrorContext(ctx)
	defer cancel()
	return s.server.Load(mctx, userID)
}

func (s *service) mirrorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.mirrorTimeout)
}

func quantityTooLarge() error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be at most %d", MaxQuantity)).
		WithDetails(map[string]string{"quantity": fmt.Sprintf("must be at most %d", MaxQuantity)})
}
