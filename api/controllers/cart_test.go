package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/darzi-doorstep/darzi-backend/api/middleware"
	"github.com/darzi-doorstep/darzi-backend/internal/cart"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
)

type stubCartService struct {
	owner    cart.Owner
	quantity int
	addErr   error
	cart     *cart.Cart
}

func (s *stubCartService) Get(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	s.owner = owner
	return s.cart, nil
}

func (s *stubCartService) Add(ctx context.Context, owner cart.Owner, serviceID, variant string) (*cart.Result, error) {
	s.owner = owner
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &cart.Result{Cart: s.cart, Notice: serviceID + " added to cart"}, nil
}

func (s *stubCartService) Remove(ctx context.Context, owner cart.Owner, serviceID string) (*cart.Result, error) {
	return &cart.Result{Cart: &cart.Cart{}}, nil
}

func (s *stubCartService) SetQuantity(ctx context.Context, owner cart.Owner, serviceID string, quantity int) (*cart.Result, error) {
	s.quantity = quantity
	return &cart.Result{Cart: s.cart}, nil
}

func (s *stubCartService) Clear(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	return &cart.Cart{}, nil
}

func sampleCart() *cart.Cart {
	return &cart.Cart{Items: []cart.Item{{ServiceID: "male-jeans", Name: "Jeans", UnitPrice: 91, Quantity: 2}}}
}

func cartRouter(svc cart.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.DeviceID(nil))
	r.Get("/cart", CartGet(svc, nil))
	r.Post("/cart/items", CartAddItem(svc, nil))
	r.Patch("/cart/items/{serviceID}", CartSetQuantity(svc, nil))
	r.Delete("/cart", CartClear(svc, nil))
	return r
}

func TestCartGetTotals(t *testing.T) {
	svc := &stubCartService{cart: sampleCart()}
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(middleware.DeviceIDHeader, "device-1234")
	resp := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalItems != 2 || envelope.Data.TotalAmount != 182 || envelope.Data.TotalLabel != "₹182" {
		t.Fatalf("unexpected totals %+v", envelope.Data)
	}
	if svc.owner.DeviceID != "device-1234" || svc.owner.UserID != nil {
		t.Fatalf("unexpected owner %+v", svc.owner)
	}
}

func TestCartUsesSignedInUser(t *testing.T) {
	svc := &stubCartService{cart: sampleCart()}
	userID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"service_id":"male-jeans","variant":"Waist"}`))
	req.Header.Set(middleware.DeviceIDHeader, "device-1234")
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.owner.UserID == nil || *svc.owner.UserID != userID {
		t.Fatalf("expected owner user %s, got %+v", userID, svc.owner)
	}
	if !strings.Contains(resp.Body.String(), "male-jeans added to cart") {
		t.Fatalf("expected notice in body: %s", resp.Body.String())
	}
}

func TestCartAddRejectsUnknownService(t *testing.T) {
	svc := &stubCartService{addErr: pkgerrors.New(pkgerrors.CodeValidation, "unknown service")}
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"service_id":"nope"}`))
	req.Header.Set(middleware.DeviceIDHeader, "device-1234")
	resp := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartSetQuantityRequiresValue(t *testing.T) {
	svc := &stubCartService{cart: sampleCart()}

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/male-jeans", strings.NewReader(`{}`))
	req.Header.Set(middleware.DeviceIDHeader, "device-1234")
	resp := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without quantity got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/cart/items/male-jeans", strings.NewReader(`{"quantity":0}`))
	req.Header.Set(middleware.DeviceIDHeader, "device-1234")
	resp = httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || svc.quantity != 0 {
		t.Fatalf("zero quantity is passed through, got %d quantity=%d", resp.Code, svc.quantity)
	}

	svc.quantity = -1
	req = httptest.NewRequest(http.MethodPatch, "/cart/items/male-jeans", strings.NewReader(`{"quantity":101454258718105626}`))
	req.Header.Set(middleware.DeviceIDHeader, "device-1234")
	resp = httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest || svc.quantity != -1 {
		t.Fatalf("oversized quantity must be rejected before the service, got %d quantity=%d", resp.Code, svc.quantity)
	}
}

func TestCartRequiresDeviceHeader(t *testing.T) {
	resp := httptest.NewRecorder()
	cartRouter(&stubCartService{}).ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/cart", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
