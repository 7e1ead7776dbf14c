package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "staybook/pkg/errors"
	"staybook/pkg/identity"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	hostID  = "0b9a7c1e-2d3f-4a5b-8c6d-7e8f9a0b1c2d"
	guestID = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
	accID   = "7d3b8f2e-8c1a-4a6e-9a53-1b2c3d4e5f60"
)

type mockReservationService struct {
	createFunc              func(ctx context.Context, caller *identity.Caller, create *model.ReservationRequestCreate) (*model.ReservationRequest, error)
	respondFunc             func(ctx context.Context, responder *identity.Caller, id string, status model.RequestStatus) (*model.ReservationRequest, error)
	cancelFunc              func(ctx context.Context, caller *identity.Caller, requestID string) (*model.Reservation, error)
	listByGuestFunc         func(ctx context.Context, guestID, accommodationID string) ([]*model.ReservationRequestView, error)
	listByAccommodationFunc func(ctx context.Context, accommodationID string) ([]*model.ReservationRequestView, error)
	canHostDeleteFunc       func(ctx context.Context, caller *identity.Caller) (bool, error)
}

func (m *mockReservationService) Create(ctx context.Context, caller *identity.Caller, create *model.ReservationRequestCreate) (*model.ReservationRequest, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, caller, create)
	}
	return &model.ReservationRequest{}, nil
}

func (m *mockReservationService) Update(ctx context.Context, caller *identity.Caller, id string, update *model.ReservationRequestUpdate) (*model.ReservationRequest, error) {
	return &model.ReservationRequest{ID: id}, nil
}

func (m *mockReservationService) Delete(ctx context.Context, caller *identity.Caller, id string) error {
	return nil
}

func (m *mockReservationService) Get(ctx context.Context, caller *identity.Caller, id string) (*model.ReservationRequestView, error) {
	return &model.ReservationRequestView{}, nil
}

func (m *mockReservationService) ListByGuest(ctx context.Context, guestID, accommodationID string) ([]*model.ReservationRequestView, error) {
	if m.listByGuestFunc != nil {
		return m.listByGuestFunc(ctx, guestID, accommodationID)
	}
	return nil, nil
}

func (m *mockReservationService) ListByAccommodation(ctx context.Context, accommodationID string) ([]*model.ReservationRequestView, error) {
	if m.listByAccommodationFunc != nil {
		return m.listByAccommodationFunc(ctx, accommodationID)
	}
	return nil, nil
}

func (m *mockReservationService) Respond(ctx context.Context, responder *identity.Caller, id string, status model.RequestStatus) (*model.ReservationRequest, error) {
	if m.respondFunc != nil {
		return m.respondFunc(ctx, responder, id, status)
	}
	return &model.ReservationRequest{ID: id, Status: status}, nil
}

func (m *mockReservationService) Approve(ctx context.Context, responder *identity.Caller, id string) (*model.ReservationRequest, error) {
	return nil, nil
}

func (m *mockReservationService) Reject(ctx context.Context, responder *identity.Caller, id string) (*model.ReservationRequest, error) {
	return nil, nil
}

func (m *mockReservationService) Cancel(ctx context.Context, caller *identity.Caller, requestID string) (*model.Reservation, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, caller, requestID)
	}
	return &model.Reservation{}, nil
}

func (m *mockReservationService) CompleteFinished(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockReservationService) HasGuestCompletedStay(ctx context.Context, guestID, accommodationID string) (bool, error) {
	return true, nil
}

func (m *mockReservationService) CanGuestRateHost(ctx context.Context, caller *identity.Caller, hostID string) (bool, error) {
	return false, nil
}

func (m *mockReservationService) CanGuestDeleteAccount(ctx context.Context, guestID string) (bool, error) {
	return true, nil
}

func (m *mockReservationService) CanHostDeleteAccount(ctx context.Context, caller *identity.Caller) (bool, error) {
	if m.canHostDeleteFunc != nil {
		return m.canHostDeleteFunc(ctx, caller)
	}
	return true, nil
}

func serve(svc *mockReservationService, req *http.Request) *httptest.ResponseRecorder {
	log := logger.New(logger.Config{Level: "info", Format: logger.JSON, AddSource: false, Service: "test"})
	router := httprouter.New()
	NewReservationHandler(svc, log).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func as(req *http.Request, userID string, role identity.Role) *http.Request {
	req.Header.Set(identity.HeaderUserID, userID)
	req.Header.Set(identity.HeaderUserRole, string(role))
	req.Header.Set(identity.HeaderUserEmail, "guest@example.com")
	req.Header.Set(identity.HeaderUserFirstName, "Ana")
	return req
}

func TestCreate_PassesCallerSnapshot(t *testing.T) {
	var caller *identity.Caller
	svc := &mockReservationService{
		createFunc: func(ctx context.Context, c *identity.Caller, create *model.ReservationRequestCreate) (*model.ReservationRequest, error) {
			caller = c
			return &model.ReservationRequest{ID: "req-1", Status: model.RequestPending}, nil
		},
	}

	body := `{"accommodation_id":"` + accID + `","start_date":"2025-06-10","end_date":"2025-06-12","guest_count":2}`
	req := as(httptest.NewRequest(http.MethodPost, "/api/reservation-requests", strings.NewReader(body)), guestID, identity.RoleGuest)
	w := serve(svc, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if caller == nil || caller.ID != guestID || caller.Email != "guest@example.com" || caller.FirstName != "Ana" {
		t.Errorf("unexpected caller: %+v", caller)
	}

	hostReq := as(httptest.NewRequest(http.MethodPost, "/api/reservation-requests", strings.NewReader(body)), hostID, identity.RoleHost)
	if w := serve(svc, hostReq); w.Code != http.StatusForbidden {
		t.Errorf("hosts cannot create requests, got %d", w.Code)
	}
}

func TestList_RoleSelectsView(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		role      identity.Role
		wantGuest string
		wantHost  bool
	}{
		{"guest sees own requests", guestID, identity.RoleGuest, guestID, false},
		{"host sees accommodation requests", hostID, identity.RoleHost, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotGuest, gotAcc string
			hostCalled := false
			svc := &mockReservationService{
				listByGuestFunc: func(ctx context.Context, g, a string) ([]*model.ReservationRequestView, error) {
					gotGuest, gotAcc = g, a
					return []*model.ReservationRequestView{}, nil
				},
				listByAccommodationFunc: func(ctx context.Context, a string) ([]*model.ReservationRequestView, error) {
					hostCalled, gotAcc = true, a
					return []*model.ReservationRequestView{}, nil
				},
			}

			req := as(httptest.NewRequest(http.MethodGet, "/api/reservation-requests?accommodation_id="+accID, nil), tt.userID, tt.role)
			w := serve(svc, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if gotGuest != tt.wantGuest || hostCalled != tt.wantHost || gotAcc != accID {
				t.Errorf("guest=%q host=%v acc=%q", gotGuest, hostCalled, gotAcc)
			}
		})
	}
}

func TestRespond_StatusParameter(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		role       identity.Role
		wantStatus int
		wantTarget model.RequestStatus
	}{
		{"approve", "?status=approved", identity.RoleHost, http.StatusOK, model.RequestApproved},
		{"reject", "?status=REJECTED", identity.RoleHost, http.StatusOK, model.RequestRejected},
		{"missing status", "", identity.RoleHost, http.StatusBadRequest, ""},
		{"guest forbidden", "?status=APPROVED", identity.RoleGuest, http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target model.RequestStatus
			var responder *identity.Caller
			svc := &mockReservationService{
				respondFunc: func(ctx context.Context, r *identity.Caller, id string, status model.RequestStatus) (*model.ReservationRequest, error) {
					target, responder = status, r
					return &model.ReservationRequest{ID: id, Status: status}, nil
				},
			}

			userID := hostID
			if tt.role == identity.RoleGuest {
				userID = guestID
			}
			req := as(httptest.NewRequest(http.MethodPatch, "/api/reservation-requests/req-1/status"+tt.query, nil), userID, tt.role)
			w := serve(svc, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if target != tt.wantTarget {
				t.Errorf("expected target %q, got %q", tt.wantTarget, target)
			}
			if tt.wantTarget != "" && responder.ID != hostID {
				t.Errorf("expected responder to be the host, got %+v", responder)
			}
		})
	}
}

func TestCancel_TooLateIsBadRequest(t *testing.T) {
	svc := &mockReservationService{
		cancelFunc: func(ctx context.Context, caller *identity.Caller, requestID string) (*model.Reservation, error) {
			return nil, apperrors.TooLate("Too late to cancel reservation")
		},
	}

	req := as(httptest.NewRequest(http.MethodPost, "/api/reservation-requests/req-1/cancel", nil), guestID, identity.RoleGuest)
	w := serve(svc, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["code"] != apperrors.CodeTooLate {
		t.Errorf("expected code %s, got %v", apperrors.CodeTooLate, body["code"])
	}
}

func TestEligibilityRoutes(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		userID     string
		role       identity.Role
		wantStatus int
		wantData   any
	}{
		{"guest can rate accommodation", "/api/booking/accommodations/" + accID + "/can-rate", guestID, identity.RoleGuest, http.StatusOK, true},
		{"guest can rate host", "/api/booking/hosts/" + hostID + "/can-rate", guestID, identity.RoleGuest, http.StatusOK, false},
		{"guest can delete", "/api/booking/guest/can-delete-account", guestID, identity.RoleGuest, http.StatusOK, true},
		{"host can delete", "/api/booking/host/can-delete-account", hostID, identity.RoleHost, http.StatusOK, true},
		{"guest asking as host", "/api/booking/host/can-delete-account", guestID, identity.RoleGuest, http.StatusForbidden, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(&mockReservationService{}, as(httptest.NewRequest(http.MethodGet, tt.path, nil), tt.userID, tt.role))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Data any `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Data != tt.wantData {
				t.Errorf("expected %v, got %v", tt.wantData, body.Data)
			}
		})
	}
}
