package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"staybook/internal/reservations/service"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/identity"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := identity.Require(r, identity.RoleGuest)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var create model.ReservationRequestCreate
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		h.writeBadBody(w, "Create")
		return
	}

	req, err := h.service.Create(r.Context(), caller, &create)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, req); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := identity.Require(r, identity.RoleGuest)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var update model.ReservationRequestUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeBadBody(w, "Update")
		return
	}

	req, err := h.service.Update(r.Context(), caller, ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	h.writeSuccess(w, "Update", req)
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := identity.Require(r, identity.RoleGuest)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), caller, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := identity.Require(r)
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	view, err := h.service.Get(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	h.writeSuccess(w, "Get", view)
}

// List returns the caller's own requests for guests and every request of the accommodation
// for hosts.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := identity.Require(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	accommodationID := r.URL.Query().Get("accommodation_id")

	var views []*model.ReservationRequestView
	if caller.IsHost() {
		views, err = h.service.ListByAccommodation(r.Context(), accommodationID)
	} else {
		views, err = h.service.ListByGuest(r.Context(), caller.ID, accommodationID)
	}
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	h.writeSuccess(w, "List", views)
}

func (h *ReservationHandler) Respond(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := identity.Require(r, identity.RoleHost)
	if err != nil {
		h.writeError(w, "Respond", err)
		return
	}

	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	if status == "" {
		h.writeError(w, "Respond", apperrors.InvalidInput("status query parameter is required"))
		return
	}

	req, err := h.service.Respond(r.Context(), caller, ps.ByName("id"), model.RequestStatus(status))
	if err != nil {
		h.writeError(w, "Respond", err)
		return
	}

	h.writeSuccess(w, "Respond", req)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := identity.Require(r, identity.RoleGuest)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	reservation, err := h.service.Cancel(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	h.writeSuccess(w, "Cancel", reservation)
}

func (h *ReservationHandler) CanRateAccommodation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := identity.Require(r, identity.RoleGuest)
	if err != nil {
		h.writeError(w, "CanRateAccommodation", err)
		return
	}

	ok, err := h.service.HasGuestCompletedStay(r.Context(), caller.ID, ps.ByName("accommodationId"))
	if err != nil {
		h.writeError(w, "CanRateAccommodation", err)
		return
	}

	h.writeSuccess(w, "CanRateAccommodation", ok)
}

func (h *ReservationHandler) CanRateHost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := identity.Require(r, identity.RoleGuest)
	if err != nil {
		h.writeError(w, "CanRateHost", err)
		return
	}

	ok, err := h.service.CanGuestRateHost(r.Context(), caller, ps.ByName("hostId"))
	if err != nil {
		h.writeError(w, "CanRateHost", err)
		return
	}

	h.writeSuccess(w, "CanRateHost", ok)
}

func (h *ReservationHandler) CanGuestDeleteAccount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := identity.Require(r, identity.RoleGuest)
	if err != nil {
		h.writeError(w, "CanGuestDeleteAccount", err)
		return
	}

	ok, err := h.service.CanGuestDeleteAccount(r.Context(), caller.ID)
	if err != nil {
		h.writeError(w, "CanGuestDeleteAccount", err)
		return
	}

	h.writeSuccess(w, "CanGuestDeleteAccount", ok)
}

func (h *ReservationHandler) CanHostDeleteAccount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := identity.Require(r, identity.RoleHost)
	if err != nil {
		h.writeError(w, "CanHostDeleteAccount", err)
		return
	}

	ok, err := h.service.CanHostDeleteAccount(r.Context(), caller)
	if err != nil {
		h.writeError(w, "CanHostDeleteAccount", err)
		return
	}

	h.writeSuccess(w, "CanHostDeleteAccount", ok)
}

func (h *ReservationHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ReservationHandler) writeBadBody(w http.ResponseWriter, handler string) {
	if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
		Error: "Invalid request body",
		Code:  apperrors.CodeInvalidInput,
	}); writeErr != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", writeErr)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/reservation-requests", h.Create)
	router.GET("/api/reservation-requests", h.List)
	router.GET("/api/reservation-requests/:id", h.Get)
	router.PUT("/api/reservation-requests/:id", h.Update)
	router.DELETE("/api/reservation-requests/:id", h.Delete)
	router.PATCH("/api/reservation-requests/:id/status", h.Respond)
	router.POST("/api/reservation-requests/:id/cancel", h.Cancel)

	router.GET("/api/booking/accommodations/:accommodationId/can-rate", h.CanRateAccommodation)
	router.GET("/api/booking/hosts/:hostId/can-rate", h.CanRateHost)
	router.GET("/api/booking/guest/can-delete-account", h.CanGuestDeleteAccount)
	router.GET("/api/booking/host/can-delete-account", h.CanHostDeleteAccount)
}
