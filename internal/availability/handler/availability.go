package handler

import (
	"encoding/json"
	"net/http"

	"staybook/internal/availability/service"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/identity"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) Define(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, err := identity.Require(r, identity.RoleHost); err != nil {
		h.writeError(w, "Define", err)
		return
	}

	var create model.AvailabilityCreate
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		h.writeBadBody(w, "Define")
		return
	}

	interval, err := h.service.Define(r.Context(), &create)
	if err != nil {
		h.writeError(w, "Define", err)
		return
	}

	if err := httputil.WriteCreated(w, interval); err != nil {
		h.log.Error("failed to write created response", "handler", "Define", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := identity.Require(r, identity.RoleHost); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var update model.AvailabilityUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeBadBody(w, "Update")
		return
	}

	interval, err := h.service.Update(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, interval); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := identity.Require(r, identity.RoleHost); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

// Calendar serves both roles; only hosts see confirmed stays.
func (h *AvailabilityHandler) Calendar(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := identity.Require(r)
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}

	from, err := httputil.DateQuery(r, "start_date")
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}
	to, err := httputil.DateQuery(r, "end_date")
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}

	entries, err := h.service.Calendar(r.Context(), ps.ByName("id"), from, to, caller.IsHost())
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("failed to write success response", "handler", "Calendar", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AvailabilityHandler) writeBadBody(w http.ResponseWriter, handler string) {
	if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
		Error: "Invalid request body",
		Code:  apperrors.CodeInvalidInput,
	}); writeErr != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", writeErr)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/availability", h.Define)
	router.PUT("/api/availability/:id", h.Update)
	router.DELETE("/api/availability/:id", h.Delete)
	router.GET("/api/availability/:id/calendar", h.Calendar)
}
