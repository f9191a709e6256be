package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/logx"
)

const defaultNearbyRadius = 5000.0

// DeliveryHandler serves the /deliveries resource.
type DeliveryHandler struct {
	usecase    deliveryUsecase
	candidates candidateFinder
	logger     logx.Logger
}

// NewDeliveryHandler creates a DeliveryHandler.
func NewDeliveryHandler(logger logx.Logger, uc deliveryUsecase, candidates candidateFinder) *DeliveryHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &DeliveryHandler{usecase: uc, candidates: candidates, logger: logger}
}

// Create handles POST /deliveries.
func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	var req createDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		writeError(h.logger, w, r, fmt.Errorf("orderId is required: %w", apperr.ErrValidation))
		return
	}

	d, err := h.usecase.Create(r.Context(), actor, req.OrderID)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, toDeliveryDTO(d))
}

// List handles GET /deliveries.
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	list, err := h.usecase.List(r.Context(), actor)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toDeliveryDTOs(list))
}

// Nearby handles GET /deliveries/nearby?lat=&lng=&radius=.
func (h *DeliveryHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	lat, okLat, err := queryFloat(r, "lat")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	lng, okLng, err := queryFloat(r, "lng")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	if !okLat || !okLng {
		writeError(h.logger, w, r, fmt.Errorf("lat and lng are required: %w", apperr.ErrValidation))
		return
	}
	radius, ok, err := queryFloat(r, "radius")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	if !ok {
		radius = defaultNearbyRadius
	}

	list, err := h.usecase.NearbyPending(r.Context(), actor, domain.Point{Lat: lat, Lng: lng}, radius)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toDeliveryDTOs(list))
}

// Get handles GET /deliveries/{id}.
func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	d, err := h.usecase.View(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toDeliveryDTO(d))
}

// Assign handles POST /deliveries/{id}/assign.
func (h *DeliveryHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	var req assignDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	d, err := h.usecase.Assign(r.Context(), actor, chi.URLParam(r, "id"), req.CourierID)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toDeliveryDTO(d))
}

// Candidates handles GET /deliveries/{id}/candidates?radius=&limit=.
func (h *DeliveryHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	radius, _, err := queryFloat(r, "radius")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	list, err := h.candidates.FindCandidates(r.Context(), actor, chi.URLParam(r, "id"), radius, limit)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	if list == nil {
		list = []domain.Candidate{}
	}
	writeJSON(h.logger, w, r, http.StatusOK, list)
}

// Location handles GET /deliveries/{id}/location.
func (h *DeliveryHandler) Location(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	p, err := h.usecase.CurrentLocation(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, locationResponse{Location: p})
}

// Status handles POST /deliveries/{id}/status.
func (h *DeliveryHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	var req statusRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	d, err := h.usecase.Advance(r.Context(), actor, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toDeliveryDTO(d))
}
