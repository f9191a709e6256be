package handlers

import (
	"net/http"

	"delivery-tracking/internal/logx"
)

// CourierHandler serves the courier roster.
type CourierHandler struct {
	usecase rosterUsecase
	logger  logx.Logger
}

// NewCourierHandler creates a CourierHandler.
func NewCourierHandler(logger logx.Logger, uc rosterUsecase) *CourierHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &CourierHandler{usecase: uc, logger: logger}
}

// Online handles GET /couriers/online?role=.
func (h *CourierHandler) Online(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	list, err := h.usecase.Online(r.Context(), actor, r.URL.Query().Get("role"))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, list)
}
