package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
)

type KitchenHandler struct {
	service interfaces.KitchenService
	logger  logger.Logger
}

func NewKitchenHandler(service interfaces.KitchenService, logger logger.Logger) *KitchenHandler {
	return &KitchenHandler{
		service: service,
		logger:  logger,
	}
}

type UpdateStatusRequest struct {
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by"`
}

// ActiveOrders returns the kitchen queue in serving order.
func (h *KitchenHandler) ActiveOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ActiveOrders(r.Context())
	if err != nil {
		h.logger.Error("queue_failed", "Failed to load kitchen queue", logger.RequestIDFrom(r.Context()), nil, err)
		respondServiceError(w, err)
		return
	}

	resp := make([]OrderResponse, len(views))
	for i, v := range views {
		resp[i] = viewResponse(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *KitchenHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := logger.RequestIDFrom(r.Context())

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{{
			Field:   "status",
			Message: "status must be one of: pending, preparing, completed",
		}})
		return
	}

	updated, err := h.service.Transition(r.Context(), orderID, status, req.ChangedBy)
	if err != nil {
		code, _ := statusFor(err)
		if code == http.StatusInternalServerError {
			h.logger.Error("status_update_failed", "Failed to update order status", requestID, nil, err)
		}
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orderResponse(updated))
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{{
			Field:   "id",
			Message: "order id must be a positive integer",
		}})
		return 0, false
	}
	return id, true
}
