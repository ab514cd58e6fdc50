package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
)

type TrackingHandler struct {
	service interfaces.TrackingService
	logger  logger.Logger
}

func NewTrackingHandler(service interfaces.TrackingService, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		service: service,
		logger:  logger,
	}
}

type HistoryEntryResponse struct {
	OldStatus *domain.Status `json:"old_status"`
	NewStatus domain.Status  `json:"new_status"`
	ChangedBy string         `json:"changed_by"`
	Timestamp time.Time      `json:"timestamp"`
}

func (h *TrackingHandler) CustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.PathValue("id"))

	orders, err := h.service.CustomerOrders(r.Context(), customerID)
	if err != nil {
		h.fail(w, r, "customer_orders_failed", err)
		return
	}

	resp := make([]OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = orderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TrackingHandler) LatestOrder(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.PathValue("id"))

	order, err := h.service.LatestOrder(r.Context(), customerID)
	if err != nil {
		h.fail(w, r, "latest_order_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *TrackingHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	history, err := h.service.OrderHistory(r.Context(), orderID)
	if err != nil {
		h.fail(w, r, "order_history_failed", err)
		return
	}

	resp := make([]HistoryEntryResponse, len(history))
	for i, entry := range history {
		resp[i] = HistoryEntryResponse{
			OldStatus: entry.From,
			NewStatus: entry.To,
			ChangedBy: entry.ChangedBy,
			Timestamp: entry.ChangedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TrackingHandler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	if code, _ := statusFor(err); code == http.StatusInternalServerError {
		h.logger.Error(action, "Tracking request failed", logger.RequestIDFrom(r.Context()), nil, err)
	}
	respondServiceError(w, err)
}
