package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error       string            `json:"error"`
	KitchenFull bool              `json:"kitchen_full,omitempty"`
	Errors      []ValidationError `json:"errors,omitempty"`
}

type LineItemResponse struct {
	MenuItemID int64        `json:"menu_item_id"`
	Name       string       `json:"name"`
	Quantity   int          `json:"quantity"`
	UnitCost   domain.Money `json:"unit_cost"`
	Subtotal   domain.Money `json:"subtotal"`
}

type OrderResponse struct {
	OrderID     int64              `json:"order_id"`
	CustomerID  string             `json:"customer_id"`
	Items       []LineItemResponse `json:"items"`
	Total       domain.Money       `json:"total"`
	Priority    domain.Priority    `json:"priority"`
	Status      domain.Status      `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   *time.Time         `json:"updated_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

func lineItems(items []domain.LineItem) []LineItemResponse {
	resp := make([]LineItemResponse, len(items))
	for i, it := range items {
		resp[i] = LineItemResponse{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitCost:   it.UnitCost,
			Subtotal:   it.Subtotal(),
		}
	}
	return resp
}

func orderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		Items:       lineItems(o.Items),
		Total:       o.Total,
		Priority:    o.Priority,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		CompletedAt: o.CompletedAt,
	}
	if !o.UpdatedAt.IsZero() {
		updated := o.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

func viewResponse(v interfaces.OrderView) OrderResponse {
	return OrderResponse{
		OrderID:    v.OrderID,
		CustomerID: v.CustomerID,
		Items:      lineItems(v.Items),
		Total:      v.Total,
		Priority:   v.Priority,
		Status:     v.Status,
		CreatedAt:  v.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, message string, statusCode int, validationErrors []ValidationError) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:  message,
		Errors: validationErrors,
	})
}

// statusFor maps a service error to its HTTP status. Repository faults and
// unknown errors become 500 and their text is not exposed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusTooManyRequests, domain.ErrCapacityExceeded.Error()
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrInvalidOrder), errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, domain.ErrOrderNotFound.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func respondServiceError(w http.ResponseWriter, err error) {
	code, message := statusFor(err)
	writeJSON(w, code, ErrorResponse{
		Error:       message,
		KitchenFull: code == http.StatusTooManyRequests,
	})
}
