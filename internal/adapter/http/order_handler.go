package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
)

const maxCustomerIDLen = 100

type OrderHandler struct {
	service interfaces.KitchenService
	logger  logger.Logger
}

func NewOrderHandler(service interfaces.KitchenService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

type CreateOrderRequest struct {
	CustomerID string             `json:"customer_id"`
	VIP        bool               `json:"vip"`
	Items      []OrderItemRequest `json:"items"`
}

// OrderItemRequest.Item is a menu item name or its numeric id.
type OrderItemRequest struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

type CreateOrderResponse struct {
	OrderResponse
	RejectedItems []string `json:"rejected_items,omitempty"`
}

type MenuItemResponse struct {
	ID   int64        `json:"id"`
	Name string       `json:"name"`
	Cost domain.Money `json:"cost"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.RequestIDFrom(r.Context())

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if validationErrors := validateCreateOrderRequest(req); len(validationErrors) > 0 {
		h.logger.Error("validation_failed", "Order validation failed", requestID, map[string]interface{}{
			"errors": validationErrors,
		}, fmt.Errorf("validation failed"))

		respondError(w, "Validation failed", http.StatusBadRequest, validationErrors)
		return
	}

	cmd := interfaces.SubmitOrderCommand{
		CustomerID: strings.TrimSpace(req.CustomerID),
		IsVIP:      req.VIP,
		Items:      convertItemsToCommand(req.Items),
	}

	result, err := h.service.Submit(r.Context(), cmd)
	if err != nil {
		code, _ := statusFor(err)
		if code == http.StatusInternalServerError {
			h.logger.Error("order_creation_failed", "Failed to create order", requestID, nil, err)
		}
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateOrderResponse{
		OrderResponse: orderResponse(result.Order),
		RejectedItems: result.Rejected,
	})
}

func (h *OrderHandler) Menu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.service.Menu(r.Context())
	if err != nil {
		h.logger.Error("menu_failed", "Failed to list menu", logger.RequestIDFrom(r.Context()), nil, err)
		respondServiceError(w, err)
		return
	}

	resp := make([]MenuItemResponse, len(menu))
	for i, item := range menu {
		resp[i] = MenuItemResponse{ID: item.ID, Name: item.Name, Cost: item.Cost}
	}
	writeJSON(w, http.StatusOK, resp)
}

func validateCreateOrderRequest(req CreateOrderRequest) []ValidationError {
	var errors []ValidationError

	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		errors = append(errors, ValidationError{
			Field:   "customer_id",
			Message: "customer id is required",
		})
	} else if len(customerID) > maxCustomerIDLen {
		errors = append(errors, ValidationError{
			Field:   "customer_id",
			Message: fmt.Sprintf("customer id must not exceed %d characters", maxCustomerIDLen),
		})
	}

	if len(req.Items) < 1 {
		errors = append(errors, ValidationError{
			Field:   "items",
			Message: "order must contain at least 1 item",
		})
	}

	for i, item := range req.Items {
		itemPrefix := fmt.Sprintf("items[%d]", i)

		if strings.TrimSpace(item.Item) == "" {
			errors = append(errors, ValidationError{
				Field:   itemPrefix + ".item",
				Message: "item name or id is required",
			})
		}
		if item.Quantity < 1 {
			errors = append(errors, ValidationError{
				Field:   itemPrefix + ".quantity",
				Message: "item quantity must be at least 1",
			})
		}
	}

	return errors
}

func convertItemsToCommand(items []OrderItemRequest) []interfaces.RequestedItem {
	result := make([]interfaces.RequestedItem, len(items))
	for i, item := range items {
		result[i] = interfaces.RequestedItem{
			Item:     strings.TrimSpace(item.Item),
			Quantity: item.Quantity,
		}
	}
	return result
}
