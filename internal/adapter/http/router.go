package http

import (
	"net/http"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
)

// NewRouter wires every handler of the kitchen service behind the logging
// and recovery middleware.
func NewRouter(orders *OrderHandler, kitchen *KitchenHandler, tracking *TrackingHandler, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /menu", orders.Menu)
	mux.HandleFunc("POST /orders", orders.CreateOrder)

	mux.HandleFunc("GET /kitchen/orders", kitchen.ActiveOrders)
	mux.HandleFunc("POST /kitchen/orders/{id}/status", kitchen.UpdateStatus)

	mux.HandleFunc("GET /customers/{id}/orders", tracking.CustomerOrders)
	mux.HandleFunc("GET /customers/{id}/orders/latest", tracking.LatestOrder)
	mux.HandleFunc("GET /orders/{id}/history", tracking.OrderHistory)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return LoggingMiddleware(log)(RecoveryMiddleware(log)(mux))
}
