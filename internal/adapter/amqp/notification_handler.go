package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
)

type NotificationHandler struct {
	logger logger.Logger
	out    io.Writer
}

func NewNotificationHandler(logger logger.Logger) *NotificationHandler {
	return NewNotificationHandlerWithWriter(logger, os.Stdout)
}

// NewNotificationHandlerWithWriter prints notifications to out.
func NewNotificationHandlerWithWriter(logger logger.Logger, out io.Writer) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
		out:    out,
	}
}

func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var msg interfaces.StatusChangedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}
	if msg.OrderID == 0 {
		err := fmt.Errorf("notification without order id")
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}

	h.logger.Debug("notification_received", fmt.Sprintf("Received status update for order %d", msg.OrderID),
		"", map[string]interface{}{
			"order_id":   msg.OrderID,
			"new_status": msg.NewStatus,
		})

	_, err := fmt.Fprintf(h.out, "Notification for order %d: Status changed from '%s' to '%s' by %s\n",
		msg.OrderID, msg.OldStatus, msg.NewStatus, msg.ChangedBy)
	return err
}
