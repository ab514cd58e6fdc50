package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/config"
	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  map[string]string
	bindings   []string
	published  []published
	deliveries chan amqp.Delivery
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{exchanges: map[string]string{}, deliveries: make(chan amqp.Delivery, 8)}
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges[name] = kind
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (Queue, error) {
	if name == "" {
		name = "amq.gen-test"
	}
	return Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = append(c.bindings, name+"<-"+exchange)
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) NotifyClose() <-chan *amqp.Error {
	return make(chan *amqp.Error)
}

type fakeConnection struct {
	ch         *fakeChannel
	closed     bool
	reconnects int
	dialErr    error
}

func (f *fakeConnection) Channel() (Channel, error) {
	if f.closed {
		return nil, ErrConnectionClosed
	}
	return f.ch, nil
}

func (f *fakeConnection) Reconnect() error {
	f.reconnects++
	if f.dialErr != nil {
		return f.dialErr
	}
	f.closed = false
	return nil
}

func (f *fakeConnection) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConnection) IsClosed() bool {
	return f.closed
}

func TestPublishOrderAdmitted(t *testing.T) {
	ch := newFakeChannel()
	p := NewPublisher(&fakeConnection{ch: ch})

	msg := interfaces.OrderAdmittedMessage{
		OrderID:    3,
		CustomerID: "cust-1",
		Items:      []interfaces.MessageItem{{MenuItemID: 2, Name: "Chicken Biryani", Quantity: 1, UnitCost: 320}},
		Total:      320,
		Priority:   domain.PriorityHigh,
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishOrderAdmitted(context.Background(), msg))

	assert.Equal(t, "topic", ch.exchanges[OrdersExchange])
	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, OrdersExchange, got.exchange)
	assert.Equal(t, "kitchen.high", got.key)
	assert.Equal(t, uint8(amqp.Persistent), got.msg.DeliveryMode)
	assert.Equal(t, uint8(3), got.msg.Priority)
	assert.True(t, ch.closed)

	var decoded interfaces.OrderAdmittedMessage
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, msg, decoded)
}

func TestPublishStatusChanged(t *testing.T) {
	ch := newFakeChannel()
	p := NewPublisher(&fakeConnection{ch: ch})

	require.NoError(t, p.PublishStatusChanged(context.Background(), interfaces.StatusChangedMessage{
		OrderID:   3,
		OldStatus: domain.StatusPending,
		NewStatus: domain.StatusPreparing,
		ChangedBy: "chef",
	}))

	assert.Equal(t, "fanout", ch.exchanges[NotificationsExchange])
	require.Len(t, ch.published, 1)
	assert.Equal(t, "", ch.published[0].key)
	assert.JSONEq(t,
		`{"order_id":3,"old_status":"pending","new_status":"preparing","changed_by":"chef","timestamp":"0001-01-01T00:00:00Z"}`,
		string(ch.published[0].msg.Body))
}

func TestPublishReconnectsClosedConnection(t *testing.T) {
	ch := newFakeChannel()
	conn := &fakeConnection{ch: ch, closed: true}
	p := NewPublisher(conn)

	require.NoError(t, p.PublishStatusChanged(context.Background(), interfaces.StatusChangedMessage{OrderID: 1}))
	assert.Equal(t, 1, conn.reconnects)

	conn.closed = true
	conn.dialErr = errors.New("refused")
	assert.Error(t, p.PublishStatusChanged(context.Background(), interfaces.StatusChangedMessage{OrderID: 1}))
}

func TestRoutingKeyAndPriority(t *testing.T) {
	assert.Equal(t, "kitchen.medium", RoutingKey(domain.PriorityMedium))
	assert.Equal(t, uint8(3), messagePriority(domain.PriorityHigh))
	assert.Equal(t, uint8(2), messagePriority(domain.PriorityMedium))
	assert.Equal(t, uint8(1), messagePriority(domain.PriorityLow))
	assert.Equal(t, uint8(0), messagePriority(domain.Priority(0)))
}

func TestDiscardPublisher(t *testing.T) {
	p := NewDiscardPublisher()
	assert.NoError(t, p.PublishOrderAdmitted(context.Background(), interfaces.OrderAdmittedMessage{}))
	assert.NoError(t, p.PublishStatusChanged(context.Background(), interfaces.StatusChangedMessage{}))
}

func TestConsumeStatusChanges(t *testing.T) {
	ch := newFakeChannel()
	c := NewConsumer(&fakeConnection{ch: ch}, logger.NewWithWriter("test", io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []byte, 2)
	done := make(chan error, 1)
	go func() {
		done <- c.ConsumeStatusChanges(ctx, func(_ context.Context, body []byte) error {
			received <- body
			return nil
		})
	}()

	ch.deliveries <- amqp.Delivery{Body: []byte(`{"order_id":1}`)}

	select {
	case body := <-received:
		assert.JSONEq(t, `{"order_id":1}`, string(body))
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	assert.Equal(t, "fanout", ch.exchanges[NotificationsExchange])
	assert.Equal(t, []string{"amq.gen-test<-" + NotificationsExchange}, ch.bindings)
}

func TestURL(t *testing.T) {
	url := URL(config.RabbitMQConfig{Host: "mq", Port: 5672, User: "guest", Password: "pw"})
	assert.Equal(t, "amqp://guest:pw@mq:5672/", url)
}
