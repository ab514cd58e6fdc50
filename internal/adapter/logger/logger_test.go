package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("kitchen-service", &buf)

	l.Info("order_admitted", "Order 1 admitted", "req-1", map[string]interface{}{"order_id": 1})
	l.Error("db_failed", "boom", "", nil, errors.New("disk full"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var info LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &info))
	assert.Equal(t, "INFO", info.Level)
	assert.Equal(t, "kitchen-service", info.Service)
	assert.Equal(t, "req-1", info.RequestID)
	assert.Equal(t, "order_admitted", info.Action)
	assert.EqualValues(t, 1, info.Details["order_id"])
	assert.Nil(t, info.Error)
	assert.NotEmpty(t, info.Hostname)

	var failed LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))
	assert.Equal(t, "ERROR", failed.Level)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "disk full", failed.Error.Msg)
	assert.NotEmpty(t, failed.Error.Stack)
	assert.NotContains(t, lines[1], "request_id")
}

func TestRequestIDContext(t *testing.T) {
	assert.Equal(t, "", RequestIDFrom(context.Background()))

	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestIDFrom(ctx))
}
