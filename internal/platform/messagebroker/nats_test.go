package messagebroker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNATSClient_Unreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewNATSClient("nats://127.0.0.1:1", logger, "bridge_service_test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}

func TestNATSClient_PublishHonoursCanceledContext(t *testing.T) {
	c := &NATSClient{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Publish(ctx, "sms.inbound.brck", []byte("{}")), context.Canceled)
	c.Close()
}
