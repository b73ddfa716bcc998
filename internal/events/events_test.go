package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEncodeEnvelope(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3*3600))

	raw, err := encode(TaskCreated, map[string]string{"title": "Read chapter 3"}, now)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))

	assert.Equal(t, TaskCreated, env.Subject)
	assert.True(t, now.Equal(env.OccurredAt))
	assert.NotEmpty(t, env.ID)
	assert.JSONEq(t, `{"title":"Read chapter 3"}`, string(env.Data))
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode(TaskCreated, make(chan int), time.Now())
	assert.Error(t, err)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(zap.NewNop())
	assert.NoError(t, p.Publish(context.Background(), BookingCreated, struct{ ID int }{1}))
	assert.NoError(t, p.Close())
}

func TestNATSPublisherClosedConnection(t *testing.T) {
	p := &NATSPublisher{log: zap.NewNop()}
	err := p.Publish(context.Background(), TaskCreated, nil)
	assert.Error(t, err)
	assert.NoError(t, p.Close())
}

func TestAwaitClosed(t *testing.T) {
	closed := make(chan struct{})
	close(closed)
	assert.NoError(t, awaitClosed(closed, time.Second))

	assert.Error(t, awaitClosed(make(chan struct{}), 10*time.Millisecond))
}
