//go:build integration

package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startNATS(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate nats: %v", err)
		}
	})

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "4222")
	require.NoError(t, err)
	return fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestNATSPublisherFlushesOnClose(t *testing.T) {
	url := startNATS(t)

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()
	received := make(chan *nats.Msg, 100)
	_, err = sub.ChanSubscribe(BookingCreated, received)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	p, err := NewNATSPublisher(url, zap.NewNop())
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		require.NoError(t, p.Publish(context.Background(), BookingCreated, map[string]int{"n": i}))
	}
	require.NoError(t, p.Close())
	assert.True(t, p.conn.IsClosed())

	deadline := time.After(5 * time.Second)
	for n := 0; n < 50; n++ {
		select {
		case <-received:
		case <-deadline:
			t.Fatalf("received %d of 50 events", n)
		}
	}

	// closing twice is fine
	assert.NoError(t, p.Close())
}
