// Package events publishes domain events (task created, booking made, review
// moderated) for other services to consume.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	UserRegistered  = "studyhub.users.registered"
	TaskCreated     = "studyhub.tasks.created"
	ReviewModerated = "studyhub.reviews.moderated"
	BookingCreated  = "studyhub.bookings.created"
	BookingChanged  = "studyhub.bookings.changed"
)

type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Subject    string          `json:"subject"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
	Close() error
}

func encode(subject string, payload interface{}, now time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	return json.Marshal(Envelope{
		ID:         uuid.New(),
		Subject:    subject,
		OccurredAt: now.UTC(),
		Data:       data,
	})
}

const drainTimeout = 10 * time.Second

type NATSPublisher struct {
	conn   *nats.Conn
	log    *zap.Logger
	closed chan struct{}
}

func NewNATSPublisher(url string, log *zap.Logger) (*NATSPublisher, error) {
	closed := make(chan struct{})
	conn, err := nats.Connect(url,
		nats.Name("studyhub"),
		nats.DrainTimeout(drainTimeout),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, log: log, closed: closed}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, payload interface{}) error {
	if p.conn == nil || p.conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	msg, err := encode(subject, payload, time.Now())
	if err != nil {
		return err
	}
	if err := p.conn.Publish(subject, msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and returns once the connection is closed.
// Drain runs in the background, so Close waits for the closed callback.
func (p *NATSPublisher) Close() error {
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return awaitClosed(p.closed, drainTimeout+time.Second)
}

func awaitClosed(closed <-chan struct{}, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-closed:
		return nil
	case <-timer.C:
		return fmt.Errorf("nats drain did not finish within %s", timeout)
	}
}

// LogPublisher is used when NATS_URL is empty.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, subject string, payload interface{}) error {
	msg, err := encode(subject, payload, time.Now())
	if err != nil {
		return err
	}
	p.log.Debug("event", zap.String("subject", subject), zap.ByteString("payload", msg))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
