package notify

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dispatcher hands messages to a fixed pool of workers so handlers never wait
// on the mail provider.
type Dispatcher struct {
	pool    *workerpool.WorkerPool
	mailer  Mailer
	log     *zap.Logger
	timeout time.Duration
	limiter *rate.Limiter

	mu      sync.Mutex
	stopped bool
}

type Option func(*Dispatcher)

// WithRate caps sends at perSecond across all workers. Zero or less leaves
// sending unlimited.
func WithRate(perSecond int) Option {
	return func(d *Dispatcher) {
		if perSecond > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func NewDispatcher(mailer Mailer, workers int, log *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		pool:    workerpool.New(workers),
		mailer:  mailer,
		log:     log,
		timeout: 10 * time.Second,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue reports false when the dispatcher is already closed.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		d.log.Warn("mail dropped, dispatcher closed", zap.String("to", msg.To))
		return false
	}

	d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.limiter.Wait(ctx); err != nil {
			d.log.Error("mail rate wait", zap.String("to", msg.To), zap.Error(err))
			return
		}
		if err := d.mailer.Send(ctx, msg); err != nil {
			d.log.Error("send mail",
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
		}
	})
	return true
}

// Close waits for queued mail to go out.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	d.pool.StopWait()
}
