package notify_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"studyhub/internal/mocks"
	"studyhub/internal/notify"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDispatcherDeliversEveryMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mailer := mocks.NewMockMailer(ctrl)
	var sent int32
	mailer.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ notify.Message) error {
			atomic.AddInt32(&sent, 1)
			return nil
		}).
		Times(5)

	d := notify.NewDispatcher(mailer, 2, zap.NewNop())
	for i := 0; i < 5; i++ {
		assert.True(t, d.Enqueue(notify.Message{To: "a@example.com", Subject: "hi"}))
	}
	d.Close()

	assert.Equal(t, int32(5), atomic.LoadInt32(&sent))
}

func TestDispatcherSurvivesSendErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mailer := mocks.NewMockMailer(ctrl)
	first := mailer.EXPECT().
		Send(gomock.Any(), notify.Message{To: "bad@example.com"}).
		Return(errors.New("provider down"))
	mailer.EXPECT().
		Send(gomock.Any(), notify.Message{To: "good@example.com"}).
		Return(nil).
		After(first)

	d := notify.NewDispatcher(mailer, 1, zap.NewNop())
	d.Enqueue(notify.Message{To: "bad@example.com"})
	d.Enqueue(notify.Message{To: "good@example.com"})
	d.Close()
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mailer := mocks.NewMockMailer(ctrl)
	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	d := notify.NewDispatcher(mailer, 1, zap.NewNop())
	d.Close()
	d.Close()

	assert.False(t, d.Enqueue(notify.Message{To: "late@example.com"}))
}

func TestDispatcherRateLimitsSends(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mailer := mocks.NewMockMailer(ctrl)
	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(4)

	// the first send goes out at once, each later one waits 50ms
	d := notify.NewDispatcher(mailer, 4, zap.NewNop(), notify.WithRate(20))
	start := time.Now()
	for i := 0; i < 4; i++ {
		d.Enqueue(notify.Message{To: "a@example.com"})
	}
	d.Close()

	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
}
