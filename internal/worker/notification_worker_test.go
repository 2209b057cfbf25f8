package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/outbox"
)

type countingSender struct {
	mu    sync.Mutex
	calls map[string]int
	fail  string
}

func (s *countingSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[msg.To]++
	if msg.To == s.fail {
		return errors.New("mailbox unavailable")
	}
	return nil
}

func (s *countingSender) count(to string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[to]
}

func TestOutboxWorkerDrainsQueueOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	box := outbox.NewRedisOutbox(client, "test:outbox")
	sender := &countingSender{calls: map[string]int{}, fail: "broken@allowed.test"}
	w := NewOutboxWorker(box, outbox.NewDeliverer(sender, observability.NewMetrics(), zap.NewNop()), zap.NewNop())
	w.pollTimeout = 50 * time.Millisecond

	ctx := context.Background()
	require.NoError(t, box.Enqueue(ctx, mail.Message{Kind: mail.KindTicketConfirmation, To: "ok@allowed.test"}))
	require.NoError(t, box.Enqueue(ctx, mail.Message{Kind: mail.KindOwnerAssignment, To: "broken@allowed.test"}))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		w.Run(runCtx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		n, err := box.Len(ctx)
		return err == nil && n == 0 && sender.count("broken@allowed.test") == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, 1, sender.count("ok@allowed.test"))
	assert.Equal(t, 1, sender.count("broken@allowed.test"))
}
