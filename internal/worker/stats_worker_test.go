package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type flakyPublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []VoteEvent
	done     chan struct{}
}

func (p *flakyPublisher) Publish(ctx context.Context, ev VoteEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return errors.New("broker unavailable")
	}
	p.got = append(p.got, ev)
	close(p.done)
	return nil
}

func TestStatsWorkerRetriesPublish(t *testing.T) {
	ch := make(chan VoteEvent, 1)
	pub := &flakyPublisher{failures: 2, done: make(chan struct{})}
	w := NewStatsWorker(ch, pub, nil)
	w.baseDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	ch <- VoteEvent{RoomID: "room-1", OptionIndex: 1, At: time.Now()}

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("event was not published")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.calls != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", pub.calls)
	}
	if len(pub.got) != 1 || pub.got[0].RoomID != "room-1" || pub.got[0].OptionIndex != 1 {
		t.Fatalf("unexpected published events %+v", pub.got)
	}
}

type classifyingPublisher struct {
	mu        sync.Mutex
	err       error
	permanent error
	calls     int
}

func (p *classifyingPublisher) Publish(ctx context.Context, ev VoteEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *classifyingPublisher) Retryable(err error) bool {
	return !errors.Is(err, p.permanent)
}

func TestStatsWorkerStopsRetryingPermanentErrors(t *testing.T) {
	tooLarge := errors.New("message too large")
	cases := []struct {
		name  string
		err   error
		calls int
	}{
		{"permanent", tooLarge, 1},
		{"context", context.DeadlineExceeded, 1},
		{"transient", errors.New("broker unavailable"), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pub := &classifyingPublisher{err: tc.err, permanent: tooLarge}
			w := NewStatsWorker(nil, pub, nil)
			w.baseDelay = time.Millisecond

			w.handle(context.Background(), VoteEvent{RoomID: "room-1"})

			pub.mu.Lock()
			defer pub.mu.Unlock()
			if pub.calls != tc.calls {
				t.Fatalf("expected %d publish attempts, got %d", tc.calls, pub.calls)
			}
		})
	}
}

func TestStatsWorkerStopsOnClosedChannel(t *testing.T) {
	ch := make(chan VoteEvent)
	w := NewStatsWorker(ch, nil, nil)

	stopped := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(stopped)
	}()
	close(ch)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop after channel close")
	}
}
