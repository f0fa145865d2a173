package worker

import (
	"context"
	"log/slog"
	"time"

	"pollpulse/internal/metrics"
	"pollpulse/internal/retry"
)

// VoteEvent describes an accepted vote. It carries no voter identity.
type VoteEvent struct {
	RoomID      string    `json:"room_id"`
	OptionIndex int       `json:"option_index"`
	At          time.Time `json:"at"`
}

// Publisher forwards vote events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, ev VoteEvent) error
}

// retryClassifier is implemented by publishers that can tell transient
// failures from permanent ones.
type retryClassifier interface {
	Retryable(err error) bool
}

type StatsWorker struct {
	Ch        <-chan VoteEvent
	publisher Publisher
	attempts  int
	baseDelay time.Duration
	log       *slog.Logger
}

func NewStatsWorker(ch <-chan VoteEvent, publisher Publisher, log *slog.Logger) *StatsWorker {
	if log == nil {
		log = slog.Default()
	}
	return &StatsWorker{
		Ch:        ch,
		publisher: publisher,
		attempts:  3,
		baseDelay: 200 * time.Millisecond,
		log:       log,
	}
}

// Run drains the channel until ctx is canceled or the channel is closed.
func (w *StatsWorker) Run(ctx context.Context) {
	w.log.Info("stats worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("stats worker stopped")
			return
		case ev, ok := <-w.Ch:
			if !ok {
				w.log.Info("stats worker stopped", "reason", "channel closed")
				return
			}
			w.handle(ctx, ev)
		}
	}
}

func (w *StatsWorker) handle(ctx context.Context, ev VoteEvent) {
	metrics.IncVote()
	if w.publisher == nil {
		return
	}
	policy := retry.Policy{Attempts: w.attempts, BaseDelay: w.baseDelay, MaxDelay: 2 * time.Second}
	if c, ok := w.publisher.(retryClassifier); ok {
		policy.Retryable = c.Retryable
	}
	err := policy.Do(ctx, func() error {
		return w.publisher.Publish(ctx, ev)
	})
	if err != nil {
		metrics.IncPublishFailure()
		w.log.Warn("vote event publish failed", "room_id", ev.RoomID, "error", err)
	}
}
