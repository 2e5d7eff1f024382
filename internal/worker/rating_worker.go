// Package worker recomputes cached movie ratings in response to review
// events. Events for the same movie inside a debounce window collapse into
// one recomputation.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
	"github.com/cinescope/movie_reviewer/internal/usecase/rating"
)

const (
	// Debounce window - collect events for the same movie within this duration
	debounceWindow = 1 * time.Second

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
)

// ReviewEvent is the wire shape of a review event, as published by the
// review service.
type ReviewEvent struct {
	EventType string    `json:"event_type"`
	MovieID   string    `json:"movie_id"`
	Timestamp time.Time `json:"timestamp"`
}

// RatingWorker processes review events and refreshes movie ratings
// asynchronously.
type RatingWorker struct {
	ratings *rating.Service
	logger  *logger.Logger

	mu             sync.Mutex
	pendingUpdates map[string]*pendingUpdate
	shutdownCh     chan struct{}
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
}

type pendingUpdate struct {
	movieID   string
	timestamp time.Time
	timer     *time.Timer
}

// NewRatingWorker creates a new rating worker
func NewRatingWorker(ratings *rating.Service, log *logger.Logger) *RatingWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &RatingWorker{
		ratings:        ratings,
		logger:         log,
		pendingUpdates: make(map[string]*pendingUpdate),
		shutdownCh:     make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// HandleEvent processes one review event.
func (w *RatingWorker) HandleEvent(data []byte) error {
	var event ReviewEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("Failed to unmarshal review event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	w.logger.WithFields(map[string]interface{}{
		"event_type": event.EventType,
		"movie_id":   event.MovieID,
	}).Debug("Received review event")

	w.scheduleUpdate(event.MovieID, event.Timestamp)
	return nil
}

// scheduleUpdate implements the debounce: multiple events for the same
// movie within the window result in a single recomputation.
func (w *RatingWorker) scheduleUpdate(movieID string, timestamp time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.shutdownCh:
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	default:
	}

	existing, found := w.pendingUpdates[movieID]
	if found {
		if timestamp.Before(existing.timestamp) {
			w.logger.Debugf("Ignoring stale event for movie %s", movieID)
			return
		}
		existing.timer.Stop()
	} else {
		w.wg.Add(1)
	}

	timer := time.AfterFunc(debounceWindow, func() {
		w.processUpdate(movieID)
	})

	w.pendingUpdates[movieID] = &pendingUpdate{
		movieID:   movieID,
		timestamp: timestamp,
		timer:     timer,
	}
}

// processUpdate executes the recomputation with retries and exponential
// backoff.
func (w *RatingWorker) processUpdate(movieID string) {
	defer w.wg.Done()

	w.mu.Lock()
	delete(w.pendingUpdates, movieID)
	w.mu.Unlock()

	w.logger.Debugf("Processing rating update for movie %s", movieID)

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(map[string]interface{}{
				"movie_id":   movieID,
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying rating update")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return
			}
			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(w.ctx, 5*time.Second)
		err := w.ratings.Recompute(ctx, movieID)
		cancel()

		if err == nil {
			return
		}
		lastErr = err
		w.logger.Errorf(err, "Failed to update rating for movie %s (attempt %d)", movieID, attempt+1)
	}

	w.logger.Errorf(lastErr, "Rating update failed after %d retries for movie %s", maxRetries, movieID)
}

// Shutdown cancels pending timers and waits for in-flight updates to finish
// or for the context to expire.
func (w *RatingWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down rating worker...")

	close(w.shutdownCh)
	w.cancel()

	w.mu.Lock()
	pendingCount := len(w.pendingUpdates)
	for _, update := range w.pendingUpdates {
		update.timer.Stop()
		w.wg.Done() // cancelled before firing
	}
	w.pendingUpdates = make(map[string]*pendingUpdate)
	w.mu.Unlock()

	w.logger.Infof("Cancelled %d pending updates", pendingCount)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// PendingCount returns the number of debounced updates not yet processed.
func (w *RatingWorker) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pendingUpdates)
}

// Run consumes the durable JetStream rating-worker subscription until the
// context is cancelled. Processed messages are acked; failures are nacked
// and redelivered with exponential backoff up to the consumer's MaxDeliver.
func (w *RatingWorker) Run(ctx context.Context, sub *nats.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Fetch messages in batches (up to 10 at a time)
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil {
			if err == nats.ErrTimeout {
				// No messages available, continue polling
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to fetch messages from JetStream", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, msg := range msgs {
			if err := w.HandleEvent(msg.Data); err != nil {
				// After MaxDeliver failed attempts the message is discarded.
				// Acceptable: the next review event triggers a full recompute.
				if nakErr := msg.Nak(); nakErr != nil {
					w.logger.Error("Failed to NACK message", nakErr)
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				w.logger.Error("Failed to ACK message", ackErr)
			}
		}
	}
}
