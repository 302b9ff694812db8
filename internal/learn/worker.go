package learn

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gyeh/billaudit/internal/model"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("learning worker closed")

// Worker runs Learn off the audit path. Errors are logged, never returned to
// the submitter.
type Worker struct {
	learner *Learner
	log     zerolog.Logger
	queue   chan *model.AuditResult
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewWorker starts a worker with a queue of size entries.
func NewWorker(learner *Learner, log zerolog.Logger, size int) *Worker {
	if size <= 0 {
		size = 1
	}
	w := &Worker{
		learner: learner,
		log:     log,
		queue:   make(chan *model.AuditResult, size),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit queues result for learning. It blocks while the queue is full.
func (w *Worker) Submit(result *model.AuditResult) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	w.queue <- result
	return nil
}

// Close stops accepting results and waits until the queue is drained.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)
	for result := range w.queue {
		if err := w.learner.Learn(context.Background(), result); err != nil {
			w.log.Warn().Err(err).
				Str("hospital", result.HospitalName).
				Msg("learning step failed")
			continue
		}
		w.log.Debug().
			Int("items", len(result.LineItems)).
			Str("city", result.City).
			Msg("bill learned")
	}
}
