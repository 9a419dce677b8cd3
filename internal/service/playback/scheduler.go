// Package playback releases completed translation results to a single
// consumer sink in strict sequence order.
//
// Translation completion order is not related to spoken order: the
// scheduler buffers whatever arrives and always releases the lowest
// sequence number currently enqueued, one item at a time, waiting for the
// sink to finish each item before releasing the next.
package playback

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"ai-speech-translation-relay/internal/models"
	"ai-speech-translation-relay/internal/observability/metrics"
)

// Sink consumes released items one at a time. Play blocks until the item
// has finished playing (or failed); the scheduler will not release another
// item until Play returns.
type Sink interface {
	Play(item models.TranslationResult) error
}

// Scheduler is the ordered single-slot consumer in front of a Sink.
//
// State machine: idle (nothing playing) and playing (exactly one item
// released). The pending queue exists in both states. Advancing while
// playing is a no-op, which makes the no-overlap invariant structural
// rather than a convention.
type Scheduler struct {
	sink    Sink
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending []models.TranslationResult
	playing bool
	closed  bool
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler releasing to sink.
func NewScheduler(sink Sink, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		sink:    sink,
		log:     log,
		metrics: metrics.DefaultMetrics,
	}
}

// Enqueue inserts a completed result into the pending set and attempts to
// advance. Results enqueued after Close are dropped.
func (s *Scheduler) Enqueue(item models.TranslationResult) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug().
			Int64("sequence", item.Sequence).
			Msg("Result dropped: playback already torn down")
		return
	}
	s.pending = append(s.pending, item)
	s.metrics.RecordPlaybackEnqueued()
	s.advanceLocked()
	s.mu.Unlock()
}

// QueueDepth returns the number of results waiting for release.
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close stops accepting new results and waits for the item currently at
// the sink, if any, to finish. Remaining pending items are dropped.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	dropped := len(s.pending)
	for range s.pending {
		s.metrics.PlaybackQueueDepth.Dec()
	}
	s.pending = nil
	s.mu.Unlock()

	if dropped > 0 {
		s.log.Info().Int("dropped", dropped).Msg("Playback queue dropped on close")
	}
	s.wg.Wait()
}

// advanceLocked releases the lowest-sequence pending item unless something
// is already playing. Callers must hold s.mu.
//
// The release picks the smallest sequence among results currently enqueued,
// not the next consecutive integer: a lower sequence whose translation was
// dropped will never arrive and must not stall the queue, while a lower
// sequence that is merely slow is simply not here yet; it preempts
// later-queued items as soon as it lands and the scheduler next idles.
func (s *Scheduler) advanceLocked() {
	if s.playing || s.closed || len(s.pending) == 0 {
		return
	}

	sort.Slice(s.pending, func(i, j int) bool {
		return s.pending[i].Sequence < s.pending[j].Sequence
	})
	item := s.pending[0]
	s.pending = s.pending[1:]
	s.playing = true

	s.wg.Add(1)
	go s.play(item)
}

// play drives one item through the sink, then returns to idle and drains
// further queued items. A sink error completes the item's cycle; playback
// is never retried.
func (s *Scheduler) play(item models.TranslationResult) {
	defer s.wg.Done()

	err := s.sink.Play(item)
	s.metrics.RecordPlaybackReleased(err)
	if err != nil {
		s.log.Warn().
			Err(err).
			Int64("sequence", item.Sequence).
			Msg("Sink failed to play item, continuing")
	}

	s.mu.Lock()
	s.playing = false
	s.advanceLocked()
	s.mu.Unlock()
}
