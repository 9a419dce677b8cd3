// Package segment turns the recognizer's interim/final event stream into
// committed, sequence-numbered text segments.
//
// The buffer decides the granularity and timing of "what the speaker just
// said" independently of the recognizer's own chunking. Two timers drive it:
// a pause timer restarted on every interim event (the speaker stopped
// talking), and a fixed-period streaming timer that bounds worst-case
// latency when the speaker never pauses. Final fragments bypass both timers
// and flush immediately.
package segment

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-speech-translation-relay/internal/models"
	"ai-speech-translation-relay/internal/observability/metrics"
)

// Flush triggers, reported in logs and metrics.
const (
	TriggerFinal     = "final"
	TriggerPause     = "pause"
	TriggerStreaming = "streaming"
	TriggerStop      = "stop"
)

// Config configures a Buffer.
type Config struct {
	// PauseFlush is restarted on every interim event; expiry flushes.
	PauseFlush time.Duration
	// StreamingFlush fires unconditionally on a fixed period.
	StreamingFlush time.Duration

	// OnSegment receives each committed segment. Called on the buffer's
	// own goroutine; long work must be handed off.
	OnSegment func(models.Segment)
	// OnCaption receives the live concatenation of committed and interim
	// text on every interim event. No sequence number is assigned; the
	// value is transient display state. Optional.
	OnCaption func(text string)

	Logger zerolog.Logger
}

// Buffer accumulates recognition events and flushes them into segments.
//
// All inputs (recognition events, timer expiries, the stop request) are
// serialized onto a single goroutine, so no two flushes can race and
// sequence numbers are assigned in strict order.
type Buffer struct {
	cfg     Config
	metrics *metrics.Metrics

	events chan models.RecognitionEvent
	stop   chan chan struct{}
	done   chan struct{}

	// Accumulator state, owned by the run goroutine.
	committed   string
	interim     string
	lastEmitted string
	sequence    int64
}

// New creates a buffer. Start must be called before pushing events.
func New(cfg Config) *Buffer {
	if cfg.PauseFlush <= 0 {
		cfg.PauseFlush = 5 * time.Second
	}
	if cfg.StreamingFlush <= 0 {
		cfg.StreamingFlush = 7 * time.Second
	}
	return &Buffer{
		cfg:     cfg,
		metrics: metrics.DefaultMetrics,
		events:  make(chan models.RecognitionEvent),
		stop:    make(chan chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the event loop and arms the streaming timer.
func (b *Buffer) Start() {
	go b.run()
}

// Push submits one recognition event. Events pushed after Stop are dropped.
func (b *Buffer) Push(ev models.RecognitionEvent) {
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// Stop forces one final flush to drain residual text, stops both timers,
// and shuts down the event loop. Idempotent.
func (b *Buffer) Stop() {
	ack := make(chan struct{})
	select {
	case b.stop <- ack:
		<-ack
	case <-b.done:
	}
}

func (b *Buffer) run() {
	defer close(b.done)

	pause := time.NewTimer(b.cfg.PauseFlush)
	stopTimer(pause)
	defer stopTimer(pause)

	streaming := time.NewTicker(b.cfg.StreamingFlush)
	defer streaming.Stop()

	for {
		select {
		case ev := <-b.events:
			b.handleEvent(ev, pause)
		case <-pause.C:
			b.flush(TriggerPause)
		case <-streaming.C:
			b.flush(TriggerStreaming)
		case ack := <-b.stop:
			b.flush(TriggerStop)
			close(ack)
			return
		}
	}
}

func (b *Buffer) handleEvent(ev models.RecognitionEvent, pause *time.Timer) {
	b.metrics.RecordRecognitionEvent(ev.IsFinal)

	if ev.IsFinal {
		// Final fragments take priority: append permanently, discard the
		// interim hypothesis they supersede, flush without waiting for
		// either timer.
		b.committed = joinText(b.committed, ev.Text)
		b.interim = ""
		stopTimer(pause)
		b.flush(TriggerFinal)
		return
	}

	// Each interim event carries the full current hypothesis for the
	// in-progress utterance, so it replaces the previous one wholesale.
	b.interim = ev.Text
	stopTimer(pause)
	pause.Reset(b.cfg.PauseFlush)

	if b.cfg.OnCaption != nil {
		if live := b.text(); live != "" {
			b.cfg.OnCaption(live)
		}
	}
}

// flush commits the accumulated text as a segment. An empty accumulator is
// a no-op; text identical to the last emitted segment is suppressed so the
// streaming timer's periodic firing cannot re-submit unchanged speech.
func (b *Buffer) flush(trigger string) {
	b.metrics.RecordFlush(trigger)

	text := b.text()
	if text == "" {
		b.reset()
		b.metrics.RecordSegmentSuppressed("empty")
		return
	}
	if text == b.lastEmitted {
		b.reset()
		b.metrics.RecordSegmentSuppressed("duplicate")
		b.cfg.Logger.Debug().
			Str("trigger", trigger).
			Msg("Flush suppressed: text unchanged since last segment")
		return
	}

	b.sequence++
	seg := models.Segment{Sequence: b.sequence, Text: text}
	b.lastEmitted = text
	b.reset()

	b.metrics.RecordSegmentEmitted()
	b.cfg.Logger.Debug().
		Str("trigger", trigger).
		Int64("sequence", seg.Sequence).
		Int("chars", len(seg.Text)).
		Msg("Segment flushed")

	if b.cfg.OnSegment != nil {
		b.cfg.OnSegment(seg)
	}
}

// text returns the trimmed concatenation of committed and interim text.
func (b *Buffer) text() string {
	return strings.TrimSpace(b.committed + " " + b.interim)
}

func (b *Buffer) reset() {
	b.committed = ""
	b.interim = ""
}

func joinText(a, c string) string {
	a = strings.TrimSpace(a)
	c = strings.TrimSpace(c)
	switch {
	case a == "":
		return c
	case c == "":
		return a
	default:
		return a + " " + c
	}
}

// stopTimer stops t and drains a pending fire so a later Reset cannot
// deliver a stale expiry.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
