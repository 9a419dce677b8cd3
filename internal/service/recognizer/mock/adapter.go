// Package mock provides a scripted recognizer adapter for tests and
// credential-less runs. It simulates realistic recognition behavior:
// progressive interim hypotheses as audio arrives, exactly one final
// transcript per utterance, then a clean end of stream.
package mock

import (
	"context"
	"sync"
	"time"

	"ai-speech-translation-relay/internal/service/recognizer"
)

// Utterance is one scripted utterance with progressive hypotheses.
type Utterance struct {
	Interims   []string // progressive interim hypotheses
	Final      string   // final transcript text
	Confidence float64
}

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []Utterance{
	{
		Interims:   []string{"could you", "could you repeat"},
		Final:      "Could you repeat that please",
		Confidence: 0.95,
	},
	{
		Interims:   []string{"the meeting", "the meeting starts at"},
		Final:      "The meeting starts at nine",
		Confidence: 0.93,
	},
	{
		Interims:   []string{"thank"},
		Final:      "Thank you very much",
		Confidence: 0.98,
	},
}

// Adapter implements recognizer.Adapter with scripted responses. Each
// SendAudio call advances the script by one interim; when interims are
// exhausted the final is emitted and the stream ends, mimicking providers
// that close the connection after silence.
type Adapter struct {
	utterances []Utterance
	delay      time.Duration

	mu           sync.Mutex
	events       chan recognizer.Event
	utteranceIdx int
	interimIdx   int
	finalSent    bool
	closed       bool
}

// New creates a mock adapter cycling through the default utterances.
func New() *Adapter {
	return NewScripted(DefaultUtterances)
}

// NewScripted creates a mock adapter with a custom script.
func NewScripted(utterances []Utterance) *Adapter {
	return &Adapter{
		utterances: utterances,
		delay:      20 * time.Millisecond,
	}
}

// Start opens a fresh scripted stream. Each Start moves to the next
// utterance in the script, wrapping around at the end.
func (a *Adapter) Start(ctx context.Context) (<-chan recognizer.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.events = make(chan recognizer.Event, 16)
	a.interimIdx = 0
	a.finalSent = false
	a.closed = false
	return a.events, nil
}

// SendAudio advances the script: one interim per frame, then the final
// followed by end of stream.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.events == nil || len(a.utterances) == 0 {
		return nil
	}

	utt := a.utterances[a.utteranceIdx%len(a.utterances)]

	if a.interimIdx < len(utt.Interims) {
		text := utt.Interims[a.interimIdx]
		a.interimIdx++
		a.emitLater(a.events, recognizer.Event{Text: text})
		return nil
	}

	if !a.finalSent {
		a.finalSent = true
		a.closed = true
		a.utteranceIdx++
		events := a.events
		final := recognizer.Event{Text: utt.Final, Final: true, Confidence: utt.Confidence}
		go func() {
			time.Sleep(a.delay)
			events <- final
			close(events)
		}()
	}
	return nil
}

// Close ends the current stream. If the final was never reached (audio
// stopped early), the stream closes without one.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.events == nil {
		return nil
	}
	a.closed = true
	close(a.events)
	a.events = nil
	return nil
}

func (a *Adapter) emitLater(events chan recognizer.Event, ev recognizer.Event) {
	delay := a.delay
	go func() {
		time.Sleep(delay)
		// Send under the lock: the channel is buffered and Close/the final
		// emitter flip a.closed before touching it, so a send here cannot
		// race a close.
		a.mu.Lock()
		defer a.mu.Unlock()
		if !a.closed && a.events == events {
			events <- ev
		}
	}()
}
