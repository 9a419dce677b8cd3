// Package recognizer defines the interface for streaming speech
// recognition providers.
//
// Providers are modeled as a task producing discrete events on a channel
// rather than as callback registration: the consumer reads one ordered
// stream, which keeps the downstream segment buffer single-producer.
package recognizer

import (
	"context"
	"errors"
)

// ErrNoSpeech is reported when the provider detected no speech in the
// audio. It is transient recognition noise: the session ignores it and
// keeps listening. Any other error on an Event is fatal to the stream.
var ErrNoSpeech = errors.New("no speech detected")

// Event is one unit emitted by a recognition stream. Either a transcript
// hypothesis (Err nil) or a transport error (Err non-nil). The stream
// channel closes after an error event, and may also close without one when
// the provider ends the stream on its own; providers are allowed to
// self-terminate after periods of silence, and the session restarts them.
type Event struct {
	Text       string
	Final      bool
	Confidence float64
	Err        error
}

// Adapter is a streaming speech recognition provider (Google, mock, ...).
type Adapter interface {
	// Start opens a recognition stream and returns its event channel.
	// The channel is closed when the stream ends. Start may be called
	// again after the channel closes to open a fresh stream.
	Start(ctx context.Context) (<-chan Event, error)

	// SendAudio forwards raw audio bytes to the provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the current stream and releases resources.
	Close() error
}
