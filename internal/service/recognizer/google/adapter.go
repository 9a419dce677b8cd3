// Package google provides a Google Cloud Speech-to-Text recognizer adapter.
package google

import (
	"context"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"ai-speech-translation-relay/internal/service/recognizer"
)

// Config holds streaming recognition settings.
type Config struct {
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
}

// Adapter implements recognizer.Adapter using Google Cloud Speech-to-Text.
// Start may be called repeatedly: Google terminates streams after its
// maximum stream duration, and the session layer reopens them.
type Adapter struct {
	client *speech.Client
	cfg    Config

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
}

// New creates a new Google recognizer adapter. Requires
// GOOGLE_APPLICATION_CREDENTIALS to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.SampleRateHz == 0 {
		cfg.SampleRateHz = 16000
	}
	return &Adapter{client: c, cfg: cfg}, nil
}

// Start opens a streaming recognition session, sends the initial config,
// and spawns the receive loop feeding the returned channel.
func (a *Adapter) Start(ctx context.Context) (<-chan recognizer.Event, error) {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return nil, err
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: int32(a.cfg.SampleRateHz),
					LanguageCode:    a.cfg.LanguageCode,
				},
				InterimResults: a.cfg.InterimResults,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.stream = stream
	a.mu.Unlock()

	events := make(chan recognizer.Event)
	go a.listen(stream, events)
	return events, nil
}

// SendAudio sends audio bytes on the current stream.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	stream := a.stream
	a.mu.Unlock()
	if stream == nil {
		return status.Error(codes.FailedPrecondition, "recognition stream not started")
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Close half-closes the current stream; the receive loop drains remaining
// results and closes the event channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	stream := a.stream
	a.stream = nil
	a.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.CloseSend()
}

// listen receives responses until the stream ends and translates them into
// recognizer events.
func (a *Adapter) listen(stream speechpb.Speech_StreamingRecognizeClient, events chan<- recognizer.Event) {
	defer close(events)
	for {
		resp, err := stream.Recv()
		if err != nil {
			if terr := translateStreamErr(err); terr != nil {
				events <- recognizer.Event{Err: terr}
			}
			return
		}

		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			alt := r.Alternatives[0]
			events <- recognizer.Event{
				Text:       alt.Transcript,
				Final:      r.IsFinal,
				Confidence: float64(alt.Confidence),
			}
		}
	}
}

// translateStreamErr maps a stream receive error to the adapter contract.
// A nil return means the stream ended cleanly and may be restarted.
func translateStreamErr(err error) error {
	if err == io.EOF {
		return nil
	}
	switch status.Code(err) {
	case codes.OutOfRange:
		// Stream exceeded Google's maximum duration; restartable.
		return nil
	case codes.Canceled:
		return nil
	default:
		return err
	}
}
