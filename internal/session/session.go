// Package session wires one live translation pipeline: recognizer events
// feed the segment buffer, flushed segments are translated concurrently,
// and completed results are released in spoken order to the session sink.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-speech-translation-relay/internal/events"
	"ai-speech-translation-relay/internal/models"
	"ai-speech-translation-relay/internal/observability/metrics"
	"ai-speech-translation-relay/internal/service/playback"
	"ai-speech-translation-relay/internal/service/recognizer"
	"ai-speech-translation-relay/internal/service/segment"
	"ai-speech-translation-relay/internal/service/translate"
)

// Translator turns a committed segment into a translation result.
// Satisfied by *translate.Translator.
type Translator interface {
	Translate(ctx context.Context, seg models.Segment) (models.TranslationResult, error)
}

// Config assembles a session's collaborators.
type Config struct {
	Recognizer recognizer.Adapter
	Translator Translator
	Sink       playback.Sink
	Publisher  *events.Publisher

	// Segmenter timing; zero values use the buffer defaults.
	PauseFlush     time.Duration
	StreamingFlush time.Duration

	TargetLanguage string

	// OnCaption receives live caption text on every interim event. Optional.
	OnCaption func(text string)
	// OnFatal is called once when a recognizer-level error ends the
	// session. Optional.
	OnFatal func(err error)

	Logger zerolog.Logger
}

// Session is one live translation pipeline instance.
type Session struct {
	ID string

	cfg       Config
	log       zerolog.Logger
	metrics   *metrics.Metrics
	buffer    *segment.Buffer
	scheduler *playback.Scheduler

	// translateCtx outlives the transport context so in-flight translation
	// tasks complete or fail naturally on stop; their results are simply
	// dropped once the scheduler is closed.
	translateCtx    context.Context
	cancelTranslate context.CancelFunc

	mu        sync.Mutex
	listening bool
	started   time.Time

	translations sync.WaitGroup
	recvDone     chan struct{}
	stopOnce     sync.Once
}

// New creates a session. Start must be called before sending audio.
func New(cfg Config) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		cfg:      cfg,
		metrics:  metrics.DefaultMetrics,
		recvDone: make(chan struct{}),
	}
	s.log = cfg.Logger.With().Str("sessionId", s.ID).Logger()

	s.scheduler = playback.NewScheduler(&publishingSink{session: s, inner: cfg.Sink}, s.log)
	s.buffer = segment.New(segment.Config{
		PauseFlush:     cfg.PauseFlush,
		StreamingFlush: cfg.StreamingFlush,
		OnSegment:      s.submit,
		OnCaption:      s.caption,
		Logger:         s.log,
	})
	return s
}

// Start opens the recognition stream and begins processing. The passed
// context governs the recognizer transport; translation tasks run on a
// context detached from it.
func (s *Session) Start(ctx context.Context) error {
	events, err := s.cfg.Recognizer.Start(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.translateCtx, s.cancelTranslate = context.WithCancel(context.WithoutCancel(ctx))
	s.listening = true
	s.started = time.Now()
	s.mu.Unlock()

	s.buffer.Start()
	s.metrics.RecordSessionStart()
	s.log.Info().Msg("Session started")

	go s.recvLoop(ctx, events)
	return nil
}

// SendAudio forwards raw audio to the recognizer.
func (s *Session) SendAudio(ctx context.Context, audio []byte) error {
	return s.cfg.Recognizer.SendAudio(ctx, audio)
}

// Stop ends the session: disables listening, closes the recognizer, forces
// a final flush to drain residual buffered text, and tears down playback.
// In-flight translation tasks are not force-killed; their results are
// dropped if they land after teardown. Idempotent.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		neverStarted := s.translateCtx == nil
		s.listening = false
		started := s.started
		s.mu.Unlock()
		if neverStarted {
			return
		}

		if err := s.cfg.Recognizer.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Error closing recognizer")
		}
		<-s.recvDone

		// Final flush: residual text still becomes a segment and gets a
		// chance to play before the scheduler closes.
		s.buffer.Stop()
		s.translations.Wait()
		s.scheduler.Close()
		s.cancelTranslate()

		s.metrics.RecordSessionEnd(time.Since(started).Seconds())
		s.log.Info().Msg("Session stopped")
	})
}

// recvLoop consumes recognition events, restarting the stream when the
// provider ends it while the session is still listening.
func (s *Session) recvLoop(ctx context.Context, ch <-chan recognizer.Event) {
	defer close(s.recvDone)

	for {
		ev, ok := <-ch
		if !ok {
			// End of stream. Some providers self-terminate after periods
			// of silence; reopen unless listening was intentionally
			// stopped.
			if !s.isListening() || ctx.Err() != nil {
				return
			}
			s.metrics.RecordRecognizerRestart()
			s.log.Debug().Msg("Recognition stream ended, restarting")
			next, err := s.cfg.Recognizer.Start(ctx)
			if err != nil {
				s.fatal(err)
				return
			}
			ch = next
			continue
		}

		if ev.Err != nil {
			if errors.Is(ev.Err, recognizer.ErrNoSpeech) {
				// Transient recognition noise; keep listening.
				s.metrics.RecordRecognizerError("no_speech")
				s.log.Debug().Msg("No speech detected, continuing")
				continue
			}
			s.fatal(ev.Err)
			return
		}

		s.buffer.Push(models.RecognitionEvent{
			Text:       ev.Text,
			IsFinal:    ev.Final,
			Confidence: ev.Confidence,
		})
	}
}

// fatal handles a session-level recognizer failure: flush what is
// buffered, stop listening, and surface the error.
func (s *Session) fatal(err error) {
	s.metrics.RecordRecognizerError("fatal")
	s.log.Error().Err(err).Msg("Recognizer failed, ending session")

	s.mu.Lock()
	s.listening = false
	s.mu.Unlock()

	// Drain whatever was accumulated before the failure; the segment
	// still flows through translation and playback.
	s.buffer.Stop()

	if s.cfg.OnFatal != nil {
		s.cfg.OnFatal(err)
	}
}

func (s *Session) isListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// submit launches one translation task for a flushed segment. Tasks run
// concurrently; ordering is restored by the playback scheduler.
func (s *Session) submit(seg models.Segment) {
	s.translations.Add(1)
	go func() {
		defer s.translations.Done()

		res, err := s.cfg.Translator.Translate(s.translateCtx, seg)
		if err != nil {
			if errors.Is(err, translate.ErrSegmentTooShort) {
				s.log.Debug().Int64("sequence", seg.Sequence).Msg("Segment below minimum length, skipped")
				return
			}
			// One segment's failure never halts the pipeline; the
			// scheduler will simply skip its sequence number.
			s.log.Warn().
				Err(err).
				Int64("sequence", seg.Sequence).
				Msg("Translation failed, segment dropped")
			return
		}
		s.scheduler.Enqueue(res)
	}()
}

// caption publishes the live caption on every interim event.
func (s *Session) caption(text string) {
	if s.cfg.OnCaption != nil {
		s.cfg.OnCaption(text)
	}
	if s.cfg.Publisher != nil {
		ev := models.CaptionPartial{
			EventType: "session.caption.partial",
			SessionID: s.ID,
			Timestamp: time.Now().UnixMilli(),
			Text:      text,
		}
		if err := s.cfg.Publisher.PublishCaption(context.Background(), s.ID, ev); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish caption event")
		}
	}
}

// publishingSink wraps the session sink so every released item also
// produces a translation-completed event.
type publishingSink struct {
	session *Session
	inner   playback.Sink
}

func (p *publishingSink) Play(item models.TranslationResult) error {
	s := p.session
	if s.cfg.Publisher != nil {
		ev := models.TranslationCompleted{
			EventType:      "session.translation.completed",
			SessionID:      s.ID,
			Timestamp:      time.Now().UnixMilli(),
			Sequence:       item.Sequence,
			SourceText:     item.SourceText,
			TranslatedText: item.TranslatedText,
			TargetLanguage: s.cfg.TargetLanguage,
			HasAudio:       len(item.Audio) > 0,
		}
		if err := s.cfg.Publisher.PublishTranslation(context.Background(), s.ID, ev); err != nil {
			s.log.Warn().Err(err).Int64("sequence", item.Sequence).Msg("Failed to publish translation event")
		}
	}
	return p.inner.Play(item)
}
