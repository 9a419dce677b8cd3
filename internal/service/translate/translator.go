package translate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-speech-translation-relay/internal/audio"
	"ai-speech-translation-relay/internal/models"
	"ai-speech-translation-relay/internal/observability/metrics"
)

// ErrSegmentTooShort is returned when a segment fails the minimum length
// guard and is skipped without a network call.
var ErrSegmentTooShort = errors.New("segment below minimum length")

// translateRequest is the wire shape of a translation request.
type translateRequest struct {
	SourceText     string `json:"sourceText"`
	TargetLanguage string `json:"targetLanguage"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// synthesizeRequest is the wire shape of a speech-synthesis request.
type synthesizeRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

type synthesizeResponse struct {
	AudioBytes string `json:"audioBytes"` // base64 PCM16 mono
}

// Config configures a Translator.
type Config struct {
	Endpoint          string
	SynthesisEndpoint string
	TargetLanguage    string
	Synthesize        bool
	SampleRateHz      int // sample rate of synthesized PCM
	MinSegmentChars   int
	Logger            zerolog.Logger
}

// Translator turns committed segments into translation results. Multiple
// Translate calls may be in flight concurrently; the translator imposes no
// ordering of its own. Ordering is the playback scheduler's job.
type Translator struct {
	client  *Client
	cfg     Config
	metrics *metrics.Metrics
}

// NewTranslator creates a translator on top of a retrying request client.
func NewTranslator(client *Client, cfg Config) *Translator {
	if cfg.MinSegmentChars <= 0 {
		cfg.MinSegmentChars = 2
	}
	if cfg.SampleRateHz <= 0 {
		cfg.SampleRateHz = 24000
	}
	return &Translator{
		client:  client,
		cfg:     cfg,
		metrics: metrics.DefaultMetrics,
	}
}

// Translate translates one segment, optionally synthesizing speech for the
// translated text. Segments shorter than the minimum length return
// ErrSegmentTooShort without a network call. A terminal request failure is
// returned to the caller for logging and the segment is dropped; it is
// never fatal to the session.
func (t *Translator) Translate(ctx context.Context, seg models.Segment) (models.TranslationResult, error) {
	text := strings.TrimSpace(seg.Text)
	if len([]rune(text)) < t.cfg.MinSegmentChars {
		t.metrics.RecordTranslationSkipped()
		return models.TranslationResult{}, ErrSegmentTooShort
	}

	start := time.Now()

	var tr translateResponse
	err := t.client.PostJSON(ctx, t.cfg.Endpoint, translateRequest{
		SourceText:     text,
		TargetLanguage: t.cfg.TargetLanguage,
	}, &tr)
	if err != nil {
		t.metrics.RecordTranslation(err, time.Since(start).Seconds())
		return models.TranslationResult{}, fmt.Errorf("translate segment %d: %w", seg.Sequence, err)
	}

	result := models.TranslationResult{
		Sequence:       seg.Sequence,
		SourceText:     text,
		TranslatedText: tr.TranslatedText,
	}

	if t.cfg.Synthesize && tr.TranslatedText != "" {
		wav, err := t.synthesize(ctx, tr.TranslatedText)
		if err != nil {
			// Synthesis is an optional enrichment; the translated text
			// still plays back as a caption.
			t.cfg.Logger.Warn().
				Err(err).
				Int64("sequence", seg.Sequence).
				Msg("Speech synthesis failed, releasing text only")
		} else {
			result.Audio = wav
		}
	}

	t.metrics.RecordTranslation(nil, time.Since(start).Seconds())
	return result, nil
}

// synthesize requests synthesized speech for text and wraps the returned
// PCM in a WAV container for the sink.
func (t *Translator) synthesize(ctx context.Context, text string) ([]byte, error) {
	var sr synthesizeResponse
	err := t.client.PostJSON(ctx, t.cfg.SynthesisEndpoint, synthesizeRequest{
		Text:           text,
		TargetLanguage: t.cfg.TargetLanguage,
	}, &sr)
	if err != nil {
		return nil, err
	}

	pcm, err := base64.StdEncoding.DecodeString(sr.AudioBytes)
	if err != nil {
		return nil, fmt.Errorf("decode synthesized audio: %w", err)
	}
	if len(pcm) == 0 {
		return nil, errors.New("empty synthesized audio")
	}
	return audio.EncodeWAV(pcm, t.cfg.SampleRateHz), nil
}
