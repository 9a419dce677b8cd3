// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration holds all service configuration sections.
type Configuration struct {
	Service       ServiceConfig
	Recognizer    RecognizerConfig
	Segmenter     SegmenterConfig
	Translator    TranslatorConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity and listener settings.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
}

// RecognizerConfig holds speech recognizer settings.
type RecognizerConfig struct {
	Provider       string // "google" or "mock"
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
	AudioEncoding  string
}

// SegmenterConfig holds segment buffer timing settings.
type SegmenterConfig struct {
	// PauseFlush is restarted on every interim event; expiry flushes the
	// accumulator ("the speaker paused").
	PauseFlush time.Duration
	// StreamingFlush fires on a fixed period regardless of speech activity,
	// bounding worst-case latency for long uninterrupted speech.
	StreamingFlush time.Duration
}

// TranslatorConfig holds translation backend settings.
type TranslatorConfig struct {
	Endpoint          string
	SynthesisEndpoint string
	TargetLanguage    string
	Synthesize        bool
	SampleRateHz      int // sample rate of synthesized PCM
	MaxAttempts       int
	BaseDelay         time.Duration
	RequestTimeout    time.Duration
	MinSegmentChars   int
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicCaption     string
	TopicTranslation string
	Principal        string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	MetricsPort string
}

// Load reads configuration from the environment, falling back to defaults
// for missing or unparsable values.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-speech-translation")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Recognizer: RecognizerConfig{
			Provider:       envOrDefault("RECOGNIZER_PROVIDER", "mock"),
			LanguageCode:   envOrDefault("RECOGNIZER_LANGUAGE_CODE", "en-US"),
			SampleRateHz:   envOrDefaultInt("RECOGNIZER_SAMPLE_RATE_HZ", 16000),
			InterimResults: envOrDefaultBool("RECOGNIZER_INTERIM_RESULTS", true),
			AudioEncoding:  envOrDefault("RECOGNIZER_AUDIO_ENCODING", "LINEAR16"),
		},
		Segmenter: SegmenterConfig{
			PauseFlush:     envOrDefaultDuration("SEGMENT_PAUSE_FLUSH", 5*time.Second),
			StreamingFlush: envOrDefaultDuration("SEGMENT_STREAMING_FLUSH", 7*time.Second),
		},
		Translator: TranslatorConfig{
			Endpoint:          envOrDefault("TRANSLATE_ENDPOINT", "http://localhost:8090/v1/translate"),
			SynthesisEndpoint: envOrDefault("SYNTHESIS_ENDPOINT", "http://localhost:8090/v1/synthesize"),
			TargetLanguage:    envOrDefault("TRANSLATE_TARGET_LANGUAGE", "es"),
			Synthesize:        envOrDefaultBool("TRANSLATE_SYNTHESIZE", false),
			SampleRateHz:      envOrDefaultInt("SYNTHESIS_SAMPLE_RATE_HZ", 24000),
			MaxAttempts:       envOrDefaultInt("TRANSLATE_MAX_ATTEMPTS", 3),
			BaseDelay:         envOrDefaultDuration("TRANSLATE_BASE_DELAY", time.Second),
			RequestTimeout:    envOrDefaultDuration("TRANSLATE_REQUEST_TIMEOUT", 15*time.Second),
			MinSegmentChars:   envOrDefaultInt("TRANSLATE_MIN_SEGMENT_CHARS", 2),
		},
		Kafka: KafkaConfig{
			Enabled:          envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:          envOrDefaultSlice("KAFKA_BROKERS", nil),
			TopicCaption:     envOrDefault("KAFKA_TOPIC_CAPTION", "session.caption.partial"),
			TopicTranslation: envOrDefault("KAFKA_TOPIC_TRANSLATION", "session.translation.completed"),
			Principal:        envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultSlice(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
