package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	envVars := []string{
		"SERVICE_PRINCIPAL", "HTTP_PORT", "LOG_LEVEL", "METRICS_PORT",
		"RECOGNIZER_PROVIDER", "RECOGNIZER_LANGUAGE_CODE", "RECOGNIZER_SAMPLE_RATE_HZ",
		"RECOGNIZER_INTERIM_RESULTS", "RECOGNIZER_AUDIO_ENCODING",
		"SEGMENT_PAUSE_FLUSH", "SEGMENT_STREAMING_FLUSH",
		"TRANSLATE_ENDPOINT", "TRANSLATE_TARGET_LANGUAGE", "TRANSLATE_SYNTHESIZE",
		"TRANSLATE_MAX_ATTEMPTS", "TRANSLATE_BASE_DELAY", "TRANSLATE_MIN_SEGMENT_CHARS",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.Service.Principal != "svc-speech-translation" {
		t.Errorf("expected default principal 'svc-speech-translation', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default port '8080', got %s", cfg.Service.HTTPPort)
	}

	if cfg.Recognizer.Provider != "mock" {
		t.Errorf("expected default recognizer provider 'mock', got %s", cfg.Recognizer.Provider)
	}
	if cfg.Recognizer.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.Recognizer.LanguageCode)
	}
	if cfg.Recognizer.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Recognizer.SampleRateHz)
	}
	if cfg.Recognizer.InterimResults != true {
		t.Errorf("expected default interim results true, got %v", cfg.Recognizer.InterimResults)
	}

	if cfg.Segmenter.PauseFlush != 5*time.Second {
		t.Errorf("expected default pause flush 5s, got %v", cfg.Segmenter.PauseFlush)
	}
	if cfg.Segmenter.StreamingFlush != 7*time.Second {
		t.Errorf("expected default streaming flush 7s, got %v", cfg.Segmenter.StreamingFlush)
	}

	if cfg.Translator.TargetLanguage != "es" {
		t.Errorf("expected default target language 'es', got %s", cfg.Translator.TargetLanguage)
	}
	if cfg.Translator.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.Translator.MaxAttempts)
	}
	if cfg.Translator.BaseDelay != time.Second {
		t.Errorf("expected default base delay 1s, got %v", cfg.Translator.BaseDelay)
	}
	if cfg.Translator.MinSegmentChars != 2 {
		t.Errorf("expected default min segment chars 2, got %d", cfg.Translator.MinSegmentChars)
	}
	if cfg.Translator.Synthesize {
		t.Error("expected synthesis disabled by default")
	}

	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("RECOGNIZER_PROVIDER", "google")
	os.Setenv("RECOGNIZER_LANGUAGE_CODE", "fi-FI")
	os.Setenv("RECOGNIZER_SAMPLE_RATE_HZ", "8000")
	os.Setenv("SEGMENT_PAUSE_FLUSH", "6s")
	os.Setenv("SEGMENT_STREAMING_FLUSH", "10s")
	os.Setenv("TRANSLATE_TARGET_LANGUAGE", "en")
	os.Setenv("TRANSLATE_MAX_ATTEMPTS", "5")
	os.Setenv("TRANSLATE_BASE_DELAY", "500ms")
	os.Setenv("TRANSLATE_SYNTHESIZE", "true")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	defer func() {
		for _, v := range []string{
			"SERVICE_PRINCIPAL", "HTTP_PORT", "LOG_LEVEL",
			"RECOGNIZER_PROVIDER", "RECOGNIZER_LANGUAGE_CODE", "RECOGNIZER_SAMPLE_RATE_HZ",
			"SEGMENT_PAUSE_FLUSH", "SEGMENT_STREAMING_FLUSH",
			"TRANSLATE_TARGET_LANGUAGE", "TRANSLATE_MAX_ATTEMPTS", "TRANSLATE_BASE_DELAY",
			"TRANSLATE_SYNTHESIZE", "KAFKA_ENABLED", "KAFKA_BROKERS",
		} {
			os.Unsetenv(v)
		}
	}()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Recognizer.Provider != "google" {
		t.Errorf("expected recognizer provider 'google', got %s", cfg.Recognizer.Provider)
	}
	if cfg.Recognizer.LanguageCode != "fi-FI" {
		t.Errorf("expected language 'fi-FI', got %s", cfg.Recognizer.LanguageCode)
	}
	if cfg.Recognizer.SampleRateHz != 8000 {
		t.Errorf("expected sample rate 8000, got %d", cfg.Recognizer.SampleRateHz)
	}
	if cfg.Segmenter.PauseFlush != 6*time.Second {
		t.Errorf("expected pause flush 6s, got %v", cfg.Segmenter.PauseFlush)
	}
	if cfg.Segmenter.StreamingFlush != 10*time.Second {
		t.Errorf("expected streaming flush 10s, got %v", cfg.Segmenter.StreamingFlush)
	}
	if cfg.Translator.TargetLanguage != "en" {
		t.Errorf("expected target language 'en', got %s", cfg.Translator.TargetLanguage)
	}
	if cfg.Translator.MaxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", cfg.Translator.MaxAttempts)
	}
	if cfg.Translator.BaseDelay != 500*time.Millisecond {
		t.Errorf("expected base delay 500ms, got %v", cfg.Translator.BaseDelay)
	}
	if !cfg.Translator.Synthesize {
		t.Error("expected synthesis enabled")
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("expected brokers [k1:9092 k2:9092], got %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	os.Setenv("RECOGNIZER_SAMPLE_RATE_HZ", "not-a-number")
	os.Setenv("RECOGNIZER_INTERIM_RESULTS", "invalid")
	os.Setenv("SEGMENT_PAUSE_FLUSH", "invalid")
	os.Setenv("TRANSLATE_MAX_ATTEMPTS", "invalid")
	os.Setenv("TRANSLATE_BASE_DELAY", "invalid")

	defer func() {
		os.Unsetenv("RECOGNIZER_SAMPLE_RATE_HZ")
		os.Unsetenv("RECOGNIZER_INTERIM_RESULTS")
		os.Unsetenv("SEGMENT_PAUSE_FLUSH")
		os.Unsetenv("TRANSLATE_MAX_ATTEMPTS")
		os.Unsetenv("TRANSLATE_BASE_DELAY")
	}()

	cfg := Load()

	if cfg.Recognizer.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate on invalid input, got %d", cfg.Recognizer.SampleRateHz)
	}
	if cfg.Recognizer.InterimResults != true {
		t.Errorf("expected default interim results on invalid input, got %v", cfg.Recognizer.InterimResults)
	}
	if cfg.Segmenter.PauseFlush != 5*time.Second {
		t.Errorf("expected default pause flush on invalid input, got %v", cfg.Segmenter.PauseFlush)
	}
	if cfg.Translator.MaxAttempts != 3 {
		t.Errorf("expected default max attempts on invalid input, got %d", cfg.Translator.MaxAttempts)
	}
	if cfg.Translator.BaseDelay != time.Second {
		t.Errorf("expected default base delay on invalid input, got %v", cfg.Translator.BaseDelay)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Unsetenv("KAFKA_PRINCIPAL")

	defer os.Unsetenv("SERVICE_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestEnvOrDefaultSlice(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected []string
	}{
		{"single", "a:9092", []string{"a:9092"}},
		{"multiple with spaces", "a:9092, b:9092", []string{"a:9092", "b:9092"}},
		{"only commas", ",,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_SLICE_VAR"
			os.Setenv(key, tt.envValue)
			defer os.Unsetenv(key)

			got := envOrDefaultSlice(key, nil)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("index %d: expected %s, got %s", i, tt.expected[i], got[i])
				}
			}
		})
	}
}
