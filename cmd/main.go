package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-speech-translation-relay/internal/api/ws"
	"ai-speech-translation-relay/internal/app"
	"ai-speech-translation-relay/internal/config"
	"ai-speech-translation-relay/internal/events"
	httpapi "ai-speech-translation-relay/internal/http"
	"ai-speech-translation-relay/internal/observability"
	"ai-speech-translation-relay/internal/service/recognizer"
	"ai-speech-translation-relay/internal/service/recognizer/google"
	"ai-speech-translation-relay/internal/service/recognizer/mock"
	"ai-speech-translation-relay/internal/service/translate"
	"ai-speech-translation-relay/internal/session"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		application.Logger.Fatal().Err(err).Msg("Application start failed")
	}
	log := application.Logger

	// Kafka publisher with separate topics for captions and completed
	// translations. Disabled config degrades to log-only mode.
	publisher := events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicCaption:     cfg.Kafka.TopicCaption,
		TopicTranslation: cfg.Kafka.TopicTranslation,
		Principal:        cfg.Kafka.Principal,
	})
	defer publisher.Close()

	metricsServer := observability.NewServer(":" + cfg.Observability.MetricsPort)
	metricsServer.Start()

	// One retrying request client shared by every session's translator.
	client := translate.NewClient(translate.ClientConfig{
		MaxAttempts:    cfg.Translator.MaxAttempts,
		BaseDelay:      cfg.Translator.BaseDelay,
		RequestTimeout: cfg.Translator.RequestTimeout,
		Logger:         log,
	})

	manager := session.NewManager(log)

	sessions := ws.NewServer(ws.Config{
		NewRecognizer: func(ctx context.Context) (recognizer.Adapter, error) {
			if cfg.Recognizer.Provider == "google" {
				return google.New(ctx, google.Config{
					LanguageCode:   cfg.Recognizer.LanguageCode,
					SampleRateHz:   cfg.Recognizer.SampleRateHz,
					InterimResults: cfg.Recognizer.InterimResults,
				})
			}
			return mock.New(), nil
		},
		NewTranslator: func(targetLanguage string, synthesize bool) session.Translator {
			return translate.NewTranslator(client, translate.Config{
				Endpoint:          cfg.Translator.Endpoint,
				SynthesisEndpoint: cfg.Translator.SynthesisEndpoint,
				TargetLanguage:    targetLanguage,
				Synthesize:        synthesize,
				SampleRateHz:      cfg.Translator.SampleRateHz,
				MinSegmentChars:   cfg.Translator.MinSegmentChars,
				Logger:            log,
			})
		},
		Publisher:      publisher,
		Manager:        manager,
		PauseFlush:     cfg.Segmenter.PauseFlush,
		StreamingFlush: cfg.Segmenter.StreamingFlush,
		TargetLanguage: cfg.Translator.TargetLanguage,
		Synthesize:     cfg.Translator.Synthesize,
		Logger:         log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(sessions),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Service.HTTPPort).
			Str("recognizer", cfg.Recognizer.Provider).
			Str("targetLanguage", cfg.Translator.TargetLanguage).
			Msg("Speech translation relay started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")

	// Stop sessions first so residual segments flush and play before the
	// transport goes away.
	manager.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability server shutdown failed")
	}

	application.Shutdown()
}
