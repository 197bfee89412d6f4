package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yegors/co-translate/internal/ai"
	"github.com/yegors/co-translate/internal/ai/gemini"
	"github.com/yegors/co-translate/internal/ai/openai"
	"github.com/yegors/co-translate/internal/api"
	"github.com/yegors/co-translate/internal/audio"
	"github.com/yegors/co-translate/internal/config"
	"github.com/yegors/co-translate/internal/languages"
	"github.com/yegors/co-translate/internal/session"
	"github.com/yegors/co-translate/internal/storage/sqlite"
	"github.com/yegors/co-translate/internal/templating"
	"github.com/yegors/co-translate/internal/transcription"
	"github.com/yegors/co-translate/internal/translation"
	"github.com/yegors/co-translate/internal/websocket"
	"github.com/yegors/co-translate/pkg/logger"
)

func newServeCmd(a *app) *cobra.Command {
	var autoStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the translator and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(autoStart)
		},
	}
	cmd.Flags().BoolVar(&autoStart, "listen", false, "Start listening immediately")
	return cmd
}

func (a *app) serve(autoStart bool) error {
	cfg, log := a.cfg, a.log

	log.Info("Starting co-translate server",
		logger.String("version", Version),
		logger.String("config_path", a.configPath),
	)

	// History is optional; the translator keeps working without it
	var (
		store      *sqlite.HistoryStore
		history    session.History
		apiHistory api.HistoryStore
	)
	if s, err := a.openHistory(); err != nil {
		log.Warn("History disabled: failed to open database", logger.Error(err))
	} else if s == nil {
		log.Warn("History disabled: no writable data directory")
	} else if err := s.Probe(context.Background()); err != nil {
		log.Warn("History disabled: database is not writable",
			logger.String("path", s.Path()),
			logger.Error(err))
		s.Close()
	} else {
		store = s
		history = s
		apiHistory = s
		defer store.Close()
		log.Info("Using history database", logger.String("path", store.Path()))
	}

	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	llm, err := newBackend(cfg, log)
	if err != nil {
		return err
	}
	var backend translation.Backend
	if llm != nil {
		backend = llm
	}
	fallback := translation.NewFallback(translation.FallbackConfig{
		Endpoint: cfg.Fallback.Endpoint,
		ClientID: cfg.Fallback.ClientID,
		Timeout:  time.Duration(cfg.Fallback.TimeoutSeconds) * time.Second,
	}, translation.DefaultPhrasebook(), log)
	translator := translation.NewClient(backend, fallback, log)

	transcriber := transcription.NewOpenAITranscriber(transcription.OpenAIConfig{
		APIKey:   cfg.Transcription.APIKey,
		BaseURL:  cfg.Transcription.BaseURL,
		Model:    cfg.Transcription.Model,
		Language: cfg.Transcription.Language,
		Timeout:  time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second,
	}, log)

	mic, err := audio.NewMicrophone(audio.MicrophoneConfig{
		Device:     cfg.Capture.Device,
		SampleRate: cfg.Capture.SampleRate,
		VADMode:    cfg.Capture.VADMode,
		Pause:      time.Duration(cfg.Capture.PauseMs) * time.Millisecond,
		MinSpeech:  time.Duration(cfg.Capture.MinSpeechMs) * time.Millisecond,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to open microphone: %w", err)
	}
	defer mic.Close()

	controller := session.NewController(session.Config{
		ListenTimeout: cfg.Capture.ListenTimeout(),
		PhraseLimit:   cfg.Capture.PhraseLimit(),
		LoopDelay:     cfg.Capture.LoopDelay(),
		DefaultTarget: cfg.Translation.DefaultTarget,
		Workers:       cfg.Pipeline.Workers,
		QueueSize:     cfg.Pipeline.QueueSize,
	}, session.Deps{
		Source:      mic,
		Transcriber: transcriber,
		Detector:    languages.NewLinguaDetector(),
		Translator:  translator,
		History:     history,
		Presenter: session.MultiPresenter{
			websocket.NewPresenter(wsServer),
			session.NewLogPresenter(log),
		},
	}, log)

	handler := api.NewHandler(controller, apiHistory, wsServer, cfg, log)
	if llm != nil {
		handler.SetPromptReloader(llm)
	}
	wsServer.SetMessageHandler(handler)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if autoStart {
		if err := controller.Start(); err != nil {
			log.Error("Failed to start listening", logger.Error(err))
		}
	}

	// Wait for interrupt signal; SIGHUP reloads the prompt file
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var runErr error
wait:
	for {
		select {
		case sig := <-sigCh:
			if sig != syscall.SIGHUP {
				break wait
			}
			if llm == nil {
				log.Info("Ignoring SIGHUP: primary translation backend is disabled")
				continue
			}
			if err := llm.ReloadPrompt(); err != nil {
				log.Error("Failed to reload prompt", logger.Error(err))
			}
		case err := <-serverErr:
			log.Error("HTTP server error", logger.Error(err))
			runErr = err
			break wait
		}
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := controller.Shutdown(shutdownCtx); err != nil {
		log.Error("Session shutdown error", logger.Error(err))
	} else {
		log.Info("Session stopped.")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}
	wsServer.Close()

	log.Info("Server fully stopped")
	return runErr
}

// newBackend builds the primary translation backend, or nil when only the
// fallback translator should be used
func newBackend(cfg *config.Config, log *logger.Logger) (*translation.LLMBackend, error) {
	var provider ai.ChatProvider

	switch cfg.Translation.Provider {
	case "none":
		log.Info("Primary translation disabled, using fallback translator only")
		return nil, nil
	case "gemini":
		client, err := gemini.NewClient(context.Background(), cfg.Translation.APIKey, log, cfg.Translation.BaseURL,
			time.Duration(cfg.Translation.TimeoutSeconds)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		provider = client
	default:
		provider = openai.NewClient(cfg.Translation.APIKey, log, cfg.Translation.BaseURL,
			time.Duration(cfg.Translation.TimeoutSeconds)*time.Second)
	}

	log.Info("Using primary translation backend",
		logger.String("provider", cfg.Translation.Provider),
		logger.String("model", cfg.Translation.Model))

	return translation.NewLLMBackend(provider, templating.NewEngine(log), translation.LLMConfig{
		Model:       cfg.Translation.Model,
		Temperature: cfg.Translation.Temperature,
		MaxTokens:   cfg.Translation.MaxTokens,
		PromptPath:  cfg.Translation.PromptPath,
	}, log), nil
}
