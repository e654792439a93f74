package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	orchestration "github.com/koscakluka/ema-assistant/core"
	"github.com/koscakluka/ema-assistant/core/assistant/deepgram"
	"github.com/koscakluka/ema-assistant/core/audio"
	"github.com/koscakluka/ema-assistant/core/commands"
	"github.com/koscakluka/ema-assistant/core/host"
	"github.com/koscakluka/ema-assistant/core/llms/groq"
	"github.com/koscakluka/ema-assistant/core/textfilters"
	"github.com/koscakluka/ema-assistant/core/transcript"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var logger = otelslog.NewLogger("github.com/koscakluka/ema-assistant/cmd/ema-assistant")

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "ema-assistant",
		Usage: "Talk to your voice assistant from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "deepgram-api-key",
				Usage:   "Deepgram API key used for speech recognition and synthesis",
				Sources: cli.EnvVars("DEEPGRAM_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "groq-api-key",
				Usage:   "Groq API key used to generate answers",
				Sources: cli.EnvVars("GROQ_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "groq-model",
				Usage:   "Groq model used to generate answers",
				Value:   groq.DefaultModel,
				Sources: cli.EnvVars("EMA_GROQ_MODEL"),
			},
			&cli.StringFlag{
				Name:    "voice",
				Usage:   "Deepgram voice",
				Value:   string(deepgram.VoiceThalia),
				Sources: cli.EnvVars("EMA_VOICE"),
			},
			&cli.StringFlag{
				Name:    "language",
				Usage:   "BCP-47 language spoken to the assistant",
				Value:   "en-US",
				Sources: cli.EnvVars("EMA_LANGUAGE"),
			},
			&cli.StringFlag{
				Name:    "audio",
				Usage:   "Audio backend: miniaudio, portaudio or none",
				Value:   audioBackendMiniaudio,
				Sources: cli.EnvVars("EMA_AUDIO"),
			},
			&cli.IntFlag{
				Name:  "sample-rate",
				Usage: "Audio device sample rate",
				Value: audio.DefaultSampleRate,
			},
			&cli.StringFlag{
				Name:    "transcript-db",
				Usage:   "SQLite file the transcript is kept in, in memory when empty",
				Sources: cli.EnvVars("EMA_TRANSCRIPT_DB"),
			},
			&cli.StringFlag{
				Name:    "host-addr",
				Usage:   "Address of the host window channel, disabled when empty",
				Sources: cli.EnvVars("EMA_HOST_ADDR"),
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "File logs are written to",
				Value:   "ema-assistant.log",
				Sources: cli.EnvVars("EMA_LOG_FILE"),
			},
		},
		Action: runInteractive,
		Commands: []*cli.Command{
			newAskCommand(),
		},
	}
}

// session holds everything a running assistant needs and releases it in
// reverse order.
type session struct {
	orchestrator *orchestration.Orchestrator
	registry     *commands.Registry
	store        transcript.Store
	hostServer   *host.Server

	closers []func(context.Context) error
}

func newSession(ctx context.Context, cmd *cli.Command) (_ *session, err error) {
	s := &session{}
	defer func() {
		if err != nil {
			err = errors.Join(err, s.close(ctx))
		}
	}()

	shutdownLogging, err := setupLogging(cmd.String("log-file"))
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, shutdownLogging)

	responder, err := groq.NewClient(
		groq.WithAPIKey(cmd.String("groq-api-key")),
		groq.WithModel(cmd.String("groq-model")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create responder: %w", err)
	}

	remote, err := deepgram.NewClient(
		deepgram.WithAPIKey(cmd.String("deepgram-api-key")),
		deepgram.WithVoice(deepgram.Voice(cmd.String("voice"))),
		deepgram.WithResponder(responder),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assistant client: %w", err)
	}

	if path := cmd.String("transcript-db"); path != "" {
		store, err := transcript.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.closers = append(s.closers, func(context.Context) error { return store.Close() })
	} else {
		s.store = transcript.NewMemoryStore()
	}

	s.registry, err = commands.NewRegistry()
	if err != nil {
		return nil, err
	}

	opts := []orchestration.OrchestratorOption{
		orchestration.WithAssistant(remote),
		orchestration.WithCommandMatcher(s.registry),
		orchestration.WithTextNormalizer(textfilters.NewNormalizer()),
		orchestration.WithTranscriptStore(s.store),
		orchestration.WithLanguage(cmd.String("language")),
	}

	audioOpts, err := audioOptions(cmd.String("audio"), int(cmd.Int("sample-rate")))
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	opts = append(opts, audioOpts...)

	if addr := cmd.String("host-addr"); addr != "" {
		s.hostServer = host.NewServer(addr, nil)
		opts = append(opts, orchestration.WithHostNotifier(s.hostServer))
	}

	s.orchestrator = orchestration.NewOrchestrator(opts...)
	s.closers = append(s.closers, func(context.Context) error {
		s.orchestrator.Close()
		return nil
	})

	for _, command := range builtinCommands(s.orchestrator) {
		if err := s.registry.Register(command); err != nil {
			return nil, err
		}
	}

	if s.hostServer != nil {
		s.hostServer.SetHandler(s.orchestrator)
		go func() {
			if err := s.hostServer.ListenAndServe(); err != nil {
				logger.Error("host channel stopped", "error", err)
			}
		}()
		s.closers = append(s.closers, s.hostServer.Shutdown)
	}

	return s, nil
}

func (s *session) close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	s.closers = nil
	return errors.Join(errs...)
}
