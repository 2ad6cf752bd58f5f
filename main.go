package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/polishtutor/polishtutor/internal/config"
	"github.com/polishtutor/polishtutor/internal/llm"
	"github.com/polishtutor/polishtutor/internal/logger"
	"github.com/polishtutor/polishtutor/internal/metrics"
	"github.com/polishtutor/polishtutor/internal/scheduler"
	"github.com/polishtutor/polishtutor/internal/server"
	"github.com/polishtutor/polishtutor/internal/telegram"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger.InitFallback(os.Stderr)
	if err := newRootCmd().Execute(); err != nil {
		logger.Fatal("polishtutor exited with error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "polishtutor",
		Short:        "Telegram Polish tutor bot backed by Gemini",
		Long:         "Answers /ask, /repeat, /text, /quiz and captioned photos in Telegram and posts scheduled lessons to a channel.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(jobsCmd())
	root.AddCommand(postCmd())
	return root
}

// setup loads configuration and starts logging. It is shared by every command.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

func jobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "Validate and print the posting schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			specs, err := scheduler.ScheduleFromConfig(cfg)
			if err != nil {
				return err
			}

			dispatcher := scheduler.New(nil, nil, scheduler.OptionsFromConfig(cfg))
			if err := dispatcher.Register(specs); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "timezone: %s\n", cfg.Location())
			for _, spec := range dispatcher.Jobs() {
				fmt.Fprintf(out, "%-22s %s\n", spec.Name, spec.Spec)
			}
			if cfg.HasSelfPing() {
				fmt.Fprintf(out, "%-22s @every %s -> %s\n", "keep_alive", cfg.KeepAliveInterval, cfg.SelfPingURL)
			}
			return nil
		},
	}
}

func postCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post <job>",
		Short: "Run one scheduled job now and post the result to the channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			name := scheduler.JobName(args[0])
			if err := scheduler.ValidateJob(name, cfg.EnableSearch); err != nil {
				return err
			}

			tutor, err := llm.NewTutor(cfg)
			if err != nil {
				return err
			}
			bot, err := telegram.NewBot(cfg, tutor)
			if err != nil {
				return err
			}

			dispatcher := scheduler.New(tutor, bot, scheduler.OptionsFromConfig(cfg))
			if err := dispatcher.Run(cmd.Context(), name); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "posted %s\n", name)
			return nil
		},
	}
}

// run wires every component and blocks until SIGINT/SIGTERM.
func run(parent context.Context, cfg *config.Config) error {
	logger.Info("Polish tutor bot is starting", map[string]interface{}{
		"log_level":  cfg.LogLevel,
		"model":      cfg.GeminiModel,
		"search":     cfg.EnableSearch,
		"self_ping":  cfg.HasSelfPing(),
		"channel_id": cfg.TelegramChannelID,
	})

	collector := metrics.NewCollector()

	tutor, err := llm.NewTutor(cfg)
	if err != nil {
		return err
	}
	tutor.SetRecorder(collector)

	bot, err := telegram.NewBot(cfg, tutor)
	if err != nil {
		return err
	}
	bot.SetRecorder(collector)

	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	specs, err := scheduler.ScheduleFromConfig(cfg)
	if err != nil {
		return err
	}
	dispatcher := scheduler.New(tutor, bot, scheduler.OptionsFromConfig(cfg))
	dispatcher.SetRecorder(collector)
	if err := dispatcher.Register(specs); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Port, collector.Gatherer())
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("Liveness server stopped", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	dispatcher.Start(ctx)

	logger.InfoMsg("Ready to teach Polish!")

	botErr := bot.Start(ctx)
	if botErr != nil {
		logger.Error("Bot error", map[string]interface{}{
			"error": botErr.Error(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	dispatcher.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down liveness server", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.InfoMsg("Polish tutor bot stopped")
	return botErr
}
