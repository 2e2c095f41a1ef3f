package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaybot/internal/agent"
	"relaybot/internal/channel"
	"relaybot/internal/config"
	"relaybot/internal/metrics"
	"relaybot/internal/preflight"
	"relaybot/internal/provider"
	"relaybot/internal/tool"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // --config
	envFile    string // --env-file
)

// configError is printed as-is; the process exits with status 1.
type configError struct{ err error }

func (e *configError) Error() string {
	return fmt.Sprintf("Configuration error: %v\nPlease fix the configuration and try again.", e.err)
}

func (e *configError) Unwrap() error { return e.err }

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "relaybot",
		Short: "Discord bot that relays messages on request via a local Ollama model",
		Long: `relaybot listens for messages that mention it, asks an Ollama model what
to do, and either answers in place or relays a message to another channel.

Settings come from environment variables (DISCORD_BOT_TOKEN, OLLAMA_API_URL,
OLLAMA_MODEL, ...), an optional .env file and an optional YAML file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBot,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional YAML config file")
	root.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultDotEnvPath, "optional .env file")

	root.AddCommand(doctorCmd())
	root.AddCommand(initCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())
	root.AddCommand(installServiceCmd())
	root.AddCommand(uninstallServiceCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.LoadOptions{File: configPath, DotEnv: envFile})
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.General.SlogLevel()}))
}

func newOllama(cfg *config.Config) *provider.Ollama {
	return provider.NewOllama(provider.OllamaConfig{
		APIURL:   cfg.Ollama.APIURL,
		Model:    cfg.Ollama.Model,
		APIToken: cfg.Ollama.APIToken,
		Timeout:  cfg.Ollama.Timeout,
		Logger:   logger,
	})
}

func newValidator(cfg *config.Config, ollama *provider.Ollama) *preflight.Validator {
	return preflight.New(preflight.Config{
		Token:    cfg.Discord.Token,
		Model:    ollama.Model(),
		Endpoint: ollama.APIURL(),
		Models:   ollama,
		Logger:   logger,
	})
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return &configError{err}
	}
	logger = newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ollama := newOllama(cfg)
	if err := newValidator(cfg, ollama).Validate(ctx); err != nil {
		return &configError{err}
	}

	discord, err := channel.NewDiscord(channel.DiscordConfig{Token: cfg.Discord.Token, Logger: logger})
	if err != nil {
		return err
	}

	tools := tool.NewRegistry(logger)
	tools.Register(tool.NewSendMessageTool(
		channel.NewResolver(discord, logger),
		tool.NewDispatcher(discord, discord, logger),
		logger,
	))

	intake := agent.NewIntake(agent.IntakeConfig{
		Identity:  discord,
		Inference: ollama,
		Tools:     tools,
		Messenger: discord,
		Logger:    logger,
	})

	if cfg.Metrics.Addr != "" {
		srv := newMetricsServer(cfg.Metrics.Addr)
		go func() {
			logger.Info("metrics server listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("starting bot", "version", version, "model", ollama.Model())
	if err := discord.Start(ctx, intake.Handle); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func newMetricsServer(addr string) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/metrics", metrics.Collector.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "relaybot %s\n", version)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return &configError{err}
			}
			data, err := yaml.Marshal(config.Sanitize(cfg))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
