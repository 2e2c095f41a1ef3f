// Package preflight checks the bot's configuration against the outside world
// before any message is accepted.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

const (
	defaultProbeTimeout = 5 * time.Second
	maxListedModels     = 5
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrUnreachable       = errors.New("inference endpoint unreachable")
	ErrModelNotFound     = errors.New("model not found")
)

// ModelLister reports the models an inference server can serve.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// ModelNotFoundError lists what the server offers instead of the wanted model.
type ModelNotFoundError struct {
	Model     string
	Available []string
}

func (e *ModelNotFoundError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "model '%s' not available", e.Model)
	if len(e.Available) == 0 {
		sb.WriteString("; the server reports no models")
	} else {
		sb.WriteString("; available models: ")
		shown := e.Available[:min(len(e.Available), maxListedModels)]
		sb.WriteString(strings.Join(shown, ", "))
		if rest := len(e.Available) - len(shown); rest > 0 {
			fmt.Fprintf(&sb, " ... and %d more models", rest)
		}
	}
	fmt.Fprintf(&sb, " (to pull the model, run: ollama pull %s, or set OLLAMA_MODEL to an available model)", e.Model)
	return sb.String()
}

func (e *ModelNotFoundError) Unwrap() error { return ErrModelNotFound }

// Validator runs the startup checks.
type Validator struct {
	token        string
	model        string
	endpoint     string
	models       ModelLister
	probeTimeout time.Duration
	logger       *slog.Logger
}

// Config holds what the validator checks.
type Config struct {
	Token        string
	Model        string
	Endpoint     string // for messages only
	Models       ModelLister
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

func New(cfg Config) *Validator {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Validator{
		token:        cfg.Token,
		model:        cfg.Model,
		endpoint:     cfg.Endpoint,
		models:       cfg.Models,
		probeTimeout: cfg.ProbeTimeout,
		logger:       cfg.Logger,
	}
}

// Validate runs every check in order and stops at the first failure. The
// error wraps ErrMissingCredential, ErrUnreachable or ErrModelNotFound.
func (v *Validator) Validate(ctx context.Context) error {
	v.logger.Info("validating configuration")
	if err := v.CheckCredential(); err != nil {
		return err
	}
	v.logger.Info("discord bot token found")
	v.logger.Info("ollama settings", "url", v.endpoint, "model", v.model)

	models, err := v.Probe(ctx)
	if err != nil {
		return err
	}
	if err := v.CheckModel(models); err != nil {
		return err
	}
	v.logger.Info("ollama connection successful", "model", v.model)
	return nil
}

// CheckCredential verifies the bot token is set.
func (v *Validator) CheckCredential() error {
	if strings.TrimSpace(v.token) == "" {
		return fmt.Errorf("%w: DISCORD_BOT_TOKEN environment variable is required", ErrMissingCredential)
	}
	return nil
}

// Probe lists the server's models, bounded by the probe timeout.
func (v *Validator) Probe(ctx context.Context) ([]string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, v.probeTimeout)
	defer cancel()

	models, err := v.models.ListModels(probeCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot reach Ollama at %s (is `ollama serve` running?): %v", ErrUnreachable, v.endpoint, err)
	}
	return models, nil
}

// CheckModel verifies the configured model is among those listed. Names
// must match exactly, tag included.
func (v *Validator) CheckModel(models []string) error {
	if slices.Contains(models, v.model) {
		return nil
	}
	return &ModelNotFoundError{Model: v.model, Available: models}
}
