package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"relaybot/internal/domain"
)

const (
	ollamaDefaultURL   = "http://localhost:11434/api/generate"
	ollamaDefaultModel = "qwen2.5:14b"
	generatePath       = "/api/generate"
	tagsPath           = "/api/tags"
	maxErrorBody       = 512
)

// ErrNoResponse is returned when the generate payload has no response field.
var ErrNoResponse = errors.New("ollama response has no 'response' field")

// Ollama is the inference client for Ollama's native generate API.
type Ollama struct {
	apiURL   string
	model    string
	apiToken string
	client   *http.Client
	logger   *slog.Logger
}

type OllamaConfig struct {
	APIURL   string // full generate URL, e.g. http://localhost:11434/api/generate
	Model    string
	APIToken string // optional bearer token
	Timeout  time.Duration
	Logger   *slog.Logger
}

func NewOllama(cfg OllamaConfig) *Ollama {
	return NewOllamaWithClient(cfg, newHTTPClient(cfg.Timeout))
}

func NewOllamaWithClient(cfg OllamaConfig, client *http.Client) *Ollama {
	if cfg.APIURL == "" {
		cfg.APIURL = ollamaDefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = ollamaDefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Ollama{
		apiURL:   cfg.APIURL,
		model:    cfg.Model,
		apiToken: cfg.APIToken,
		client:   client,
		logger:   cfg.Logger,
	}
}

func (o *Ollama) Model() string { return o.model }

func (o *Ollama) APIURL() string { return o.apiURL }

// BaseURL is the server root derived from the generate URL.
func (o *Ollama) BaseURL() string {
	return strings.TrimSuffix(strings.TrimRight(o.apiURL, "/"), generatePath)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Model    string  `json:"model"`
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// GetResponse sends prompt to the model and interprets the reply. It never
// returns an error: transport and decode failures are logged and reported as
// domain.EmptyResult.
func (o *Ollama) GetResponse(ctx context.Context, prompt string) domain.InferenceResult {
	text, err := o.Generate(ctx, prompt)
	if err != nil {
		o.logger.Error("ollama generate failed", "url", o.apiURL, "model", o.model, "err", err)
		return domain.EmptyResult{}
	}
	result, err := ParseResult([]byte(text))
	if err != nil {
		o.logger.Error("cannot decode JSON from ollama", "err", err, "response_len", len(text))
		return domain.EmptyResult{}
	}
	return result
}

// Generate performs one non-streamed JSON-format completion and returns the
// raw text of the response field.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	o.authorize(req)

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Response == nil {
		return "", ErrNoResponse
	}

	o.logger.Debug("ollama generate completed",
		"model", o.model,
		"latency", time.Since(start),
		"response_len", len(*out.Response),
	)
	return *out.Response, nil
}

// ListModels returns the names of the models the server reports on /api/tags.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL()+tagsPath, nil)
	if err != nil {
		return nil, err
	}
	o.authorize(req)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (o *Ollama) authorize(req *http.Request) {
	if o.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiToken)
	}
}
