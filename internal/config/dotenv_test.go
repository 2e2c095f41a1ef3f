package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func TestDotEnv_OnlyNonDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.Token = "tok"

	vals := DotEnv(cfg)
	if len(vals) != 1 || vals["DISCORD_BOT_TOKEN"] != "tok" {
		t.Fatalf("expected only the token, got %v", vals)
	}

	cfg.Ollama.Model = "llama3:8b"
	cfg.Ollama.Timeout = 30 * time.Second
	vals = DotEnv(cfg)
	if vals["OLLAMA_MODEL"] != "llama3:8b" || vals["OLLAMA_TIMEOUT"] != "30s" {
		t.Fatalf("unexpected values: %v", vals)
	}
}

func TestWriteDotEnv_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	cfg := Defaults()
	cfg.Discord.Token = "secret token with spaces"
	cfg.Ollama.APIURL = "http://gpu-box:11434/api/generate"
	cfg.Ollama.Timeout = 45 * time.Second
	cfg.General.LogLevel = "debug"

	if err := WriteDotEnv(path, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(LoadOptions{DotEnv: path, Environment: map[string]string{}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Discord.Token != cfg.Discord.Token {
		t.Fatalf("token mismatch: %q", got.Discord.Token)
	}
	if got.Ollama.APIURL != cfg.Ollama.APIURL || got.Ollama.Timeout != cfg.Ollama.Timeout {
		t.Fatalf("ollama settings mismatch: %+v", got.Ollama)
	}
	if got.General.LogLevel != "debug" {
		t.Fatalf("log level mismatch: %q", got.General.LogLevel)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (GeneralConfig{LogLevel: in}).SlogLevel(); got != want {
			t.Fatalf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
