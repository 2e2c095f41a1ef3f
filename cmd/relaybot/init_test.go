package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"relaybot/internal/config"
)

func TestRunInit_Defaults(t *testing.T) {
	var out bytes.Buffer
	cfg, err := runInit(strings.NewReader("my-token\n\n\n\n"), &out)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if cfg.Discord.Token != "my-token" {
		t.Fatalf("unexpected token %q", cfg.Discord.Token)
	}
	if cfg.Ollama.APIURL != config.DefaultOllamaURL || cfg.Ollama.Model != config.DefaultOllamaModel {
		t.Fatalf("expected defaults, got %+v", cfg.Ollama)
	}
	if !strings.Contains(out.String(), "Bot token:") {
		t.Fatalf("expected prompt in output:\n%s", out.String())
	}
}

func TestRunInit_Overrides(t *testing.T) {
	in := "tok\nhttp://gpu:11434/api/generate\nllama3:8b\n30s\n"
	cfg, err := runInit(strings.NewReader(in), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if cfg.Ollama.APIURL != "http://gpu:11434/api/generate" || cfg.Ollama.Model != "llama3:8b" {
		t.Fatalf("unexpected ollama settings %+v", cfg.Ollama)
	}
	if cfg.Ollama.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Ollama.Timeout)
	}
}

func TestRunInit_RequiresToken(t *testing.T) {
	if _, err := runInit(strings.NewReader("\n"), &bytes.Buffer{}); err == nil {
		t.Fatal("expected error without a token")
	}
}

func TestRunInit_RejectsBadValues(t *testing.T) {
	if _, err := runInit(strings.NewReader("tok\nftp://x\n\n\n"), &bytes.Buffer{}); err == nil {
		t.Fatal("expected validation error for a non-http URL")
	}
	if _, err := runInit(strings.NewReader("tok\n\n\nsoon\n"), &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for an invalid timeout")
	}
}
