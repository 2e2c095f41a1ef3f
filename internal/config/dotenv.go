package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnv returns the settings in cfg that differ from the defaults, keyed by
// environment variable. The bot token is always included.
func DotEnv(cfg *Config) map[string]string {
	def := Defaults()
	vals := map[string]string{"DISCORD_BOT_TOKEN": cfg.Discord.Token}
	if cfg.Ollama.APIURL != def.Ollama.APIURL {
		vals["OLLAMA_API_URL"] = cfg.Ollama.APIURL
	}
	if cfg.Ollama.Model != def.Ollama.Model {
		vals["OLLAMA_MODEL"] = cfg.Ollama.Model
	}
	if cfg.Ollama.APIToken != "" {
		vals["OLLAMA_API_TOKEN"] = cfg.Ollama.APIToken
	}
	if cfg.Ollama.Timeout != def.Ollama.Timeout {
		vals["OLLAMA_TIMEOUT"] = cfg.Ollama.Timeout.String()
	}
	if !strings.EqualFold(cfg.General.LogLevel, def.General.LogLevel) {
		vals["RELAYBOT_LOG_LEVEL"] = cfg.General.LogLevel
	}
	if cfg.Metrics.Addr != "" {
		vals["RELAYBOT_METRICS_ADDR"] = cfg.Metrics.Addr
	}
	return vals
}

// WriteDotEnv saves cfg as a .env file that Load reads back.
func WriteDotEnv(path string, cfg *Config) error {
	if err := godotenv.Write(DotEnv(cfg), ExpandPath(path)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// SlogLevel maps the configured log level to a slog.Level, defaulting to info.
func (g GeneralConfig) SlogLevel() slog.Level {
	switch strings.ToLower(g.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
