package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for relaybot.
type Config struct {
	Discord DiscordConfig `yaml:"discord"`
	Ollama  OllamaConfig  `yaml:"ollama"`
	General GeneralConfig `yaml:"general"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type DiscordConfig struct {
	Token string `yaml:"token" env:"DISCORD_BOT_TOKEN"`
}

type OllamaConfig struct {
	APIURL   string        `yaml:"apiUrl" env:"OLLAMA_API_URL"`
	Model    string        `yaml:"model" env:"OLLAMA_MODEL"`
	APIToken string        `yaml:"apiToken,omitempty" env:"OLLAMA_API_TOKEN"` // optional bearer token
	Timeout  time.Duration `yaml:"timeout" env:"OLLAMA_TIMEOUT"`
}

type GeneralConfig struct {
	LogLevel string `yaml:"logLevel" env:"RELAYBOT_LOG_LEVEL"`
}

// MetricsConfig configures the Prometheus text endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" env:"RELAYBOT_METRICS_ADDR"`
}

// LoadOptions controls where Load reads settings from.
type LoadOptions struct {
	File        string            // optional YAML file
	DotEnv      string            // optional .env file; a missing file is ignored
	Environment map[string]string // replaces the process environment when non-nil
}

// Load builds the configuration from defaults, the optional YAML file, the
// optional .env file and the environment, in increasing order of precedence.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Defaults()

	environ := make(map[string]string)
	if opts.Environment != nil {
		for k, v := range opts.Environment {
			environ[k] = v
		}
	} else {
		environ = env.ToMap(os.Environ())
	}
	if opts.DotEnv != "" {
		dotenv, err := readDotEnv(opts.DotEnv)
		if err != nil {
			return nil, err
		}
		for k, v := range dotenv {
			if _, set := environ[k]; !set {
				environ[k] = v
			}
		}
	}

	if opts.File != "" {
		path := ExpandPath(opts.File)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
		// Substitute ${VAR} and ${VAR:-default} from the merged environment.
		data = []byte(ExpandEnvVars(string(data), environ))
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return vals, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with its value in environ.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string, environ map[string]string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := environ[varName]
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// Validate checks that the config has usable values. The bot token is not
// checked here; preflight reports it as a missing credential.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Ollama.APIURL == "" {
		errs = append(errs, errors.New("ollama.apiUrl (OLLAMA_API_URL) must not be empty"))
	} else if u, err := url.Parse(cfg.Ollama.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("ollama.apiUrl (OLLAMA_API_URL) must be an http(s) URL, got %q", cfg.Ollama.APIURL))
	}
	if strings.TrimSpace(cfg.Ollama.Model) == "" {
		errs = append(errs, errors.New("ollama.model (OLLAMA_MODEL) must not be empty"))
	}
	if cfg.Ollama.Timeout <= 0 {
		errs = append(errs, errors.New("ollama.timeout (OLLAMA_TIMEOUT) must be positive"))
	}

	switch strings.ToLower(cfg.General.LogLevel) {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, errors.New("general.logLevel must be one of: debug, info, warn, error"))
	}

	if cfg.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			errs = append(errs, fmt.Errorf("metrics.addr (RELAYBOT_METRICS_ADDR) must be host:port: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Sanitize returns a copy of cfg with secrets masked, for display.
func Sanitize(cfg *Config) *Config {
	copy := *cfg
	if copy.Discord.Token != "" {
		copy.Discord.Token = maskString(copy.Discord.Token)
	}
	if copy.Ollama.APIToken != "" {
		copy.Ollama.APIToken = maskString(copy.Ollama.APIToken)
	}
	return &copy
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
