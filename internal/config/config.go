package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for settings outside their allowed values.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Port            int    `yaml:"port"`
	LogLevel        string `yaml:"log_level"`
	NatsURL         string `yaml:"nats_url"`
	NatsToken       string `yaml:"nats_token"`
	DatabaseURL     string `yaml:"database_url"`
	SessionBackend  string `yaml:"session_backend"`
	SQLitePath      string `yaml:"sqlite_path"`
	LLMProvider     string `yaml:"llm_provider"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	GeminiModel     string `yaml:"gemini_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	APIToken        string `yaml:"api_token"`
	PackagesRoot    string `yaml:"packages_root"`
	RecursionKind   string `yaml:"recursion_kind"`
}

// Load builds the configuration from defaults, the YAML file named by
// STACKOVERFIX_CONFIG (if any), and then the environment.
func Load() (Config, error) {
	cfg := Config{
		Port:           8760,
		LogLevel:       "info",
		SessionBackend: "memory",
		SQLitePath:     "stackoverfix.db",
		LLMProvider:    "gemini",
		GeminiModel:    "gemini-2.0-flash-lite",
		AnthropicModel: "claude-sonnet-4-20250514",
		RecursionKind:  "RecursionError",
	}

	if path := os.Getenv("STACKOVERFIX_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envInt("STACKOVERFIX_PORT", cfg.Port)
	cfg.LogLevel = envStr("LOG_LEVEL", cfg.LogLevel)
	cfg.NatsURL = envStr("NATS_URL", cfg.NatsURL)
	cfg.NatsToken = envStr("NATS_TOKEN", cfg.NatsToken)
	cfg.DatabaseURL = envStr("DATABASE_URL", cfg.DatabaseURL)
	cfg.SessionBackend = envStr("STACKOVERFIX_SESSION_BACKEND", cfg.SessionBackend)
	cfg.SQLitePath = envStr("STACKOVERFIX_SQLITE_PATH", cfg.SQLitePath)
	cfg.LLMProvider = envStr("STACKOVERFIX_LLM_PROVIDER", cfg.LLMProvider)
	cfg.GeminiAPIKey = envStr("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = envStr("STACKOVERFIX_GEMINI_MODEL", cfg.GeminiModel)
	cfg.AnthropicAPIKey = envStr("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = envStr("STACKOVERFIX_ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.APIToken = envStr("STACKOVERFIX_API_TOKEN", cfg.APIToken)
	cfg.PackagesRoot = envStr("STACKOVERFIX_PACKAGES_ROOT", cfg.PackagesRoot)
	cfg.RecursionKind = envStr("STACKOVERFIX_RECURSION_KIND", cfg.RecursionKind)

	if cfg.PackagesRoot == "" {
		cfg.PackagesRoot = DefaultPythonPackagesRoot()
	}

	switch cfg.SessionBackend {
	case "memory", "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("%w: session backend %q", ErrInvalid, cfg.SessionBackend)
	}
	switch cfg.LLMProvider {
	case "gemini", "anthropic":
	default:
		return Config{}, fmt.Errorf("%w: llm provider %q", ErrInvalid, cfg.LLMProvider)
	}

	return cfg, nil
}

// pythonPurelib asks the host interpreter for its installed-packages
// directory.
var pythonPurelib = func() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var lastErr error
	for _, name := range []string{"python3", "python"} {
		bin, err := exec.LookPath(name)
		if err != nil {
			lastErr = err
			continue
		}
		out, err := exec.CommandContext(ctx, bin, "-c",
			"import sysconfig; print(sysconfig.get_paths()['purelib'])").Output()
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", name, err)
			continue
		}
		return strings.TrimSpace(string(out)), nil
	}
	return "", lastErr
}

// DefaultPythonPackagesRoot returns the site-packages directory of the host
// Python interpreter, or "" when no interpreter can be queried.
func DefaultPythonPackagesRoot() string {
	root, err := pythonPurelib()
	if err != nil {
		return ""
	}
	return root
}

// DefaultGoPackagesRoot returns the Go module cache, where third-party
// packages of a Go program live.
func DefaultGoPackagesRoot() string {
	if v := os.Getenv("GOMODCACHE"); v != "" {
		return v
	}
	if v := os.Getenv("GOPATH"); v != "" {
		return filepath.Join(filepath.SplitList(v)[0], "pkg", "mod")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "go", "pkg", "mod")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
