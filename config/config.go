// Package config loads the service settings from the environment and the
// signal parameters from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"trading-signals/internal/strategy"
)

// Config holds the service configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	HTTPAddr      string // /metrics, /healthz and /ws
	SQLitePath    string // optional signal archive; empty disables it

	// Signal parameters (YAML); empty means built-in defaults
	SignalConfig string

	// Subscription: bar streams are {BarStreamPrefix}:{tf}:{symbol}
	SubscribeSymbols string
	SubscribeTFs     string
	BarStreamPrefix  string

	// Delivery
	WebhookURL string
	FiredOnly  bool // websocket clients only receive bars with a signal

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		HTTPAddr:      getEnv("HTTP_ADDR", ":9091"),
		SQLitePath:    getEnv("SQLITE_PATH", ""),

		SignalConfig: getEnv("SIGNAL_CONFIG", ""),

		SubscribeSymbols: getEnv("SUBSCRIBE_SYMBOLS", "NIFTY"),
		SubscribeTFs:     getEnv("SUBSCRIBE_TFS", ""),
		BarStreamPrefix:  getEnv("BAR_STREAM_PREFIX", "bar"),

		WebhookURL: getEnv("WEBHOOK_URL", ""),
		FiredOnly:  getEnv("WS_FIRED_ONLY", "false") == "true",

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Symbols returns the subscribed symbols.
func (c *Config) Symbols() []string {
	return ParseList(c.SubscribeSymbols)
}

// Timeframes returns the subscribed timeframes, falling back to the
// signal config's timeframe when SUBSCRIBE_TFS is unset.
func (c *Config) Timeframes(sig strategy.Config) []string {
	if tfs := ParseList(c.SubscribeTFs); len(tfs) > 0 {
		return tfs
	}
	return []string{sig.Timeframe}
}

// ParseList splits a comma-separated list, dropping blanks and duplicates.
func ParseList(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// LoadSignalConfig returns the validated signal configuration. An empty
// path yields the defaults. Keys present in the file override defaults,
// absent keys keep them, and unknown keys are an error.
func LoadSignalConfig(path string) (strategy.Config, error) {
	cfg := strategy.DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read signal config: %w", err)
		}
		if err := decodeYAML(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse signal config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseSignalConfig is LoadSignalConfig for an in-memory document.
func ParseSignalConfig(doc []byte) (strategy.Config, error) {
	cfg := strategy.DefaultConfig()
	if err := decodeYAML(doc, &cfg); err != nil {
		return cfg, fmt.Errorf("parse signal config: %w", err)
	}
	return cfg, cfg.Validate()
}

func decodeYAML(b []byte, cfg *strategy.Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
