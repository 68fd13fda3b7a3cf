package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Config is the full bot configuration.
//
// Credentials may be provided either in the file or via environment
// (TELEGRAM_TOKEN, GROQ_API_KEY); the environment wins.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Groq      GroqConfig      `yaml:"groq"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`

	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `yaml:"poll_timeout,omitempty"`
}

type GroqConfig struct {
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`

	// MaxHistory is the number of (user, assistant) exchanges kept per chat.
	MaxHistory int `yaml:"max_history,omitempty"`
}

type BroadcastConfig struct {
	// Time is local wall-clock "HH:MM" in Timezone.
	Time       string `yaml:"time,omitempty"`
	Timezone   string `yaml:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Kolkata"
	RatePerSec int    `yaml:"rate_per_sec,omitempty"`
}

type StorageConfig struct {
	Path        string `yaml:"path,omitempty"`
	BusyTimeout string `yaml:"busy_timeout,omitempty"` // Go duration string
}

type LoggingConfig struct {
	Level   string     `yaml:"level,omitempty"`
	Console *bool      `yaml:"console,omitempty"`
	File    FileConfig `yaml:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// Load reads, parses and validates the config file at path, applying
// defaults and environment overrides.
//
// A missing file is not an error when the environment carries the bot
// credential; the rest of the config falls back to defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only setup
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("GROQ_API_KEY")); v != "" {
		c.Groq.APIKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Telegram.PollTimeout == "" {
		c.Telegram.PollTimeout = "10s"
	}
	if c.Groq.BaseURL == "" {
		c.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Groq.Model == "" {
		c.Groq.Model = "llama-3.1-8b-instant"
	}
	if c.Groq.MaxTokens <= 0 {
		c.Groq.MaxTokens = 120
	}
	if c.Groq.Temperature <= 0 {
		c.Groq.Temperature = 0.7
	}
	if c.Groq.MaxHistory <= 0 {
		c.Groq.MaxHistory = 5
	}
	if c.Broadcast.Time == "" {
		c.Broadcast.Time = "09:00"
	}
	if c.Broadcast.Timezone == "" {
		c.Broadcast.Timezone = "Asia/Kolkata"
	}
	if c.Broadcast.RatePerSec <= 0 {
		c.Broadcast.RatePerSec = 25
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./subscribers.db"
	}
	if c.Storage.BusyTimeout == "" {
		c.Storage.BusyTimeout = "5s"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Console == nil {
		on := true
		c.Logging.Console = &on
	}
}

// Validate reports configuration the process cannot start with.
// A missing Groq key is deliberately not an error: the bot degrades
// to fallback replies.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram token is required (config telegram.token or TELEGRAM_TOKEN)")
	}
	if _, err := time.ParseDuration(c.Telegram.PollTimeout); err != nil {
		return fmt.Errorf("telegram.poll_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Storage.BusyTimeout); err != nil {
		return fmt.Errorf("storage.busy_timeout: %w", err)
	}
	if _, _, err := ParseHHMM(c.Broadcast.Time); err != nil {
		return fmt.Errorf("broadcast.time: %w", err)
	}
	if _, err := time.LoadLocation(c.Broadcast.Timezone); err != nil {
		return fmt.Errorf("broadcast.timezone: %w", err)
	}
	return nil
}

// PollTimeoutDuration returns the parsed telegram.poll_timeout.
// Call only after Validate.
func (c *Config) PollTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Telegram.PollTimeout)
	return d
}

// BusyTimeoutDuration returns the parsed storage.busy_timeout.
// Call only after Validate.
func (c *Config) BusyTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Storage.BusyTimeout)
	return d
}

// ParseHHMM parses a local wall-clock time like "09:00" or "9:05".
func ParseHHMM(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q, out of range", s)
	}
	return hour, minute, nil
}
