package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinPollInterval est le plancher imposé par le portail: pas plus d'un cycle
// toutes les 3 minutes par ressource.
const MinPollInterval = 180 * time.Second

type Config struct {
	Addr        string `yaml:"addr"`
	DBPath      string `yaml:"db_path"`
	Environment string `yaml:"environment"`
	LogFormat   string `yaml:"log_format"`

	PollInterval time.Duration `yaml:"poll_interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// MaxConcurrentFetches plafonne les fetchs simultanés, tous watchers confondus.
	MaxConcurrentFetches int `yaml:"max_concurrent_fetches"`

	BaseURL  string `yaml:"base_url"`
	Email    string `yaml:"email"`
	ScriptID string `yaml:"script_id"`

	Quiet         bool          `yaml:"quiet"`
	AlertInterval time.Duration `yaml:"alert_interval"`

	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`

	Resources []ResourceEntry `yaml:"resources"`
}

// ResourceEntry est une ressource déclarée dans le fichier de config.
type ResourceEntry struct {
	ServiceURL string `yaml:"service_url"`
	Name       string `yaml:"name"`
}

func Default() Config {
	return Config{
		Addr:                 envOr("TERMIN_ADDR", "127.0.0.1:8080"),
		DBPath:               envOr("TERMIN_DB_PATH", "termin.db"),
		Environment:          envOr("TERMIN_ENV", "production"),
		LogFormat:            envOr("TERMIN_LOG_FORMAT", ""),
		PollInterval:         envDuration("TERMIN_POLL_INTERVAL", MinPollInterval),
		FetchTimeout:         envDuration("TERMIN_FETCH_TIMEOUT", 45*time.Second),
		MaxConcurrentFetches: envInt("TERMIN_MAX_CONCURRENT_FETCHES", 2),
		BaseURL:              envOr("TERMIN_BASE_URL", "https://service.berlin.de"),
		Email:                envOr("TERMIN_EMAIL", ""),
		ScriptID:             envOr("TERMIN_SCRIPT_ID", ""),
		Quiet:                envBool("TERMIN_QUIET", false),
		AlertInterval:        envDuration("TERMIN_ALERT_INTERVAL", 10*time.Second),
		RedisAddr:            envOr("TERMIN_REDIS_ADDR", ""),
		RedisChannel:         envOr("TERMIN_REDIS_CHANNEL", "termin-watch:appointments"),
	}
}

// Path renvoie le fichier de config indiqué par TERMIN_CONFIG (vide si absent).
func Path() string { return os.Getenv("TERMIN_CONFIG") }

// LoadFile superpose le fichier YAML à cfg. Les champs absents du fichier
// gardent leur valeur.
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate normalise la config. Un intervalle trop court est relevé au
// plancher, il n'est pas refusé.
func (c *Config) Validate() error {
	if c.PollInterval < MinPollInterval {
		c.PollInterval = MinPollInterval
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}
	if c.MaxConcurrentFetches <= 0 {
		c.MaxConcurrentFetches = 1
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base url is required")
	}
	if c.AlertInterval < 0 {
		c.AlertInterval = 0
	}
	for i, r := range c.Resources {
		if strings.TrimSpace(r.ServiceURL) == "" {
			return fmt.Errorf("resources[%d]: service_url is required", i)
		}
	}
	return nil
}

// Development indique si on tourne en mode dev (logs console, niveau debug).
func (c Config) Development() bool {
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local":
		return true
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Entier nu = secondes.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
