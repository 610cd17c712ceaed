package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the dietwatch service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Roster     RosterConfig     `yaml:"roster"`
	Speech     SpeechConfig     `yaml:"speech"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
	Auth       AuthConfig       `yaml:"auth"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"` // empty disables auth
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RosterConfig describes where the legislator table comes from.
type RosterConfig struct {
	Source          string   `yaml:"source"`   // csv, html
	Path            string   `yaml:"path"`     // csv file path
	URL             string   `yaml:"url"`      // html page URL
	Encoding        string   `yaml:"encoding"` // auto, utf-8, shift_jis
	RefreshSec      int      `yaml:"refresh_sec"`
	PriorityParties []string `yaml:"priority_parties"`
	MaxSpeakers     int      `yaml:"max_speakers"`
}

// SpeechConfig holds settings for the NDL speech search API.
type SpeechConfig struct {
	BaseURL        string  `yaml:"base_url"`
	PageSize       int     `yaml:"page_size"`
	TimeoutSec     int     `yaml:"timeout_sec"`
	MaxConcurrency int     `yaml:"max_concurrency"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
	UserAgent      string  `yaml:"user_agent"`
}

// SummarizerConfig holds summarization provider settings.
type SummarizerConfig struct {
	Provider    string       `yaml:"provider"` // openai, extractive
	APIKey      string       `yaml:"api_key"`
	BaseURL     string       `yaml:"base_url"`
	Model       string       `yaml:"model"`
	MaxTokens   int          `yaml:"max_tokens"`
	Temperature float32      `yaml:"temperature"`
	TimeoutSec  int          `yaml:"timeout_sec"`
	MaxRecords  int          `yaml:"max_records"`
	MaxChars    int          `yaml:"max_chars"`
	Sentences   int          `yaml:"sentences"` // extractive only
	Budget      BudgetConfig `yaml:"budget"`
}

// BudgetConfig caps summarization token spend. Zero limits mean unlimited.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"`
	Action            string `yaml:"action"` // warn, reject
}

// CacheConfig holds the speech response cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, memory, valkey
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Roster.Source == "" {
		c.Roster.Source = "csv"
	}
	if c.Roster.Encoding == "" {
		c.Roster.Encoding = "auto"
	}
	if c.Roster.RefreshSec <= 0 {
		c.Roster.RefreshSec = 3600
	}
	if c.Roster.MaxSpeakers <= 0 {
		c.Roster.MaxSpeakers = 5
	}

	if c.Speech.BaseURL == "" {
		c.Speech.BaseURL = "https://kokkai.ndl.go.jp/api/speech"
	}
	if c.Speech.PageSize <= 0 {
		c.Speech.PageSize = 10
	}
	if c.Speech.TimeoutSec <= 0 {
		c.Speech.TimeoutSec = 15
	}
	if c.Speech.MaxConcurrency <= 0 {
		c.Speech.MaxConcurrency = 4
	}
	if c.Speech.RatePerSec <= 0 {
		c.Speech.RatePerSec = 3
	}

	if c.Summarizer.Provider == "" {
		c.Summarizer.Provider = "openai"
	}
	if c.Summarizer.Model == "" {
		c.Summarizer.Model = "gpt-4o-mini"
	}
	if c.Summarizer.MaxTokens <= 0 {
		c.Summarizer.MaxTokens = 600
	}
	if c.Summarizer.TimeoutSec <= 0 {
		c.Summarizer.TimeoutSec = 60
	}
	if c.Summarizer.MaxRecords <= 0 {
		c.Summarizer.MaxRecords = 10
	}
	if c.Summarizer.MaxChars <= 0 {
		c.Summarizer.MaxChars = 8000
	}
	if c.Summarizer.Sentences <= 0 {
		c.Summarizer.Sentences = 3
	}
	if c.Summarizer.Budget.Action == "" {
		c.Summarizer.Budget.Action = "reject"
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Roster.Source {
	case "csv":
		if c.Roster.Path == "" {
			return fmt.Errorf("roster.path is required for csv source")
		}
	case "html":
		if c.Roster.URL == "" {
			return fmt.Errorf("roster.url is required for html source")
		}
	default:
		return fmt.Errorf("roster.source must be \"csv\" or \"html\", got %q", c.Roster.Source)
	}

	switch strings.ToLower(c.Roster.Encoding) {
	case "auto", "utf-8", "utf8", "shift_jis", "sjis", "cp932":
	default:
		return fmt.Errorf("roster.encoding must be auto, utf-8 or shift_jis, got %q", c.Roster.Encoding)
	}

	if c.Speech.PageSize > 100 {
		return fmt.Errorf("speech.page_size must not exceed 100, got %d", c.Speech.PageSize)
	}

	switch c.Summarizer.Provider {
	case "openai":
		if c.Summarizer.APIKey == "" {
			return fmt.Errorf("summarizer.api_key is required for openai provider")
		}
	case "extractive":
	default:
		return fmt.Errorf(
			"summarizer.provider must be \"openai\" or \"extractive\", got %q", c.Summarizer.Provider,
		)
	}

	switch c.Summarizer.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("summarizer.budget.action must be \"warn\" or \"reject\", got %q", c.Summarizer.Budget.Action)
	}
	if c.Summarizer.Budget.DailyTokenLimit < 0 || c.Summarizer.Budget.MonthlyTokenLimit < 0 {
		return fmt.Errorf("summarizer.budget limits must not be negative")
	}

	switch c.Cache.Driver {
	case "none", "memory":
	case "valkey", "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for %s driver", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be none, memory, valkey or redis, got %q", c.Cache.Driver)
	}

	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
