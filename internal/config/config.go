package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
type Config struct {
	Scorer   ScorerConfig   `toml:"scorer"`
	Circuit  CircuitConfig  `toml:"circuit"`
	News     NewsConfig     `toml:"news"`
	Alerts   AlertsConfig   `toml:"alerts"`
	Server   ServerConfig   `toml:"server"`
	Schedule ScheduleConfig `toml:"schedule"`
	Log      LogConfig      `toml:"log"`
}

// ScorerConfig holds the external sentiment scorer settings.
type ScorerConfig struct {
	Enabled           bool   `toml:"enabled"`
	Provider          string `toml:"provider" validate:"oneof=gemini anthropic openai"`
	APIKey            string `toml:"api_key"`
	Model             string `toml:"model" validate:"required"`
	BatchSize         int    `toml:"batch_size" validate:"min=1,max=200"`
	RequestsPerMinute int    `toml:"requests_per_minute" validate:"min=0"`
	TimeoutSeconds    int    `toml:"timeout_seconds" validate:"min=1"`
}

// Timeout returns TimeoutSeconds as a duration.
func (s ScorerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// CircuitConfig holds the scoring circuit breaker settings.
type CircuitConfig struct {
	ResetHourUTC int `toml:"reset_hour_utc" validate:"min=0,max=23"`
}

// NewsConfig holds news acquisition and retention settings.
type NewsConfig struct {
	APIBase            string   `toml:"api_base" validate:"omitempty,url"`
	APIKey             string   `toml:"api_key"`
	Limit              int      `toml:"limit" validate:"min=1,max=1000"`
	LookbackMinutes    int      `toml:"lookback_minutes" validate:"min=1"`
	RetentionDays      int      `toml:"retention_days" validate:"min=1"`
	Tickers            []string `toml:"tickers" validate:"dive,required"`
	RSSFeeds           []string `toml:"rss_feeds" validate:"dive,url"`
	EnrichDescriptions bool     `toml:"enrich_descriptions"`
}

// Lookback returns LookbackMinutes as a duration.
func (n NewsConfig) Lookback() time.Duration {
	return time.Duration(n.LookbackMinutes) * time.Minute
}

// Retention returns RetentionDays as a duration.
func (n NewsConfig) Retention() time.Duration {
	return time.Duration(n.RetentionDays) * 24 * time.Hour
}

// AlertsConfig holds alert thresholds and the Discord destination.
type AlertsConfig struct {
	MinScore           int     `toml:"min_score" validate:"min=0,max=100"`
	MinModelConfidence float64 `toml:"min_model_confidence" validate:"min=0,max=1"`
	MinRuleConfidence  float64 `toml:"min_rule_confidence" validate:"min=0,max=1"`
	TopN               int     `toml:"top_n" validate:"min=1"`
	DiscordWebhook     string  `toml:"discord_webhook" validate:"omitempty,url"`
	Username           string  `toml:"username"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `toml:"port" validate:"min=1,max=65535"`
}

// ScheduleConfig holds the run schedule.
type ScheduleConfig struct {
	Cron string `toml:"cron" validate:"required"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// SlogLevel maps Level onto a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
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

const (
	defaultProvider       = "gemini"
	defaultBatchSize      = 20
	defaultTimeoutSeconds = 60
	defaultResetHourUTC   = 7
	defaultNewsLimit      = 300
	defaultLookback       = 60
	defaultRetentionDays  = 2
	defaultMinScore       = 60
	defaultMinModelConf   = 0.75
	defaultMinRuleConf    = 0.70
	defaultTopN           = 5
	defaultUsername       = "newspulse"
	defaultPort           = 8080
	defaultCron           = "@hourly"
	defaultLogLevel       = "info"
)

// defaultModels maps each provider to the model used when none is set.
var defaultModels = map[string]string{
	"gemini":    "gemini-2.0-flash",
	"anthropic": "claude-haiku-4-5",
	"openai":    "gpt-4o-mini",
}

const defaultConfigContent = `[scorer]
enabled = true
provider = "gemini"               # "gemini", "anthropic" or "openai"
api_key = ""                      # Or set AI_API_KEY / GOOGLE_API_KEY
model = "gemini-2.0-flash"
batch_size = 20                   # Insights per scoring request
requests_per_minute = 0           # 0 disables pacing
timeout_seconds = 60

[circuit]
reset_hour_utc = 7                # Scoring resumes at this hour after a quota trip

[news]
api_base = ""                     # Or set NEWS_API_BASE
api_key = ""                      # Or set NEWS_API_KEY
limit = 300
lookback_minutes = 60
retention_days = 2
tickers = []
rss_feeds = []
enrich_descriptions = false

[alerts]
min_score = 60
min_model_confidence = 0.75
min_rule_confidence = 0.70
top_n = 5
discord_webhook = ""              # Or set DISCORD_WEBHOOK
username = "newspulse"

[server]
port = 8080

[schedule]
cron = "@hourly"

[log]
level = "info"
`

var validate = newValidator()

// newValidator reports fields by their TOML key.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Explicit zeros are errors, not requests for the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, md)
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file
// and whose zero value would otherwise be replaced by a default.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	if md.IsDefined("scorer", "batch_size") && cfg.Scorer.BatchSize < 1 {
		return fmt.Errorf("invalid scorer.batch_size %d: must be >= 1", cfg.Scorer.BatchSize)
	}
	if md.IsDefined("news", "lookback_minutes") && cfg.News.LookbackMinutes < 1 {
		return fmt.Errorf("invalid news.lookback_minutes %d: must be >= 1", cfg.News.LookbackMinutes)
	}
	if md.IsDefined("news", "retention_days") && cfg.News.RetentionDays < 1 {
		return fmt.Errorf("invalid news.retention_days %d: must be >= 1", cfg.News.RetentionDays)
	}
	if md.IsDefined("alerts", "top_n") && cfg.Alerts.TopN < 1 {
		return fmt.Errorf("invalid alerts.top_n %d: must be >= 1", cfg.Alerts.TopN)
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields. Booleans
// and thresholds whose zero is meaningful are only defaulted when absent
// from the file.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if !md.IsDefined("scorer", "enabled") {
		cfg.Scorer.Enabled = true
	}
	if cfg.Scorer.Provider == "" {
		cfg.Scorer.Provider = defaultProvider
	}
	if cfg.Scorer.Model == "" {
		cfg.Scorer.Model = defaultModels[cfg.Scorer.Provider]
	}
	if cfg.Scorer.BatchSize == 0 {
		cfg.Scorer.BatchSize = defaultBatchSize
	}
	if cfg.Scorer.TimeoutSeconds == 0 {
		cfg.Scorer.TimeoutSeconds = defaultTimeoutSeconds
	}
	if !md.IsDefined("circuit", "reset_hour_utc") {
		cfg.Circuit.ResetHourUTC = defaultResetHourUTC
	}
	if cfg.News.Limit == 0 {
		cfg.News.Limit = defaultNewsLimit
	}
	if cfg.News.LookbackMinutes == 0 {
		cfg.News.LookbackMinutes = defaultLookback
	}
	if cfg.News.RetentionDays == 0 {
		cfg.News.RetentionDays = defaultRetentionDays
	}
	if !md.IsDefined("alerts", "min_score") {
		cfg.Alerts.MinScore = defaultMinScore
	}
	if !md.IsDefined("alerts", "min_model_confidence") {
		cfg.Alerts.MinModelConfidence = defaultMinModelConf
	}
	if !md.IsDefined("alerts", "min_rule_confidence") {
		cfg.Alerts.MinRuleConfidence = defaultMinRuleConf
	}
	if cfg.Alerts.TopN == 0 {
		cfg.Alerts.TopN = defaultTopN
	}
	if cfg.Alerts.Username == "" {
		cfg.Alerts.Username = defaultUsername
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = defaultCron
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
//
// Priority for scorer.api_key:
//  1. AI_API_KEY (generic, highest)
//  2. GOOGLE_API_KEY, ANTHROPIC_API_KEY or OPENAI_API_KEY, matching the provider
func applyEnvOverrides(cfg *Config) error {
	switch cfg.Scorer.Provider {
	case "gemini":
		if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
			cfg.Scorer.APIKey = v
		}
		if v := os.Getenv("GEMINI_MODEL_ID"); v != "" {
			cfg.Scorer.Model = v
		}
	case "anthropic":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.Scorer.APIKey = v
		}
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.Scorer.APIKey = v
		}
	}

	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.Scorer.APIKey = v
	}

	if v := os.Getenv("SCORE_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid SCORE_BATCH_SIZE %q: %w", v, err)
		}
		cfg.Scorer.BatchSize = n
	}

	// Anything but "false" leaves scoring on.
	if v, ok := os.LookupEnv("ENABLE_SCORING"); ok {
		cfg.Scorer.Enabled = strings.TrimSpace(v) != "false"
	}

	if v := os.Getenv("NEWS_API_BASE"); v != "" {
		cfg.News.APIBase = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		cfg.News.APIKey = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK"); v != "" {
		cfg.Alerts.DiscordWebhook = v
	}
	return nil
}

// validateConfig checks that configuration values are within acceptable ranges.
func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return describe(verrs[0])
		}
		return err
	}

	if cfg.Scorer.Enabled && cfg.Scorer.APIKey == "" {
		slog.Warn("scorer.api_key is empty: set it in the config file or via AI_API_KEY environment variable")
	}
	if cfg.News.APIBase == "" && len(cfg.News.RSSFeeds) == 0 {
		slog.Warn("no news source configured: set news.api_base or news.rss_feeds")
	}

	return nil
}

// describe turns a validator failure into a config-key error message.
func describe(fe validator.FieldError) error {
	key := tomlKey(fe.Namespace())
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("invalid %s %q: must be one of %s", key, fe.Value(), fe.Param())
	case "min":
		return fmt.Errorf("invalid %s %v: must be >= %s", key, fe.Value(), fe.Param())
	case "max":
		return fmt.Errorf("invalid %s %v: must be <= %s", key, fe.Value(), fe.Param())
	case "url":
		return fmt.Errorf("invalid %s %q: must be a URL", key, fe.Value())
	default:
		return fmt.Errorf("invalid %s: failed %q", key, fe.Tag())
	}
}

// tomlKey strips the root struct name from a namespace such as
// "Config.scorer.batch_size".
func tomlKey(ns string) string {
	_, key, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return key
}
