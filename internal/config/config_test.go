package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeTestConfig is a helper that writes a TOML config file to a temp directory
// and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

// overrideEnvVars lists every variable applyEnvOverrides reads.
var overrideEnvVars = []string{
	"AI_API_KEY",
	"GOOGLE_API_KEY",
	"GEMINI_MODEL_ID",
	"ANTHROPIC_API_KEY",
	"OPENAI_API_KEY",
	"SCORE_BATCH_SIZE",
	"ENABLE_SCORING",
	"NEWS_API_BASE",
	"NEWS_API_KEY",
	"DISCORD_WEBHOOK",
}

// clearEnv unsets every override variable for the duration of the test so
// values from the developer's shell cannot leak into Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range overrideEnvVars {
		t.Setenv(k, "")
		// ENABLE_SCORING is checked with LookupEnv, so empty is not enough.
		os.Unsetenv(k)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)
	content := `
[scorer]
enabled = true
provider = "openai"
api_key = "sk-test-key-123"
model = "gpt-4o"
batch_size = 10
requests_per_minute = 30
timeout_seconds = 45

[circuit]
reset_hour_utc = 0

[news]
api_base = "https://news.example.com"
api_key = "news-key"
limit = 50
lookback_minutes = 120
retention_days = 3
tickers = ["AAPL", "MSFT"]
rss_feeds = ["https://example.com/feed.xml"]
enrich_descriptions = true

[alerts]
min_score = 70
min_model_confidence = 0.8
min_rule_confidence = 0.65
top_n = 3
discord_webhook = "https://discord.com/api/webhooks/1/abc"
username = "desk"

[server]
port = 9090

[schedule]
cron = "*/15 * * * *"

[log]
level = "DEBUG"
`
	path := writeTestConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", path, err)
	}

	// Scorer config
	if cfg.Scorer.Provider != "openai" {
		t.Errorf("Scorer.Provider = %q, want %q", cfg.Scorer.Provider, "openai")
	}
	if cfg.Scorer.APIKey != "sk-test-key-123" {
		t.Errorf("Scorer.APIKey = %q, want %q", cfg.Scorer.APIKey, "sk-test-key-123")
	}
	if cfg.Scorer.Model != "gpt-4o" {
		t.Errorf("Scorer.Model = %q, want %q", cfg.Scorer.Model, "gpt-4o")
	}
	if cfg.Scorer.BatchSize != 10 {
		t.Errorf("Scorer.BatchSize = %d, want %d", cfg.Scorer.BatchSize, 10)
	}
	if cfg.Scorer.RequestsPerMinute != 30 {
		t.Errorf("Scorer.RequestsPerMinute = %d, want %d", cfg.Scorer.RequestsPerMinute, 30)
	}
	if cfg.Scorer.Timeout() != 45*time.Second {
		t.Errorf("Scorer.Timeout() = %v, want %v", cfg.Scorer.Timeout(), 45*time.Second)
	}

	// Explicit zero hour is midnight, not "unset".
	if cfg.Circuit.ResetHourUTC != 0 {
		t.Errorf("Circuit.ResetHourUTC = %d, want %d", cfg.Circuit.ResetHourUTC, 0)
	}

	// News config
	if cfg.News.APIBase != "https://news.example.com" {
		t.Errorf("News.APIBase = %q, want %q", cfg.News.APIBase, "https://news.example.com")
	}
	if cfg.News.Limit != 50 {
		t.Errorf("News.Limit = %d, want %d", cfg.News.Limit, 50)
	}
	if cfg.News.Lookback() != 2*time.Hour {
		t.Errorf("News.Lookback() = %v, want %v", cfg.News.Lookback(), 2*time.Hour)
	}
	if cfg.News.Retention() != 72*time.Hour {
		t.Errorf("News.Retention() = %v, want %v", cfg.News.Retention(), 72*time.Hour)
	}
	if len(cfg.News.Tickers) != 2 || cfg.News.Tickers[1] != "MSFT" {
		t.Errorf("News.Tickers = %v, want [AAPL MSFT]", cfg.News.Tickers)
	}
	if !cfg.News.EnrichDescriptions {
		t.Error("News.EnrichDescriptions = false, want true")
	}

	// Alerts config
	if cfg.Alerts.MinScore != 70 {
		t.Errorf("Alerts.MinScore = %d, want %d", cfg.Alerts.MinScore, 70)
	}
	if cfg.Alerts.MinModelConfidence != 0.8 {
		t.Errorf("Alerts.MinModelConfidence = %v, want %v", cfg.Alerts.MinModelConfidence, 0.8)
	}
	if cfg.Alerts.MinRuleConfidence != 0.65 {
		t.Errorf("Alerts.MinRuleConfidence = %v, want %v", cfg.Alerts.MinRuleConfidence, 0.65)
	}
	if cfg.Alerts.TopN != 3 {
		t.Errorf("Alerts.TopN = %d, want %d", cfg.Alerts.TopN, 3)
	}
	if cfg.Alerts.Username != "desk" {
		t.Errorf("Alerts.Username = %q, want %q", cfg.Alerts.Username, "desk")
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Schedule.Cron != "*/15 * * * *" {
		t.Errorf("Schedule.Cron = %q, want %q", cfg.Schedule.Cron, "*/15 * * * *")
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("Log.SlogLevel() = %v, want %v", cfg.Log.SlogLevel(), slog.LevelDebug)
	}
}

func TestLoad_MissingFile_CreatesDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", path, err)
	}

	// File should have been created.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not created at %q: %v", path, err)
	}

	if !cfg.Scorer.Enabled {
		t.Error("Scorer.Enabled = false, want true")
	}
	if cfg.Scorer.Provider != "gemini" {
		t.Errorf("Scorer.Provider = %q, want %q", cfg.Scorer.Provider, "gemini")
	}
	if cfg.Scorer.Model != "gemini-2.0-flash" {
		t.Errorf("Scorer.Model = %q, want %q", cfg.Scorer.Model, "gemini-2.0-flash")
	}
	if cfg.Scorer.BatchSize != 20 {
		t.Errorf("Scorer.BatchSize = %d, want %d", cfg.Scorer.BatchSize, 20)
	}
	if cfg.Circuit.ResetHourUTC != 7 {
		t.Errorf("Circuit.ResetHourUTC = %d, want %d", cfg.Circuit.ResetHourUTC, 7)
	}
	if cfg.News.Limit != 300 {
		t.Errorf("News.Limit = %d, want %d", cfg.News.Limit, 300)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	clearEnv(t)
	// Empty sections: everything falls through to defaults.
	content := `
[scorer]
api_key = "sk-test"

[news]

[alerts]
`
	path := writeTestConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", path, err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Scorer.Enabled", cfg.Scorer.Enabled, true},
		{"Scorer.Provider", cfg.Scorer.Provider, "gemini"},
		{"Scorer.Model", cfg.Scorer.Model, "gemini-2.0-flash"},
		{"Scorer.BatchSize", cfg.Scorer.BatchSize, 20},
		{"Scorer.RequestsPerMinute", cfg.Scorer.RequestsPerMinute, 0},
		{"Scorer.TimeoutSeconds", cfg.Scorer.TimeoutSeconds, 60},
		{"Circuit.ResetHourUTC", cfg.Circuit.ResetHourUTC, 7},
		{"News.Limit", cfg.News.Limit, 300},
		{"News.LookbackMinutes", cfg.News.LookbackMinutes, 60},
		{"News.RetentionDays", cfg.News.RetentionDays, 2},
		{"Alerts.MinScore", cfg.Alerts.MinScore, 60},
		{"Alerts.MinModelConfidence", cfg.Alerts.MinModelConfidence, 0.75},
		{"Alerts.MinRuleConfidence", cfg.Alerts.MinRuleConfidence, 0.70},
		{"Alerts.TopN", cfg.Alerts.TopN, 5},
		{"Alerts.Username", cfg.Alerts.Username, "newspulse"},
		{"Server.Port", cfg.Server.Port, 8080},
		{"Schedule.Cron", cfg.Schedule.Cron, "@hourly"},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want default %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_ProviderDefaultModel(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		provider string
		want     string
	}{
		{provider: "gemini", want: "gemini-2.0-flash"},
		{provider: "anthropic", want: "claude-haiku-4-5"},
		{provider: "openai", want: "gpt-4o-mini"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			path := writeTestConfig(t, "[scorer]\nprovider = \""+tt.provider+"\"\n")

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load(%q) unexpected error: %v", path, err)
			}
			if cfg.Scorer.Model != tt.want {
				t.Errorf("Scorer.Model = %q, want %q", cfg.Scorer.Model, tt.want)
			}
		})
	}
}

func TestLoad_ExplicitZeroThresholdsKept(t *testing.T) {
	clearEnv(t)
	content := `
[alerts]
min_score = 0
min_model_confidence = 0
min_rule_confidence = 0
`
	path := writeTestConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", path, err)
	}

	if cfg.Alerts.MinScore != 0 || cfg.Alerts.MinModelConfidence != 0 || cfg.Alerts.MinRuleConfidence != 0 {
		t.Errorf("Alerts = %+v, want explicit zero thresholds preserved", cfg.Alerts)
	}
}

func TestLoad_ScoringDisabledInFile(t *testing.T) {
	clearEnv(t)
	path := writeTestConfig(t, "[scorer]\nenabled = false\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", path, err)
	}
	if cfg.Scorer.Enabled {
		t.Error("Scorer.Enabled = true, want false")
	}
}

func TestLoad_EnvVar_AIAPIKey(t *testing.T) {
	clearEnv(t)
	content := `
[scorer]
provider = "anthropic"
api_key = "from-config"
`
	path := writeTestConfig(t, content)
	t.Setenv("AI_API_KEY", "from-env-generic")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", path, err)
	}

	if cfg.Scorer.APIKey != "from-env-generic" {
		t.Errorf("Scorer.APIKey = %q, want %q (AI_API_KEY should override config)", cfg.Scorer.APIKey, "from-env-generic")
	}
}

func TestLoad_EnvVar_ProviderAPIKey(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		provider string
		envVar   string
	}{
		{provider: "gemini", envVar: "GOOGLE_API_KEY"},
		{provider: "anthropic", envVar: "ANTHROPIC_API_KEY"},
		{provider: "openai", envVar: "OPENAI_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			content := `
[scorer]
provider = "` + tt.provider + `"
api_key = "from-config"
`
			path := writeTestConfig(t, content)
			t.Setenv(tt.envVar, "from-env-"+tt.provider)

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load(%q) unexpected error: %v", path, err)
			}
			if cfg.Scorer.APIKey != "from-env-"+tt.provider {
				t.Errorf("Scorer.APIKey = %q, want %q (%s should override for %s provider)",
					cfg.Scorer.APIKey, "from-env-"+tt.provider, tt.envVar, tt.provider)
			}
		})
	}
}

func TestLoad_EnvVar_OtherProviderKeyIgnored(t *testing.T) {
	clearEnv(t)
	content := `
[scorer]
provider = "anthropic"
api_key = "from-config"
`
	path := writeTestConfig(t, content)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", path, err)
	}
	if cfg.Scorer.APIKey != "from-config" {
		t.Errorf("Scorer.APIKey = %q, want %q", cfg.Scorer.APIKey, "from-config")
	}
}

func TestLoad_EnvVar_AIAPIKey_TakesPrecedence(t *testing.T) {
	clearEnv(t)
	content := `
[scorer]
provider = "gemini"
api_key = "from-config"
`
	path := writeTestConfig(t, content)
	t.Setenv("GOOGLE_API_KEY", "from-env-google")
	t.Setenv("AI_API_KEY", "from-env-generic")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", path, err)
	}

	if cfg.Scorer.APIKey != "from-env-generic" {
		t.Errorf("Scorer.APIKey = %q, want %q (AI_API_KEY should take precedence over GOOGLE_API_KEY)", cfg.Scorer.APIKey, "from-env-generic")
	}
}

func TestLoad_EnvVar_Overrides(t *testing.T) {
	clearEnv(t)
	path := writeTestConfig(t, "[scorer]\nprovider = \"gemini\"\n")
	t.Setenv("GEMINI_MODEL_ID", "gemini-2.0-flash-exp")
	t.Setenv("SCORE_BATCH_SIZE", "15")
	t.Setenv("NEWS_API_BASE", "https://api.example.com")
	t.Setenv("NEWS_API_KEY", "nk")
	t.Setenv("DISCORD_WEBHOOK", "https://discord.com/api/webhooks/2/xyz")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", path, err)
	}

	if cfg.Scorer.Model != "gemini-2.0-flash-exp" {
		t.Errorf("Scorer.Model = %q, want %q", cfg.Scorer.Model, "gemini-2.0-flash-exp")
	}
	if cfg.Scorer.BatchSize != 15 {
		t.Errorf("Scorer.BatchSize = %d, want %d", cfg.Scorer.BatchSize, 15)
	}
	if cfg.News.APIBase != "https://api.example.com" {
		t.Errorf("News.APIBase = %q, want %q", cfg.News.APIBase, "https://api.example.com")
	}
	if cfg.News.APIKey != "nk" {
		t.Errorf("News.APIKey = %q, want %q", cfg.News.APIKey, "nk")
	}
	if cfg.Alerts.DiscordWebhook != "https://discord.com/api/webhooks/2/xyz" {
		t.Errorf("Alerts.DiscordWebhook = %q, want override", cfg.Alerts.DiscordWebhook)
	}
}

func TestLoad_EnvVar_EnableScoring(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "false disables", value: "false", want: false},
		{name: "true enables", value: "true", want: true},
		{name: "anything else enables", value: "0", want: true},
		{name: "empty enables", value: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestConfig(t, "[scorer]\nenabled = true\n")
			t.Setenv("ENABLE_SCORING", tt.value)

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load(%q) unexpected error: %v", path, err)
			}
			if cfg.Scorer.Enabled != tt.want {
				t.Errorf("Scorer.Enabled = %v, want %v", cfg.Scorer.Enabled, tt.want)
			}
		})
	}
}

func TestLoad_EnvVar_InvalidBatchSize(t *testing.T) {
	clearEnv(t)
	path := writeTestConfig(t, "[scorer]\n")
	t.Setenv("SCORE_BATCH_SIZE", "twenty")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for non-numeric SCORE_BATCH_SIZE, got nil")
	}
	if !strings.Contains(err.Error(), "SCORE_BATCH_SIZE") {
		t.Errorf("error = %q, want it to name SCORE_BATCH_SIZE", err)
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name     string
		provider string
	}{
		{name: "unknown provider", provider: "mistral"},
		{name: "invalid", provider: "invalid"},
		{name: "typo", provider: "anth ropic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := `
[scorer]
provider = "` + tt.provider + `"
api_key = "sk-test"
`
			path := writeTestConfig(t, content)

			_, err := Load(path)
			if err == nil {
				t.Fatalf("Load(%q) expected error for provider %q, got nil", path, tt.provider)
			}
			if !strings.Contains(err.Error(), "scorer.provider") {
				t.Errorf("error = %q, want it to name scorer.provider", err)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		wantKey string
	}{
		{name: "port zero", content: "[server]\nport = 0\n", wantKey: "server.port"},
		{name: "port negative", content: "[server]\nport = -1\n", wantKey: "server.port"},
		{name: "port too high", content: "[server]\nport = 70000\n", wantKey: "server.port"},
		{name: "batch size zero", content: "[scorer]\nbatch_size = 0\n", wantKey: "scorer.batch_size"},
		{name: "lookback zero", content: "[news]\nlookback_minutes = 0\n", wantKey: "news.lookback_minutes"},
		{name: "retention negative", content: "[news]\nretention_days = -1\n", wantKey: "news.retention_days"},
		{name: "reset hour too high", content: "[circuit]\nreset_hour_utc = 24\n", wantKey: "circuit.reset_hour_utc"},
		{name: "min score too high", content: "[alerts]\nmin_score = 101\n", wantKey: "alerts.min_score"},
		{name: "confidence above one", content: "[alerts]\nmin_model_confidence = 1.5\n", wantKey: "alerts.min_model_confidence"},
		{name: "webhook not a url", content: "[alerts]\ndiscord_webhook = \"not a url\"\n", wantKey: "alerts.discord_webhook"},
		{name: "rss feed not a url", content: "[news]\nrss_feeds = [\"feed\"]\n", wantKey: "news.rss_feeds"},
		{name: "unknown log level", content: "[log]\nlevel = \"verbose\"\n", wantKey: "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestConfig(t, tt.content)

			_, err := Load(path)
			if err == nil {
				t.Fatalf("Load(%q) expected error, got nil", path)
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("error = %q, want it to name %s", err, tt.wantKey)
			}
		})
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	clearEnv(t)
	path := writeTestConfig(t, "[scorer\nprovider = ")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected parse error, got nil")
	}
}

func TestLoad_EmptyAPIKey_NoError(t *testing.T) {
	clearEnv(t)
	content := `
[scorer]
provider = "anthropic"
api_key = ""
`
	path := writeTestConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v (empty api_key should warn, not fail)", path, err)
	}

	if cfg.Scorer.APIKey != "" {
		t.Errorf("Scorer.APIKey = %q, want empty string", cfg.Scorer.APIKey)
	}
}

func TestClearEnv_IsolatesLoadFromShell(t *testing.T) {
	for _, k := range overrideEnvVars {
		t.Setenv(k, "from-shell")
	}
	t.Setenv("ENABLE_SCORING", "false")

	t.Run("cleared", func(t *testing.T) {
		clearEnv(t)
		path := writeTestConfig(t, "[scorer]\nprovider = \"anthropic\"\napi_key = \"from-config\"\n")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) unexpected error: %v", path, err)
		}
		if cfg.Scorer.APIKey != "from-config" {
			t.Errorf("Scorer.APIKey = %q, want %q", cfg.Scorer.APIKey, "from-config")
		}
		if !cfg.Scorer.Enabled {
			t.Error("Scorer.Enabled = false, want true")
		}
		if cfg.Alerts.DiscordWebhook != "" {
			t.Errorf("Alerts.DiscordWebhook = %q, want empty", cfg.Alerts.DiscordWebhook)
		}
	})

	if got := os.Getenv("ANTHROPIC_API_KEY"); got != "from-shell" {
		t.Errorf("ANTHROPIC_API_KEY after subtest = %q, want it restored", got)
	}
}
