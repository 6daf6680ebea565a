package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Command keys used by the access table.
const (
	CommandBreakingNews  = "bn"
	CommandReport        = "report"
	CommandReportMessage = "report-message"
	CommandMute          = "mute"
	CommandUnmute        = "unmute"
	CommandPurge         = "purge"
	CommandFactCheck     = "factcheck"
)

const (
	ProviderOpenAI      = "openai"
	ProviderHuggingFace = "huggingface"
)

type Config struct {
	DiscordToken  string              `yaml:"discord_token" env:"BOT_TOKEN"`
	ClientID      string              `yaml:"client_id" env:"CLIENT_ID"`
	GuildID       string              `yaml:"guild_id" env:"GUILD_ID"`
	LogLevel      string              `yaml:"log_level" env:"LOG_LEVEL"`
	Channels      ChannelConfig       `yaml:"channels"`
	Roles         RoleConfig          `yaml:"roles"`
	Access        map[string][]string `yaml:"access"`
	Purge         PurgeConfig         `yaml:"purge"`
	Cooldown      CooldownConfig      `yaml:"cooldown"`
	Assistant     AssistantConfig     `yaml:"assistant"`
	Storage       StorageConfig       `yaml:"storage"`
	Health        HealthConfig        `yaml:"health"`
	Whois         WhoisConfig         `yaml:"whois"`
	Notifications NotifyConfig        `yaml:"notifications"`
}

type ChannelConfig struct {
	Staff     string `yaml:"staff" env:"STAFF_CHANNEL_ID"`
	FactCheck string `yaml:"fact_check" env:"FACT_CHECK_CHANNEL_ID"`
	ModLog    string `yaml:"mod_log" env:"MOD_LOG_CHANNEL_ID"`
}

type RoleConfig struct {
	BreakingNews string `yaml:"breaking_news" env:"BREAKING_NEWS_ROLE_ID"`
	Staff        string `yaml:"staff" env:"STAFF_ROLE_ID"`
	FactCheck    string `yaml:"fact_check" env:"FACT_CHECK_ROLE_ID"`
	Muted        string `yaml:"muted" env:"MUTED_ROLE_ID"`
}

type PurgeConfig struct {
	Min int `yaml:"min" env:"PURGE_MIN"`
	Max int `yaml:"max" env:"PURGE_MAX"`
}

type CooldownConfig struct {
	WindowSeconds int `yaml:"window_seconds" env:"COOLDOWN_WINDOW_SECONDS"`
	SweepSeconds  int `yaml:"sweep_seconds" env:"COOLDOWN_SWEEP_SECONDS"`
}

type AssistantConfig struct {
	Provider         string  `yaml:"provider" env:"AI_PROVIDER"`
	OpenAIKey        string  `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string  `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	Model            string  `yaml:"model" env:"AI_MODEL"`
	HuggingFaceToken string  `yaml:"huggingface_token" env:"HUGGINGFACE_TOKEN"`
	HuggingFaceModel string  `yaml:"huggingface_model" env:"HUGGINGFACE_MODEL"`
	HuggingFaceURL   string  `yaml:"huggingface_url" env:"HUGGINGFACE_URL"`
	Temperature      float64 `yaml:"temperature" env:"AI_TEMPERATURE"`
	MaxTokens        int     `yaml:"max_tokens" env:"AI_MAX_TOKENS"`
	TimeoutSeconds   int     `yaml:"timeout_seconds" env:"AI_TIMEOUT_SECONDS"`
	MaxPerMinute     int     `yaml:"max_per_minute" env:"AI_MAX_PER_MINUTE"`
	Persona          string  `yaml:"persona"`
	Footer           string  `yaml:"footer"`
}

type StorageConfig struct {
	DatabaseURL   string `yaml:"database_url" env:"DATABASE_URL"`
	RetentionDays int    `yaml:"retention_days" env:"RETENTION_DAYS"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled" env:"HEALTH_ENABLED"`
	Addr    string `yaml:"addr" env:"HEALTH_ADDR"`
}

// WhoisConfig controls registration-date lookups for fact-check sources.
type WhoisConfig struct {
	Enabled        bool `yaml:"enabled" env:"WHOIS_ENABLED"`
	TimeoutSeconds int  `yaml:"timeout_seconds" env:"WHOIS_TIMEOUT_SECONDS"`
}

type NotifyConfig struct {
	DailySummary bool        `yaml:"daily_summary" env:"DAILY_SUMMARY"`
	EmbedColors  EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	BreakingNews int `yaml:"breaking_news"`
	Report       int `yaml:"report"`
	Assistant    int `yaml:"assistant"`
	FactCheck    int `yaml:"fact_check"`
	Summary      int `yaml:"summary"`
}

const defaultPersona = `You are WarScope AI, an OSINT-style global conflict and geopolitics analyst.
- Be neutral
- Avoid propaganda
- Avoid speculation
- Clearly state uncertainty
- Do not fabricate events
- Keep responses concise and factual`

const defaultFooter = "📰 WarScope AI | Based on open-source reporting & OSINT. Information may evolve as events develop."

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Access: map[string][]string{
			CommandBreakingNews: {"Owner", "Admin", "Moderator", "Warscope Journalist"},
			CommandMute:         {"Owner", "Admin", "Moderator"},
			CommandUnmute:       {"Owner", "Admin", "Moderator"},
			CommandPurge:        {"Owner", "Admin", "Moderator"},
		},
		Purge:    PurgeConfig{Min: 1, Max: 100},
		Cooldown: CooldownConfig{WindowSeconds: 20, SweepSeconds: 60},
		Assistant: AssistantConfig{
			Provider:         ProviderOpenAI,
			Model:            "gpt-4o-mini",
			HuggingFaceModel: "mistralai/Mistral-7B-Instruct-v0.2",
			HuggingFaceURL:   "https://api-inference.huggingface.co/models",
			Temperature:      0.2,
			MaxTokens:        500,
			TimeoutSeconds:   20,
			Persona:          defaultPersona,
			Footer:           defaultFooter,
		},
		Storage: StorageConfig{RetentionDays: 30},
		Health:  HealthConfig{Enabled: false, Addr: ":8080"},
		Whois:   WhoisConfig{Enabled: true, TimeoutSeconds: 5},
		Notifications: NotifyConfig{
			DailySummary: false,
			EmbedColors: EmbedColors{
				BreakingNews: 0xFF0000,
				Report:       0xFF5555,
				Assistant:    0x2B2D31,
				FactCheck:    0xF59E0B,
				Summary:      0x3B82F6,
			},
		},
	}
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("BOT_TOKEN is required")
	}

	normalize(&cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.Assistant.Provider = normalizeProvider(cfg.Assistant.Provider)
	if cfg.Purge.Min < 1 {
		cfg.Purge.Min = 1
	}
	if cfg.Purge.Max <= 0 || cfg.Purge.Max > 100 {
		cfg.Purge.Max = 100
	}
	if cfg.Purge.Min > cfg.Purge.Max {
		cfg.Purge.Min = cfg.Purge.Max
	}
	if cfg.Cooldown.WindowSeconds < 0 {
		cfg.Cooldown.WindowSeconds = 0
	}
	if cfg.Assistant.TimeoutSeconds <= 0 {
		cfg.Assistant.TimeoutSeconds = 20
	}
	if cfg.Whois.TimeoutSeconds <= 0 {
		cfg.Whois.TimeoutSeconds = 5
	}
	if cfg.Access == nil {
		cfg.Access = map[string][]string{}
	}
}

func normalizeProvider(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "huggingface", "hf":
		return ProviderHuggingFace
	default:
		return ProviderOpenAI
	}
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
