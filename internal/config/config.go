// Load envs from .env
// Load YAML config
// Override with env vars
// Provide default values
// Validate config

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

type Config struct {
	Port        string           `yaml:"port" validate:"required"`
	DatabaseURL string           `yaml:"database_url"`
	LogLevel    string           `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string           `yaml:"log_format" validate:"omitempty,oneof=text json"`
	Browser     BrowserConfig    `yaml:"browser"`
	Pacing      PacingConfig     `yaml:"pacing"`
	Automation  AutomationConfig `yaml:"automation"`
	Workers     WorkerConfig     `yaml:"workers"`
	AI          AIConfig         `yaml:"ai"`
	SecretsKey  string           `yaml:"secrets_key"`
	S3          S3Config         `yaml:"s3"`
	Telegram    TelegramConfig   `yaml:"telegram"`
}

type BrowserConfig struct {
	Headless      bool   `yaml:"headless"`
	UserAgent     string `yaml:"user_agent" validate:"required"`
	ViewportW     int    `yaml:"viewport_width" validate:"gt=0"`
	ViewportH     int    `yaml:"viewport_height" validate:"gt=0"`
	CookiesPath   string `yaml:"cookies_path"`
	ScreenshotDir string `yaml:"screenshot_dir" validate:"required"`
}

// PacingConfig holds human-like pause ranges in milliseconds.
type PacingConfig struct {
	ActionMinMs int `yaml:"action_min_ms" validate:"gte=0"`
	ActionMaxMs int `yaml:"action_max_ms" validate:"gtefield=ActionMinMs"`
	ClickMinMs  int `yaml:"click_min_ms" validate:"gte=0"`
	ClickMaxMs  int `yaml:"click_max_ms" validate:"gtefield=ClickMinMs"`
	FillMinMs   int `yaml:"fill_min_ms" validate:"gte=0"`
	FillMaxMs   int `yaml:"fill_max_ms" validate:"gtefield=FillMinMs"`
}

type AutomationConfig struct {
	MaxSteps             int    `yaml:"max_steps" validate:"gt=0"`
	MaxPages             int    `yaml:"max_pages" validate:"gt=0"`
	ElementTimeoutMs     int    `yaml:"element_timeout_ms" validate:"gt=0"`
	ActionTimeoutMs      int    `yaml:"action_timeout_ms" validate:"gt=0"`
	NavigationTimeoutMs  int    `yaml:"navigation_timeout_ms" validate:"gt=0"`
	ApplyDelaySeconds    int    `yaml:"delay_between_applications" validate:"gte=0"`
	SessionRetentionDays int    `yaml:"session_retention_days" validate:"gt=0"`
	CleanupSchedule      string `yaml:"cleanup_schedule"`
}

type WorkerConfig struct {
	Count                  int `yaml:"count" validate:"gt=0"`
	QueueSize              int `yaml:"queue_size" validate:"gt=0"`
	TaskTimeoutMinutes     int `yaml:"task_timeout_minutes" validate:"gte=0"`
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" validate:"gt=0"`
}

type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key" validate:"required_if=Enabled true"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Model   string `yaml:"model"`
}

type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region" validate:"required_with=Bucket"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id" validate:"required_with=Token"`
}

func (c AutomationConfig) ApplyDelay() time.Duration {
	return time.Duration(c.ApplyDelaySeconds) * time.Second
}

func (c AutomationConfig) Retention() time.Duration {
	return time.Duration(c.SessionRetentionDays) * 24 * time.Hour
}

func (c WorkerConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutMinutes) * time.Minute
}

func (c WorkerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Default returns the configuration used when no file or env overrides exist.
func Default() *Config {
	return &Config{
		Port:      "8080",
		LogLevel:  "info",
		LogFormat: "text",
		Browser: BrowserConfig{
			Headless:      true,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			ViewportW:     1920,
			ViewportH:     1080,
			CookiesPath:   ".cookies",
			ScreenshotDir: "logs/screenshots",
		},
		Pacing: PacingConfig{
			ActionMinMs: 1000,
			ActionMaxMs: 3000,
			ClickMinMs:  500,
			ClickMaxMs:  1500,
			FillMinMs:   500,
			FillMaxMs:   1000,
		},
		Automation: AutomationConfig{
			MaxSteps:             5,
			MaxPages:             3,
			ElementTimeoutMs:     10000,
			ActionTimeoutMs:      5000,
			NavigationTimeoutMs:  30000,
			ApplyDelaySeconds:    30,
			SessionRetentionDays: 30,
			CleanupSchedule:      "0 3 * * *",
		},
		Workers: WorkerConfig{
			Count:                  2,
			QueueSize:              100,
			TaskTimeoutMinutes:     60,
			ShutdownTimeoutSeconds: 30,
		},
		AI: AIConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.3-70b-versatile",
		},
	}
}

// Load reads .env, then the YAML file (HOPEFORJOB_CONFIG or configs/config.yaml),
// then env overrides, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("HOPEFORJOB_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		//no file, defaults + env only
	default:
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("PORT", &cfg.Port)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("LOG_FORMAT", &cfg.LogFormat)
	setString("SECRETS_KEY", &cfg.SecretsKey)
	setString("AI_API_KEY", &cfg.AI.APIKey)
	setString("AI_BASE_URL", &cfg.AI.BaseURL)
	setString("AI_MODEL", &cfg.AI.Model)
	setString("AWS_S3_BUCKET", &cfg.S3.Bucket)
	setString("AWS_REGION", &cfg.S3.Region)
	setString("TELEGRAM_BOT_TOKEN", &cfg.Telegram.Token)
	setString("SCREENSHOT_DIR", &cfg.Browser.ScreenshotDir)

	if v := os.Getenv("HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid HEADLESS: %w", err)
		}
		cfg.Browser.Headless = b
	}

	if v := os.Getenv("AI_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AI_ENABLED: %w", err)
		}
		cfg.AI.Enabled = b
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = id
	}

	if workers := os.Getenv("WORKER_COUNT"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid WORKER_COUNT: %w", err)
		}
		cfg.Workers.Count = n
	}
	return nil
}
