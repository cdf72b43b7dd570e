package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Common is shared by every process.
type Common struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"APP_ENV" envDefault:"development"`
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Common) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Credits holds the metered pricing of the ledger core.
type Credits struct {
	TaskCreateCost              int64 `env:"TASK_CREATE_COST" envDefault:"1"`
	InitialCredits              int64 `env:"INITIAL_CREDITS" envDefault:"10"`
	ReferralBonus               int64 `env:"REFERRAL_BONUS" envDefault:"10"`
	ReferralQualifyingArtifacts int64 `env:"REFERRAL_QUALIFYING_ARTIFACTS" envDefault:"3"`
}

func (c Credits) validate() error {
	if c.TaskCreateCost <= 0 {
		return errors.New("TASK_CREATE_COST must be positive")
	}
	if c.InitialCredits < 0 || c.ReferralBonus < 0 || c.ReferralQualifyingArtifacts < 0 {
		return errors.New("credit settings must not be negative")
	}
	return nil
}

// ObjectStorage configures the optional S3-compatible bucket (Cloudflare R2
// by default). Leaving it empty disables uploads.
type ObjectStorage struct {
	Endpoint        string `env:"OBJECT_STORAGE_ENDPOINT"`
	AccountID       string `env:"R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	PublicURL       string `env:"R2_PUBLIC_URL"`
	Secure          bool   `env:"OBJECT_STORAGE_SECURE" envDefault:"true"`
}

func (o ObjectStorage) Enabled() bool {
	return o.ResolvedEndpoint() != "" && o.AccessKeyID != "" && o.SecretAccessKey != "" && o.Bucket != ""
}

func (o ObjectStorage) ResolvedEndpoint() string {
	if o.Endpoint != "" {
		return o.Endpoint
	}
	if o.AccountID != "" {
		return fmt.Sprintf("%s.r2.cloudflarestorage.com", o.AccountID)
	}
	return ""
}

// Analytics configures the fire-and-forget event sink.
type Analytics struct {
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_ANALYTICS_TOPIC" envDefault:"turbostart.events"`
}

func (a Analytics) Enabled() bool { return len(a.KafkaBrokers) > 0 }

// OpsLog routes operational notifications to a Telegram chat.
type OpsLog struct {
	BotToken             string `env:"TELEGRAM_BOT_TOKEN"`
	LogTelegramChatID    int64  `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError        int    `env:"LOG_TOPIC_ERROR"`
	LogTopicRegistration int    `env:"LOG_TOPIC_REGISTRATION"`
	LogTopicReferral     int    `env:"LOG_TOPIC_REFERRAL"`
}

func (o OpsLog) Enabled() bool { return o.BotToken != "" && o.LogTelegramChatID != 0 }

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type API struct {
	Common
	Credits
	Analytics
	OpsLog

	Port           int           `env:"PORT" envDefault:"4000"`
	APIKey         string        `env:"API_KEY,required"`
	StoreDriver    string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	DBMaxConns     int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns     int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`
	RunMigrations  bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"true"`
}

func (c *API) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return c.Credits.validate()
}

type Bot struct {
	Common
	OpsLog

	BackendURL         string `env:"BACKEND_API_URL" envDefault:"http://localhost:4000"`
	BackendAPIKey      string `env:"BACKEND_API_KEY"`
	RedisURL           string `env:"REDIS_URL"`
	RateLimitPerMinute int    `env:"BOT_RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	DropPendingUpdates bool   `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`
}

func (c *Bot) Validate() error {
	if c.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("BOT_RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

type Render struct {
	Common
	ObjectStorage

	Port        int           `env:"RENDER_PORT" envDefault:"3001"`
	Binary      string        `env:"RENDER_BINARY" envDefault:"bunx"`
	Args        []string      `env:"RENDER_ARGS" envSeparator:"," envDefault:"remotion,render"`
	Composition string        `env:"RENDER_COMPOSITION" envDefault:"ContentVideo"`
	WorkDir     string        `env:"RENDER_WORKDIR" envDefault:"."`
	OutputDir   string        `env:"RENDER_OUTPUT_DIR" envDefault:"/tmp/turbostart-render"`
	Timeout     time.Duration `env:"RENDER_TIMEOUT" envDefault:"3m"`
}

func (c *Render) Validate() error {
	if c.Binary == "" {
		return errors.New("RENDER_BINARY is required")
	}
	if c.Timeout <= 0 {
		return errors.New("RENDER_TIMEOUT must be positive")
	}
	return nil
}

type Migrate struct {
	Common
	DatabaseURL string `env:"DATABASE_URL,required"`
}

type validator interface{ Validate() error }

// Load reads an optional .env file and parses T from the environment.
func Load[T any]() (*T, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := env.ParseAs[T]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if v, ok := any(&cfg).(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
	}
	return &cfg, nil
}
