package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StoreSQLite    = "sqlite"
	StoreMemory    = "memory"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`

	OpenAIKey         string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	Model             string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-2024-08-06"`
	MaxTokens         int           `env:"OPENAI_MAX_TOKENS" envDefault:"200"`
	Temperature       float32       `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s"`
	DispatchTimeout   time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"15s"`
	ContextLimit      int           `env:"CONTEXT_MESSAGE_LIMIT" envDefault:"0"`
	ContextTokenLimit int           `env:"CONTEXT_TOKEN_LIMIT" envDefault:"0"`

	TwilioAccountSID  string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `env:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber string `env:"TWILIO_PHONE_NUMBER"`
	TwilioWebhookURL  string `env:"TWILIO_WEBHOOK_URL"`

	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`

	OperatorUsername     string        `env:"OPERATOR_USERNAME"`
	OperatorPasswordHash string        `env:"OPERATOR_PASSWORD_HASH"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	SessionSweepSchedule string        `env:"SESSION_SWEEP_SCHEDULE" envDefault:"@every 15m"`

	StoreBackend       string `env:"STORE_BACKEND" envDefault:"firestore"`
	FirestoreProjectID string `env:"FIRESTORE_PROJECT_ID"`
	CredentialsFile    string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	SQLitePath         string `env:"SQLITE_PATH" envDefault:"./data/relay.db"`
}

// AuthEnabled reports whether the operator console requires sign-in.
func (c Config) AuthEnabled() bool {
	return c.OperatorUsername != "" && c.OperatorPasswordHash != ""
}

func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// LoadEnv fills missing variables from the .env file at path and parses
// the environment. It does not check serve-time requirements.
func LoadEnv(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	return cfg, nil
}

// Load is LoadEnv followed by Validate.
func Load(path string) (Config, error) {
	cfg, err := LoadEnv(path)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var missing []string
	if c.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.TwilioAccountSID == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if c.TwilioAuthToken == "" {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}
	if c.TwilioPhoneNumber == "" {
		missing = append(missing, "TWILIO_PHONE_NUMBER")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if (c.OperatorUsername == "") != (c.OperatorPasswordHash == "") {
		return errors.New("OPERATOR_USERNAME and OPERATOR_PASSWORD_HASH must be set together")
	}

	switch c.StoreBackend {
	case StoreFirestore, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	return nil
}
