package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Admin    AdminConfig    `json:"admin"`
	Storage  StorageConfig  `json:"storage"`
	Delivery DeliveryConfig `json:"delivery"`
	Tokens   TokensConfig   `json:"tokens"`
	Gateway  GatewayConfig  `json:"gateway"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	Token string `json:"token" env:"TELEPOST_TELEGRAM_TOKEN"`
	// LinkHost is the host used when building deep links to the bot
	// (https://<host>/<botname>?start=<token>).
	LinkHost string `json:"link_host" env:"TELEPOST_TELEGRAM_LINK_HOST"`
}

type AdminConfig struct {
	// IDs is the set of actor IDs allowed to drive the post wizard and
	// manage channel registries. Everyone else only gets the gated-access
	// surface.
	IDs []int64 `json:"ids" env:"TELEPOST_ADMIN_IDS" envSeparator:","`
}

type StorageConfig struct {
	Path string `json:"path" env:"TELEPOST_STORAGE_PATH"`
}

type DeliveryConfig struct {
	// SendIntervalMS is the fixed pause between consecutive sends during a
	// multi-channel fan-out.
	SendIntervalMS int `json:"send_interval_ms" env:"TELEPOST_DELIVERY_SEND_INTERVAL_MS"`
	// MaxReportedErrors caps how many per-channel error lines appear in the
	// aggregate delivery report shown to the admin.
	MaxReportedErrors int `json:"max_reported_errors" env:"TELEPOST_DELIVERY_MAX_REPORTED_ERRORS"`
}

type TokensConfig struct {
	// TTLHours bounds the lifetime of file-share tokens. Zero keeps tokens
	// valid forever.
	TTLHours int `json:"ttl_hours" env:"TELEPOST_TOKENS_TTL_HOURS"`
	// SweepSchedule is a cron expression controlling how often expired
	// tokens are removed. Ignored when TTLHours is zero.
	SweepSchedule string `json:"sweep_schedule" env:"TELEPOST_TOKENS_SWEEP_SCHEDULE"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"TELEPOST_GATEWAY_HOST"`
	Port int    `json:"port" env:"TELEPOST_GATEWAY_PORT"`
}

type LoggingConfig struct {
	Enabled       bool   `json:"enabled" env:"TELEPOST_LOGGING_ENABLED"`
	Dir           string `json:"dir" env:"TELEPOST_LOGGING_DIR"`
	Filename      string `json:"filename" env:"TELEPOST_LOGGING_FILENAME"`
	MaxSizeMB     int    `json:"max_size_mb" env:"TELEPOST_LOGGING_MAX_SIZE_MB"`
	RetentionDays int    `json:"retention_days" env:"TELEPOST_LOGGING_RETENTION_DAYS"`
}

var (
	isDebug bool
	muDebug sync.RWMutex
)

func SetDebugMode(debug bool) {
	muDebug.Lock()
	defer muDebug.Unlock()
	isDebug = debug
}

func IsDebugMode() bool {
	muDebug.RLock()
	defer muDebug.RUnlock()
	return isDebug
}

func GetConfigDir() string {
	if IsDebugMode() {
		return ".telepost"
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".telepost")
}

func DefaultConfig() *Config {
	configDir := GetConfigDir()
	return &Config{
		Telegram: TelegramConfig{
			Token:    "",
			LinkHost: "t.me",
		},
		Admin: AdminConfig{
			IDs: []int64{},
		},
		Storage: StorageConfig{
			Path: filepath.Join(configDir, "telepost.db"),
		},
		Delivery: DeliveryConfig{
			SendIntervalMS:    500,
			MaxReportedErrors: 5,
		},
		Tokens: TokensConfig{
			TTLHours:      0,
			SweepSchedule: "@hourly",
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 10000,
		},
		Logging: LoggingConfig{
			Enabled:       true,
			Dir:           filepath.Join(configDir, "logs"),
			Filename:      "telepost.log",
			MaxSizeMB:     20,
			RetentionDays: 3,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No file is fine, env vars may still carry everything needed.
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := unmarshalConfigStrict(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func unmarshalConfigStrict(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid config: trailing JSON content")
		}
		return err
	}
	return nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports startup misconfiguration. These are the only fatal
// conditions in the process; everything past startup recovers in place.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is not set (telegram.token / TELEPOST_TELEGRAM_TOKEN)")
	}
	if len(c.Admin.IDs) == 0 {
		return fmt.Errorf("no admin actor IDs configured (admin.ids / TELEPOST_ADMIN_IDS)")
	}
	if c.Delivery.SendIntervalMS < 0 {
		return fmt.Errorf("delivery.send_interval_ms must not be negative")
	}
	if c.Tokens.TTLHours < 0 {
		return fmt.Errorf("tokens.ttl_hours must not be negative")
	}
	return nil
}

func (c *Config) IsAdmin(actorID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == actorID {
			return true
		}
	}
	return false
}

func (c *Config) SendInterval() time.Duration {
	return time.Duration(c.Delivery.SendIntervalMS) * time.Millisecond
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Tokens.TTLHours) * time.Hour
}

func (c *Config) LogFilePath() string {
	filename := c.Logging.Filename
	if filename == "" {
		filename = "telepost.log"
	}
	return filepath.Join(c.Logging.Dir, filename)
}
