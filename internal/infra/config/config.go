package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel string `json:"log_level"`

	// Storage
	StorePath string `json:"store_path"`

	// Device name announced to the network when pairing
	DeviceName string `json:"device_name"`

	// Connection lifecycle
	ReconnectDelay    time.Duration `json:"-"`
	ReconnectDelaySec int           `json:"reconnect_delay_sec"`
	KeepAliveInterval time.Duration `json:"-"`
	KeepAliveSec      int           `json:"keep_alive_sec"`

	// Force a fresh history replay when restoring sessions after a restart
	ResyncOnRestore bool `json:"resync_on_restore"`

	// Phone normalization: country code substituted for a leading trunk zero
	CountryCode string `json:"country_code"`

	// Read receipts
	AutoReadReceipts bool          `json:"auto_read_receipts"`
	ReadReceiptDelay time.Duration `json:"-"`
	ReadReceiptSec   int           `json:"read_receipt_sec"`

	Media  MediaConfig  `json:"media"`
	Notify NotifyConfig `json:"notify"`
}

// MediaConfig holds S3 media upload configuration.
type MediaConfig struct {
	Enabled   bool   `json:"enabled"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	PublicURL string `json:"public_url"`
}

// NotifyConfig holds optional event fan-out configuration.
type NotifyConfig struct {
	AMQPURL    string `json:"amqp_url"`
	AMQPQueue  string `json:"amqp_queue"`
	WebhookURL string `json:"webhook_url"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultStore := filepath.Join(homeDir, ".wavault", "store")

	return &Config{
		LogLevel:          "INFO",
		StorePath:         defaultStore,
		DeviceName:        "Wavault",
		ReconnectDelay:    3 * time.Second,
		ReconnectDelaySec: 3,
		KeepAliveInterval: 30 * time.Second,
		KeepAliveSec:      30,
		ResyncOnRestore:   false,
		CountryCode:       "20",
		AutoReadReceipts:  false,
		ReadReceiptDelay:  3 * time.Second,
		ReadReceiptSec:    3,
		Notify: NotifyConfig{
			AMQPQueue: "wavault_messages",
		},
	}
}

// LoadFromFile loads configuration from a JSON file.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyDurations()
	return cfg, nil
}

// Load loads configuration from an optional JSON file, a .env file if one
// exists, and WAVAULT_* environment variables, in increasing precedence.
func Load(configPath string) *Config {
	godotenv.Load()

	var cfg *Config
	var err error

	if configPath != "" {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			cfg = Default()
		}
	} else {
		cfg = Default()
	}

	if v := os.Getenv("WAVAULT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WAVAULT_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("WAVAULT_DEVICE_NAME"); v != "" {
		cfg.DeviceName = v
	}
	if v := os.Getenv("WAVAULT_COUNTRY_CODE"); v != "" {
		cfg.CountryCode = v
	}
	if v := os.Getenv("WAVAULT_RESYNC_ON_RESTORE"); v != "" {
		cfg.ResyncOnRestore = v == "true" || v == "1"
	}
	if v := os.Getenv("WAVAULT_RECONNECT_DELAY"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.ReconnectDelaySec = secs
		}
	}
	if v := os.Getenv("WAVAULT_KEEP_ALIVE"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.KeepAliveSec = secs
		}
	}
	if v := os.Getenv("WAVAULT_AUTO_READ"); v != "" {
		cfg.AutoReadReceipts = v == "true" || v == "1"
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Media.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Media.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Media.SecretKey = v
	}
	if v := os.Getenv("S3_BUCKET_NAME"); v != "" {
		cfg.Media.Bucket = v
		cfg.Media.Enabled = true
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Media.Endpoint = v
	}

	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.Notify.AMQPURL = v
	}
	if v := os.Getenv("AMQP_QUEUE"); v != "" {
		cfg.Notify.AMQPQueue = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}

	cfg.applyDurations()
	return cfg
}

func (c *Config) applyDurations() {
	if c.ReconnectDelaySec > 0 {
		c.ReconnectDelay = time.Duration(c.ReconnectDelaySec) * time.Second
	}
	if c.KeepAliveSec > 0 {
		c.KeepAliveInterval = time.Duration(c.KeepAliveSec) * time.Second
	}
	if c.ReadReceiptSec > 0 {
		c.ReadReceiptDelay = time.Duration(c.ReadReceiptSec) * time.Second
	}
}

// EnsureStorePath creates the store directory if it doesn't exist.
func (c *Config) EnsureStorePath() error {
	return os.MkdirAll(c.StorePath, 0755)
}
