// Package config reads and writes the client configuration under
// .notewall/config.json. Saves are atomic (temp file + rename) and
// serialized across processes with a file lock.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jmilloy/notewall/internal/models"
)

const configFile = ".notewall/config.json"
const lockFile = ".notewall/config.json.lock"

// Default poll tuning when the config file carries none.
const (
	DefaultPollBaseInterval = 4 * time.Second
	DefaultPollMaxInterval  = 8 * time.Second
	DefaultPollIdleCycles   = 3
)

// Load reads the config from disk. A missing file yields an empty config.
func Load(baseDir string) (*models.Config, error) {
	configPath := filepath.Join(baseDir, configFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.Config{}, nil
		}
		return nil, err
	}

	var cfg models.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to disk using atomic write (temp file + rename)
func Save(baseDir string, cfg *models.Config) error {
	configPath := filepath.Join(baseDir, configFile)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, configPath)
}

// Update applies fn to the current config and saves it, holding the config
// lock for the whole read-modify-write.
func Update(baseDir string, fn func(cfg *models.Config) error) error {
	return withConfigLock(baseDir, func() error {
		cfg, err := Load(baseDir)
		if err != nil {
			return err
		}
		if err := fn(cfg); err != nil {
			return err
		}
		return Save(baseDir, cfg)
	})
}

// GetServerURL returns the server base URL.
// Priority: NOTEWALL_SERVER_URL env > config.json server_url.
func GetServerURL(baseDir string) string {
	if v := os.Getenv("NOTEWALL_SERVER_URL"); v != "" {
		return v
	}
	cfg, err := Load(baseDir)
	if err != nil {
		return ""
	}
	return cfg.ServerURL
}

// GetAPIKey returns the API key.
// Priority: NOTEWALL_API_KEY env > config.json api_key.
func GetAPIKey(baseDir string) string {
	if v := os.Getenv("NOTEWALL_API_KEY"); v != "" {
		return v
	}
	cfg, err := Load(baseDir)
	if err != nil {
		return ""
	}
	return cfg.APIKey
}

// GetWebhookURL returns the webhook URL.
// Priority: NOTEWALL_WEBHOOK_URL env > config.json webhook.url.
func GetWebhookURL(baseDir string) string {
	if v := os.Getenv("NOTEWALL_WEBHOOK_URL"); v != "" {
		return v
	}
	cfg, err := Load(baseDir)
	if err != nil {
		return ""
	}
	if cfg.Webhook != nil {
		return cfg.Webhook.URL
	}
	return ""
}

// GetWebhookSecret returns the webhook HMAC secret.
// Priority: NOTEWALL_WEBHOOK_SECRET env > config.json webhook.secret.
func GetWebhookSecret(baseDir string) string {
	if v := os.Getenv("NOTEWALL_WEBHOOK_SECRET"); v != "" {
		return v
	}
	cfg, err := Load(baseDir)
	if err != nil {
		return ""
	}
	if cfg.Webhook != nil {
		return cfg.Webhook.Secret
	}
	return ""
}

// EnsureDeviceID returns the stable device id, generating and persisting
// one on first use.
func EnsureDeviceID(baseDir string) (string, error) {
	cfg, err := Load(baseDir)
	if err != nil {
		return "", err
	}
	if cfg.DeviceID != "" {
		return cfg.DeviceID, nil
	}
	id := "dev-" + uuid.NewString()
	if err := Update(baseDir, func(cfg *models.Config) error {
		if cfg.DeviceID == "" {
			cfg.DeviceID = id
		}
		id = cfg.DeviceID
		return nil
	}); err != nil {
		return "", err
	}
	return id, nil
}

// SetBoard persists the selected board id.
func SetBoard(baseDir, boardID string) error {
	return Update(baseDir, func(cfg *models.Config) error {
		cfg.BoardID = boardID
		return nil
	})
}

// GetBoard returns the selected board id, empty when none is set.
func GetBoard(baseDir string) (string, error) {
	cfg, err := Load(baseDir)
	if err != nil {
		return "", err
	}
	return cfg.BoardID, nil
}

// PollTuning resolves the scheduler knobs from config, falling back to the
// package defaults.
func PollTuning(cfg *models.Config) (base, max time.Duration, idle int) {
	base, max, idle = DefaultPollBaseInterval, DefaultPollMaxInterval, DefaultPollIdleCycles
	if cfg == nil || cfg.Poll == nil {
		return
	}
	if cfg.Poll.BaseIntervalMS > 0 {
		base = time.Duration(cfg.Poll.BaseIntervalMS) * time.Millisecond
	}
	if cfg.Poll.MaxIntervalMS > 0 {
		max = time.Duration(cfg.Poll.MaxIntervalMS) * time.Millisecond
	}
	if cfg.Poll.IdleCycles > 0 {
		idle = cfg.Poll.IdleCycles
	}
	return
}
