package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Export  ExportConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	Driver      string
	DataDir     string
	PostgresDSN string
}

type ExportConfig struct {
	Driver    string
	Dir       string
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
	Prefix    string
	Sort      string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			DataDir: defaultDataDir(),
		},
		Export: ExportConfig{
			Driver: "fs",
			Sort:   "date",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.visitlog.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/visitlog/config.json.
//
// Environment variables (VISITLOG_*) override backend values on all platforms.
// The postgres DSN is a secret and is only read from the environment.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Export.Dir == "" {
		cfg.Export.Dir = filepath.Join(cfg.Storage.DataDir, "exports")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("invalid storage.driver %q: want sqlite, postgres or memory", c.Storage.Driver)
	}
	switch c.Export.Driver {
	case "fs", "memory":
	case "s3", "gcs":
		if c.Export.Bucket == "" {
			return fmt.Errorf("export.bucket is required for the %s export driver", c.Export.Driver)
		}
	default:
		return fmt.Errorf("invalid export.driver %q: want fs, s3, gcs or memory", c.Export.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

// keychain abstracts the platform secret store for testing.
type keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

const (
	keychainService = "visitlog"
	tokenAccount    = "api_token"
)

// APIToken returns the bearer token guarding the local HTTP API, generating
// and storing one on first use. VISITLOG_API_TOKEN overrides the stored token.
func APIToken() (string, error) {
	return apiTokenWith(keychainStore{}, lookupEnv)
}

func apiTokenWith(kc keychain, env func(string) string) (string, error) {
	if tok := strings.TrimSpace(env("VISITLOG_API_TOKEN")); tok != "" {
		return tok, nil
	}
	if tok, err := kc.Get(keychainService, tokenAccount); err == nil && tok != "" {
		return tok, nil
	}
	tok := uuid.NewString()
	if err := kc.Set(keychainService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}

// RotateAPIToken replaces the stored token with a fresh one.
func RotateAPIToken() (string, error) {
	tok := uuid.NewString()
	if err := (keychainStore{}).Set(keychainService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}

// keychainStore reads and writes the platform secret store: the macOS
// Keychain via the security CLI, or a secrets file elsewhere.
type keychainStore struct{}

func (keychainStore) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (keychainStore) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}
