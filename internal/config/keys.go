package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "VISITLOG_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.driver", typ: kString, env: "VISITLOG_STORAGE_DRIVER",
		apply:   func(cfg *Config, v any) { cfg.Storage.Driver = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Driver },
	},
	{
		key: "storage.data_dir", typ: kString, env: "VISITLOG_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.postgres_dsn", typ: kString, env: "VISITLOG_POSTGRES_DSN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Storage.PostgresDSN = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.PostgresDSN },
	},
	{
		key: "export.driver", typ: kString, env: "VISITLOG_EXPORT_DRIVER",
		apply:   func(cfg *Config, v any) { cfg.Export.Driver = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Driver },
	},
	{
		key: "export.dir", typ: kString, env: "VISITLOG_EXPORT_DIR",
		apply:   func(cfg *Config, v any) { cfg.Export.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Dir },
	},
	{
		key: "export.bucket", typ: kString, env: "VISITLOG_EXPORT_BUCKET",
		apply:   func(cfg *Config, v any) { cfg.Export.Bucket = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Bucket },
	},
	{
		key: "export.region", typ: kString, env: "VISITLOG_EXPORT_REGION",
		apply:   func(cfg *Config, v any) { cfg.Export.Region = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Region },
	},
	{
		key: "export.endpoint", typ: kString, env: "VISITLOG_EXPORT_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Export.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Endpoint },
	},
	{
		key: "export.path_style", typ: kBool, env: "VISITLOG_EXPORT_PATH_STYLE",
		apply:   func(cfg *Config, v any) { cfg.Export.PathStyle = v.(bool) },
		extract: func(cfg Config) any { return cfg.Export.PathStyle },
	},
	{
		key: "export.prefix", typ: kString, env: "VISITLOG_EXPORT_PREFIX",
		apply:   func(cfg *Config, v any) { cfg.Export.Prefix = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Prefix },
	},
	{
		key: "export.sort", typ: kString, env: "VISITLOG_EXPORT_SORT",
		apply:   func(cfg *Config, v any) { cfg.Export.Sort = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Sort },
	},
	{
		key: "log.level", typ: kString, env: "VISITLOG_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// lookupEnv is swapped in tests.
var lookupEnv = os.Getenv

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetBool(s.key)
			if err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] could not read bool config key %s: %v. Using default value.\n", s.key, err)
				continue
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := lookupEnv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
