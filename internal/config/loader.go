package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fleetsense/fleetsense/internal/domain/model"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FLEETSENSE_CONFIG is set
//  3. env (prefix FLEETSENSE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("FLEETSENSE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: FLEETSENSE_ADDR, FLEETSENSE_WORKER_COUNT, ...
	// Keys map to the flat koanf tags on the struct; underscores are
	// preserved.
	envProvider := env.Provider("FLEETSENSE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "fleetsense_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := model.ParseWindow(cfg.DefaultWindow); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.TelematicsLatencyMaxMS < cfg.TelematicsLatencyMinMS {
		return nil, fmt.Errorf("%w: telematics latency bounds inverted", ErrInvalidConfig)
	}
	return &cfg, nil
}
