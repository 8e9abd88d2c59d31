// Package config loads the Pulse configuration from defaults, an optional
// YAML file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// Environment variables read by Load.
const (
	EnvConfig       = "PULSE_CONFIG"
	EnvTier         = "PULSE_TIER"
	EnvModelPath    = "PULSE_MODEL_PATH"
	EnvDebug        = "PULSE_DEBUG"
	EnvAsyncWorker  = "PULSE_ASYNC_WORKER"
	EnvInstitutions = "PULSE_INSTITUTIONS"
)

// ErrInvalidConfig is returned when the merged configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load builds the configuration. The tier defaults come from PULSE_TIER,
// then the YAML file at path (or PULSE_CONFIG when path is empty) is
// applied, then the remaining environment overrides.
func Load(path string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	if Tier(os.Getenv(EnvTier)) == domain.TierPro {
		cfg = domain.ProConfig()
	}

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Tier normalizes a tier name.
func Tier(s string) domain.Tier {
	return domain.Tier(strings.ToLower(strings.TrimSpace(s)))
}

func applyFile(cfg *domain.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *domain.Config) {
	if v := os.Getenv(EnvModelPath); v != "" {
		cfg.Model.Path = v
	}
	if enabled(os.Getenv(EnvDebug)) {
		cfg.Logging.Level = "debug"
	}
	if v := os.Getenv(EnvAsyncWorker); v != "" {
		cfg.Worker.Enabled = enabled(v)
	}
	if v := os.Getenv(EnvInstitutions); v != "" {
		cfg.Worker.Institutions = splitList(v)
	}
}

// Validate checks the settings that would otherwise fail late at startup.
func Validate(cfg *domain.Config) error {
	switch cfg.Tier {
	case domain.TierCommunity, domain.TierPro:
	default:
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidConfig, cfg.Tier)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, cfg.Server.Port)
	}
	if cfg.Model.TargetClass == "" {
		cfg.Model.TargetClass = domain.DefaultTargetClass
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: rate limit requires requestsPerSecond > 0", ErrInvalidConfig)
	}
	for i, r := range cfg.Suggestions {
		if r.ID == "" || r.When == "" || r.Problem == "" {
			return fmt.Errorf("%w: suggestion %d needs id, when and problem", ErrInvalidConfig, i)
		}
	}
	return nil
}

func enabled(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
