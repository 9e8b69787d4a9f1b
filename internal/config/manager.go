package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// LocalFile is the override file written by the dashboard. Factory defaults
// never change at runtime; removing this file restores them.
const LocalFile = "config.local.json"

// Manager loads and persists the bot configuration. Load always re-reads the
// override file so that dashboard edits take effect on the very next message,
// with no caching and no restart.
type Manager struct {
	path     string
	log      zerolog.Logger
	validate *validator.Validate

	mu sync.Mutex // serializes Save/Reset writers
}

// NewManager creates a Manager persisting overrides under dir.
func NewManager(dir string, log zerolog.Logger) *Manager {
	v := validator.New()
	v.RegisterStructValidation(validateConfig, Config{})
	return &Manager{
		path:     filepath.Join(dir, LocalFile),
		log:      log,
		validate: v,
	}
}

// Load returns the active configuration: the user override when present and
// readable, the factory defaults otherwise. Each call is a fresh snapshot.
func (m *Manager) Load() Config {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.log.Warn().Err(err).Str("path", m.path).Msg("config override unreadable, using defaults")
		}
		return Defaults()
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		m.log.Warn().Err(err).Str("path", m.path).Msg("config override corrupt, using defaults")
		return Defaults()
	}
	return cfg
}

// Save validates cfg and persists it as the new override, returning the
// configuration as re-read from disk.
func (m *Manager) Save(cfg Config) (Config, error) {
	if err := m.Validate(cfg); err != nil {
		return Config{}, err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return Config{}, fmt.Errorf("marshal config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Config{}, fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return Config{}, fmt.Errorf("write config: %w", err)
	}
	return m.Load(), nil
}

// Reset removes the override file, restoring the factory defaults.
func (m *Manager) Reset() (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("remove config override: %w", err)
	}
	return Defaults(), nil
}

// Validate checks structural invariants before anything is persisted.
func (m *Manager) Validate(cfg Config) error {
	return m.validate.Struct(cfg)
}

func validateConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	dr := cfg.Settings.DelayRange
	if dr.Max != nil && *dr.Max < dr.Min {
		sl.ReportError(dr.Max, "Settings.DelayRange.Max", "Max", "gtemin", "")
	}

	for i, rule := range cfg.AutoReplies {
		field := fmt.Sprintf("AutoReplies[%d]", i)
		if len(rule.Triggers) == 0 {
			sl.ReportError(rule.Triggers, field+".Triggers", "Triggers", "required", "")
		}
		for _, group := range rule.Triggers {
			if len(group) == 0 {
				sl.ReportError(rule.Triggers, field+".Triggers", "Triggers", "nonemptygroup", "")
				break
			}
		}
		if len(rule.Responses) == 0 {
			sl.ReportError(rule.Responses, field+".Responses", "Responses", "required", "")
		}
	}
}
