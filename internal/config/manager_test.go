package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	return NewManager(dir, zerolog.Nop()), dir
}

func TestManagerLoadDefaultsWhenNoOverride(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Equal(t, Defaults(), m.Load())
}

func TestManagerLoadDefaultsOnCorruptOverride(t *testing.T) {
	m, dir := newTestManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, LocalFile), []byte("{nope"), 0o644))

	assert.Equal(t, Defaults(), m.Load())
}

func TestManagerSaveRoundTrip(t *testing.T) {
	m, dir := newTestManager(t)

	cfg := Defaults()
	cfg.Blacklist = append(cfg.Blacklist, "sorteio")
	cfg.Settings.ReplyInGroups = false

	saved, err := m.Save(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, saved)

	assert.FileExists(t, filepath.Join(dir, LocalFile))
	assert.Equal(t, cfg, m.Load())
}

func TestManagerSaveRejectsInvalidDelayRange(t *testing.T) {
	m, _ := newTestManager(t)

	cfg := Defaults()
	max := 1
	cfg.Settings.DelayRange = DelayRange{Min: 5, Max: &max}

	_, err := m.Save(cfg)
	require.Error(t, err)
	assert.Equal(t, Defaults(), m.Load(), "a rejected save must not persist anything")
}

func TestManagerSaveRejectsNegativeDelayMin(t *testing.T) {
	m, _ := newTestManager(t)

	cfg := Defaults()
	cfg.Settings.DelayRange = DelayRange{Min: -1}

	_, err := m.Save(cfg)
	assert.Error(t, err)
}

func TestManagerSaveRejectsRuleWithoutTriggers(t *testing.T) {
	m, _ := newTestManager(t)

	cfg := Defaults()
	cfg.AutoReplies = append(cfg.AutoReplies, Rule{Responses: []string{"ok"}})

	_, err := m.Save(cfg)
	assert.Error(t, err)
}

func TestManagerSaveRejectsEmptyTriggerGroup(t *testing.T) {
	m, _ := newTestManager(t)

	cfg := Defaults()
	cfg.AutoReplies = append(cfg.AutoReplies, Rule{
		Triggers:  []TriggerGroup{{}},
		Responses: []string{"ok"},
	})

	_, err := m.Save(cfg)
	assert.Error(t, err)
}

func TestManagerSaveRejectsRuleWithoutResponses(t *testing.T) {
	m, _ := newTestManager(t)

	cfg := Defaults()
	cfg.AutoReplies = append(cfg.AutoReplies, Rule{Triggers: []TriggerGroup{{"oi"}}})

	_, err := m.Save(cfg)
	assert.Error(t, err)
}

func TestManagerReset(t *testing.T) {
	m, dir := newTestManager(t)

	cfg := Defaults()
	cfg.Settings.WholeWord = true
	_, err := m.Save(cfg)
	require.NoError(t, err)

	got, err := m.Reset()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
	assert.NoFileExists(t, filepath.Join(dir, LocalFile))
	assert.Equal(t, Defaults(), m.Load())
}

func TestManagerResetWithoutOverrideIsANoOp(t *testing.T) {
	m, _ := newTestManager(t)

	got, err := m.Reset()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}
