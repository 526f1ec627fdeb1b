package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/zero-blast/game/engine"
)

var (
	ErrPresetNotFound = errors.New("board preset not found")
	ErrInvalidPreset  = errors.New("invalid board preset")
)

// DefaultPresetName is the preset used when none is selected
const DefaultPresetName = "classic"

// PresetInfo provides information about a board preset
type PresetInfo struct {
	Filename    string `json:"filename,omitempty"`
	PresetID    string `json:"preset_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Size        int    `json:"size"`
	LossMarkers int    `json:"loss_markers"`
	MinValue    int    `json:"min_value"`
	MaxValue    int    `json:"max_value"`
}

// Manager handles board preset loading and caching. An empty preset
// directory means only the built-in classic preset is available.
type Manager struct {
	presetDir     string
	defaultPreset *engine.BoardConfig
	presets       map[string]*engine.BoardConfig
	mu            sync.RWMutex
}

// NewManager creates a new preset manager
func NewManager(presetDir string) (*Manager, error) {
	if presetDir != "" {
		if _, err := os.Stat(presetDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("preset directory does not exist: %s", presetDir)
		}
	}

	m := &Manager{
		presetDir: presetDir,
		presets:   make(map[string]*engine.BoardConfig),
	}

	if err := m.loadDefaultPreset(); err != nil {
		return nil, fmt.Errorf("failed to load default preset: %w", err)
	}

	return m, nil
}

// LoadPreset loads a preset by name
func (m *Manager) LoadPreset(name string) (*engine.BoardConfig, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if preset, exists := m.presets[name]; exists {
		m.mu.RUnlock()
		return preset, nil
	}
	m.mu.RUnlock()

	if m.presetDir == "" {
		return m.builtin(name)
	}

	data, err := os.ReadFile(m.presetPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return m.builtin(name)
		}
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var preset engine.BoardConfig
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("failed to parse preset: %w", err)
	}
	if err := engine.ValidateBoardConfig(&preset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}

	m.mu.Lock()
	m.presets[name] = &preset
	m.mu.Unlock()

	return &preset, nil
}

// builtin returns the compiled-in classic preset when no file provides it
func (m *Manager) builtin(name string) (*engine.BoardConfig, error) {
	if name == DefaultPresetName {
		return engine.DefaultBoardConfig(), nil
	}
	return nil, ErrPresetNotFound
}

// RefreshCache drops cached presets so the next load reads from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets = make(map[string]*engine.BoardConfig)
}

// ListPresets returns information about every valid preset, sorted by ID
func (m *Manager) ListPresets() ([]*PresetInfo, error) {
	ids := map[string]string{DefaultPresetName: ""}

	if m.presetDir != "" {
		entries, err := os.ReadDir(m.presetDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read preset directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			ids[strings.TrimSuffix(entry.Name(), ".json")] = entry.Name()
		}
	}

	var presets []*PresetInfo
	for id, filename := range ids {
		preset, err := m.LoadPreset(id)
		if err != nil {
			// Skip invalid presets
			continue
		}
		presets = append(presets, &PresetInfo{
			Filename:    filename,
			PresetID:    id,
			Name:        preset.Name,
			Description: preset.Description,
			Size:        preset.Size,
			LossMarkers: preset.ZeroCount(),
			MinValue:    preset.MinValue,
			MaxValue:    preset.MaxValue,
		})
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].PresetID < presets[j].PresetID })
	return presets, nil
}

// ValidatePresets checks every preset file and returns the failures keyed by filename
func (m *Manager) ValidatePresets() (map[string]error, error) {
	failures := make(map[string]error)
	if m.presetDir == "" {
		return failures, nil
	}

	entries, err := os.ReadDir(m.presetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if _, err := engine.LoadBoardConfig(filepath.Join(m.presetDir, entry.Name())); err != nil {
			failures[entry.Name()] = err
		}
	}
	return failures, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *engine.BoardConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	preset, err := m.LoadPreset(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPreset = preset
	return nil
}

// SavePreset writes a preset to disk
func (m *Manager) SavePreset(name string, preset *engine.BoardConfig) error {
	if m.presetDir == "" {
		return fmt.Errorf("no preset directory configured")
	}
	if err := engine.ValidateBoardConfig(preset); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}

	name = strings.TrimSuffix(name, ".json")

	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}
	if err := os.WriteFile(m.presetPath(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	m.mu.Lock()
	m.presets[name] = preset
	m.mu.Unlock()

	return nil
}

// loadDefaultPreset prefers classic.json from disk over the built-in classic
func (m *Manager) loadDefaultPreset() error {
	preset, err := m.LoadPreset(DefaultPresetName)
	if err != nil {
		return err
	}
	m.defaultPreset = preset
	return nil
}

func (m *Manager) presetPath(name string) string {
	return filepath.Join(m.presetDir, name+".json")
}
