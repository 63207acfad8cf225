package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"aetherscribe/internal/models"
)

// PreferenceStore is the small, frequently-read synchronous store for user
// options. The persisted document is kept as a raw map so keys written by a
// newer (or older) version are shallow-merged and never dropped.
type PreferenceStore struct {
	path string
	mu   sync.RWMutex
	raw  map[string]interface{}
}

// NewPreferenceStore loads the preference file, falling back to defaults
// when the file is absent or unreadable.
func NewPreferenceStore(path string) (*PreferenceStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preference directory: %w", err)
	}

	s := &PreferenceStore{path: path}
	s.raw = s.load()
	return s, nil
}

func (s *PreferenceStore) load() map[string]interface{} {
	data, err := os.ReadFile(s.path)
	if err == nil {
		var raw map[string]interface{}
		if err := json.Unmarshal(data, &raw); err == nil {
			return raw
		}
		log.Printf("⚠️  [PREFS] Corrupt preference file, falling back to defaults")
	}
	return defaultsAsMap()
}

func defaultsAsMap() map[string]interface{} {
	data, _ := json.Marshal(models.DefaultPreferences())
	var raw map[string]interface{}
	_ = json.Unmarshal(data, &raw)
	return raw
}

// Get returns the typed view of the recognized preference keys.
func (s *PreferenceStore) Get() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs := models.DefaultPreferences()
	data, err := json.Marshal(s.raw)
	if err != nil {
		return prefs
	}
	_ = json.Unmarshal(data, &prefs)
	return prefs
}

// Raw returns a copy of the full persisted document, unknown keys included.
func (s *PreferenceStore) Raw() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]interface{}, len(s.raw))
	for k, v := range s.raw {
		out[k] = v
	}
	return out
}

// Update shallow-merges partial into the stored document and persists it.
// Keys not named in partial keep their previous values.
func (s *PreferenceStore) Update(partial map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range partial {
		s.raw[k] = v
	}
	return s.save()
}

// Reset discards the persisted document and restores defaults.
func (s *PreferenceStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove preference file: %w", err)
	}
	s.raw = defaultsAsMap()
	return nil
}

// save writes the document atomically (temp file + rename) so a crash never
// leaves a half-written preference file behind.
func (s *PreferenceStore) save() error {
	data, err := json.MarshalIndent(s.raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace preference file: %w", err)
	}
	return nil
}
