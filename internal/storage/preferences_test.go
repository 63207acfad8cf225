package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestPrefStore(t *testing.T) (*PreferenceStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preferences.json")
	store, err := NewPreferenceStore(path)
	if err != nil {
		t.Fatalf("NewPreferenceStore failed: %v", err)
	}
	return store, path
}

func TestPreferenceDefaults(t *testing.T) {
	store, _ := newTestPrefStore(t)

	prefs := store.Get()
	if prefs.NoteStyle != "SOAP" {
		t.Errorf("NoteStyle = %s, want SOAP", prefs.NoteStyle)
	}
	if prefs.Specialty != "internal_medicine" {
		t.Errorf("Specialty = %s, want internal_medicine", prefs.Specialty)
	}
}

func TestPreferenceUpdatePreservesUnknownKeys(t *testing.T) {
	store, path := newTestPrefStore(t)

	if err := store.Update(map[string]interface{}{
		"noteStyle":        "Narrative",
		"experimentalFlag": true,
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Update(map[string]interface{}{"specialty": "emergency"}); err != nil {
		t.Fatalf("second Update failed: %v", err)
	}

	prefs := store.Get()
	if prefs.NoteStyle != "Narrative" || prefs.Specialty != "emergency" {
		t.Errorf("typed view = %s/%s, want Narrative/emergency", prefs.NoteStyle, prefs.Specialty)
	}

	// The unrecognized key survives the later partial update and a reload.
	reloaded, err := NewPreferenceStore(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	raw := reloaded.Raw()
	if raw["experimentalFlag"] != true {
		t.Errorf("experimentalFlag = %v, want true", raw["experimentalFlag"])
	}
	if raw["noteStyle"] != "Narrative" {
		t.Errorf("noteStyle = %v, want Narrative", raw["noteStyle"])
	}
}

func TestPreferenceReset(t *testing.T) {
	store, path := newTestPrefStore(t)

	if err := store.Update(map[string]interface{}{"noteStyle": "Consult"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if got := store.Get().NoteStyle; got != "SOAP" {
		t.Errorf("NoteStyle after reset = %s, want SOAP", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected the preference file to be removed by reset")
	}
}

func TestPreferenceCorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to seed corrupt file: %v", err)
	}

	store, err := NewPreferenceStore(path)
	if err != nil {
		t.Fatalf("NewPreferenceStore failed: %v", err)
	}
	if got := store.Get().NoteStyle; got != "SOAP" {
		t.Errorf("NoteStyle = %s, want the SOAP default", got)
	}
}
