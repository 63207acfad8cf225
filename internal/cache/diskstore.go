package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one cached response body plus the metadata needed to replay it.
// The key is the exact request URL, query string included; no normalization
// is performed.
type Entry struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"-"`
	StoredAt    int64  `json:"storedAt"` // Unix milliseconds
}

// Diskstore holds named cache namespaces on disk, one directory per
// namespace, one body+metadata file pair per entry. Writes overwrite:
// exactly one response body per key per namespace at a time.
type Diskstore struct {
	root string
}

// NewDiskstore creates the store root if needed.
func NewDiskstore(root string) (*Diskstore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache root: %w", err)
	}
	return &Diskstore{root: root}, nil
}

// Namespaces enumerates the existing cache namespaces.
func (d *Diskstore) Namespaces() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache namespaces: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasSuffix(e.Name(), ".staging") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Delete removes a whole namespace. Deleting a missing namespace is not an
// error, so activation stays idempotent.
func (d *Diskstore) Delete(namespace string) error {
	if err := os.RemoveAll(filepath.Join(d.root, namespace)); err != nil {
		return fmt.Errorf("failed to delete cache namespace %q: %w", namespace, err)
	}
	return nil
}

// Put overwrites the entry for the given URL inside the namespace.
func (d *Diskstore) Put(namespace string, entry Entry) error {
	dir := filepath.Join(d.root, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache namespace %q: %w", namespace, err)
	}
	return writeEntry(dir, entry)
}

// Match returns the cached entry for the exact URL, or nil when absent.
func (d *Diskstore) Match(namespace, url string) (*Entry, error) {
	base := filepath.Join(d.root, namespace, entryKey(url))

	meta, err := os.ReadFile(base + ".json")
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache metadata: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(meta, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache metadata for %q: %w", url, err)
	}

	body, err := os.ReadFile(base + ".body")
	if err != nil {
		return nil, fmt.Errorf("failed to read cache body: %w", err)
	}
	entry.Body = body
	return &entry, nil
}

// AddAll populates a namespace with the given entries all-or-nothing: the
// entries are staged in a temp directory and swapped in atomically, so a
// partial shell cache is never committed as ready.
func (d *Diskstore) AddAll(namespace string, entries []Entry) error {
	staging := filepath.Join(d.root, namespace+".staging")
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	for _, entry := range entries {
		if err := writeEntry(staging, entry); err != nil {
			os.RemoveAll(staging)
			return err
		}
	}

	final := filepath.Join(d.root, namespace)
	if err := os.RemoveAll(final); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("failed to replace cache namespace %q: %w", namespace, err)
	}
	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("failed to commit cache namespace %q: %w", namespace, err)
	}
	return nil
}

// SweepOlderThan deletes entries stored before the cutoff and reports how
// many were removed.
func (d *Diskstore) SweepOlderThan(namespace string, cutoff time.Time) (int, error) {
	dir := filepath.Join(d.root, namespace)
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to scan cache namespace %q: %w", namespace, err)
	}

	removed := 0
	for _, f := range files {
		if !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		metaPath := filepath.Join(dir, f.Name())
		meta, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(meta, &entry); err != nil {
			continue
		}

		if time.UnixMilli(entry.StoredAt).Before(cutoff) {
			os.Remove(metaPath)
			os.Remove(strings.TrimSuffix(metaPath, ".json") + ".body")
			removed++
		}
	}
	return removed, nil
}

func writeEntry(dir string, entry Entry) error {
	key := entryKey(entry.URL)
	body := entry.Body
	entry.Body = nil

	meta, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, key+".body"), body, 0o644); err != nil {
		return fmt.Errorf("failed to write cache body: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, key+".json"), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}
	return nil
}

func entryKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
