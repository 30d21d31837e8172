package watcher

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// TrackerFile is the default name of the processed-file tracker.
const TrackerFile = ".processed_tracker.json"

// Tracker maps a file name to the fingerprint it had when last handled.
// It is not safe for concurrent use; the watcher owns it.
type Tracker struct {
	path    string
	entries map[string]string
}

// LoadTracker reads the tracker at path. A missing file is an empty tracker.
func LoadTracker(path string) (*Tracker, error) {
	t := &Tracker{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tracker: %w", err)
	}
	if len(data) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(data, &t.entries); err != nil {
		return nil, fmt.Errorf("parse tracker %s: %w", path, err)
	}
	if t.entries == nil {
		t.entries = make(map[string]string)
	}
	return t, nil
}

// Seen reports whether name was handled with this exact fingerprint.
func (t *Tracker) Seen(name, fingerprint string) bool {
	fp, ok := t.entries[name]
	return ok && fp == fingerprint
}

// Known reports whether name was ever handled.
func (t *Tracker) Known(name string) bool {
	_, ok := t.entries[name]
	return ok
}

func (t *Tracker) Mark(name, fingerprint string) {
	t.entries[name] = fingerprint
}

func (t *Tracker) Len() int {
	return len(t.entries)
}

// Names returns the tracked file names in sorted order.
func (t *Tracker) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the tracker through a temp file so a crash never leaves a
// truncated tracker behind.
func (t *Tracker) Save() error {
	data, err := json.MarshalIndent(t.entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create tracker dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tracker-*.json")
	if err != nil {
		return fmt.Errorf("create temp tracker: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write tracker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tracker: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("replace tracker: %w", err)
	}
	return nil
}

// Fingerprint identifies one version of a file by path, size and
// modification time. Touching a file is enough to have it processed again.
func Fingerprint(path string, info os.FileInfo) string {
	key := path + "|" + strconv.FormatInt(info.Size(), 10) + "|" +
		strconv.FormatInt(info.ModTime().UnixNano(), 10)
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
