package instance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the full instance set as a single JSON document.
//
// Every call reads or writes the whole document. There is no partial update
// and no file locking: the manager serializes its own writers, but a second
// process racing on Save will overwrite whole-document (last writer wins).
type Store struct {
	path string
}

// NewStore returns a store backed by the JSON document at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the instance document. A missing or unparsable file is treated
// as "no instances yet" and yields an empty map, never an error.
func (s *Store) Load() map[string]*Instance {
	out := map[string]*Instance{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]*Instance{}
	}
	return out
}

// Save writes the full instance document atomically enough for a single
// writer: marshal, then one WriteFile.
func (s *Store) Save(instances map[string]*Instance) error {
	data, err := json.MarshalIndent(instances, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal instances: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write instances: %w", err)
	}
	return nil
}
