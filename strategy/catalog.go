package strategy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrEntryPointMissing means a strategy directory has no runnable entry point.
var ErrEntryPointMissing = errors.New("strategy entry point missing")

// Info describes one installed strategy.
type Info struct {
	ID         string
	Name       string
	Dir        string
	EntryPoint string
}

// DirCatalog is a directory-backed catalog: one subdirectory of root per
// strategy, each expected to contain the entry point at a fixed relative path.
type DirCatalog struct {
	root       string
	entryPoint string
}

// NewDirCatalog returns a catalog over root with the given entry point name.
func NewDirCatalog(root, entryPoint string) *DirCatalog {
	return &DirCatalog{root: root, entryPoint: entryPoint}
}

// Root returns the strategies root directory.
func (c *DirCatalog) Root() string { return c.root }

// Dir returns the directory a strategy id maps to.
func (c *DirCatalog) Dir(id string) string {
	return filepath.Join(c.root, id)
}

// EntryPointPath returns the runnable file for a strategy id.
func (c *DirCatalog) EntryPointPath(id string) string {
	return filepath.Join(c.Dir(id), c.entryPoint)
}

// LogsRoot returns the directory a strategy's run logs are written under.
func (c *DirCatalog) LogsRoot(id string) string {
	return filepath.Join(c.Dir(id), "logs")
}

// Validate checks that the strategy's entry point exists on disk.
func (c *DirCatalog) Validate(id string) error {
	entry := c.EntryPointPath(id)
	if _, err := os.Stat(entry); err != nil {
		return fmt.Errorf("strategy %q: %w (%s)", id, ErrEntryPointMissing, entry)
	}
	return nil
}

// meta mirrors the optional strategy.yaml inside a strategy directory.
type meta struct {
	Name string `yaml:"name"`
}

// Lookup resolves an id against the directory tree. The display name comes
// from an optional strategy.yaml; it falls back to the id itself.
func (c *DirCatalog) Lookup(id string) (Info, bool) {
	dir := c.Dir(id)
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return Info{}, false
	}

	info := Info{
		ID:         id,
		Name:       id,
		Dir:        dir,
		EntryPoint: c.EntryPointPath(id),
	}

	if data, err := os.ReadFile(filepath.Join(dir, "strategy.yaml")); err == nil {
		var m meta
		if yaml.Unmarshal(data, &m) == nil && m.Name != "" {
			info.Name = m.Name
		}
	}
	return info, true
}

// List returns every strategy directory under root, sorted by id.
func (c *DirCatalog) List() []Info {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil
	}

	var out []Info
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		if info, ok := c.Lookup(e.Name()); ok {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
