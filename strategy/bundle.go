package strategy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xyproto/unzip"
)

// InstallBundle extracts a zipped strategy package into the catalog root.
//
// A bundle must contain exactly one top-level directory, whose name becomes
// the strategy id, with the entry point inside it. The extraction happens in
// a staging directory first so a bad bundle never leaves a half-installed
// strategy behind.
func (c *DirCatalog) InstallBundle(zipPath string) (string, error) {
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return "", fmt.Errorf("create strategies root: %w", err)
	}

	// Stage inside the catalog root so the final rename stays on one
	// filesystem.
	staging, err := os.MkdirTemp(c.root, ".bundle-*")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := unzip.Extract(zipPath, staging); err != nil {
		return "", fmt.Errorf("extract bundle: %w", err)
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		return "", fmt.Errorf("read staging dir: %w", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", fmt.Errorf("bundle must contain exactly one strategy directory")
	}

	id := entries[0].Name()
	if _, err := os.Stat(filepath.Join(staging, id, c.entryPoint)); err != nil {
		return "", fmt.Errorf("bundle %q: %w", id, ErrEntryPointMissing)
	}

	dst := c.Dir(id)
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("strategy %q already installed", id)
	}

	if err := os.Rename(filepath.Join(staging, id), dst); err != nil {
		return "", fmt.Errorf("install strategy %q: %w", id, err)
	}
	return id, nil
}
