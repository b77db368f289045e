package runlog

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"
)

// CompressRuns archives all but the keep lexicographically-last run
// directories under logsRoot into <name>.tar.xz files and removes the
// originals. It returns the names of the runs it archived.
//
// The latest run is never compressed even with keep 0: a still-running
// process may be appending to it.
func CompressRuns(logsRoot string, keep int) ([]string, error) {
	if keep < 1 {
		keep = 1
	}

	entries, err := os.ReadDir(logsRoot)
	if err != nil {
		// No logs yet is not an error.
		return nil, nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) <= keep {
		return nil, nil
	}

	var archived []string
	for _, name := range names[:len(names)-keep] {
		dir := filepath.Join(logsRoot, name)
		dst := dir + ".tar.xz"
		if err := compressDir(dir, dst); err != nil {
			return archived, fmt.Errorf("compress run %s: %w", name, err)
		}
		if err := os.RemoveAll(dir); err != nil {
			return archived, fmt.Errorf("remove run %s: %w", name, err)
		}
		archived = append(archived, name)
	}
	return archived, nil
}

// compressDir writes dir as a tar.xz archive at dst. The archive member
// paths are relative to dir's parent so extraction recreates the run
// directory by name.
func compressDir(dir, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()

	xw, err := xz.NewWriter(f)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(xw)

	base := filepath.Dir(dir)
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = strings.ReplaceAll(rel, string(os.PathSeparator), "/")
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return xw.Close()
}
