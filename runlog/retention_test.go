package runlog

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func TestCompressRunsKeepsLatest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeRun(t, root, "20260301_090000", map[string]string{ValueLogFile: "date\tequity\tcash\n"})
	writeRun(t, root, "20260305_090000", map[string]string{ValueLogFile: "date\tequity\tcash\n"})
	writeRun(t, root, "20260310_090000", map[string]string{ValueLogFile: "date\tequity\tcash\n"})

	archived, err := CompressRuns(root, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260301_090000", "20260305_090000"}, archived)

	// Latest run untouched, older ones replaced by archives.
	_, err = os.Stat(filepath.Join(root, "20260310_090000"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "20260301_090000"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "20260301_090000.tar.xz"))
	assert.NoError(t, err)
}

func TestCompressRunsNothingToDo(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeRun(t, root, "20260301_090000", nil)

	archived, err := CompressRuns(root, 3)
	require.NoError(t, err)
	assert.Empty(t, archived)

	// keep < 1 still protects the latest run.
	archived, err = CompressRuns(root, 0)
	require.NoError(t, err)
	assert.Empty(t, archived)

	// Missing logs root is not an error.
	archived, err = CompressRuns(filepath.Join(root, "missing"), 1)
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func TestCompressRunsArchiveContents(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeRun(t, root, "20260301_090000", map[string]string{
		ValueLogFile: "date\tequity\tcash\n2026-03-01\t100\t100\n",
		RunInfoFile:  `{"strategy":"x"}`,
	})
	writeRun(t, root, "20260302_090000", nil)

	_, err := CompressRuns(root, 1)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(root, "20260301_090000.tar.xz"))
	require.NoError(t, err)
	defer f.Close()

	xr, err := xz.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(xr)

	found := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if hdr.Typeflag == tar.TypeDir {
			continue
		}
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		found[hdr.Name] = string(body)
	}

	assert.Contains(t, found, "20260301_090000/"+ValueLogFile)
	assert.Contains(t, found["20260301_090000/"+ValueLogFile], "2026-03-01")
	assert.Contains(t, found, "20260301_090000/"+RunInfoFile)
}
