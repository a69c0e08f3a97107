package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHumanReadableSize(t *testing.T) {
	cases := map[int64]string{
		0:                "0.0B",
		1023:             "1023.0B",
		1024:             "1.0K",
		1536:             "1.5K",
		5 * 1024 * 1024:  "5.0M",
		3 << 30:          "3.0G",
		1 << 40:          "1.0T",
		1 << 50:          "1.0P",
		2048 * (1 << 50): "2048.0P",
	}
	for n, want := range cases {
		require.Equal(t, want, HumanReadableSize(n), "size %d", n)
	}
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "deep", "b"), make([]byte, 28), 0644))

	n, err := DirSize(dir)
	require.NoError(t, err)
	require.EqualValues(t, 128, n)

	n, err = DirSize(filepath.Join(dir, "a"))
	require.NoError(t, err)
	require.EqualValues(t, 100, n)

	_, err = DirSize(filepath.Join(dir, "nope"))
	require.Error(t, err)
}
