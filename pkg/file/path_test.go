package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Existing directory is fine.
	require.NoError(t, EnsureDir(dir))

	assert.Error(t, EnsureDir("  "))
}

func TestFirstLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("  secret-token  \nsecond line\n"), 0o600))

	line, err := FirstLine(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", line)
}

func TestFirstLineMissingOrEmpty(t *testing.T) {
	t.Parallel()

	_, err := FirstLine(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = FirstLine(empty)
	assert.Error(t, err)
}
