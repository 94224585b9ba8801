package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittostore/pkg/config"
	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/marmos91/dittostore/pkg/store/object"
	"github.com/marmos91/dittostore/pkg/store/object/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: ERROR
store:
  type: memory
index:
  type: none
`), 0644))
	return path
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = run(t, "config", "init", "--path", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = run(t, "-c", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "versions:")
	assert.Contains(t, out, "allow_cross_org: true")
}

func TestConfigSchema(t *testing.T) {
	out, err := run(t, "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "DittoStore Configuration"`)
}

func TestMoveMissingSource(t *testing.T) {
	path := writeConfig(t)

	_, err := run(t, "-c", path, "move", "/acme/docs", "/acme/archive")
	require.Error(t, err)
	assert.ErrorIs(t, err, mutation.ErrNotFound)
	assert.Equal(t, 1, exitCode(err))
}

func TestMoveIntoItself(t *testing.T) {
	path := writeConfig(t)

	_, err := run(t, "-c", path, "move", "/acme/docs", "/acme/docs/sub")
	require.Error(t, err)
	assert.ErrorIs(t, err, mutation.ErrIllegalMove)
}

func TestCopyDryRun(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "-c", path, "copy", "--dry-run", "/acme/docs", "/Acme/Backup/")
	require.NoError(t, err)
	assert.Contains(t, out, "op: copy")
	assert.Contains(t, out, "key: backup")
}

func TestListEmpty(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "-c", path, "ls", "-r", "/acme")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = run(t, "-c", path, "count", "/acme")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

// sharedStore makes every command of the test run against one memory store
// seeded with keys.
func sharedStore(t *testing.T, seed ...string) object.Store {
	t.Helper()

	store, err := memory.NewMemoryObjectStore(context.Background(), memory.MemoryObjectStoreConfig{})
	require.NoError(t, err)
	for _, k := range seed {
		require.NoError(t, store.Put(context.Background(), k, []byte("content of "+k), object.PutOptions{}))
	}

	prev := newServices
	newServices = func(ctx context.Context, c *config.Config) (*config.Services, error) {
		return config.NewServicesWithStore(ctx, c, store)
	}
	t.Cleanup(func() { newServices = prev })
	return store
}

func TestListingsKeepCase(t *testing.T) {
	path := writeConfig(t)
	sharedStore(t, "acme/Docs", "acme/Docs.props", "acme/Docs/a.html", "acme/docs-lower.html")

	out, err := run(t, "-c", path, "count", "/acme/Docs")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = run(t, "-c", path, "keys", "/acme/Docs/")
	require.NoError(t, err)
	assert.Equal(t, "acme/Docs\nacme/Docs.props\nacme/Docs/a.html\n", out)

	out, err = run(t, "-c", path, "ls", "-r", "/acme/Docs")
	require.NoError(t, err)
	assert.Contains(t, out, "Docs/a.html")
}

func TestMoveCarriesVersions(t *testing.T) {
	path := writeConfig(t)
	store := sharedStore(t, "acme/a.html")

	_, err := run(t, "-c", path, "version", "create", "/acme/a.html", "--label", "v1")
	require.NoError(t, err)

	_, err = run(t, "-c", path, "move", "/acme/a.html", "/acme/b.html")
	require.NoError(t, err)

	out, err := run(t, "-c", path, "version", "get", "/acme/b.html", "v1")
	require.NoError(t, err)
	assert.Equal(t, "content of acme/a.html", out)

	_, err = run(t, "-c", path, "gc", "acme")
	require.NoError(t, err)
	exists, err := object.Exists(context.Background(), store, "acme/b.html")
	require.NoError(t, err)
	assert.True(t, exists)

	out, err = run(t, "-c", path, "version", "get", "/acme/b.html", "v1")
	require.NoError(t, err)
	assert.Equal(t, "content of acme/a.html", out)
}

func TestSubtreePath(t *testing.T) {
	assert.Equal(t, "acme/Docs", subtreePath("/acme/Docs/"))
	assert.Equal(t, "acme", subtreePath("acme"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{mutation.ErrInvalidRequest, 1},
		{fmt.Errorf("wrapped: %w", object.ErrObjectNotFound), 1},
		{mutation.ErrCollisionExhausted, 2},
		{errors.New("boom"), 2},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, exitCode(tc.err), tc.err.Error())
	}
}
