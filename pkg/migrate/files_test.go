package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/pkg/migrate"
)

func TestNewFileSlugsNameAndRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)

	path, err := migrate.NewFile(dir, "Add RUAC index to Pets!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260601083000_add_ruac_index_to_pets.sql"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "-- +goose Down")

	_, err = migrate.NewFile(dir, "add ruac index to pets", now)
	assert.ErrorIs(t, err, fs.ErrExist)

	require.NoError(t, migrate.Validate(os.DirFS(dir)))
}

func TestNewFileRejectsEmptySlug(t *testing.T) {
	_, err := migrate.NewFile(t.TempDir(), "¡¿?!", time.Now())
	require.Error(t, err)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	ok := []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")
	files := fstest.MapFS{
		"20260101000000_ok.sql":       {Data: ok},
		"20260101000000_dup.sql":      {Data: ok},
		"20260102000000_no_down.sql":  {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"20260103000000_inverted.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
		"BadName.sql":                 {Data: ok},
		"README.md":                   {Data: []byte("ignored")},
	}

	err := migrate.Validate(files)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "BadName.sql")
	assert.Contains(t, msg, "already used by")
	assert.Contains(t, msg, "missing -- +goose Down")
	assert.Contains(t, msg, "Down section precedes Up")
}

func TestSourcePrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_only.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	entries, err := fs.ReadDir(migrate.Source(dir), ".")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	embedded, err := fs.ReadDir(migrate.Source(""), ".")
	require.NoError(t, err)
	assert.NotEmpty(t, embedded)
}
