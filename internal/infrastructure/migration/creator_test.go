package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add asset values", "add_asset_values"},
		{"Add-Asset-Values", "add_asset_values"},
		{"ADD_ASSET_VALUES", "add_asset_values"},
		{"add__asset__values", "add_asset_values"},
		{"Harvest 2025", "harvest_2025"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("-- test"), 0o644))
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("first migration is version 1", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, "Projection Inputs", "Create projection input tables")
		require.NoError(t, err)

		assert.Equal(t, uint(1), mf.Version)
		assert.Equal(t, filepath.Join(dir, "000001_projection_inputs.up.sql"), mf.UpPath)
		assert.Equal(t, filepath.Join(dir, "000001_projection_inputs.down.sql"), mf.DownPath)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "-- Create projection input tables")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "-- Rollback: Create projection input tables")
	})

	t.Run("numbers after the highest existing version", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir,
			"000001_init.up.sql", "000001_init.down.sql",
			"000007_touch.up.sql", "000007_touch.down.sql",
		)

		mf, err := CreateMigration(dir, "add-index", "")
		require.NoError(t, err)

		assert.Equal(t, uint(8), mf.Version)
		assert.Equal(t, "add index", mf.Description)
		assert.Equal(t, "000008_add_index", mf.BaseName())
	})

	t.Run("creates missing directory", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "nested", "migrations")

		_, err := CreateMigration(nested, "test", "test migration")
		require.NoError(t, err)

		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), "!!!", "")
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("orders by version and ignores other files", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir,
			"000010_late.up.sql", "000010_late.down.sql",
			"000002_add_assets.up.sql", "000002_add_assets.down.sql",
			"README.md", "notes.up.sql", "abc_bad.up.sql",
		)
		require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

		files, err := ListMigrations(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, uint(2), files[0].Version)
		assert.Equal(t, "add_assets", files[0].Name)
		assert.Equal(t, filepath.Join(dir, "000002_add_assets.down.sql"), files[0].DownPath)
		assert.Equal(t, uint(10), files[1].Version)
	})

	t.Run("nonexistent directory is empty", func(t *testing.T) {
		files, err := ListMigrations("/nonexistent/path/to/migrations")
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("repository migrations come in pairs", func(t *testing.T) {
		dir := filepath.Join("..", "..", "..", "migrations")
		files, err := ListMigrations(dir)
		require.NoError(t, err)
		require.NotEmpty(t, files)

		for i, f := range files {
			assert.Equal(t, uint(i+1), f.Version, "versions are contiguous")
			_, err := os.Stat(f.DownPath)
			assert.NoError(t, err, "missing down migration for %s", f.BaseName())
		}
	})
}
