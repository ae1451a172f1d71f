package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "localhost", Port: 5432, User: "olms", Password: "secret", Name: "olms_multiyear", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=olms password=secret dbname=olms_multiyear sslmode=disable", cfg.DSN())
}

func TestLatestVersion(t *testing.T) {
	t.Run("should find the repository migrations", func(t *testing.T) {
		version, err := LatestVersion(filepath.Join("..", "..", "db", "pg"))
		require.NoError(t, err)
		assert.Equal(t, 1, version)
	})

	t.Run("should pick the highest up migration", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"000001_a.up.sql", "000001_a.down.sql", "000012_b.up.sql", "000003_c.up.sql", "notes.txt"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600))
		}
		version, err := LatestVersion(dir)
		require.NoError(t, err)
		assert.Equal(t, 12, version)
	})

	t.Run("should fail on an empty folder", func(t *testing.T) {
		_, err := LatestVersion(t.TempDir())
		assert.Error(t, err)
	})
}

func TestResolveFolder(t *testing.T) {
	ms := NewMigrationService(nil, MigrationConfig{FolderPath: filepath.Join(t.TempDir(), "missing")})
	_, err := ms.resolveFolder()
	assert.Error(t, err)
}

func TestOnConflictUpdate(t *testing.T) {
	ib := NewInsertBuilder()
	ib.InsertInto("match_candidates")
	ib.Cols("pass", "query_id", "reference_id", "combined_score")
	ib.Values("p1", "q1", "r1", 0.9)
	OnConflictUpdate(ib, []string{"pass", "query_id", "reference_id"},
		"combined_score = "+Excluded("combined_score"))

	query, args := ib.Build()
	assert.Equal(t,
		"INSERT INTO match_candidates (pass, query_id, reference_id, combined_score) VALUES ($1, $2, $3, $4) ON CONFLICT (pass, query_id, reference_id) DO UPDATE SET combined_score = EXCLUDED.combined_score",
		query)
	assert.Len(t, args, 4)
}
