package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/config-service/config"
)

func TestOpenSQLite_MigrateCreatesSchema(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "config.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db, DialectSQLite))
	// Idempotent.
	require.NoError(t, Migrate(context.Background(), db, DialectSQLite))

	for _, table := range []string{"users", "sessions", "config"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenSQLite_ExpiryIsLossless64Bit(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "config.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db, DialectSQLite))

	_, err = db.Exec(`INSERT INTO users (username, password_hash) VALUES ('u', 'h')`)
	require.NoError(t, err)

	const big int64 = 1<<62 + 12345
	_, err = db.Exec(`INSERT INTO sessions (id, user_id, expiry_timestamp) VALUES ('d', 1, ?)`, big)
	require.NoError(t, err)

	var got int64
	require.NoError(t, db.QueryRow(`SELECT expiry_timestamp FROM sessions WHERE id = 'd'`).Scan(&got))
	assert.Equal(t, big, got)
}

func TestMigrate_UnknownDialect(t *testing.T) {
	err := Migrate(context.Background(), nil, "oracle")
	assert.Error(t, err)
}

func TestMigrate_PropagatesGooseError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return errors.New("boom")
	}

	err := Migrate(context.Background(), nil, DialectPostgres)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "postgres", gotDir)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), config.DatabaseConfig{URL: "://not a url"})
	assert.Error(t, err)
}

func TestConnect_StopsRetryingWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Connect(ctx, config.DatabaseConfig{URL: "postgres://u:p@127.0.0.1:1/cfg?connect_timeout=1"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
