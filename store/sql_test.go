package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertStatement(t *testing.T) {
	assert.Equal(t,
		"INSERT INTO records (recorded_at, item_id, fingerprint) VALUES (?, ?, ?)",
		insertStatement(DialectSQLite, "records"))
	assert.Equal(t,
		"INSERT INTO runs (recorded_at, item_id, fingerprint) VALUES ($1, $2, $3)",
		insertStatement(DialectPostgres, "runs"))
}

func TestSQLAppenderSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "records.db")

	a, err := NewSQLAppender(ctx, DialectSQLite, dsn, "")
	require.NoError(t, err)

	require.NoError(t, a.Append(ctx, []string{"1700000000000", "1", "abc"}))
	require.NoError(t, a.Append(ctx, []string{"1700000000001", "2", "def"}))

	n, err := a.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var fingerprint string
	require.NoError(t, a.db.QueryRowContext(ctx,
		"SELECT fingerprint FROM records WHERE item_id = ?", "2").Scan(&fingerprint))
	assert.Equal(t, "def", fingerprint)

	assert.ErrorIs(t, a.Append(ctx, []string{"x"}), ErrFieldCount)
	require.NoError(t, a.Close())

	// reopening keeps existing rows
	again, err := NewSQLAppender(ctx, DialectSQLite, dsn, "records")
	require.NoError(t, err)
	defer again.Close()

	n, err = again.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLAppenderValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewSQLAppender(ctx, DialectSQLite, "", "records")
	assert.Error(t, err)

	_, err = NewSQLAppender(ctx, DialectSQLite, filepath.Join(t.TempDir(), "x.db"), "records; DROP TABLE x")
	assert.Error(t, err)
}
