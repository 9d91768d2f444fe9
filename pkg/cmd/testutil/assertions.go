package testutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireTableExists asserts that a table exists in a SQLite database
func RequireTableExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()
	require.True(t, tableExists(t, db, table), "table %s should exist", table)
}

// RequireTableMissing asserts that a table does not exist in a SQLite database
func RequireTableMissing(t *testing.T, db *sql.DB, table string) {
	t.Helper()
	require.False(t, tableExists(t, db, table), "table %s should not exist", table)
}

// RequireColumnExists asserts that table has the given column
func RequireColumnExists(t *testing.T, db *sql.DB, table, column string) {
	t.Helper()

	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	require.NoError(t, err)
	require.Equal(t, 1, n, "column %s.%s should exist", table, column)
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()

	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	require.NoError(t, err)
	return n == 1
}
