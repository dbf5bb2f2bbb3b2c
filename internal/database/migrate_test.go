package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	body := `-- comment
CREATE TABLE a (
    id INT
);

CREATE TABLE b (id INT);
INSERT INTO b VALUES (1)`
	stmts := splitStatements(body)
	require.Len(t, stmts, 3)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.False(t, strings.HasSuffix(stmts[0], ";"))
	assert.Equal(t, "CREATE TABLE b (id INT)", stmts[1])
	assert.Equal(t, "INSERT INTO b VALUES (1)", stmts[2])
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := migrationFiles.ReadFile("migrations/" + entries[0].Name())
	require.NoError(t, err)
	stmts := splitStatements(string(body))
	assert.Len(t, stmts, 7)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE"), s)
	}
}

func TestDSN(t *testing.T) {
	dsn := Options{User: "app", Pass: "secret", Host: "db", Port: "3306", Name: "venuex"}.DSN()
	assert.Contains(t, dsn, "app:secret@tcp(db:3306)/venuex?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}
