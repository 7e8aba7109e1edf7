package persistence

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesEmbeddedAndOrdered(t *testing.T) {
	names, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, names, "schema migrations must ship inside the binary")

	assert.True(t, sort.StringsAreSorted(names), "migrations apply in lexical order")
	assert.Contains(t, names, "0001_init.sql")
}

func TestMigrationContentsReadable(t *testing.T) {
	content, err := migrationsFS.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS users")
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS shifts")
}
