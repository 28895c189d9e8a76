package persist

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	names, err := fs.Glob(Migrations(), "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "00001_object_journal.sql", names[0])

	body, err := fs.ReadFile(Migrations(), names[0])
	require.NoError(t, err)
	sql := string(body)
	assert.True(t, strings.Contains(sql, "-- +goose Up"))
	assert.True(t, strings.Contains(sql, "-- +goose Down"))
	assert.Contains(t, sql, "CREATE TABLE object_journal")
}
