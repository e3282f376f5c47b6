package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/rate-my-mr/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{Host: "db", Port: 5432, Username: "rmm", Password: "pw", Database: "ratings"})
	assert.Equal(t, "host=db port=5432 user=rmm password=pw dbname=ratings sslmode=disable", dsn)
}

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs)
}
