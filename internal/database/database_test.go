package database

import (
	"context"
	"testing"

	"warbler/internal/config"
	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{"Postgres URL", &config.Config{DatabaseURL: "postgresql:///warbler"}, "postgres"},
		{"SQLite URL", &config.Config{DatabaseURL: "sqlite://warbler.db"}, "sqlite"},
		{"Discrete settings", &config.Config{DBHost: "localhost", DBPort: "5432"}, "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dialector(tt.cfg).Name())
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_foreign_keys=on", sqliteDSN(""))
	assert.Equal(t, "warbler.db?_foreign_keys=on", sqliteDSN("warbler.db"))
	assert.Equal(t, "warbler.db?cache=shared&_foreign_keys=on", sqliteDSN("warbler.db?cache=shared"))
	assert.Equal(t, "x.db?_foreign_keys=off", sqliteDSN("x.db?_foreign_keys=off"))
}

func TestConfigurePool_SQLiteSingleConnection(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	assert.NoError(t, Ping(context.Background(), db))
}

func TestPersistentModels_IncludesSocialGraph(t *testing.T) {
	var haveFollow, haveLike bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.Follow:
			haveFollow = true
		case *models.Like:
			haveLike = true
		}
	}
	assert.True(t, haveFollow, "PersistentModels should include Follow")
	assert.True(t, haveLike, "PersistentModels should include Like")
}
