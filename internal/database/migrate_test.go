package database

import (
	"context"
	"testing"
	"testing/fstest"

	"warbler/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func versions(logs []MigrationLog) []int {
	out := make([]int, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Version)
	}
	return out
}

func TestLoadMigrations_DialectsInSync(t *testing.T) {
	pg, err := LoadMigrations("postgres")
	require.NoError(t, err)
	lite, err := LoadMigrations("sqlite")
	require.NoError(t, err)

	require.NotEmpty(t, pg)
	require.Len(t, lite, len(pg))
	for i := range pg {
		assert.Equal(t, pg[i].Version, lite[i].Version)
		assert.Equal(t, pg[i].Name, lite[i].Name)
		assert.NotEmpty(t, pg[i].DownScript)
	}
	assert.Equal(t, "000001_init", pg[0].String())
}

func TestLoadMigrations_UnknownDialect(t *testing.T) {
	_, err := LoadMigrations("mysql")
	assert.Error(t, err)
}

func TestReadMigrations(t *testing.T) {
	t.Run("orders and ignores misnamed files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/000010_later.up.sql":   {Data: []byte("SELECT 10;")},
			"m/000010_later.down.sql": {Data: []byte("SELECT -10;")},
			"m/000002_first.up.sql":   {Data: []byte("SELECT 2;")},
			"m/000002_first.down.sql": {Data: []byte("SELECT -2;")},
			"m/broken.up.sql":         {Data: []byte("SELECT 0;")},
			"m/README.md":             {Data: []byte("notes")},
		}
		got, err := readMigrations(fsys, "m")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 2, got[0].Version)
		assert.Equal(t, "later", got[1].Name)
	})

	t.Run("missing down script", func(t *testing.T) {
		fsys := fstest.MapFS{"m/000001_init.up.sql": {Data: []byte("SELECT 1;")}}
		_, err := readMigrations(fsys, "m")
		assert.Error(t, err)
	})

	t.Run("duplicate version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/000001_a.up.sql":   {Data: []byte("SELECT 1;")},
			"m/000001_a.down.sql": {Data: []byte("SELECT 1;")},
			"m/000001_b.up.sql":   {Data: []byte("SELECT 1;")},
			"m/000001_b.down.sql": {Data: []byte("SELECT 1;")},
		}
		_, err := readMigrations(fsys, "m")
		assert.ErrorContains(t, err, "duplicate")
	})
}

func TestMigrator_UpAndDown(t *testing.T) {
	db := newSQLite(t)
	ctx := context.Background()
	m, err := NewMigrator(db)
	require.NoError(t, err)

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	applied, err = m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions(applied))
	assert.Len(t, applied[0].Checksum, 64)

	for _, table := range []string{"users", "messages", "follows", "likes"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	require.NoError(t, m.Down(ctx, 2))
	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	assert.Error(t, m.Down(ctx, 2), "already rolled back")
	assert.Error(t, m.Down(ctx, 99), "unknown version")
}

func TestMigrator_RefusesDriftedHistory(t *testing.T) {
	db := newSQLite(t)
	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, db))

	require.NoError(t, db.Model(&MigrationLog{}).Where("version = ?", 1).Update("checksum", "stale").Error)
	require.NoError(t, db.Create(&MigrationLog{Version: 7, Name: "future"}).Error)

	err := RunMigrations(ctx, db)
	require.ErrorIs(t, err, errSchemaDrift)
	assert.Contains(t, err.Error(), "000001_init was edited")
	assert.Contains(t, err.Error(), "000007 is unknown")
}

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		mode     string
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid development", "development", "", true, true, false},
		{"hybrid production", "production", "hybrid", true, false, false},
		{"hybrid staging", "staging", "HYBRID", true, false, false},
		{"sql only", "development", "sql", true, false, false},
		{"auto test", "test", "auto", false, true, false},
		{"auto production refused", "production", "auto", false, false, true},
		{"unknown mode", "development", "magic", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanSchema(&config.Config{Env: tt.env, DBSchemaMode: tt.mode})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.SQL)
			assert.Equal(t, tt.wantAuto, plan.AutoORM)
		})
	}
}

func TestApplySchemaAndStatus(t *testing.T) {
	db := newSQLite(t)
	ctx := context.Background()
	cfg := &config.Config{Env: "test", DBSchemaMode: SchemaModeSQL}

	status, err := GetSchemaStatus(ctx, db, cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Dialect)
	assert.Len(t, status.Pending, 2)

	require.NoError(t, ApplySchema(ctx, db, cfg))

	status, err = GetSchemaStatus(ctx, db, cfg)
	require.NoError(t, err)
	assert.Empty(t, status.Pending)
	assert.Equal(t, []int{1, 2}, versions(status.Applied))
}

func TestApplySchema_AutoMode(t *testing.T) {
	db := newSQLite(t)
	cfg := &config.Config{Env: "test", DBSchemaMode: SchemaModeAuto}

	require.NoError(t, ApplySchema(context.Background(), db, cfg))
	assert.True(t, db.Migrator().HasTable("follows"))
	assert.False(t, db.Migrator().HasTable("migration_logs"))
}
