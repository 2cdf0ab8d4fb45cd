package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

func TestShippedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))

	src := Embedded()
	sub, err := fs.Sub(src.fsys, src.dir)
	require.NoError(t, err)
	require.NoError(t, ValidateFS(sub))
	names, err := fs.Glob(sub, "*.sql")
	require.NoError(t, err)
	assert.Len(t, names, 6)
}

func TestDirFallsBackToEmbedded(t *testing.T) {
	assert.Equal(t, embedRoot, Dir("").dir)
	assert.Equal(t, ".", Dir("/tmp/migrations").dir)
}

func TestRunRequiresDB(t *testing.T) {
	assert.Error(t, Run(context.Background(), nil, Embedded(), "up"))
}

func TestMigrationsCoverEveryTable(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)

	var all strings.Builder
	for _, f := range files {
		b, err := os.ReadFile(f)
		require.NoError(t, err)
		all.Write(b)
	}
	for _, table := range []string{"users", "categories", "products", "articles", "reviews", "orders", "settings", "outbox_events", "outbox_dlq"} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
	assert.Contains(t, all.String(), "CHECK (status IN ('pending', 'confirmed', 'shipping', 'delivered', 'cancelled'))")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Order Notes!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20250314093000_add_order_notes.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "Add Order Notes!", now)
	assert.Error(t, err, "same version twice must fail")

	_, err = CreateSQLMigration(dir, "!!!", now)
	assert.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101000000_x.sql"), []byte("-- +goose Up\n"), 0o644))
	assert.Error(t, ValidateDir(dir))

	assert.Error(t, ValidateDir(""))
}

func TestMaybeRunDevBootstrapsSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	client := db.NewFromGorm(conn)

	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true, UseSQLite: true},
	}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), client))

	for _, table := range []string{"orders", "settings", "products", "outbox_events", "outbox_dlq"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvProd},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	assert.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), nil))
}
