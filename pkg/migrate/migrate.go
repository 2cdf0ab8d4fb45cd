package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
)

const (
	// DefaultDir is where new migrations are written during development.
	DefaultDir = "pkg/migrate/migrations"
	dialect    = "postgres"
	embedRoot  = "migrations"
)

//go:embed migrations/*.sql
var embedded embed.FS

// goose keeps dialect and base FS as package globals.
var gooseMu sync.Mutex

// Source says where migrations are read from: the files compiled into the
// binary, or a directory on disk.
type Source struct {
	fsys fs.FS
	dir  string
}

// Embedded is the migration set shipped with the binary.
func Embedded() Source {
	return Source{fsys: embedded, dir: embedRoot}
}

// Dir reads migrations from disk. An empty dir means Embedded.
func Dir(dir string) Source {
	if dir == "" {
		return Embedded()
	}
	return Source{fsys: os.DirFS(dir), dir: "."}
}

// Run executes up, down or status against db.
func Run(ctx context.Context, db *sql.DB, src Source, command string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	return withGoose(src, func() error {
		var err error
		switch command {
		case "up":
			err = goose.UpContext(ctx, db, src.dir)
		case "down":
			err = goose.DownContext(ctx, db, src.dir)
		case "status":
			err = goose.StatusContext(ctx, db, src.dir)
		default:
			return fmt.Errorf("unsupported migrate command %q", command)
		}
		if err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	})
}

// MigrateToVersion moves the schema up or down to targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, src Source, targetVersion string) error {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	return withGoose(src, func() error {
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("get db version: %w", err)
		}
		switch {
		case current < target:
			err = goose.UpToContext(ctx, db, src.dir, target)
		case current > target:
			err = goose.DownToContext(ctx, db, src.dir, target)
		}
		if err != nil {
			return fmt.Errorf("migrate %d -> %d: %w", current, target, err)
		}
		return nil
	})
}

func withGoose(src Source, fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(src.fsys)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn()
}
