package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrationsFromFS_Success(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_checks_schema.up.sql": {
			Data: []byte("CREATE TABLE merchant_points (id TEXT PRIMARY KEY);"),
		},
		"sql/migrations/0001_checks_schema.down.sql": {
			Data: []byte("DROP TABLE IF EXISTS merchant_points;"),
		},
		"sql/migrations/0002_printer_indexes.up.sql": {
			Data: []byte("CREATE INDEX idx_test ON merchant_points (id);"),
		},
		"sql/migrations/0002_printer_indexes.down.sql": {
			Data: []byte("DROP INDEX IF EXISTS idx_test;"),
		},
	}

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}

	if migrations[0].Version != 1 || migrations[0].Name != "checks_schema" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].Name != "printer_indexes" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
}

func TestLoadMigrationsFromFS_MissingDown(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_checks_schema.up.sql": {
			Data: []byte("CREATE TABLE checks (id TEXT PRIMARY KEY);"),
		},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "both up and down") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMigrationsFromFS_NameMismatch(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_checks_schema.up.sql": {
			Data: []byte("CREATE TABLE checks (id TEXT PRIMARY KEY);"),
		},
		"sql/migrations/0001_other_name.down.sql": {
			Data: []byte("DROP TABLE IF EXISTS checks;"),
		},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for migration name mismatch")
	}
	if !strings.Contains(err.Error(), "name mismatch") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMigrationsFromFS_InvalidFilename(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/not_a_migration.sql": {
			Data: []byte("SELECT 1;"),
		},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for invalid migration file name")
	}
}

func TestLoadMigrationsFromFS_EmptyFile(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_checks_schema.up.sql": {
			Data: []byte("   \n"),
		},
		"sql/migrations/0001_checks_schema.down.sql": {
			Data: []byte("DROP TABLE IF EXISTS checks;"),
		},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for empty migration file body")
	}
}

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations must load: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	if migrations[0].Version != 1 || migrations[0].Name != "checks_schema" {
		t.Fatalf("unexpected base migration: %+v", migrations[0])
	}
}
