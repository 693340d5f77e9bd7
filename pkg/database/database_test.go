package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
	})
	return db
}

// Functional Validation Tests - Config

func TestConfig_DefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig should not return nil")
	}
	if config.DatabasePath != "./data/meetingbridge.db" {
		t.Errorf("Expected DatabasePath './data/meetingbridge.db', got %s", config.DatabasePath)
	}
	if config.MaxConnections != 10 {
		t.Errorf("Expected MaxConnections 10, got %d", config.MaxConnections)
	}
	if config.ConnMaxLifetime != time.Hour {
		t.Errorf("Expected ConnMaxLifetime 1 hour, got %v", config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime != time.Minute*10 {
		t.Errorf("Expected ConnMaxIdleTime 10 minutes, got %v", config.ConnMaxIdleTime)
	}
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "empty database path", mutate: func(c *Config) { c.DatabasePath = "" }, wantErr: true},
		{name: "zero max connections", mutate: func(c *Config) { c.MaxConnections = 0 }, wantErr: true},
		{name: "zero lifetime", mutate: func(c *Config) { c.ConnMaxLifetime = 0 }, wantErr: true},
		{name: "negative idle time", mutate: func(c *Config) { c.ConnMaxIdleTime = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	config := &Config{DatabasePath: "/tmp/x.db"}
	if got := config.DSN(); got != "/tmp/x.db?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on" {
		t.Errorf("Unexpected DSN %q", got)
	}
}

// Functional Validation Tests - Migration System

func TestMigrationManager_AppliesEmbeddedSchema(t *testing.T) {
	db := openTestDB(t)

	mgr := NewMigrationManager(db)
	if err := mgr.ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations should not fail: %v", err)
	}
	if err := mgr.ValidateSchema(); err != nil {
		t.Errorf("ValidateSchema should pass after migrations: %v", err)
	}

	// Second run is a no-op
	if err := mgr.ApplyMigrations(); err != nil {
		t.Errorf("Re-applying migrations should not fail: %v", err)
	}

	var applied int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("Failed to count applied migrations: %v", err)
	}
	if applied != 1 {
		t.Errorf("Expected 1 applied migration, got %d", applied)
	}
}

func TestMigrationManager_OrdersByVersion(t *testing.T) {
	db := openTestDB(t)

	fsys := fstest.MapFS{
		"m/002_add_column.sql": {Data: []byte(`ALTER TABLE test_table ADD COLUMN note TEXT;`)},
		"m/001_create.sql":     {Data: []byte(`CREATE TABLE test_table (id TEXT PRIMARY KEY);`)},
		"m/README.md":          {Data: []byte("not a migration")},
		"m/003_add_index.sql":  {Data: []byte(`CREATE INDEX idx_test_note ON test_table(note);`)},
	}

	mgr := NewMigrationManagerFS(db, fsys, "m")
	if err := mgr.ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations should not fail: %v", err)
	}

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_test_note'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to check index: %v", err)
	}
	if count != 1 {
		t.Error("Migrations should have been applied in version order")
	}
}

func TestMigrationManager_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)

	fsys := fstest.MapFS{
		"m/001_broken.sql": {Data: []byte(`CREATE TABLE ok_table (id TEXT); THIS IS NOT SQL;`)},
	}

	mgr := NewMigrationManagerFS(db, fsys, "m")
	if err := mgr.ApplyMigrations(); err == nil {
		t.Fatal("Expected broken migration to fail")
	}

	var applied int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("Failed to count applied migrations: %v", err)
	}
	if applied != 0 {
		t.Error("Failed migration must not be recorded")
	}
}

func TestMigrationManager_ValidateSchemaFailsOnEmptyDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := NewMigrationManager(db).ValidateSchema(); err == nil {
		t.Error("ValidateSchema should fail on empty database")
	}
}

// Technical Validation Tests - Schema Structure

func TestSchemaValidator_FullSchema(t *testing.T) {
	db := openTestDB(t)
	validator := NewSchemaValidator(db)

	if err := validator.ValidateTablesExist(); err == nil {
		t.Error("ValidateTablesExist should fail on empty database")
	}

	if err := NewMigrationManager(db).ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}

	if err := validator.ValidateTablesExist(); err != nil {
		t.Errorf("ValidateTablesExist: %v", err)
	}
	if err := validator.ValidateTableStructure(); err != nil {
		t.Errorf("ValidateTableStructure: %v", err)
	}
	if err := validator.ValidateIndexes(); err != nil {
		t.Errorf("ValidateIndexes: %v", err)
	}
	if err := validator.ValidateConstraints(); err != nil {
		t.Errorf("ValidateConstraints: %v", err)
	}

	// Constraint probes leave no rows behind
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM key_value").Scan(&count); err != nil {
		t.Fatalf("Failed to count key_value rows: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no probe rows, found %d", count)
	}
}

func TestSchemaValidator_DetectsWrongColumnType(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`
		CREATE TABLE key_value (collection TEXT, name TEXT, value TEXT, updated_at DATETIME);
		CREATE TABLE content_items (id TEXT, type TEXT, title TEXT, owner_id TEXT, updated_at DATETIME);
	`)
	if err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}

	if err := NewSchemaValidator(db).ValidateTableStructure(); err == nil {
		t.Error("Expected BLOB/TEXT mismatch on key_value.value to be reported")
	}
}

// Performance Validation Tests

func TestDatabase_SQLiteOptimizations(t *testing.T) {
	db := openTestDB(t)

	if err := ApplySQLiteOptimizations(db); err != nil {
		t.Errorf("Failed to apply SQLite optimizations: %v", err)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to check journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected WAL journal mode, got %s", journalMode)
	}
}
