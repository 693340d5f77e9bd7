package database

import (
	"database/sql"
	"fmt"
)

// SchemaValidator provides database schema validation functionality
// ARCHITECTURAL DISCOVERY: Separate validation component enables deployment
// verification (the doctor command) without coupling to the migration system
type SchemaValidator struct {
	db *sql.DB
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator(db *sql.DB) *SchemaValidator {
	return &SchemaValidator{db: db}
}

// ValidateTablesExist verifies that all required tables exist
func (v *SchemaValidator) ValidateTablesExist() error {
	requiredTables := map[string]string{
		"key_value":         "Session record storage",
		"content_items":     "Content item catalog",
		"schema_migrations": "Migration tracking",
	}

	for table, description := range requiredTables {
		exists, err := v.objectExists("table", table)
		if err != nil {
			return fmt.Errorf("error checking table %s (%s): %w", table, description, err)
		}
		if !exists {
			return fmt.Errorf("required table %s (%s) does not exist", table, description)
		}
	}

	return nil
}

// ValidateTableStructure verifies table column structure matches expectations
func (v *SchemaValidator) ValidateTableStructure() error {
	keyValueColumns := map[string]string{
		"collection": "TEXT",
		"name":       "TEXT",
		"value":      "BLOB",
		"updated_at": "DATETIME",
	}
	if err := v.validateColumns("key_value", keyValueColumns); err != nil {
		return fmt.Errorf("key_value table structure invalid: %w", err)
	}

	contentColumns := map[string]string{
		"id":         "TEXT",
		"type":       "TEXT",
		"title":      "TEXT",
		"owner_id":   "TEXT",
		"updated_at": "DATETIME",
	}
	if err := v.validateColumns("content_items", contentColumns); err != nil {
		return fmt.Errorf("content_items table structure invalid: %w", err)
	}

	return nil
}

// ValidateIndexes verifies that all lookup indexes exist
func (v *SchemaValidator) ValidateIndexes() error {
	requiredIndexes := map[string]string{
		"idx_key_value_updated":   "Collection scans by age",
		"idx_content_items_type":  "Content lookups by type",
		"idx_content_items_owner": "Ownership queries",
	}

	for index, purpose := range requiredIndexes {
		exists, err := v.objectExists("index", index)
		if err != nil {
			return fmt.Errorf("error checking index %s (%s): %w", index, purpose, err)
		}
		if !exists {
			return fmt.Errorf("required index %s (%s) does not exist", index, purpose)
		}
	}

	return nil
}

// ValidateConstraints verifies that database constraints are enforced
// ARCHITECTURAL DISCOVERY: Conditional session writes depend on the
// (collection, name) primary key rejecting duplicates
func (v *SchemaValidator) ValidateConstraints() error {
	tx, err := v.db.Begin()
	if err != nil {
		return err
	}
	// Probe rows never survive the check
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO key_value (collection, name, value) VALUES ('__probe', 'k', x'00')`)
	if err != nil {
		return fmt.Errorf("failed to insert probe row: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO key_value (collection, name, value) VALUES ('__probe', 'k', x'01')`)
	if err == nil {
		return fmt.Errorf("primary key constraint not enforced: key_value(collection, name)")
	}

	_, err = tx.Exec(`INSERT INTO content_items (id, type, title) VALUES ('__probe', '', 'Probe')`)
	if err == nil {
		return fmt.Errorf("check constraint not enforced: content_items.type")
	}

	return nil
}

// objectExists checks sqlite_master for a table or index
func (v *SchemaValidator) objectExists(kind, name string) (bool, error) {
	var count int
	err := v.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type=? AND name=?",
		kind, name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// validateColumns checks that a table has the expected columns with correct types
func (v *SchemaValidator) validateColumns(tableName string, expectedColumns map[string]string) error {
	rows, err := v.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	foundColumns := make(map[string]string)
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var defaultValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return err
		}
		foundColumns[name] = dataType
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for expectedCol, expectedType := range expectedColumns {
		foundType, exists := foundColumns[expectedCol]
		if !exists {
			return fmt.Errorf("column %s not found", expectedCol)
		}
		if foundType != expectedType {
			return fmt.Errorf("column %s has type %s, expected %s", expectedCol, foundType, expectedType)
		}
	}

	return nil
}
