package database

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	// ARCHITECTURAL DISCOVERY: Import SQLite driver but only reference in connection string
	_ "github.com/mattn/go-sqlite3"
	dbconfig "meetingbridge/pkg/database"
	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

// Manager implements the DatabaseManager interface
type Manager struct {
	db           *sql.DB
	config       *dbconfig.Config
	writeChannel chan writeOperation // TECHNICAL: Single-writer pattern for SQLite
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex // TECHNICAL: Protect closed status
	retryDelay   time.Duration
}

// writeOperation represents a database write operation
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewManager opens the database, applies pending migrations and starts the
// writer goroutine
func NewManager(config *dbconfig.Config) (*Manager, error) {
	db, err := sql.Open("sqlite3", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// FUNCTIONAL DISCOVERY: Connection pool configuration critical for concurrent reads
	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := dbconfig.ApplySQLiteOptimizations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite optimizations: %w", err)
	}

	if err := dbconfig.NewMigrationManager(db).ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	manager := &Manager{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100), // TECHNICAL: Buffer for write operations prevents blocking
		shutdown:     make(chan struct{}),
		retryDelay:   5 * time.Second,
	}

	// ARCHITECTURAL DISCOVERY: Single-writer goroutine prevents SQLite write contention
	// and makes every conditional write atomic with respect to the others
	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// writeLoop processes all write operations in a single goroutine
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			// FUNCTIONAL DISCOVERY: Retry exactly once after a delay; every
			// operation is written to be safe to repeat
			err := op.operation(m.db)
			if err != nil {
				log.Printf("Database write failed, retrying in %v: %v", m.retryDelay, err)
				time.Sleep(m.retryDelay)
				err = op.operation(m.db)
				if err != nil {
					log.Printf("Database write failed after retry: %v", err)
				}
			}
			op.result <- err

		case <-m.shutdown:
			log.Println("Database write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion
func (m *Manager) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("database manager is closed")
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeChannel <- writeOperation{operation: operation, result: result}:
		select {
		case err := <-result:
			return err
		case <-m.shutdown:
			return fmt.Errorf("database manager is shutting down")
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("write operation timeout")
	case <-m.shutdown:
		return fmt.Errorf("database manager is shutting down")
	}
}

// Collection returns the key-value store for a named collection
func (m *Manager) Collection(name string) interfaces.KeyValueStore {
	return &collection{manager: m, name: name}
}

// collection is one namespace of the key_value table
type collection struct {
	manager *Manager
	name    string
}

func (c *collection) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.manager.db.QueryRowContext(ctx,
		`SELECT value FROM key_value WHERE collection = ? AND name = ?`,
		c.name, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s/%s: %w", c.name, key, err)
	}
	return value, true, nil
}

func (c *collection) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := c.manager.db.QueryRowContext(ctx,
		`SELECT 1 FROM key_value WHERE collection = ? AND name = ?`,
		c.name, key,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to probe %s/%s: %w", c.name, key, err)
	}
	return true, nil
}

func (c *collection) Set(ctx context.Context, key string, value []byte) error {
	return c.manager.executeWrite(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO key_value (collection, name, value, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (collection, name)
			DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, c.name, key, value)
		if err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", c.name, key, err)
		}
		return nil
	})
}

func (c *collection) Delete(ctx context.Context, key string) (bool, error) {
	var deleted bool
	err := c.manager.executeWrite(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`DELETE FROM key_value WHERE collection = ? AND name = ?`,
			c.name, key,
		)
		if err != nil {
			return fmt.Errorf("failed to delete %s/%s: %w", c.name, key, err)
		}
		deleted, err = affectedOne(res)
		return err
	})
	return deleted, err
}

func (c *collection) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	var inserted bool
	err := c.manager.executeWrite(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO key_value (collection, name, value)
			VALUES (?, ?, ?)
			ON CONFLICT (collection, name) DO NOTHING
		`, c.name, key, value)
		if err != nil {
			return fmt.Errorf("failed to insert %s/%s: %w", c.name, key, err)
		}
		inserted, err = affectedOne(res)
		return err
	})
	return inserted, err
}

func (c *collection) CompareAndSwap(ctx context.Context, key string, old, new []byte) (bool, error) {
	var swapped bool
	err := c.manager.executeWrite(ctx, func(db *sql.DB) error {
		// TECHNICAL DISCOVERY: Read and write both run on the writer
		// goroutine, so no other write can land between them
		var current []byte
		err := db.QueryRowContext(ctx,
			`SELECT value FROM key_value WHERE collection = ? AND name = ?`,
			c.name, key,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			swapped = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s/%s: %w", c.name, key, err)
		}
		if !bytes.Equal(current, old) {
			swapped = false
			return nil
		}

		_, err = db.ExecContext(ctx, `
			UPDATE key_value SET value = ?, updated_at = CURRENT_TIMESTAMP
			WHERE collection = ? AND name = ?
		`, new, c.name, key)
		if err != nil {
			return fmt.Errorf("failed to swap %s/%s: %w", c.name, key, err)
		}
		swapped = true
		return nil
	})
	return swapped, err
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// GetContentItem retrieves a content item by ID
func (m *Manager) GetContentItem(ctx context.Context, id string) (*types.ContentItem, error) {
	// ARCHITECTURAL DISCOVERY: Read operations can be concurrent - no need for writeChannel
	row := m.db.QueryRowContext(ctx,
		`SELECT id, type, title, owner_id FROM content_items WHERE id = ?`, id)

	var item types.ContentItem
	err := row.Scan(&item.ID, &item.Type, &item.Title, &item.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to query content item: %w", err)
	}
	return &item, nil
}

// UpsertContentItem inserts or replaces a content item
func (m *Manager) UpsertContentItem(ctx context.Context, item *types.ContentItem) error {
	return m.executeWrite(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO content_items (id, type, title, owner_id, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (id) DO UPDATE SET
				type = excluded.type,
				title = excluded.title,
				owner_id = excluded.owner_id,
				updated_at = excluded.updated_at
		`, item.ID, item.Type, item.Title, item.OwnerID)
		if err != nil {
			return fmt.Errorf("failed to upsert content item: %w", err)
		}
		return nil
	})
}

// DeleteContentItem removes a content item
func (m *Manager) DeleteContentItem(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := m.executeWrite(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM content_items WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete content item: %w", err)
		}
		deleted, err = affectedOne(res)
		return err
	})
	return deleted, err
}

// HealthCheck validates database connectivity
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var count int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM key_value").Scan(&count); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}

	return nil
}

// GetDB returns the underlying database connection for schema checks
func (m *Manager) GetDB() *sql.DB {
	return m.db
}

// Close shuts down the database manager
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	// ARCHITECTURAL DISCOVERY: Graceful shutdown requires careful goroutine coordination
	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
