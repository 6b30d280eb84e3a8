package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"inspectsync/logging"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database. Useful in tests.
const MemoryPath = ":memory:"

// Config holds database configuration
type Config struct {
	Path            string        `env:"INSPECT_SESSION_DB" default:"~/.inspectsync/session.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" default:"4"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" default:"1h"`
	BusyTimeoutMs   int           `env:"DB_BUSY_TIMEOUT_MS" default:"5000"`
	EnableWAL       bool          `env:"DB_ENABLE_WAL" default:"true"`
}

// DefaultConfig returns the default configuration for the session database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Hour,
		BusyTimeoutMs:   5000,
		EnableWAL:       true,
	}
}

// Database wraps the SQL connections of the local session cache. Writes go
// through a single serialized connection so concurrent CLI processes and
// goroutines never interleave partial updates.
type Database struct {
	readDB  *sql.DB // Connection pool for reads
	writeDB *sql.DB // Serialized connection for writes
	config  Config
	logger  *logging.Logger
}

// New opens the database, applies pending migrations and returns it ready for use.
func New(config Config, logger *logging.Logger) (*Database, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if config.Path == "" {
		return nil, errors.New("database path is required")
	}

	memory := config.Path == MemoryPath
	dbExists := !memory && checkDatabaseExists(config.Path)
	if !memory && !dbExists {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	logger.Database("Opening database connections",
		"path", config.Path,
		"exists", dbExists,
		"memory", memory)

	dsn := buildDSN(config)

	writeDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1) // Single connection forces serialization
	writeDB.SetMaxIdleConns(1)
	if !memory {
		// Recycling the only connection would drop an in-memory database.
		writeDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	// An in-memory database exists only on its one connection, so reads share it.
	readDB := writeDB
	if !memory {
		readDB, err = sql.Open("sqlite", dsn)
		if err != nil {
			writeDB.Close()
			return nil, fmt.Errorf("failed to open read database: %w", err)
		}
		maxOpen := config.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 4
		}
		readDB.SetMaxOpenConns(maxOpen)
		readDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	database := &Database{
		readDB:  readDB,
		writeDB: writeDB,
		config:  config,
		logger:  logger,
	}

	if err := database.initialize(); err != nil {
		database.closeConns()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.runMigrations(); err != nil {
		database.closeConns()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	logger.Database("Database initialized successfully",
		"path", config.Path,
		"existed", dbExists,
		"wal_mode", config.EnableWAL && !memory)

	return database, nil
}

// buildDSN constructs the SQLite data source name. Pragmas are applied by the
// driver on every new connection.
func buildDSN(config Config) string {
	busy := config.BusyTimeoutMs
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", config.Path, busy)
	if config.Path != MemoryPath && config.EnableWAL {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	dsn += "&_pragma=synchronous(NORMAL)"
	return dsn
}

// initialize verifies both connections respond and reports the journal mode.
func (d *Database) initialize() error {
	if err := d.writeDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping write database: %w", err)
	}
	if d.readDB != d.writeDB {
		if err := d.readDB.Ping(); err != nil {
			return fmt.Errorf("failed to ping read database: %w", err)
		}
	}

	var journalMode string
	if err := d.writeDB.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to read journal mode: %w", err)
	}
	if d.config.EnableWAL && d.config.Path != MemoryPath && journalMode != "wal" {
		d.logger.Warn("WAL mode not enabled", "journal_mode", journalMode)
	}
	d.logger.Database("Connections ready", "journal_mode", journalMode)

	return nil
}

// ReadDB returns the read database connection
func (d *Database) ReadDB() *sql.DB {
	return d.readDB
}

// WriteDB returns the write database connection
func (d *Database) WriteDB() *sql.DB {
	return d.writeDB
}

// Close closes both database connections
func (d *Database) Close() error {
	d.logger.Database("Closing database connections")

	if d.config.EnableWAL && d.config.Path != MemoryPath {
		if _, err := d.writeDB.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
			d.logger.Warn("failed to checkpoint WAL", "error", err)
		}
	}
	return d.closeConns()
}

func (d *Database) closeConns() error {
	var errs []error
	if d.readDB != d.writeDB {
		if err := d.readDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("read connection: %w", err))
		}
	}
	if err := d.writeDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("write connection: %w", err))
	}
	return errors.Join(errs...)
}

// Health pings both connections and returns pool statistics.
func (d *Database) Health(ctx context.Context) (map[string]any, error) {
	if err := d.readDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("read database ping failed: %w", err)
	}
	if err := d.writeDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("write database ping failed: %w", err)
	}

	readStats := d.readDB.Stats()
	writeStats := d.writeDB.Stats()

	return map[string]any{
		"read_pool": map[string]any{
			"open_connections": readStats.OpenConnections,
			"in_use":           readStats.InUse,
			"idle":             readStats.Idle,
		},
		"write_pool": map[string]any{
			"open_connections": writeStats.OpenConnections,
			"in_use":           writeStats.InUse,
			"idle":             writeStats.Idle,
		},
	}, nil
}

// WithTx executes fn within a write transaction.
func (d *Database) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			d.logger.Error("Failed to rollback transaction", "error", rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// checkDatabaseExists reports whether a non-empty database file exists at path.
func checkDatabaseExists(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	stat, err := os.Stat(abs)
	return err == nil && stat.Size() > 0
}
