package stores

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"                      // SQLite driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver

	"github.com/influence-engine/funnel-go/config"
)

// DB wraps the database connection shared by the SQL repositories.
type DB struct {
	Conn     *sql.DB
	UseTurso bool
}

// NewDB opens the durable store. Turso is tried first when credentials are
// configured; otherwise a local SQLite file is used.
func NewDB() (*DB, error) {
	var conn *sql.DB
	var err error
	var useTurso bool

	dbURL := config.TursoDatabaseURL()
	authToken := config.TursoAuthToken()
	if dbURL != "" && authToken != "" {
		connStr := dbURL + "?authToken=" + authToken
		conn, err = sql.Open("libsql", connStr)
		if err == nil {
			if pingErr := conn.Ping(); pingErr == nil {
				useTurso = true
			} else {
				conn.Close()
				conn = nil
			}
		}
	}

	if conn == nil {
		dbDir := filepath.Dir(config.SQLitePath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		conn, err = sql.Open("sqlite3", config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}

		if err := conn.Ping(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("SQLite database ping failed: %w", err)
		}
	}

	conn.SetMaxOpenConns(config.DBMaxOpenConns)
	conn.SetMaxIdleConns(config.DBMaxIdleConns)

	db := &DB{Conn: conn, UseTurso: useTurso}
	if err := db.ensureSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	if useTurso {
		log.Println("Connected to Turso database")
	} else {
		log.Printf("Connected to local SQLite database at %s", config.SQLitePath)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.Conn != nil {
		return db.Conn.Close()
	}
	return nil
}

func (db *DB) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS purchases (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			external_session_id TEXT NOT NULL UNIQUE,
			products TEXT NOT NULL DEFAULT '',
			total REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			completed_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_events (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload TEXT NOT NULL,
			processed INTEGER NOT NULL DEFAULT 0,
			received_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			firstname TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL UNIQUE,
			codeword_hash TEXT NOT NULL DEFAULT '',
			nda_signed INTEGER NOT NULL DEFAULT 0,
			owns_book INTEGER NOT NULL DEFAULT 0,
			owns_toolkit INTEGER NOT NULL DEFAULT 0,
			ie_member INTEGER NOT NULL DEFAULT 0,
			paid_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
	}
	return nil
}
