package database

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"guestbook/internal/config"
)

// column is an additive column that older tables may be missing.
type column struct {
	name       string
	definition string
}

// additiveColumns are added with ALTER TABLE when absent. Only columns with
// a default may appear here.
var additiveColumns = []column{
	{name: "likes", definition: "INTEGER NOT NULL DEFAULT 0"},
	{name: "dislikes", definition: "INTEGER NOT NULL DEFAULT 0"},
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		likes INTEGER NOT NULL DEFAULT 0,
		dislikes INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages (created_at)`,
}

var mysqlSchema = []string{`
CREATE TABLE IF NOT EXISTS messages (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name TEXT NOT NULL,
	message TEXT NOT NULL,
	created_at DATETIME(6) NOT NULL,
	likes INT NOT NULL DEFAULT 0,
	dislikes INT NOT NULL DEFAULT 0,
	INDEX idx_messages_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// Init opens the configured database, verifies the connection and brings
// the messages table up to date.
func Init(cfg config.Config) (*sql.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db, cfg.DBDriver); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("✅ Database connection established (%s)", cfg.DBDriver)
	return db, nil
}

// Open opens a connection pool for the configured driver without touching
// the schema.
func Open(cfg config.Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err = openSQLite(cfg.DatabaseFile)
	case config.DriverMySQL:
		db, err = openMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_time_format", "sqlite")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite は書き込みが1本なので、接続を1つにして書き込みをキューに並べる
	db.SetMaxOpenConns(1)
	return db, nil
}

func openMySQL(cfg config.Config) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = cfg.DBHost + ":" + cfg.DBPort
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	// 値が変わらない UPDATE も1行として数える（like→like の投票で必要）
	mc.ClientFoundRows = true

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Migrate creates the messages table when missing and adds any additive
// column an older table lacks. It is safe to call on every start.
func Migrate(db *sql.DB, driver string) error {
	schema := sqliteSchema
	if driver == config.DriverMySQL {
		schema = mysqlSchema
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	for _, col := range additiveColumns {
		if hasColumn(db, col.name) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE messages ADD COLUMN %s %s", col.name, col.definition)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col.name, err)
		}
		log.Printf("✅ Added column messages.%s", col.name)
	}

	return nil
}

func hasColumn(db *sql.DB, name string) bool {
	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM messages LIMIT 0", name))
	if err != nil {
		return false
	}
	rows.Close()
	return true
}
