package config

import (
	"os"
	"strings"
)

// Supported storage drivers
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config holds application configuration
type Config struct {
	// ストレージ設定
	DBDriver     string
	DatabaseFile string

	// MariaDB接続設定
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// サーバー設定
	ServerPort string
	Env        string
	StaticDir  string

	// 削除用の管理者トークン
	AdminToken string

	// CORS設定
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() Config {
	dbDriver := strings.ToLower(os.Getenv("DB_DRIVER"))
	if dbDriver == "" {
		dbDriver = DriverSQLite
	}

	databaseFile := os.Getenv("DATABASE_FILE")
	if databaseFile == "" {
		databaseFile = "guestbook.db"
	}

	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "3306"
	}

	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	// PORT はホスティング先が注入する。SERVER_PORT は旧設定名
	serverPort := os.Getenv("PORT")
	if serverPort == "" {
		serverPort = os.Getenv("SERVER_PORT")
	}
	if serverPort == "" {
		serverPort = "3000"
	}

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "frontend"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}

	cfg := Config{
		DBDriver:       dbDriver,
		DatabaseFile:   databaseFile,
		DBHost:         dbHost,
		DBPort:         dbPort,
		DBUser:         dbUser,
		DBPassword:     dbPassword,
		DBName:         dbName,
		ServerPort:     serverPort,
		Env:            env,
		StaticDir:      staticDir,
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		AllowedOrigins: strings.Split(allowedOrigins, ","),
	}

	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}

	return cfg
}

// OriginAllowed reports whether origin is part of the allow-list.
// A "*" entry allows every origin.
func (c Config) OriginAllowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}
