package storage

import (
	"fmt"
	"strings"

	"canvas/internal/config"
)

func BuildPostgresDSN(cfg config.StorageConfig, password string) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.Username, password, cfg.Database, sslmode)
}

func BuildMySQLDSN(cfg config.StorageConfig, password string) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.Username, password, cfg.Host, port, cfg.Database)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// BuildMongoURI accepts a full mongodb:// or mongodb+srv:// URI in Host, with
// an optional <password> placeholder, or builds one from host and port.
func BuildMongoURI(cfg config.StorageConfig, password string) string {
	if strings.HasPrefix(cfg.Host, "mongodb+srv://") || strings.HasPrefix(cfg.Host, "mongodb://") {
		uri := cfg.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		return uri
	}
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	if cfg.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Username, password, cfg.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", cfg.Host, port)
}

// maskSecret hides password in s for logging.
func maskSecret(s, password string) string {
	if password == "" {
		return s
	}
	return strings.ReplaceAll(s, password, "***")
}
