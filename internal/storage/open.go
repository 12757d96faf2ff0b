package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"canvas/internal/config"
	"canvas/internal/domain"
	"canvas/internal/log"
)

// OpenStore opens the asset store cfg describes. Driver "none" returns a nil
// store and no error; the canvas then runs without persistence.
func OpenStore(cfg config.StorageConfig, password string) (domain.AssetStore, error) {
	logger := log.WithComponent("storage")

	switch cfg.Driver {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(config.DataDir(), "canvas.db")
		}
		db, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", slog.String("driver", "sqlite"), slog.String("path", path))
		return NewAssetStore(db), nil

	case "postgres", "postgresql":
		db, err := Open(DialectPostgres, BuildPostgresDSN(cfg, password))
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", slog.String("driver", "postgres"), slog.String("host", cfg.Host))
		return NewAssetStore(db), nil

	case "mysql":
		db, err := Open(DialectMySQL, BuildMySQLDSN(cfg, password))
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", slog.String("driver", "mysql"), slog.String("host", cfg.Host))
		return NewAssetStore(db), nil

	case "mongodb", "mongo":
		uri := BuildMongoURI(cfg, password)
		s, err := NewMongoStore(uri, cfg.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", slog.String("driver", "mongodb"), slog.String("uri", maskSecret(uri, password)))
		return s, nil

	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
