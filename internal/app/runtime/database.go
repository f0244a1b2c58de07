package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/constants_registry/internal/app/storage/sqlstore"
	"github.com/R3E-Network/constants_registry/internal/config"
	"github.com/R3E-Network/constants_registry/internal/platform/migrations"
	"github.com/R3E-Network/constants_registry/pkg/logger"
)

// OpenDatabase opens and pings the configured SQL database.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, sqlstore.Dialect, error) {
	dialect, err := sqlstore.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}
	if cfg.DSN == "" {
		return nil, "", fmt.Errorf("database dsn not configured")
	}

	db, err := sql.Open(string(dialect), dialect.DSN(cfg.DSN))
	if err != nil {
		return nil, "", err
	}

	if dialect == sqlstore.SQLite {
		// Single writer; the pragma in the DSN is applied per connection.
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, "", err
	}

	return db, dialect, nil
}

// OpenStore opens the database, applies the schema when configured to and
// returns the SQL gateway.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*sql.DB, *sqlstore.Store, error) {
	db, dialect, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AutoMigrate {
		if err := migrations.Apply(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
		log.WithField("migrations", migrations.Count()).Info("schema applied")
	}

	return db, sqlstore.New(db, dialect), nil
}
