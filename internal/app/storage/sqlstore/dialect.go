package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/R3E-Network/constants_registry/internal/app/storage"
)

// Dialect names a supported SQL backend. The value doubles as the
// database/sql driver name.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect validates a configured driver name.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// sqlitePragmas are switched on for every SQLite connection: foreign key
// enforcement, which SQLite leaves off by default, and case-sensitive LIKE so
// prefix lookups agree with the other gateways.
var sqlitePragmas = []string{"foreign_keys", "case_sensitive_like"}

// DSN adjusts a data source name for the dialect.
func (d Dialect) DSN(dsn string) string {
	if d != SQLite {
		return dsn
	}
	for _, pragma := range sqlitePragmas {
		if strings.Contains(dsn, pragma) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=" + pragma + "(1)"
	}
	return dsn
}

const (
	pqForeignKeyViolation = "23503"
	pqConnectionClass     = "08"

	sqliteBusy             = 5
	sqliteLocked           = 6
	sqliteIOErr            = 10
	sqliteCantOpen         = 14
	sqliteConstraint       = 19
	sqliteConstraintFK     = 787
	sqlitePrimaryCodeMask  = 0xff
	sqliteForeignKeyMarker = "FOREIGN KEY"
)

// sqliteError is satisfied by the glebarez/modernc driver error type.
type sqliteError interface {
	error
	Code() int
}

// classify maps a driver error onto a storage kind and wraps it.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case string(pqErr.Code) == pqForeignKeyViolation:
			return storage.Wrap(op, storage.KindForeignKey, err)
		case string(pqErr.Code.Class()) == pqConnectionClass:
			return storage.Wrap(op, storage.KindUnavailable, err)
		}
		return storage.Wrap(op, storage.KindUnknown, err)
	}

	var liteErr sqliteError
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch code & sqlitePrimaryCodeMask {
		case sqliteConstraint:
			if code == sqliteConstraintFK || strings.Contains(liteErr.Error(), sqliteForeignKeyMarker) {
				return storage.Wrap(op, storage.KindForeignKey, err)
			}
		case sqliteBusy, sqliteLocked, sqliteIOErr, sqliteCantOpen:
			return storage.Wrap(op, storage.KindUnavailable, err)
		}
		return storage.Wrap(op, storage.KindUnknown, err)
	}

	return storage.Wrap(op, storage.Classify(err), err)
}
