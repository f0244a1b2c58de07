// Package sqlstore implements the storage gateway on database/sql through sqlx.
// One implementation serves both PostgreSQL and SQLite; statements are written
// with '?' placeholders and rebound for the target dialect.
package sqlstore

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/constants_registry/internal/app/domain/constant"
	"github.com/R3E-Network/constants_registry/internal/app/query"
	"github.com/R3E-Network/constants_registry/internal/app/storage"
)

// Store implements the storage interfaces backed by a SQL database.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: sqlx.NewDb(db, string(dialect)), dialect: dialect}
}

// Dialect reports the backend the store was built for.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// --- DomainStore ------------------------------------------------------------

func (s *Store) ListDomains(ctx context.Context) ([]constant.Domain, error) {
	result := make([]constant.Domain, 0)
	err := s.db.SelectContext(ctx, &result, `
		SELECT domain, description, link
		FROM domains
		ORDER BY domain
	`)
	if err != nil {
		return nil, classify("list domains", err)
	}
	return result, nil
}

func (s *Store) UpsertDomain(ctx context.Context, d constant.Domain) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO domains (domain, description, link)
		VALUES (?, ?, ?)
		ON CONFLICT (domain)
		DO UPDATE SET description = excluded.description,
		              link = excluded.link
	`), d.Domain, d.Description, d.Link)
	return classify("upsert domain", err)
}

func (s *Store) DeleteDomain(ctx context.Context, domain string) (bool, error) {
	return s.deleteReturning(ctx, "delete domain", `
		DELETE FROM domains WHERE domain = ? RETURNING domain
	`, domain)
}

// --- ConstantStore ----------------------------------------------------------

func (s *Store) QueryConstants(ctx context.Context, stmt query.Statement) ([]constant.Constant, error) {
	sqlText, args := stmt.SQL, stmt.Args
	if stmt.HasSet() {
		var err error
		sqlText, args, err = sqlx.In(sqlText, args...)
		if err != nil {
			return nil, storage.Wrap("query constants", storage.KindUnknown, err)
		}
	}

	result := make([]constant.Constant, 0)
	if err := s.db.SelectContext(ctx, &result, s.db.Rebind(sqlText), args...); err != nil {
		return nil, classify("query constants", err)
	}
	return result, nil
}

func (s *Store) ListTags(ctx context.Context, domain string) ([]*string, error) {
	var rows []sql.NullString
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT DISTINCT tags
		FROM constants
		WHERE domain = ?
		ORDER BY tags NULLS FIRST
	`), domain)
	if err != nil {
		return nil, classify("list tags", err)
	}

	result := make([]*string, 0, len(rows))
	for _, row := range rows {
		if !row.Valid {
			result = append(result, nil)
			continue
		}
		tag := row.String
		result = append(result, &tag)
	}
	return result, nil
}

func (s *Store) UpsertConstant(ctx context.Context, c constant.Constant) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO constants (domain, name, value, hex_value, tags, description, link)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain, name)
		DO UPDATE SET value = excluded.value,
		              hex_value = excluded.hex_value,
		              tags = excluded.tags,
		              description = excluded.description,
		              link = excluded.link
	`), c.Domain, c.Name, c.Value, c.HexValue, c.Tags, c.Description, c.Link)
	return classify("upsert constant", err)
}

func (s *Store) DeleteConstant(ctx context.Context, domain, name string) (bool, error) {
	return s.deleteReturning(ctx, "delete constant", `
		DELETE FROM constants WHERE domain = ? AND name = ? RETURNING name
	`, domain, name)
}

// deleteReturning runs a DELETE ... RETURNING statement; an empty result set
// means nothing matched.
func (s *Store) deleteReturning(ctx context.Context, op, stmt string, args ...interface{}) (bool, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, s.db.Rebind(stmt), args...); err != nil {
		return false, classify(op, err)
	}
	return len(keys) > 0, nil
}
