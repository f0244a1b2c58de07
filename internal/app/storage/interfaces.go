package storage

import (
	"context"

	"github.com/R3E-Network/constants_registry/internal/app/domain/constant"
	"github.com/R3E-Network/constants_registry/internal/app/query"
)

// DomainStore persists domain records.
type DomainStore interface {
	ListDomains(ctx context.Context) ([]constant.Domain, error)
	// UpsertDomain inserts the domain or overwrites description and link.
	UpsertDomain(ctx context.Context, d constant.Domain) error
	// DeleteDomain removes the domain and reports whether a row was deleted.
	// A domain still referenced by constants yields ErrForeignKey.
	DeleteDomain(ctx context.Context, domain string) (bool, error)
}

// ConstantStore persists constant records.
type ConstantStore interface {
	// QueryConstants executes a resolved lookup statement.
	QueryConstants(ctx context.Context, stmt query.Statement) ([]constant.Constant, error)
	ListTags(ctx context.Context, domain string) ([]*string, error)
	// UpsertConstant inserts the constant or overwrites every non-key column.
	// A missing domain yields ErrForeignKey.
	UpsertConstant(ctx context.Context, c constant.Constant) error
	DeleteConstant(ctx context.Context, domain, name string) (bool, error)
}

// Store is the full storage gateway.
type Store interface {
	DomainStore
	ConstantStore
}
