package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/R3E-Network/constants_registry/internal/app/domain/constant"
	"github.com/R3E-Network/constants_registry/internal/app/metrics"
	"github.com/R3E-Network/constants_registry/internal/app/query"
	"github.com/R3E-Network/constants_registry/internal/app/storage"
	"github.com/R3E-Network/constants_registry/pkg/logger"
)

var (
	// ErrDomainNotFound is returned when a delete matched no domain.
	ErrDomainNotFound = errors.New("no domain found")
	// ErrDomainInUse is returned when a domain still has constants.
	ErrDomainInUse = errors.New("domain has constants")
	// ErrDomainNotCreated is returned when a constant references a missing domain.
	ErrDomainNotCreated = errors.New("domain is not created")
	// ErrConstantNotFound is returned when a delete matched no constant.
	ErrConstantNotFound = errors.New("no name found")
)

// Service exposes the registry operations over a storage gateway.
type Service struct {
	domains   storage.DomainStore
	constants storage.ConstantStore
	validate  *Validator
	log       *logger.Logger
}

// New constructs a registry service.
func New(domains storage.DomainStore, constants storage.ConstantStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	return &Service{
		domains:   domains,
		constants: constants,
		validate:  NewValidator(),
		log:       log,
	}
}

// ListDomains returns every domain ordered by identifier.
func (s *Service) ListDomains(ctx context.Context) ([]constant.Domain, error) {
	return s.domains.ListDomains(ctx)
}

// ListTags returns the distinct tag values used within a domain.
func (s *Service) ListTags(ctx context.Context, domain string) ([]*string, error) {
	return s.constants.ListTags(ctx, domain)
}

// QueryConstants resolves the filter and returns the matching constants.
func (s *Service) QueryConstants(ctx context.Context, domain string, filter query.Filter) ([]constant.Constant, error) {
	stmt := query.Resolve(domain, filter)
	s.log.WithField("domain", domain).
		WithField("shape", stmt.Shape.String()).
		Debug("query constants")
	return s.constants.QueryConstants(ctx, stmt)
}

// UpsertDomain validates and stores a domain, overwriting description and
// link when it already exists.
func (s *Service) UpsertDomain(ctx context.Context, in constant.DomainInput) (constant.Domain, error) {
	if err := s.validate.Domain(in); err != nil {
		metrics.RecordWrite("domain", "upsert", "invalid")
		return constant.Domain{}, err
	}

	record := in.Record()
	if err := s.domains.UpsertDomain(ctx, record); err != nil {
		metrics.RecordWrite("domain", "upsert", "error")
		return constant.Domain{}, fmt.Errorf("upsert domain %s: %w", record.Domain, err)
	}

	metrics.RecordWrite("domain", "upsert", "ok")
	s.log.WithField("domain", record.Domain).Info("domain upserted")
	return record, nil
}

// DeleteDomain removes a domain. Domains that still own constants are kept.
func (s *Service) DeleteDomain(ctx context.Context, domain string) error {
	deleted, err := s.domains.DeleteDomain(ctx, domain)
	switch {
	case errors.Is(err, storage.ErrForeignKey):
		metrics.RecordWrite("domain", "delete", "in_use")
		return ErrDomainInUse
	case err != nil:
		metrics.RecordWrite("domain", "delete", "error")
		return fmt.Errorf("delete domain %s: %w", domain, err)
	case !deleted:
		metrics.RecordWrite("domain", "delete", "not_found")
		return ErrDomainNotFound
	}

	metrics.RecordWrite("domain", "delete", "ok")
	s.log.WithField("domain", domain).Info("domain deleted")
	return nil
}

// UpsertConstant validates and stores a constant in an existing domain.
func (s *Service) UpsertConstant(ctx context.Context, domain string, in constant.ConstantInput) (constant.Constant, error) {
	if err := s.validate.Constant(in); err != nil {
		metrics.RecordWrite("constant", "upsert", "invalid")
		return constant.Constant{}, err
	}

	record := in.Record(domain)
	err := s.constants.UpsertConstant(ctx, record)
	switch {
	case errors.Is(err, storage.ErrForeignKey):
		metrics.RecordWrite("constant", "upsert", "no_domain")
		return constant.Constant{}, ErrDomainNotCreated
	case err != nil:
		metrics.RecordWrite("constant", "upsert", "error")
		return constant.Constant{}, fmt.Errorf("upsert constant %s/%s: %w", domain, record.Name, err)
	}

	metrics.RecordWrite("constant", "upsert", "ok")
	s.log.WithField("domain", domain).
		WithField("name", record.Name).
		WithField("numeric", in.Value.IsNumeric()).
		Info("constant upserted")
	return record, nil
}

// DeleteConstant removes a constant by domain and name.
func (s *Service) DeleteConstant(ctx context.Context, domain, name string) error {
	deleted, err := s.constants.DeleteConstant(ctx, domain, name)
	if err != nil {
		metrics.RecordWrite("constant", "delete", "error")
		return fmt.Errorf("delete constant %s/%s: %w", domain, name, err)
	}
	if !deleted {
		metrics.RecordWrite("constant", "delete", "not_found")
		return ErrConstantNotFound
	}

	metrics.RecordWrite("constant", "delete", "ok")
	s.log.WithField("domain", domain).WithField("name", name).Info("constant deleted")
	return nil
}

// IsClientError reports whether err is a business-rule or validation failure
// that should be reported to the caller rather than treated as a fault.
func IsClientError(err error) bool {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return true
	case errors.Is(err, ErrDomainNotFound),
		errors.Is(err, ErrDomainInUse),
		errors.Is(err, ErrDomainNotCreated),
		errors.Is(err, ErrConstantNotFound):
		return true
	default:
		return false
	}
}
