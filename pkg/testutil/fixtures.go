// Package testutil provides fixtures and store doubles shared by package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/R3E-Network/constants_registry/internal/app/domain/constant"
	"github.com/R3E-Network/constants_registry/internal/app/query"
	"github.com/R3E-Network/constants_registry/internal/app/storage"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// DomainInput returns a valid domain payload.
func DomainInput(domain string) constant.DomainInput {
	return constant.DomainInput{
		Domain:      domain,
		Description: domain + " constants",
	}
}

// StringConstant returns a valid constant payload with a string value.
func StringConstant(name, value string) constant.ConstantInput {
	return constant.ConstantInput{
		Name:        name,
		Value:       constant.StringValue(value),
		Description: name,
	}
}

// NumberConstant returns a valid constant payload with a numeric value.
func NumberConstant(name string, value float64) constant.ConstantInput {
	return constant.ConstantInput{
		Name:        name,
		Value:       constant.NumberValue(value),
		Description: name,
	}
}

// WithTags sets the tag label on a constant payload.
func WithTags(in constant.ConstantInput, tags string) constant.ConstantInput {
	in.Tags = &tags
	return in
}

// FailingStore is a storage.Store whose every operation returns Err. It
// records the operations it was asked to perform.
type FailingStore struct {
	Err error

	mu  sync.Mutex
	ops []string
}

var _ storage.Store = (*FailingStore)(nil)

// NewFailingStore creates a store failing with err.
func NewFailingStore(err error) *FailingStore {
	return &FailingStore{Err: err}
}

// Ops returns the operations attempted so far.
func (s *FailingStore) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

func (s *FailingStore) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
}

func (s *FailingStore) ListDomains(context.Context) ([]constant.Domain, error) {
	s.record("ListDomains")
	return nil, s.Err
}

func (s *FailingStore) UpsertDomain(context.Context, constant.Domain) error {
	s.record("UpsertDomain")
	return s.Err
}

func (s *FailingStore) DeleteDomain(context.Context, string) (bool, error) {
	s.record("DeleteDomain")
	return false, s.Err
}

func (s *FailingStore) QueryConstants(context.Context, query.Statement) ([]constant.Constant, error) {
	s.record("QueryConstants")
	return nil, s.Err
}

func (s *FailingStore) ListTags(context.Context, string) ([]*string, error) {
	s.record("ListTags")
	return nil, s.Err
}

func (s *FailingStore) UpsertConstant(context.Context, constant.Constant) error {
	s.record("UpsertConstant")
	return s.Err
}

func (s *FailingStore) DeleteConstant(context.Context, string, string) (bool, error) {
	s.record("DeleteConstant")
	return false, s.Err
}
