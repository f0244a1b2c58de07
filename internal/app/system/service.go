// Package system manages background components that live alongside the HTTP
// server.
package system

import "context"

// Service represents a lifecycle-managed component. The manager starts
// services in registration order and stops them in reverse.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
