package app

import (
	"context"

	"github.com/R3E-Network/constants_registry/internal/app/services/registry"
	"github.com/R3E-Network/constants_registry/internal/app/storage"
	"github.com/R3E-Network/constants_registry/internal/app/storage/memory"
	"github.com/R3E-Network/constants_registry/internal/app/system"
	"github.com/R3E-Network/constants_registry/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Domains   storage.DomainStore
	Constants storage.ConstantStore
}

// Application ties the registry service to its storage and manages the
// lifecycle of background components.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Registry *registry.Service
}

// New builds an application over the provided stores.
func New(stores Stores, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	if stores.Domains == nil || stores.Constants == nil {
		// Both halves must share one store so referential rules hold.
		mem := memory.New()
		log.Warn("no storage configured; using in-memory store")
		stores.Domains = mem
		stores.Constants = mem
	}

	return &Application{
		manager:  system.NewManager(),
		log:      log,
		Registry: registry.New(stores.Domains, stores.Constants, log.Named("registry")),
	}, nil
}

// FromStore builds an application over a single storage gateway.
func FromStore(store storage.Store, log *logger.Logger) (*Application, error) {
	if store == nil {
		return New(Stores{}, log)
	}
	return New(Stores{Domains: store, Constants: store}, log)
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Services lists attached services in start order.
func (a *Application) Services() []string {
	return a.manager.Names()
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
