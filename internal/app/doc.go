// Package app composes the constants registry.
//
// The Application struct wires the registry service to a storage gateway and
// owns the background components (such as the rate limiter janitor) that run
// next to the HTTP server.
//
//	internal/app/
//	├── application.go      # composition and lifecycle
//	├── domain/constant/    # Domain and Constant records, payloads, hex rendering
//	├── query/              # filter resolution into lookup statements
//	├── services/registry/  # validation and registry operations
//	├── storage/            # gateway interfaces, memory and SQL implementations
//	├── httpapi/            # routes and handlers
//	├── metrics/            # Prometheus collectors
//	├── runtime/            # process wiring: config, database, HTTP server
//	└── system/             # lifecycle manager for background services
//
// Dependencies flow downwards: httpapi depends on services, services depend
// on storage interfaces, and only runtime knows about concrete drivers.
package app
