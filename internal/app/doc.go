// Package app composes the engagement core: wallets and tip transfers, the
// follow and like graph, comments, and the derived counters shown on profiles
// and posts.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── wallet/         # Wallets, transfers, amount rules
//	│   ├── graph/          # FOLLOW and LIKE edges
//	│   ├── comment/        # Append-only comments
//	│   ├── counter/        # Cache keys and count views
//	│   └── profile/        # Local actor records
//	├── storage/            # Store interfaces and implementations
//	│   ├── memory/         # In-memory implementation for tests and dev
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Business rules per domain
//	├── cache/              # Counter cache (in-process or Redis)
//	├── httpapi/            # REST routes and handlers
//	├── runtime/            # Config-driven server assembly
//	├── auth/               # Token verification and the identity resolver
//	├── system/             # Service lifecycle manager
//	├── core/service/       # Helpers shared by services
//	└── metrics/            # Prometheus collectors
//
// # What Belongs Here
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                      internal/app/ (Composition)                     │
//	├─────────────────────────────────────────────────────────────────────┤
//	│ ✓ Application struct and wiring                                      │
//	│ ✓ Domain models (pure data, no business logic)                       │
//	│ ✓ Storage interfaces (repository pattern)                            │
//	│ ✓ HTTP handlers (request/response handling)                          │
//	│ ✗ Validation and state transitions (belongs in services/)            │
//	│ ✗ SQL (belongs in storage/postgres/)                                 │
//	└─────────────────────────────────────────────────────────────────────┘
//
// # Dependency Direction
//
//	cmd/appserver/
//	      │
//	      ▼
//	internal/app/runtime ──► internal/config
//	      │
//	      ▼
//	internal/app (composition)
//	      │
//	      ├──► services/ ──► storage/ (interfaces)
//	      │         │
//	      │         └──► cache/
//	      │
//	      └──► internal/platform/migrations
//
// Services never import each other's stores. The counter service is the only
// component that reads the cache; the graph and comment services reach it
// through a narrow invalidation interface.
package app
