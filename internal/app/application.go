package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/auth"
	"github.com/R3E-Network/vybe_engagement/internal/app/cache"
	core "github.com/R3E-Network/vybe_engagement/internal/app/core/service"
	"github.com/R3E-Network/vybe_engagement/internal/app/services/comments"
	"github.com/R3E-Network/vybe_engagement/internal/app/services/counters"
	"github.com/R3E-Network/vybe_engagement/internal/app/services/graph"
	"github.com/R3E-Network/vybe_engagement/internal/app/services/transfers"
	"github.com/R3E-Network/vybe_engagement/internal/app/services/wallets"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage/memory"
	"github.com/R3E-Network/vybe_engagement/internal/app/system"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Ledger   storage.LedgerStore
	Edges    storage.EdgeStore
	Comments storage.CommentStore
	Profiles storage.ProfileStore
}

// Options configures everything that is not a store.
type Options struct {
	// Verifier checks bearer tokens. Required.
	Verifier auth.TokenVerifier
	// Cache holds derived counts. Nil uses an in-process cache.
	Cache             cache.CounterCache
	CacheTTL          time.Duration
	ReconcileSchedule string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Identity   *auth.Resolver
	Wallets    *wallets.Service
	Transfers  *transfers.Service
	Graph      *graph.Service
	Comments   *comments.Service
	Counters   *counters.Service
	Reconciler *counters.Reconciler
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if opts.Verifier == nil {
		return nil, errors.New("token verifier is required")
	}

	mem := memory.New()
	if stores.Ledger == nil {
		stores.Ledger = mem
	}
	if stores.Edges == nil {
		stores.Edges = mem
	}
	if stores.Comments == nil {
		stores.Comments = mem
	}
	if stores.Profiles == nil {
		stores.Profiles = mem
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory()
	}

	manager := system.NewManager()

	identity := auth.NewResolver(opts.Verifier, stores.Profiles, log.Named("auth"))
	walletService := wallets.New(stores.Ledger, log.Named("wallets"))
	transferService := transfers.New(stores.Ledger, identity, log.Named("transfers"))
	counterService := counters.New(stores.Edges, stores.Comments, opts.Cache, opts.CacheTTL, log.Named("counters"))
	graphService := graph.New(stores.Edges, counterService, log.Named("graph"))
	commentService := comments.New(stores.Comments, counterService, log.Named("comments"))

	reconciler, err := counters.NewReconciler(counterService, opts.ReconcileSchedule, log.Named("counter-reconciler"))
	if err != nil {
		return nil, err
	}

	for _, name := range []string{"wallets", "transfers", "graph", "comments"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}
	if err := manager.Register(reconciler); err != nil {
		return nil, fmt.Errorf("register %s: %w", reconciler.Name(), err)
	}

	return &Application{
		manager:    manager,
		log:        log,
		Identity:   identity,
		Wallets:    walletService,
		Transfers:  transferService,
		Graph:      graphService,
		Comments:   commentService,
		Counters:   counterService,
		Reconciler: reconciler,
	}, nil
}

// Descriptors lists the wired services for the status endpoint.
func (a *Application) Descriptors() []core.Descriptor {
	describers := []core.Describer{a.Wallets, a.Transfers, a.Graph, a.Comments, a.Counters}
	out := make([]core.Descriptor, len(describers))
	for i, d := range describers {
		out[i] = d.Descriptor()
	}
	return out
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
