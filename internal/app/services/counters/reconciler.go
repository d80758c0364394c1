package counters

import (
	"context"
	"fmt"
	"sync"

	"github.com/R3E-Network/vybe_engagement/internal/app/domain/counter"
	"github.com/R3E-Network/vybe_engagement/internal/app/system"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs reconciliation every five minutes.
const DefaultSchedule = "@every 5m"

// Reconciler runs Service.Reconcile on a cron schedule.
type Reconciler struct {
	service  *Service
	schedule string
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

var _ system.Service = (*Reconciler)(nil)

// NewReconciler validates schedule (standard cron syntax or @every) and
// returns a stopped reconciler.
func NewReconciler(service *Service, schedule string, log *logger.Logger) (*Reconciler, error) {
	if log == nil {
		log = logger.NewDefault("counter-reconciler")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse reconcile schedule %q: %w", schedule, err)
	}
	return &Reconciler{service: service, schedule: schedule, log: log}, nil
}

func (r *Reconciler) Name() string { return "counter-reconciler" }

func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(r.log))))
	if _, err := c.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(runCtx); err != nil {
			r.log.WithError(err).Warn("counter reconciliation failed")
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule reconciliation: %w", err)
	}
	c.Start()

	r.cron, r.cancel, r.running = c, cancel, true
	r.log.WithField("schedule", r.schedule).Info("counter reconciler started")
	return nil
}

// Stop halts the schedule, aborts an in-flight run and waits for it to
// return, bounded by ctx.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c, cancel := r.cron, r.cancel
	r.cron, r.cancel, r.running = nil, nil, false
	r.mu.Unlock()

	cancel()
	done := c.Stop()

	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	r.log.Info("counter reconciler stopped")
	return nil
}

// RunOnce performs one reconciliation pass.
func (r *Reconciler) RunOnce(ctx context.Context) (counter.ReconcileReport, error) {
	report, err := r.service.Reconcile(ctx)
	if err != nil {
		return report, err
	}
	r.log.WithField("checked", report.Checked).
		WithField("corrected", report.Corrected).
		Debug("counter reconciliation finished")
	return report, nil
}
