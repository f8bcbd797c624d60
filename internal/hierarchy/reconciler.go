package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/metrics"
)

// ReconcileReport summarizes one full reconciliation pass.
type ReconcileReport struct {
	Managers            int           `json:"managers"`
	Synced              int           `json:"synced"`
	Failed              int           `json:"failed"`
	Writes              int           `json:"writes"`
	DescriptionsUpdated int           `json:"descriptions_updated"`
	Duration            time.Duration `json:"duration_ns"`
}

// Reconciler re-runs synchronization for every Manager membership and rebuilds
// every project description. It repairs whatever event-driven synchronization
// missed and is safe to run at any time.
type Reconciler struct {
	sync        *Synchronizer
	members     MembershipStore
	projects    ProjectStore
	concurrency int
	logger      *slog.Logger
}

func NewReconciler(sync *Synchronizer, members MembershipStore, projects ProjectStore, concurrency int, logger *slog.Logger) *Reconciler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Reconciler{
		sync:        sync,
		members:     members,
		projects:    projects,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (r *Reconciler) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	start := time.Now()
	report := &ReconcileReport{}

	managers, err := r.members.ListByRole(ctx, auth.RoleManager)
	if err != nil {
		metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
		return report, fmt.Errorf("list manager memberships: %w", err)
	}
	report.Managers = len(managers)

	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, m := range managers {
		g.Go(func() error {
			res, err := r.sync.SyncHierarchyForManager(gctx, m)
			mu.Lock()
			defer mu.Unlock()
			report.Writes += res.Writes
			if err != nil {
				report.Failed++
				errs = append(errs, fmt.Errorf("member %d: %w", m.ID, err))
				return nil
			}
			report.Synced++
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		metrics.ReconcileRunsTotal.WithLabelValues("canceled").Inc()
		return report, err
	}

	tree, err := r.projects.Tree(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("load project tree: %w", err))
	} else {
		g, gctx = errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for _, id := range tree.IDs() {
			g.Go(func() error {
				changed, err := r.sync.RefreshDescription(gctx, id)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return nil
				}
				if changed {
					report.DescriptionsUpdated++
					report.Writes++
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	report.Duration = time.Since(start)
	metrics.ReconcileDuration.Observe(report.Duration.Seconds())

	err = errors.Join(errs...)
	outcome := "success"
	if err != nil {
		outcome = "partial"
	}
	metrics.ReconcileRunsTotal.WithLabelValues(outcome).Inc()

	r.logger.Info("hierarchy reconciliation finished",
		"managers", report.Managers,
		"synced", report.Synced,
		"failed", report.Failed,
		"writes", report.Writes,
		"descriptions_updated", report.DescriptionsUpdated,
		"duration", report.Duration)

	return report, err
}

// RunPeriodic reconciles immediately and then on every tick until ctx is done.
func (r *Reconciler) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.ReconcileAll(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("hierarchy reconciliation failed", "error", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Info("hierarchy reconciler stopped")
			return
		case <-ticker.C:
		}
	}
}
