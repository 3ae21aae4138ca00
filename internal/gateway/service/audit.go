package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/nearbynurse/internal/gateway/store"
)

// OrphanAuditor periodically re-reads the orphan ledger, keeps the orphan
// gauge current and warns about orphans nobody has dealt with. It never
// resolves an orphan; that is an operator decision.
type OrphanAuditor struct {
	Store      store.Store
	Logger     *slog.Logger
	Interval   time.Duration
	StaleAfter time.Duration
	Orphans    func(n int)
	Now        func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewOrphanAuditor creates an auditor. Non-positive durations default to one
// hour between audits and 24 hours before an orphan counts as stale.
func NewOrphanAuditor(st store.Store, logger *slog.Logger, interval, staleAfter time.Duration) *OrphanAuditor {
	if interval <= 0 {
		interval = time.Hour
	}
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	return &OrphanAuditor{
		Store:      st,
		Logger:     logger,
		Interval:   interval,
		StaleAfter: staleAfter,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start runs an audit immediately and then every Interval until Stop.
func (a *OrphanAuditor) Start() {
	go a.run()
	a.Logger.Info("orphan auditor started", "interval", a.Interval, "stale_after", a.StaleAfter)
}

// Stop waits for an in-progress audit to finish.
func (a *OrphanAuditor) Stop() {
	close(a.stopCh)
	<-a.doneCh
	a.Logger.Info("orphan auditor stopped")
}

func (a *OrphanAuditor) run() {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	a.Audit(context.Background())

	for {
		select {
		case <-ticker.C:
			a.Audit(context.Background())
		case <-a.stopCh:
			return
		}
	}
}

// Audit performs one pass and returns how many orphans are stale.
func (a *OrphanAuditor) Audit(ctx context.Context) int {
	list, err := a.Store.Orphans().ListOrphans(ctx)
	if err != nil {
		a.Logger.Error("orphan audit failed", "error", err)
		return 0
	}
	if a.Orphans != nil {
		a.Orphans(len(list))
	}

	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}

	stale := 0
	for _, o := range list {
		age := now.Sub(o.CreatedAt)
		if age < a.StaleAfter {
			// Oldest first; the rest are younger.
			break
		}
		stale++
		a.Logger.Warn("orphaned account awaiting operator",
			"orphan_id", o.ID,
			"identity_ref", o.IdentityRef,
			"username", o.Username,
			"age", age.Round(time.Minute),
			"attempts", o.Attempts,
			"reason", o.Reason,
		)
	}

	a.Logger.Debug("orphan audit completed", "orphans", len(list), "stale", stale)
	return stale
}
