package scheduler

import (
	"context"
	"log/slog"
	"time"

	"riverlog/internal/hydro"
	"riverlog/internal/types"
)

// flowCacheRetention is how long resolved hourly series stay in the shared
// flow cache before the nightly sweep removes them.
const flowCacheRetention = 365 * 24 * time.Hour

// RiverRefresher abstracts the bulk flow refresh for the hourly job.
type RiverRefresher interface {
	RefreshEverything(ctx context.Context) ([]*hydro.RefreshResult, error)
}

// RiverRefreshJob re-resolves flow for every saved river once an hour so
// dashboards stay current and flow alerts fire without user traffic.
type RiverRefreshJob struct {
	refresher RiverRefresher
	logger    *slog.Logger
}

func NewRiverRefreshJob(refresher RiverRefresher, logger *slog.Logger) *RiverRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiverRefreshJob{refresher: refresher, logger: logger}
}

func (j *RiverRefreshJob) Name() string { return "river_refresh" }

func (j *RiverRefreshJob) Run(ctx context.Context, now time.Time) error {
	results, err := j.refresher.RefreshEverything(ctx)
	if err != nil {
		return err
	}

	var simulated, alerts int
	for _, res := range results {
		if res.Simulated {
			simulated++
		}
		alerts += len(res.Triggered)
	}
	j.logger.Info("refreshed saved rivers",
		"refreshed", len(results),
		"simulated", simulated,
		"alerts_triggered", alerts,
	)
	return nil
}

// SessionSweeper deletes expired session rows.
type SessionSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// FlowCachePruner deletes cached series older than a cutoff date.
type FlowCachePruner interface {
	PruneOlderThan(ctx context.Context, cutoff string) (int64, error)
}

// MaintenanceJob is the nightly sweep: expired sessions and stale flow
// cache rows. Each step runs even if the previous one failed; the first
// error is returned.
type MaintenanceJob struct {
	sessions  SessionSweeper
	flowCache FlowCachePruner
	logger    *slog.Logger
}

func NewMaintenanceJob(sessions SessionSweeper, flowCache FlowCachePruner, logger *slog.Logger) *MaintenanceJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintenanceJob{sessions: sessions, flowCache: flowCache, logger: logger}
}

func (j *MaintenanceJob) Name() string { return "maintenance_sweep" }

func (j *MaintenanceJob) Run(ctx context.Context, now time.Time) error {
	var firstErr error

	if j.sessions != nil {
		deleted, err := j.sessions.DeleteExpired(ctx)
		if err != nil {
			firstErr = err
			j.logger.Error("session sweep failed", "error", err)
		} else {
			j.logger.Info("swept expired sessions", "deleted", deleted)
		}
	}

	if j.flowCache != nil {
		cutoff := now.Add(-flowCacheRetention).Format("2006-01-02")
		pruned, err := j.flowCache.PruneOlderThan(ctx, cutoff)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			j.logger.Error("flow cache prune failed", "cutoff", cutoff, "error", err)
		} else {
			j.logger.Info("pruned flow cache", "cutoff", cutoff, "deleted", pruned)
		}
	}

	return firstErr
}

// ExpiringLicenseLister returns licenses expiring before a cutoff.
type ExpiringLicenseLister interface {
	ListExpiring(ctx context.Context, before time.Time) ([]*types.FishingLicense, error)
}

// LicenseScanJob finds licenses approaching expiration and logs a reminder
// per license. The log stream is the notification channel; there is no
// outbound email in this deployment.
type LicenseScanJob struct {
	licenses ExpiringLicenseLister
	ahead    time.Duration
	logger   *slog.Logger
}

func NewLicenseScanJob(licenses ExpiringLicenseLister, ahead time.Duration, logger *slog.Logger) *LicenseScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &LicenseScanJob{licenses: licenses, ahead: ahead, logger: logger}
}

func (j *LicenseScanJob) Name() string { return "license_expiry_scan" }

func (j *LicenseScanJob) Run(ctx context.Context, now time.Time) error {
	expiring, err := j.licenses.ListExpiring(ctx, now.Add(j.ahead))
	if err != nil {
		return err
	}

	for _, lic := range expiring {
		daysLeft := int(lic.ExpirationDate.Sub(now).Hours() / 24)
		j.logger.Info("license expiring soon",
			"license_id", lic.ID,
			"user_id", lic.UserID,
			"license_type", lic.LicenseType,
			"state", lic.State,
			"expires", lic.ExpirationDate.Format("2006-01-02"),
			"days_left", daysLeft,
		)
	}
	j.logger.Info("license expiry scan completed", "expiring", len(expiring))
	return nil
}
