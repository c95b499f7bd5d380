package hydro

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"riverlog/internal/types"
)

// defaultRefreshStagger spaces out upstream calls when refreshing many
// gauges at once. A politeness throttle, not a correctness requirement.
const defaultRefreshStagger = 100 * time.Millisecond

// RiverStore is the saved-river persistence surface the refresher needs.
type RiverStore interface {
	ListByUser(ctx context.Context, userID string) ([]*types.SavedRiver, error)
	ListAll(ctx context.Context) ([]*types.SavedRiver, error)
	UpdateFlow(ctx context.Context, id string, flow string, trend types.FlowTrend, simulated bool) error
}

// AlertStore is the alert-config persistence surface the refresher needs.
type AlertStore interface {
	ListEnabledBySite(ctx context.Context, siteNumber string) ([]*types.FlowAlertConfig, error)
	MarkTriggered(ctx context.Context, id string) error
}

// RefreshResult reports the outcome of refreshing one saved river.
type RefreshResult struct {
	River     *types.SavedRiver      `json:"river"`
	Flow      string                 `json:"flow"`
	Trend     types.FlowTrend        `json:"trend"`
	Simulated bool                   `json:"simulated"`
	Triggered []types.TriggeredAlert `json:"triggered_alerts,omitempty"`
}

// Refresher re-resolves current flow for saved rivers, persists the new
// reading with its trend, and evaluates flow alerts against it.
type Refresher struct {
	resolver *Resolver
	rivers   RiverStore
	alerts   AlertStore
	stagger  time.Duration
	clock    types.Clock
	logger   *slog.Logger
}

// NewRefresher creates a Refresher. A zero stagger uses the default 100ms.
func NewRefresher(resolver *Resolver, rivers RiverStore, alerts AlertStore, stagger time.Duration, clock types.Clock, logger *slog.Logger) *Refresher {
	if stagger <= 0 {
		stagger = defaultRefreshStagger
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		resolver: resolver,
		rivers:   rivers,
		alerts:   alerts,
		stagger:  stagger,
		clock:    clock,
		logger:   logger,
	}
}

// RefreshRiver resolves the current flow for one saved river, stores the
// reading, and evaluates alerts. The previous stored reading seeds the
// trend computation.
func (f *Refresher) RefreshRiver(ctx context.Context, river *types.SavedRiver) (*RefreshResult, error) {
	now := f.clock.Now()

	value, err := f.resolver.ResolveFlow(ctx, river.SiteNumber, now)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{River: river, Trend: types.TrendStable}
	if value == nil {
		result.Flow = string(types.FlowNoData)
	} else {
		result.Flow = value.Display()
		result.Simulated = value.Simulated()
		if prev, perr := strconv.ParseFloat(river.CurrentFlow, 64); perr == nil {
			result.Trend = types.ComputeTrend(prev, value.Cfs)
		}
	}

	if err := f.rivers.UpdateFlow(ctx, river.ID, result.Flow, result.Trend, result.Simulated); err != nil {
		return nil, err
	}
	river.CurrentFlow = result.Flow
	river.Trend = result.Trend
	river.Simulated = result.Simulated

	result.Triggered = f.evaluateAlerts(ctx, river.SiteNumber, result.Flow, now)
	return result, nil
}

// RefreshForUser refreshes every saved river belonging to a user,
// dispatching resolver calls concurrently with a fixed stagger between
// launches. Per-river failures are logged and skipped so one bad gauge
// does not sink the rest.
func (f *Refresher) RefreshForUser(ctx context.Context, userID string) ([]*RefreshResult, error) {
	rivers, err := f.rivers.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.refreshAll(ctx, rivers), nil
}

// RefreshEverything refreshes every saved river across all users. Called
// by the hourly background job.
func (f *Refresher) RefreshEverything(ctx context.Context) ([]*RefreshResult, error) {
	rivers, err := f.rivers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return f.refreshAll(ctx, rivers), nil
}

func (f *Refresher) refreshAll(ctx context.Context, rivers []*types.SavedRiver) []*RefreshResult {
	results := make([]*RefreshResult, len(rivers))

	g, gctx := errgroup.WithContext(ctx)
	for i, river := range rivers {
		if i > 0 {
			select {
			case <-gctx.Done():
			case <-time.After(f.stagger):
			}
			if gctx.Err() != nil {
				break
			}
		}

		g.Go(func() error {
			res, err := f.RefreshRiver(gctx, river)
			if err != nil {
				f.logger.Warn("failed to refresh river",
					"river_id", river.ID,
					"site_number", river.SiteNumber,
					"error", err,
				)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*RefreshResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

func (f *Refresher) evaluateAlerts(ctx context.Context, siteNumber, flow string, now time.Time) []types.TriggeredAlert {
	if f.alerts == nil {
		return nil
	}
	configs, err := f.alerts.ListEnabledBySite(ctx, siteNumber)
	if err != nil {
		f.logger.Warn("failed to load alert configs", "site_number", siteNumber, "error", err)
		return nil
	}

	triggered := EvaluateAlerts(flow, configs, now)
	for _, cfg := range configs {
		if cfg.LastTriggeredAt != nil && cfg.LastTriggeredAt.Equal(now) {
			if err := f.alerts.MarkTriggered(ctx, cfg.ID); err != nil {
				f.logger.Warn("failed to persist alert trigger", "alert_id", cfg.ID, "error", err)
			}
		}
	}
	for _, t := range triggered {
		f.logger.Info("flow alert triggered",
			"site_number", t.SiteNumber,
			"kind", t.Kind,
			"threshold_cfs", t.ThresholdCfs,
			"flow_cfs", t.FlowCfs,
		)
	}
	return triggered
}
