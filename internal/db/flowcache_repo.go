package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"riverlog/internal/types"
)

// FlowCacheRepository provides data access for the flow_cache table, a
// shared (site_number, date) keyed store of resolved hourly flow series.
// Cache rows for past dates never go stale; same-day rows are re-resolved
// once they exceed the freshness window enforced by the caller.
type FlowCacheRepository struct {
	db DBTX
}

// NewFlowCacheRepository creates a new FlowCacheRepository backed by the
// given database connection (pool or transaction).
func NewFlowCacheRepository(db DBTX) *FlowCacheRepository {
	return &FlowCacheRepository{db: db}
}

// Get retrieves the cached series for a site and date (formatted
// "2006-01-02"). Returns ErrCodeNotFoundFlow on a cache miss.
func (r *FlowCacheRepository) Get(ctx context.Context, siteNumber string, date string) (*types.FlowSeries, error) {
	var series types.FlowSeries
	err := r.db.QueryRow(ctx,
		`SELECT series FROM flow_cache
		 WHERE site_number = $1 AND flow_date = $2`,
		siteNumber,
		date,
	).Scan(&series)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundFlow, "no cached flow data", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read flow cache", err)
	}
	return &series, nil
}

// Put stores or replaces the cached series for its site and date.
func (r *FlowCacheRepository) Put(ctx context.Context, series *types.FlowSeries) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO flow_cache (site_number, flow_date, series, cached_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (site_number, flow_date) DO UPDATE
		 SET series = EXCLUDED.series, cached_at = EXCLUDED.cached_at`,
		series.SiteNumber,
		series.Date,
		series,
		series.CachedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to write flow cache", err)
	}
	return nil
}

// PruneOlderThan deletes cache rows whose flow_date predates the cutoff
// (formatted "2006-01-02") and returns the number removed.
func (r *FlowCacheRepository) PruneOlderThan(ctx context.Context, cutoff string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM flow_cache WHERE flow_date < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to prune flow cache", err)
	}
	return tag.RowsAffected(), nil
}
