package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"riverlog/internal/types"
)

// RiverRepository provides data access for the saved_rivers table.
// current_flow is stored as text so the "No Data" and "Error" sentinels
// share a column with numeric CFS readings.
type RiverRepository struct {
	db DBTX
}

// NewRiverRepository creates a new RiverRepository backed by the given
// database connection (pool or transaction).
func NewRiverRepository(db DBTX) *RiverRepository {
	return &RiverRepository{db: db}
}

const riverColumns = `r.id, r.user_id, r.river_name, r.site_number, r.current_flow,
	r.trend, r.simulated, r.last_checked, r.created_at, r.updated_at`

func scanRiver(row pgx.Row) (*types.SavedRiver, error) {
	var sr types.SavedRiver
	var (
		currentFlow *string
		trend       *string
	)
	err := row.Scan(
		&sr.ID,
		&sr.UserID,
		&sr.RiverName,
		&sr.SiteNumber,
		&currentFlow,
		&trend,
		&sr.Simulated,
		&sr.LastChecked,
		&sr.CreatedAt,
		&sr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if currentFlow != nil {
		sr.CurrentFlow = *currentFlow
	} else {
		sr.CurrentFlow = string(types.FlowNoData)
	}
	if trend != nil {
		sr.Trend = types.FlowTrend(*trend)
	} else {
		sr.Trend = types.TrendStable
	}
	return &sr, nil
}

// Create inserts a new saved river. Returns ErrCodeConflictRiver if the
// user already tracks the same site number.
func (r *RiverRepository) Create(ctx context.Context, river *types.SavedRiver) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO saved_rivers (id, user_id, river_name, site_number, current_flow,
		 trend, simulated, last_checked, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		river.ID,
		river.UserID,
		river.RiverName,
		river.SiteNumber,
		nilIfEmpty(river.CurrentFlow),
		nilIfEmpty(string(river.Trend)),
		river.Simulated,
		river.LastChecked,
		river.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictRiver, "river already saved for this site", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create saved river", err)
	}
	return nil
}

// GetByID retrieves a saved river by ID scoped to its owner.
// Returns ErrCodeNotFoundRiver if no matching river exists.
func (r *RiverRepository) GetByID(ctx context.Context, id string, userID string) (*types.SavedRiver, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+riverColumns+`
		 FROM saved_rivers r
		 WHERE r.id = $1 AND r.user_id = $2`,
		id,
		userID,
	)

	sr, err := scanRiver(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundRiver, "saved river not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve saved river", err)
	}
	return sr, nil
}

// ListByUser returns all saved rivers for a user ordered by name.
func (r *RiverRepository) ListByUser(ctx context.Context, userID string) ([]*types.SavedRiver, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+riverColumns+`
		 FROM saved_rivers r
		 WHERE r.user_id = $1
		 ORDER BY r.river_name ASC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list saved rivers", err)
	}
	defer rows.Close()

	rivers := make([]*types.SavedRiver, 0)
	for rows.Next() {
		sr, err := scanRiver(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan saved river", err)
		}
		rivers = append(rivers, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate saved rivers", err)
	}
	return rivers, nil
}

// ListAll returns every saved river across all users. Used by the hourly
// refresh job.
func (r *RiverRepository) ListAll(ctx context.Context) ([]*types.SavedRiver, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+riverColumns+`
		 FROM saved_rivers r
		 ORDER BY r.site_number ASC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list all saved rivers", err)
	}
	defer rows.Close()

	rivers := make([]*types.SavedRiver, 0)
	for rows.Next() {
		sr, err := scanRiver(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan saved river", err)
		}
		rivers = append(rivers, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate saved rivers", err)
	}
	return rivers, nil
}

// UpdateFlow records the latest flow reading for a saved river. The caller
// supplies the display value (numeric string or sentinel), the computed
// trend, and whether the reading came from the simulator.
func (r *RiverRepository) UpdateFlow(ctx context.Context, id string, flow string, trend types.FlowTrend, simulated bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE saved_rivers SET current_flow = $1, trend = $2, simulated = $3,
		 last_checked = NOW(), updated_at = NOW()
		 WHERE id = $4`,
		flow,
		string(trend),
		simulated,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update river flow", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundRiver, "saved river not found", nil)
	}
	return nil
}

// Delete removes a saved river scoped to its owner.
func (r *RiverRepository) Delete(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM saved_rivers WHERE id = $1 AND user_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete saved river", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundRiver, "saved river not found", nil)
	}
	return nil
}

// Stats aggregates dashboard figures for a user's saved rivers. The average
// skips sentinel readings; active alerts counts enabled alert configs on
// sites the user tracks.
func (r *RiverRepository) Stats(ctx context.Context, userID string) (*types.RiverDashboardStats, error) {
	var stats types.RiverDashboardStats
	var avg *float64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		 AVG(CASE WHEN r.current_flow ~ '^[0-9]+(\.[0-9]+)?$' THEN r.current_flow::float8 END),
		 (SELECT COUNT(*) FROM flow_alerts a
		  WHERE a.user_id = $1 AND a.enabled
		  AND a.site_number IN (SELECT site_number FROM saved_rivers WHERE user_id = $1))
		 FROM saved_rivers r
		 WHERE r.user_id = $1`,
		userID,
	).Scan(&stats.TotalRivers, &avg, &stats.ActiveAlerts)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to compute river stats", err)
	}
	if avg != nil {
		stats.AverageFlowCfs = *avg
	}
	return &stats, nil
}
