package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"riverlog/internal/types"
)

// AlertRepository provides data access for the flow_alerts table. One row
// per (user, site, kind); setting a threshold upserts, disabling deletes.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new AlertRepository backed by the given
// database connection (pool or transaction).
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `a.id, a.user_id, a.site_number, a.kind, a.threshold_cfs,
	a.enabled, a.last_triggered_at, a.created_at, a.updated_at`

func scanAlert(row pgx.Row) (*types.FlowAlertConfig, error) {
	var a types.FlowAlertConfig
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.SiteNumber,
		&a.Kind,
		&a.ThresholdCfs,
		&a.Enabled,
		&a.LastTriggeredAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert creates or replaces the alert config for (user, site, kind).
// Re-setting a threshold resets the trigger cooldown.
func (r *AlertRepository) Upsert(ctx context.Context, alert *types.FlowAlertConfig) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO flow_alerts (id, user_id, site_number, kind, threshold_cfs,
		 enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (user_id, site_number, kind) DO UPDATE
		 SET threshold_cfs = EXCLUDED.threshold_cfs,
		     enabled = EXCLUDED.enabled,
		     last_triggered_at = NULL,
		     updated_at = NOW()`,
		alert.ID,
		alert.UserID,
		alert.SiteNumber,
		alert.Kind,
		alert.ThresholdCfs,
		alert.Enabled,
		alert.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert flow alert", err)
	}
	return nil
}

// ListByUser returns all alert configs owned by a user, optionally filtered
// to a single site when siteNumber is non-empty.
func (r *AlertRepository) ListByUser(ctx context.Context, userID string, siteNumber string) ([]*types.FlowAlertConfig, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if siteNumber != "" {
		rows, err = r.db.Query(ctx,
			`SELECT `+alertColumns+`
			 FROM flow_alerts a
			 WHERE a.user_id = $1 AND a.site_number = $2
			 ORDER BY a.kind ASC`,
			userID,
			siteNumber,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+alertColumns+`
			 FROM flow_alerts a
			 WHERE a.user_id = $1
			 ORDER BY a.site_number ASC, a.kind ASC`,
			userID,
		)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list flow alerts", err)
	}
	defer rows.Close()

	alerts := make([]*types.FlowAlertConfig, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan flow alert", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate flow alerts", err)
	}
	return alerts, nil
}

// ListEnabledBySite returns all enabled alert configs for a site across
// users. Used by the refresh pipeline to evaluate triggers.
func (r *AlertRepository) ListEnabledBySite(ctx context.Context, siteNumber string) ([]*types.FlowAlertConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+alertColumns+`
		 FROM flow_alerts a
		 WHERE a.site_number = $1 AND a.enabled
		 ORDER BY a.kind ASC`,
		siteNumber,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list site alerts", err)
	}
	defer rows.Close()

	alerts := make([]*types.FlowAlertConfig, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan flow alert", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate flow alerts", err)
	}
	return alerts, nil
}

// MarkTriggered records the trigger time used for the cooldown window.
func (r *AlertRepository) MarkTriggered(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE flow_alerts SET last_triggered_at = NOW(), updated_at = NOW()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark alert triggered", err)
	}
	return nil
}

// DeleteKind removes the alert config for (user, site, kind). Disabling an
// alert is a delete, not a flag flip.
func (r *AlertRepository) DeleteKind(ctx context.Context, userID string, siteNumber string, kind types.AlertKind) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM flow_alerts WHERE user_id = $1 AND site_number = $2 AND kind = $3`,
		userID,
		siteNumber,
		kind,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete flow alert", err)
	}
	return nil
}
