package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"riverlog/internal/types"
)

// LicenseRepository provides data access for the fishing_licenses table.
type LicenseRepository struct {
	db DBTX
}

// NewLicenseRepository creates a new LicenseRepository backed by the given
// database connection (pool or transaction).
func NewLicenseRepository(db DBTX) *LicenseRepository {
	return &LicenseRepository{db: db}
}

const licenseColumns = `l.id, l.user_id, l.license_type, l.state, l.license_number,
	l.issue_date, l.expiration_date, l.cost_cents, l.created_at`

func scanLicense(row pgx.Row) (*types.FishingLicense, error) {
	var l types.FishingLicense
	var licenseNumber *string
	err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.LicenseType,
		&l.State,
		&licenseNumber,
		&l.IssueDate,
		&l.ExpirationDate,
		&l.CostCents,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if licenseNumber != nil {
		l.LicenseNumber = *licenseNumber
	}
	return &l, nil
}

// Create inserts a new fishing license row.
func (r *LicenseRepository) Create(ctx context.Context, license *types.FishingLicense) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO fishing_licenses (id, user_id, license_type, state, license_number,
		 issue_date, expiration_date, cost_cents, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		license.ID,
		license.UserID,
		license.LicenseType,
		license.State,
		nilIfEmpty(license.LicenseNumber),
		license.IssueDate,
		license.ExpirationDate,
		license.CostCents,
		license.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create license", err)
	}
	return nil
}

// GetByID retrieves a license by ID scoped to its owner.
// Returns ErrCodeNotFoundLicense if no matching license exists.
func (r *LicenseRepository) GetByID(ctx context.Context, id string, userID string) (*types.FishingLicense, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+licenseColumns+`
		 FROM fishing_licenses l
		 WHERE l.id = $1 AND l.user_id = $2`,
		id,
		userID,
	)

	l, err := scanLicense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundLicense, "license not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve license", err)
	}
	return l, nil
}

// ListByUser returns all licenses for a user ordered by expiration date,
// soonest to expire first.
func (r *LicenseRepository) ListByUser(ctx context.Context, userID string) ([]*types.FishingLicense, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+licenseColumns+`
		 FROM fishing_licenses l
		 WHERE l.user_id = $1
		 ORDER BY l.expiration_date ASC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list licenses", err)
	}
	defer rows.Close()

	licenses := make([]*types.FishingLicense, 0)
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan license", err)
		}
		licenses = append(licenses, l)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate licenses", err)
	}
	return licenses, nil
}

// ListExpiring returns licenses across all users whose expiration date falls
// between now and the given horizon. Used by the daily expiry scan.
func (r *LicenseRepository) ListExpiring(ctx context.Context, before time.Time) ([]*types.FishingLicense, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+licenseColumns+`
		 FROM fishing_licenses l
		 WHERE l.expiration_date >= NOW() AND l.expiration_date <= $1
		 ORDER BY l.expiration_date ASC`,
		before,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list expiring licenses", err)
	}
	defer rows.Close()

	licenses := make([]*types.FishingLicense, 0)
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan license", err)
		}
		licenses = append(licenses, l)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate licenses", err)
	}
	return licenses, nil
}

// Delete removes a license scoped to its owner.
func (r *LicenseRepository) Delete(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM fishing_licenses WHERE id = $1 AND user_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete license", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundLicense, "license not found", nil)
	}
	return nil
}
