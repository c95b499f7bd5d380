package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"riverlog/internal/types"
)

// EntryRepository provides data access for the journal_entries table.
// Weather, moon phase, and cached flow data are stored as JSONB columns
// and round-trip through the pgx JSON codec.
type EntryRepository struct {
	db DBTX
}

// NewEntryRepository creates a new EntryRepository backed by the given
// database connection (pool or transaction).
func NewEntryRepository(db DBTX) *EntryRepository {
	return &EntryRepository{db: db}
}

// entryColumns defines the standard set of columns selected for journal
// entry queries. Used consistently across all query methods to avoid
// column drift.
const entryColumns = `e.id, e.user_id, e.entry_date, e.city, e.state, e.latitude, e.longitude,
	e.address, e.start_time, e.end_time, e.river_name, e.site_number,
	e.water_temp_f, e.water_flow_cfs, e.target_species, e.angler, e.flies_used,
	e.notes, e.weather_data, e.moon_phase, e.cached_flow_data, e.created_at, e.updated_at`

// scanEntry scans a single journal entry row into a types.JournalEntry.
// The columns must match the order defined in entryColumns.
func scanEntry(row pgx.Row) (*types.JournalEntry, error) {
	var e types.JournalEntry
	var (
		city          *string
		state         *string
		address       *string
		startTime     *string
		endTime       *string
		riverName     *string
		siteNumber    *string
		targetSpecies *string
		angler        *string
		fliesUsed     *string
		notes         *string
	)
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Date,
		&city,
		&state,
		&e.Latitude,
		&e.Longitude,
		&address,
		&startTime,
		&endTime,
		&riverName,
		&siteNumber,
		&e.WaterTempF,
		&e.WaterFlowCfs,
		&targetSpecies,
		&angler,
		&fliesUsed,
		&notes,
		&e.Weather,
		&e.MoonPhase,
		&e.CachedFlowData,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if city != nil {
		e.City = *city
	}
	if state != nil {
		e.State = *state
	}
	if address != nil {
		e.Address = *address
	}
	if startTime != nil {
		e.StartTime = *startTime
	}
	if endTime != nil {
		e.EndTime = *endTime
	}
	if riverName != nil {
		e.RiverName = *riverName
	}
	if siteNumber != nil {
		e.SiteNumber = *siteNumber
	}
	if targetSpecies != nil {
		e.TargetSpecies = *targetSpecies
	}
	if angler != nil {
		e.Angler = *angler
	}
	if fliesUsed != nil {
		e.FliesUsed = *fliesUsed
	}
	if notes != nil {
		e.Notes = *notes
	}
	return &e, nil
}

// Create inserts a new journal entry row.
func (r *EntryRepository) Create(ctx context.Context, entry *types.JournalEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO journal_entries (id, user_id, entry_date, city, state, latitude, longitude,
		 address, start_time, end_time, river_name, site_number, water_temp_f, water_flow_cfs,
		 target_species, angler, flies_used, notes, weather_data, moon_phase, cached_flow_data,
		 created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		 $18, $19, $20, $21, $22, $22)`,
		entry.ID,
		entry.UserID,
		entry.Date,
		nilIfEmpty(entry.City),
		nilIfEmpty(entry.State),
		entry.Latitude,
		entry.Longitude,
		nilIfEmpty(entry.Address),
		nilIfEmpty(entry.StartTime),
		nilIfEmpty(entry.EndTime),
		nilIfEmpty(entry.RiverName),
		nilIfEmpty(entry.SiteNumber),
		entry.WaterTempF,
		entry.WaterFlowCfs,
		nilIfEmpty(entry.TargetSpecies),
		nilIfEmpty(entry.Angler),
		nilIfEmpty(entry.FliesUsed),
		nilIfEmpty(entry.Notes),
		entry.Weather,
		entry.MoonPhase,
		entry.CachedFlowData,
		entry.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create journal entry", err)
	}
	return nil
}

// GetByID retrieves a journal entry by ID scoped to its owner.
// Returns ErrCodeNotFoundEntry if no matching entry exists.
func (r *EntryRepository) GetByID(ctx context.Context, id string, userID string) (*types.JournalEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+entryColumns+`
		 FROM journal_entries e
		 WHERE e.id = $1 AND e.user_id = $2`,
		id,
		userID,
	)

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundEntry, "journal entry not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve journal entry", err)
	}
	return e, nil
}

// ListByUser returns all journal entries for a user ordered by trip date
// descending, most recent first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID string) ([]*types.JournalEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+entryColumns+`
		 FROM journal_entries e
		 WHERE e.user_id = $1
		 ORDER BY e.entry_date DESC, e.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list journal entries", err)
	}
	defer rows.Close()

	entries := make([]*types.JournalEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan journal entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate journal entries", err)
	}
	return entries, nil
}

// Update applies full changes to a journal entry scoped to its owner.
// Last write wins; there is no version column.
func (r *EntryRepository) Update(ctx context.Context, entry *types.JournalEntry) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE journal_entries SET entry_date = $1, city = $2, state = $3, latitude = $4,
		 longitude = $5, address = $6, start_time = $7, end_time = $8, river_name = $9,
		 site_number = $10, water_temp_f = $11, water_flow_cfs = $12, target_species = $13,
		 angler = $14, flies_used = $15, notes = $16, weather_data = $17, moon_phase = $18,
		 cached_flow_data = $19, updated_at = NOW()
		 WHERE id = $20 AND user_id = $21`,
		entry.Date,
		nilIfEmpty(entry.City),
		nilIfEmpty(entry.State),
		entry.Latitude,
		entry.Longitude,
		nilIfEmpty(entry.Address),
		nilIfEmpty(entry.StartTime),
		nilIfEmpty(entry.EndTime),
		nilIfEmpty(entry.RiverName),
		nilIfEmpty(entry.SiteNumber),
		entry.WaterTempF,
		entry.WaterFlowCfs,
		nilIfEmpty(entry.TargetSpecies),
		nilIfEmpty(entry.Angler),
		nilIfEmpty(entry.FliesUsed),
		nilIfEmpty(entry.Notes),
		entry.Weather,
		entry.MoonPhase,
		entry.CachedFlowData,
		entry.ID,
		entry.UserID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update journal entry", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEntry, "journal entry not found", nil)
	}
	return nil
}

// UpdateCachedFlow stores a freshly resolved flow series on an entry.
// Called best-effort after entry save; failures here do not fail the save.
func (r *EntryRepository) UpdateCachedFlow(ctx context.Context, id string, userID string, series *types.FlowSeries) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE journal_entries SET cached_flow_data = $1, updated_at = NOW()
		 WHERE id = $2 AND user_id = $3`,
		series,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update cached flow data", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEntry, "journal entry not found", nil)
	}
	return nil
}

// Delete removes a journal entry scoped to its owner.
func (r *EntryRepository) Delete(ctx context.Context, id string, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM journal_entries WHERE id = $1 AND user_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete journal entry", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEntry, "journal entry not found", nil)
	}
	return nil
}
