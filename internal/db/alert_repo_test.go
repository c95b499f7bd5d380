package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"riverlog/internal/types"
)

func alertRow(id string, kind types.AlertKind, threshold float64, lastTriggered *time.Time) func(dest ...any) error {
	now := time.Now().UTC()
	return func(dest ...any) error {
		*dest[0].(*string) = id
		*dest[1].(*string) = "user_1"
		*dest[2].(*string) = "06041000"
		*dest[3].(*types.AlertKind) = kind
		*dest[4].(*float64) = threshold
		*dest[5].(*bool) = true
		*dest[6].(**time.Time) = lastTriggered
		*dest[7].(*time.Time) = now
		*dest[8].(*time.Time) = now
		return nil
	}
}

func TestAlertRepository_Upsert_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Upsert(context.Background(), &types.FlowAlertConfig{
		ID:           "alert_1",
		UserID:       "user_1",
		SiteNumber:   "06041000",
		Kind:         types.AlertKindHigh,
		ThresholdCfs: 2000,
		Enabled:      true,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestAlertRepository_Upsert_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.Upsert(context.Background(), &types.FlowAlertConfig{ID: "alert_1"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestAlertRepository_ListEnabledBySite_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertRepository(db)

	lastTriggered := time.Now().UTC().Add(-2 * time.Hour)
	rows := newMockRows(
		alertRow("alert_1", types.AlertKindHigh, 2000, &lastTriggered),
		alertRow("alert_2", types.AlertKindLow, 300, nil),
	)
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	alerts, err := repo.ListEnabledBySite(context.Background(), "06041000")
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, types.AlertKindHigh, alerts[0].Kind)
	require.NotNil(t, alerts[0].LastTriggeredAt)
	assert.Equal(t, types.AlertKindLow, alerts[1].Kind)
	assert.Nil(t, alerts[1].LastTriggeredAt)
}

func TestAlertRepository_DeleteKind_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 1"), nil)

	err := repo.DeleteKind(context.Background(), "user_1", "06041000", types.AlertKindFlood)
	require.NoError(t, err)
	db.AssertExpectations(t)
}
