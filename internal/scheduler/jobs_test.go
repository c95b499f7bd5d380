package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverlog/internal/hydro"
	"riverlog/internal/types"
)

type fakeRefresher struct {
	results []*hydro.RefreshResult
	err     error
	calls   int
}

func (f *fakeRefresher) RefreshEverything(_ context.Context) ([]*hydro.RefreshResult, error) {
	f.calls++
	return f.results, f.err
}

type fakeSweeper struct {
	deleted int64
	err     error
	calls   int
}

func (f *fakeSweeper) DeleteExpired(_ context.Context) (int64, error) {
	f.calls++
	return f.deleted, f.err
}

type fakePruner struct {
	cutoff string
	err    error
}

func (f *fakePruner) PruneOlderThan(_ context.Context, cutoff string) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

type fakeLicenseLister struct {
	before   time.Time
	licenses []*types.FishingLicense
	err      error
}

func (f *fakeLicenseLister) ListExpiring(_ context.Context, before time.Time) ([]*types.FishingLicense, error) {
	f.before = before
	return f.licenses, f.err
}

var jobNow = time.Date(2024, 7, 5, 3, 30, 0, 0, time.UTC)

func TestRiverRefreshJob(t *testing.T) {
	refresher := &fakeRefresher{results: []*hydro.RefreshResult{
		{Flow: "1200"},
		{Flow: "800", Simulated: true},
	}}

	job := NewRiverRefreshJob(refresher, nil)
	require.Equal(t, "river_refresh", job.Name())
	require.NoError(t, job.Run(context.Background(), jobNow))
	assert.Equal(t, 1, refresher.calls)
}

func TestRiverRefreshJob_PropagatesError(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("db down")}
	job := NewRiverRefreshJob(refresher, nil)
	assert.Error(t, job.Run(context.Background(), jobNow))
}

func TestMaintenanceJob_SweepsAndPrunes(t *testing.T) {
	sweeper := &fakeSweeper{deleted: 12}
	pruner := &fakePruner{}

	job := NewMaintenanceJob(sweeper, pruner, nil)
	require.Equal(t, "maintenance_sweep", job.Name())
	require.NoError(t, job.Run(context.Background(), jobNow))

	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, "2023-07-06", pruner.cutoff)
}

func TestMaintenanceJob_SweepFailureStillPrunes(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	pruner := &fakePruner{}

	job := NewMaintenanceJob(sweeper, pruner, nil)
	err := job.Run(context.Background(), jobNow)

	assert.Error(t, err)
	assert.NotEmpty(t, pruner.cutoff)
}

func TestLicenseScanJob(t *testing.T) {
	lister := &fakeLicenseLister{licenses: []*types.FishingLicense{
		{
			ID:             "license_1",
			UserID:         "user_1",
			LicenseType:    "Annual Resident",
			State:          "MN",
			ExpirationDate: jobNow.AddDate(0, 0, 12),
		},
	}}

	job := NewLicenseScanJob(lister, 30*24*time.Hour, nil)
	require.Equal(t, "license_expiry_scan", job.Name())
	require.NoError(t, job.Run(context.Background(), jobNow))

	assert.Equal(t, jobNow.Add(30*24*time.Hour), lister.before)
}

func TestLicenseScanJob_PropagatesError(t *testing.T) {
	lister := &fakeLicenseLister{err: errors.New("db down")}
	job := NewLicenseScanJob(lister, time.Hour, nil)
	assert.Error(t, job.Run(context.Background(), jobNow))
}
