package hydro

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverlog/internal/types"
)

type fakeRiverStore struct {
	mu          sync.Mutex
	rivers      []*types.SavedRiver
	updates     map[string]string
	listErr     error
	updateErrID string
}

func (f *fakeRiverStore) ListByUser(_ context.Context, _ string) ([]*types.SavedRiver, error) {
	return f.rivers, f.listErr
}

func (f *fakeRiverStore) ListAll(_ context.Context) ([]*types.SavedRiver, error) {
	return f.rivers, f.listErr
}

func (f *fakeRiverStore) UpdateFlow(_ context.Context, id string, flow string, _ types.FlowTrend, _ bool) error {
	if id == f.updateErrID {
		return errors.New("update failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = map[string]string{}
	}
	f.updates[id] = flow
	return nil
}

type fakeAlertStore struct {
	configs []*types.FlowAlertConfig
	marked  []string
}

func (f *fakeAlertStore) ListEnabledBySite(_ context.Context, _ string) ([]*types.FlowAlertConfig, error) {
	return f.configs, nil
}

func (f *fakeAlertStore) MarkTriggered(_ context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

func savedRiver(id, site, currentFlow string) *types.SavedRiver {
	return &types.SavedRiver{
		ID:          id,
		UserID:      "user_1",
		RiverName:   "Test River",
		SiteNumber:  site,
		CurrentFlow: currentFlow,
		Trend:       types.TrendStable,
	}
}

func newTestRefresher(usgs usgsAPI, rivers RiverStore, alerts AlertStore) *Refresher {
	resolver := NewResolver(usgs, nil, mockClock{now: resolverNow}, nil)
	return NewRefresher(resolver, rivers, alerts, time.Millisecond, mockClock{now: resolverNow}, nil)
}

func TestRefreshRiver_UpdatesFlowAndFiresAlert(t *testing.T) {
	usgs := &fakeUSGS{readings: []Reading{{Cfs: 1200, Hour: 10}}}
	rivers := &fakeRiverStore{}
	alerts := &fakeAlertStore{configs: []*types.FlowAlertConfig{
		{ID: "alert_1", SiteNumber: "05331000", Kind: types.AlertKindHigh, ThresholdCfs: 1100, Enabled: true},
	}}
	f := newTestRefresher(usgs, rivers, alerts)

	river := savedRiver("river_1", "05331000", "1000")
	result, err := f.RefreshRiver(context.Background(), river)

	require.NoError(t, err)
	assert.Equal(t, "1200", result.Flow)
	assert.Equal(t, types.TrendRising, result.Trend)
	assert.False(t, result.Simulated)
	assert.Equal(t, "1200", rivers.updates["river_1"])
	assert.Equal(t, "1200", river.CurrentFlow)
	assert.Equal(t, types.TrendRising, river.Trend)

	require.Len(t, result.Triggered, 1)
	assert.Equal(t, types.AlertKindHigh, result.Triggered[0].Kind)
	assert.Equal(t, []string{"alert_1"}, alerts.marked)
}

func TestRefreshRiver_NoDataStoresSentinel(t *testing.T) {
	usgs := &fakeUSGS{readings: []Reading{}}
	rivers := &fakeRiverStore{}
	alerts := &fakeAlertStore{configs: []*types.FlowAlertConfig{
		{ID: "alert_1", SiteNumber: "05331000", Kind: types.AlertKindLow, ThresholdCfs: 10000, Enabled: true},
	}}
	f := newTestRefresher(usgs, rivers, alerts)

	river := savedRiver("river_1", "05331000", "1000")
	result, err := f.RefreshRiver(context.Background(), river)

	require.NoError(t, err)
	assert.Equal(t, "No Data", result.Flow)
	assert.Equal(t, types.TrendStable, result.Trend)
	assert.Empty(t, result.Triggered)
	assert.Empty(t, alerts.marked)
}

func TestRefreshRiver_UpstreamErrorStoresSimulated(t *testing.T) {
	usgs := &fakeUSGS{readingsErr: errors.New("connection refused")}
	rivers := &fakeRiverStore{}
	f := newTestRefresher(usgs, rivers, nil)

	river := savedRiver("river_1", "05331000", "")
	result, err := f.RefreshRiver(context.Background(), river)

	require.NoError(t, err)
	assert.True(t, result.Simulated)
	assert.True(t, river.Simulated)
	assert.NotEmpty(t, rivers.updates["river_1"])
}

func TestRefreshRiver_SentinelPreviousFlowYieldsStableTrend(t *testing.T) {
	usgs := &fakeUSGS{readings: []Reading{{Cfs: 800, Hour: 10}}}
	rivers := &fakeRiverStore{}
	f := newTestRefresher(usgs, rivers, nil)

	river := savedRiver("river_1", "05331000", "No Data")
	result, err := f.RefreshRiver(context.Background(), river)

	require.NoError(t, err)
	assert.Equal(t, types.TrendStable, result.Trend)
}

func TestRefreshForUser_SkipsFailedRivers(t *testing.T) {
	usgs := &fakeUSGS{readings: []Reading{{Cfs: 600, Hour: 10}}}
	rivers := &fakeRiverStore{
		rivers: []*types.SavedRiver{
			savedRiver("river_1", "05331000", "500"),
			savedRiver("river_2", "05330000", "500"),
		},
		updateErrID: "river_2",
	}
	f := newTestRefresher(usgs, rivers, nil)

	results, err := f.RefreshForUser(context.Background(), "user_1")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "river_1", results[0].River.ID)
}

func TestRefreshForUser_ListFailure(t *testing.T) {
	rivers := &fakeRiverStore{listErr: errors.New("db down")}
	f := newTestRefresher(&fakeUSGS{}, rivers, nil)

	_, err := f.RefreshForUser(context.Background(), "user_1")
	assert.Error(t, err)
}

func TestRefreshEverything_RefreshesAllRivers(t *testing.T) {
	usgs := &fakeUSGS{readings: []Reading{{Cfs: 600, Hour: 10}}}
	rivers := &fakeRiverStore{
		rivers: []*types.SavedRiver{
			savedRiver("river_1", "05331000", "500"),
			savedRiver("river_2", "05330000", "500"),
			savedRiver("river_3", "05340500", "500"),
		},
	}
	f := newTestRefresher(usgs, rivers, nil)

	results, err := f.RefreshEverything(context.Background())

	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Len(t, rivers.updates, 3)
}
