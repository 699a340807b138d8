package monitor

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echomock "github.com/caas-team/lookout/internal/echo/test"
	"github.com/caas-team/lookout/pkg/db"
	"github.com/caas-team/lookout/pkg/probe"
)

const (
	waitFor = 2 * time.Second
	poll    = 5 * time.Millisecond
)

func testSetup(t *testing.T) (*Manager, *db.InMemory) {
	t.Helper()
	store, err := db.NewInMemory(db.DefaultHistoryCapacity, db.DefaultEventBacklog)
	require.NoError(t, err)

	cfg := DefaultConfig()
	probeCfg := probe.Config{
		Interval:    10 * time.Millisecond,
		Timeout:     20 * time.Millisecond,
		EmitTimeout: 10 * time.Millisecond,
	}
	return NewManager(store, echomock.New(time.Millisecond), cfg, probeCfg), store
}

func start(t *testing.T, m *Manager) {
	t.Helper()
	cErr := m.Start(context.Background())
	t.Cleanup(func() {
		require.NoError(t, m.Handle().Shutdown(context.Background()))
		require.NoError(t, <-cErr)
	})
}

func isRunning(m *Manager, id db.TargetID) bool {
	for _, r := range m.Running() {
		if r == id {
			return true
		}
	}
	return false
}

func TestManager_PicksUpExistingTargets(t *testing.T) {
	m, store := testSetup(t)
	id := store.Insert(db.NewTarget(netip.MustParseAddr("8.8.8.8")))

	start(t, m)

	assert.Eventually(t, func() bool { return isRunning(m, id) }, waitFor, poll)
	assert.Eventually(t, func() bool {
		e, ok := store.Get(id)
		return ok && len(e.History) > 0
	}, waitFor, poll, "Expected probe results in the store")
}

func TestManager_StartsAndStopsWorkers(t *testing.T) {
	m, store := testSetup(t)
	start(t, m)

	id := store.Insert(db.NewTarget(netip.MustParseAddr("1.1.1.1")))
	assert.Eventually(t, func() bool { return isRunning(m, id) }, waitFor, poll)
	assert.Len(t, m.Running(), 1)

	store.Delete(id)
	assert.Eventually(t, func() bool {
		return !isRunning(m, id) && testutil.ToFloat64(m.metrics.running) == 0
	}, waitFor, poll)
	assert.Empty(t, m.Running())

	_, ok := store.Get(id)
	assert.False(t, ok)
	assert.False(t, store.PushResult(id, db.ProbeResult{}))
}

func TestManager_DeleteUnknown(t *testing.T) {
	m, store := testSetup(t)
	start(t, m)

	known := store.Insert(db.NewTarget(netip.MustParseAddr("1.1.1.1")))
	assert.Eventually(t, func() bool { return isRunning(m, known) }, waitFor, poll)

	store.Delete(db.NewTargetID())
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.metrics.events.WithLabelValues(string(db.EventDeleted))) == 1
	}, waitFor, poll)
	assert.Equal(t, []db.TargetID{known}, m.Running())
}

func TestManager_HandleEvent(t *testing.T) {
	target := db.NewTarget(netip.MustParseAddr("9.9.9.9"))
	moved := db.Target{ID: target.ID, Address: netip.MustParseAddr("149.112.112.112")}

	tests := []struct {
		name        string
		events      []db.Event
		wantRunning []db.TargetID
		wantAddress netip.Addr
	}{
		{
			name:        "updated starts a worker",
			events:      []db.Event{db.Updated(target)},
			wantRunning: []db.TargetID{target.ID},
			wantAddress: target.Address,
		},
		{
			name:        "duplicate updated keeps one worker",
			events:      []db.Event{db.Updated(target), db.Updated(target), db.Updated(target)},
			wantRunning: []db.TargetID{target.ID},
			wantAddress: target.Address,
		},
		{
			name:        "updated with new address replaces the worker",
			events:      []db.Event{db.Updated(target), db.Updated(moved)},
			wantRunning: []db.TargetID{target.ID},
			wantAddress: moved.Address,
		},
		{
			name:        "deleted stops the worker",
			events:      []db.Event{db.Updated(target), db.Deleted(target.ID)},
			wantRunning: []db.TargetID{},
		},
		{
			name:        "deleted without worker",
			events:      []db.Event{db.Deleted(target.ID)},
			wantRunning: []db.TargetID{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := testSetup(t)
			ctx := context.Background()
			for _, ev := range tt.events {
				m.handleEvent(ctx, ev)
			}

			assert.ElementsMatch(t, tt.wantRunning, m.Running())
			assert.Equal(t, float64(len(tt.wantRunning)), testutil.ToFloat64(m.metrics.running))
			if len(tt.wantRunning) > 0 {
				assert.Equal(t, tt.wantAddress, m.workers[target.ID].Target().Address)
			}
			require.NoError(t, m.stopAll(ctx))
			assert.Empty(t, m.Running())
		})
	}
}

func TestManager_Resync(t *testing.T) {
	m, store := testSetup(t)
	ctx := context.Background()
	a := store.Insert(db.NewTarget(netip.MustParseAddr("10.0.0.1")))
	b := store.Insert(db.NewTarget(netip.MustParseAddr("10.0.0.2")))

	m.resync(ctx, "test")
	assert.ElementsMatch(t, []db.TargetID{a, b}, m.Running())

	// the store changed without the manager handling the events
	store.Delete(a)
	c := store.Insert(db.NewTarget(netip.MustParseAddr("10.0.0.3")))

	m.resync(ctx, "test")
	assert.ElementsMatch(t, []db.TargetID{b, c}, m.Running())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.metrics.resyncs.WithLabelValues("test")))

	require.NoError(t, m.stopAll(ctx))
}

func TestManager_ResyncOnLag(t *testing.T) {
	store, err := db.NewInMemory(db.DefaultHistoryCapacity, 1)
	require.NoError(t, err)
	m := NewManager(store, echomock.New(time.Millisecond), DefaultConfig(), probe.DefaultConfig())
	ctx := context.Background()

	sub := store.Subscribe()
	defer sub.Close()
	ids := make([]db.TargetID, 5)
	for n := range ids {
		ids[n] = store.Insert(db.NewTarget(netip.AddrFrom4([4]byte{10, 1, 0, byte(n)})))
	}

	m.drain(ctx, sub)
	assert.Len(t, m.Running(), 1, "Only the last event survived the backlog")

	require.Equal(t, uint64(4), sub.Lagged())
	m.resync(ctx, "lagged")
	assert.ElementsMatch(t, ids, m.Running())

	require.NoError(t, m.stopAll(ctx))
}

func TestManager_DiscardsResultsOfDeletedTargets(t *testing.T) {
	m, store := testSetup(t)
	id := store.Insert(db.NewTarget(netip.MustParseAddr("10.0.0.1")))
	store.Delete(id)

	m.pushResult(context.Background(), probe.Result{TargetID: id})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.discarded))
}

func TestManager_ShutdownStopsAllWorkers(t *testing.T) {
	m, store := testSetup(t)
	for n := range 3 {
		store.Insert(db.NewTarget(netip.AddrFrom4([4]byte{10, 2, 0, byte(n)})))
	}

	cErr := m.Start(context.Background())
	assert.Eventually(t, func() bool { return len(m.Running()) == 3 }, waitFor, poll)

	require.NoError(t, m.Handle().Shutdown(context.Background()))
	assert.NoError(t, <-cErr)
	assert.Empty(t, m.Running())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.metrics.running))

	// shutdown is idempotent
	assert.NoError(t, m.Handle().Shutdown(context.Background()))
}

func TestManager_ShutdownOnContextCancel(t *testing.T) {
	m, store := testSetup(t)
	store.Insert(db.NewTarget(netip.MustParseAddr("10.0.0.1")))
	ctx, cancel := context.WithCancel(context.Background())

	cErr := m.Start(ctx)
	assert.Eventually(t, func() bool { return len(m.Running()) == 1 }, waitFor, poll)
	cancel()

	select {
	case err := <-cErr:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Manager did not stop after context cancellation")
	}
	assert.Empty(t, m.Running())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "defaults", cfg: DefaultConfig()},
		{name: "unbuffered results", cfg: Config{Tick: time.Millisecond, ResyncInterval: time.Second}},
		{name: "zero tick", cfg: Config{ResyncInterval: time.Second}, wantErr: ErrInvalidTick},
		{name: "negative buffer", cfg: Config{Tick: time.Millisecond, ResultBuffer: -1, ResyncInterval: time.Second}, wantErr: ErrInvalidResultBuffer},
		{name: "zero resync", cfg: Config{Tick: time.Millisecond}, wantErr: ErrInvalidResyncInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
