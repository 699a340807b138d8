// lookout
// (C) 2025, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package monitor reconciles the targets of the store with the running probe workers.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/caas-team/lookout/internal/echo"
	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/pkg/db"
	"github.com/caas-team/lookout/pkg/lifecycle"
	"github.com/caas-team/lookout/pkg/probe"
)

// maxDrainBatch bounds the work done per tick so shutdown requests are noticed in time
const maxDrainBatch = 64

// Manager starts a probe worker for every target of the store, stops it once the
// target is deleted and writes the probe results back into the store.
type Manager struct {
	store    db.Store
	pinger   echo.Pinger
	cfg      Config
	probeCfg probe.Config
	results  chan probe.Result
	ctl      *lifecycle.Controller

	mu      sync.RWMutex
	workers map[db.TargetID]*probe.Worker

	probeMetrics *probe.Metrics
	metrics      metrics
}

// NewManager creates a new manager
func NewManager(store db.Store, pinger echo.Pinger, cfg Config, probeCfg probe.Config) *Manager {
	return &Manager{
		store:        store,
		pinger:       pinger,
		cfg:          cfg,
		probeCfg:     probeCfg,
		results:      make(chan probe.Result, cfg.ResultBuffer),
		ctl:          lifecycle.New(),
		workers:      make(map[db.TargetID]*probe.Worker),
		probeMetrics: probe.NewMetrics(),
		metrics:      newMetrics(),
	}
}

// Collectors returns the metric collectors of the manager and its workers
func (m *Manager) Collectors() []prometheus.Collector {
	return append(m.metrics.collectors(), m.probeMetrics.Collectors()...)
}

// Handle returns the handle to shut the manager down
func (m *Manager) Handle() lifecycle.Handle {
	return m.ctl.Handle()
}

// Run reconciles until shutdown. All workers are stopped before Run returns.
func (m *Manager) Run(ctx context.Context) error {
	return m.ctl.Run(ctx, m.loop)
}

// Start runs the manager in a new goroutine
func (m *Manager) Start(ctx context.Context) <-chan error {
	return m.ctl.Go(ctx, m.loop)
}

// Running returns the ids of all targets with a running worker
func (m *Manager) Running() []db.TargetID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]db.TargetID, 0, len(m.workers))
	for id := range m.workers {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) loop(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.InfoContext(ctx, "Starting monitor manager", "tick", m.cfg.Tick, "resyncInterval", m.cfg.ResyncInterval)

	// subscribe before the first resync so no target is missed
	sub := m.store.Subscribe()
	defer sub.Close()
	m.resync(ctx, "startup")

	tick := time.NewTicker(m.cfg.Tick)
	defer tick.Stop()
	resync := time.NewTicker(m.cfg.ResyncInterval)
	defer resync.Stop()

	for op := m.ctl.Poll(); op == lifecycle.Next; op = m.ctl.Tick(ctx, tick.C) {
		m.drain(ctx, sub)

		if lagged := sub.Lagged(); lagged > 0 {
			log.WarnContext(ctx, "Missed store events, resynchronizing", "missed", lagged)
			m.resync(ctx, "lagged")
		}

		select {
		case <-resync.C:
			m.resync(ctx, "periodic")
		default:
		}
	}

	log.InfoContext(ctx, "Stopping monitor manager")
	return m.stopAll(ctx)
}

// drain handles pending events and results. Both sources are selected
// fairly, at most maxDrainBatch items are handled per call.
func (m *Manager) drain(ctx context.Context, sub *db.Subscription) {
	for range maxDrainBatch {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			m.handleEvent(ctx, ev)
		case res := <-m.results:
			m.pushResult(ctx, res)
		default:
			return
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, ev db.Event) {
	log := logger.FromContext(ctx).With("target", ev.ID)
	m.metrics.events.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case db.EventUpdated:
		if ev.Target == nil {
			log.ErrorContext(ctx, "Received updated event without target")
			return
		}
		m.ensure(ctx, *ev.Target)
	case db.EventDeleted:
		if !m.stop(ctx, ev.ID) {
			log.DebugContext(ctx, "Received deleted event for target without worker")
		}
	default:
		log.ErrorContext(ctx, "Received unknown store event", "kind", ev.Kind)
	}
}

// ensure makes sure exactly one worker probes the target. A running worker for the
// same address is kept, a worker for a different address is replaced.
func (m *Manager) ensure(ctx context.Context, target db.Target) {
	log := logger.FromContext(ctx).With("target", target.ID, "address", target.Address)

	m.mu.RLock()
	w, ok := m.workers[target.ID]
	m.mu.RUnlock()
	if ok {
		if w.Target().Address == target.Address {
			log.DebugContext(ctx, "Worker already running for target")
			return
		}
		log.InfoContext(ctx, "Target address changed, replacing worker", "previous", w.Target().Address)
		m.stop(ctx, target.ID)
	}

	w = probe.NewWorker(target, m.probeCfg, m.pinger, m.results, m.probeMetrics)
	w.Start(ctx)

	m.mu.Lock()
	m.workers[target.ID] = w
	m.mu.Unlock()
	m.metrics.running.Inc()
	log.InfoContext(ctx, "Started probe worker")
}

// stop shuts the worker of the target down and waits until it exited.
// It reports false if no worker was running.
func (m *Manager) stop(ctx context.Context, id db.TargetID) bool {
	log := logger.FromContext(ctx).With("target", id)

	m.mu.Lock()
	w, ok := m.workers[id]
	delete(m.workers, id)
	m.mu.Unlock()
	if !ok {
		return false
	}

	if err := w.Handle().Shutdown(context.WithoutCancel(ctx)); err != nil {
		log.ErrorContext(ctx, "Failed to shut down probe worker", "error", err)
	}
	m.probeMetrics.Remove(id)
	m.metrics.running.Dec()
	log.InfoContext(ctx, "Stopped probe worker")
	return true
}

// stopAll shuts all workers down concurrently
func (m *Manager) stopAll(ctx context.Context) error {
	m.mu.Lock()
	workers := m.workers
	m.workers = make(map[db.TargetID]*probe.Worker)
	m.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for id, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := w.Handle().Shutdown(context.WithoutCancel(ctx))
			m.probeMetrics.Remove(id)
			m.metrics.running.Dec()
			if err != nil {
				mu.Lock()
				errs = errors.Join(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errs
}

// resync reconciles the running workers with a snapshot of the store
func (m *Manager) resync(ctx context.Context, reason string) {
	log := logger.FromContext(ctx)
	m.metrics.resyncs.WithLabelValues(reason).Inc()

	targets := m.store.List()
	want := make(map[db.TargetID]struct{}, len(targets))
	for _, t := range targets {
		want[t.ID] = struct{}{}
		m.ensure(ctx, t)
	}

	for _, id := range m.Running() {
		if _, ok := want[id]; !ok {
			m.stop(ctx, id)
		}
	}
	log.DebugContext(ctx, "Resynchronized workers", "reason", reason, "targets", len(targets))
}

func (m *Manager) pushResult(ctx context.Context, res probe.Result) {
	if !m.store.PushResult(res.TargetID, res.Result) {
		m.metrics.discarded.Inc()
		logger.FromContext(ctx).DebugContext(ctx, "Discarding result of deleted target", "target", res.TargetID)
	}
}
