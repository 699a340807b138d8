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

// Package probe implements the per target probe worker.
package probe

import (
	"context"
	"errors"
	"time"

	"github.com/caas-team/lookout/internal/echo"
	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/pkg/db"
	"github.com/caas-team/lookout/pkg/lifecycle"
)

// Result is a probe result tagged with the target it belongs to
type Result struct {
	TargetID db.TargetID
	Result   db.ProbeResult
}

// Worker probes exactly one target until it is shut down
type Worker struct {
	target  db.Target
	cfg     Config
	pinger  echo.Pinger
	sink    chan<- Result
	metrics *Metrics
	ctl     *lifecycle.Controller
}

// NewWorker creates a worker for the target sending its results to sink
func NewWorker(target db.Target, cfg Config, pinger echo.Pinger, sink chan<- Result, m *Metrics) *Worker {
	return &Worker{
		target:  target,
		cfg:     cfg,
		pinger:  pinger,
		sink:    sink,
		metrics: m,
		ctl:     lifecycle.New(),
	}
}

// Target returns the target of the worker
func (w *Worker) Target() db.Target {
	return w.target
}

// Handle returns the handle to shut the worker down
func (w *Worker) Handle() lifecycle.Handle {
	return w.ctl.Handle()
}

// Run probes the target immediately and then once per interval until shutdown.
// It blocks until the worker stopped.
func (w *Worker) Run(ctx context.Context) error {
	return w.ctl.Run(ctx, w.loop)
}

// Start runs the worker in a new goroutine
func (w *Worker) Start(ctx context.Context) <-chan error {
	return w.ctl.Go(ctx, w.loop)
}

func (w *Worker) loop(ctx context.Context) error {
	log := logger.FromContext(ctx).With("target", w.target.ID, "address", w.target.Address)
	ctx = logger.IntoContext(ctx, log)
	log.DebugContext(ctx, "Starting probe worker", "interval", w.cfg.Interval, "timeout", w.cfg.Timeout)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for op := w.ctl.Poll(); op == lifecycle.Next; op = w.ctl.Tick(ctx, ticker.C) {
		res := w.probe(ctx)
		if w.metrics != nil {
			w.metrics.observe(w.target, res)
		}
		w.emit(ctx, res)
	}

	log.DebugContext(ctx, "Probe worker stopped")
	return nil
}

// probe sends one echo request and classifies the outcome
func (w *Worker) probe(ctx context.Context) db.ProbeResult {
	pctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	issued := time.Now()
	rtt, err := w.pinger.Ping(pctx, w.target.Address, w.cfg.Timeout)
	elapsed := time.Since(issued)

	status := Classify(rtt, err)
	if status.Status == db.StatusFailure {
		logger.FromContext(ctx).DebugContext(ctx, "Probe failed", "error", err)
	}

	return db.ProbeResult{
		IssuedAt:    issued.UTC(),
		Elapsed:     elapsed,
		ProbeStatus: status,
	}
}

// Classify maps the outcome of a ping to a probe status.
// Only the probe's own timeout is a timeout, every other error is a failure.
func Classify(rtt time.Duration, err error) db.ProbeStatus {
	switch {
	case err == nil:
		return db.StatusOkWith(rtt)
	case errors.Is(err, echo.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return db.StatusTimedOut()
	default:
		return db.StatusFailed(err.Error())
	}
}

// emit sends the result to the sink. If the sink stays full for the emit timeout
// the result is dropped. A shutdown request aborts the send.
func (w *Worker) emit(ctx context.Context, res db.ProbeResult) {
	log := logger.FromContext(ctx)
	r := Result{TargetID: w.target.ID, Result: res}

	select {
	case w.sink <- r:
		return
	default:
	}

	timer := time.NewTimer(w.cfg.emitTimeout())
	defer timer.Stop()

	select {
	case w.sink <- r:
	case <-w.ctl.Stopping():
		log.DebugContext(ctx, "Dropping probe result, worker is stopping")
	case <-ctx.Done():
		log.DebugContext(ctx, "Dropping probe result, context is done")
	case <-timer.C:
		log.WarnContext(ctx, "Dropping probe result, result channel is full", "timeout", w.cfg.emitTimeout())
		if w.metrics != nil {
			w.metrics.dropped.Inc()
		}
	}
}
