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

// Package lookout wires the target store, the monitor manager and the
// management api together and supervises their lifecycle.
package lookout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/caas-team/lookout/internal/echo"
	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/pkg/api"
	"github.com/caas-team/lookout/pkg/config"
	"github.com/caas-team/lookout/pkg/db"
	"github.com/caas-team/lookout/pkg/lifecycle"
	"github.com/caas-team/lookout/pkg/metrics"
	"github.com/caas-team/lookout/pkg/monitor"
)

const (
	shutdownTimeout = 90 * time.Second
	superviseTick   = 100 * time.Millisecond
)

// Lookout is a running lookout instance
type Lookout struct {
	cfg     *config.Config
	db      db.Store
	pinger  echo.Pinger
	manager *monitor.Manager
	api     api.API
	metrics metrics.Provider
	ctl     *lifecycle.Controller

	// streams is canceled once the api shuts down to end all event streams
	streams       context.Context
	cancelStreams context.CancelFunc
	streamsWg     sync.WaitGroup
}

// New creates a new lookout instance from the validated configuration
func New(cfg *config.Config, pinger echo.Pinger) (*Lookout, error) {
	store, err := db.NewInMemory(cfg.Store.HistoryCapacity, cfg.Store.EventBacklog)
	if err != nil {
		return nil, fmt.Errorf("failed to create target store: %w", err)
	}

	streams, cancel := context.WithCancel(context.Background())
	l := &Lookout{
		cfg:           cfg,
		db:            store,
		pinger:        pinger,
		manager:       monitor.NewManager(store, pinger, cfg.Monitor, cfg.Probe),
		api:           api.New(cfg.Api),
		metrics:       metrics.New(),
		ctl:           lifecycle.New(),
		streams:       streams,
		cancelStreams: cancel,
	}
	l.api.OnShutdown(l.closeStreams)
	return l, nil
}

// Run starts all components and supervises them until shutdown.
// If any component fails, all others are shut down as well.
func (l *Lookout) Run(ctx context.Context) error {
	return l.ctl.Run(ctx, l.run)
}

// Shutdown stops all components and waits until Run returned
func (l *Lookout) Shutdown(ctx context.Context) error {
	return l.ctl.Handle().Shutdown(ctx)
}

func (l *Lookout) run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	if err := l.metrics.Register(l.manager.Collectors()...); err != nil {
		log.ErrorContext(ctx, "Failed to register metrics", "error", err)
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := l.api.RegisterRoutes(ctx, l.routes()...); err != nil {
		log.ErrorContext(ctx, "Failed to register routes", "error", err)
		return fmt.Errorf("failed to register routes: %w", err)
	}
	if err := l.seed(ctx); err != nil {
		return err
	}

	cManager := l.manager.Start(ctx)
	cApi := make(chan error, 1)
	go func() {
		cApi <- l.api.Run(ctx)
	}()

	var runErr error
	ticker := time.NewTicker(superviseTick)
	defer ticker.Stop()
	for op := l.ctl.Poll(); op == lifecycle.Next && runErr == nil; op = l.ctl.Tick(ctx, ticker.C) {
		select {
		case err := <-cApi:
			log.ErrorContext(ctx, "Api stopped unexpectedly", "error", err)
			runErr = ErrUnexpectedStop{Component: "api", Err: err}
		case err := <-cManager:
			log.ErrorContext(ctx, "Monitor manager stopped unexpectedly", "error", err)
			runErr = ErrUnexpectedStop{Component: "monitor manager", Err: err}
		default:
		}
	}

	log.InfoContext(ctx, "Shutting down lookout")
	return errors.Join(runErr, l.shutdown(ctx))
}

// shutdown stops the api first so no mutations arrive while the workers stop
func (l *Lookout) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	log := logger.FromContext(ctx)

	errA := l.api.Shutdown(ctx)
	if errA != nil {
		log.ErrorContext(ctx, "Failed to shutdown api", "error", errA)
	}
	l.closeStreams()
	errM := l.manager.Handle().Shutdown(ctx)
	if errM != nil {
		log.ErrorContext(ctx, "Failed to shutdown monitor manager", "error", errM)
	}

	if err := errors.Join(errA, errM); err != nil {
		return fmt.Errorf("failed to shutdown gracefully: %w", err)
	}
	log.InfoContext(ctx, "Lookout shut down")
	return nil
}

// closeStreams ends all open event streams and waits for their handlers
func (l *Lookout) closeStreams() {
	l.cancelStreams()
	l.streamsWg.Wait()
}

// seed inserts the configured targets
func (l *Lookout) seed(ctx context.Context) error {
	log := logger.FromContext(ctx)
	addrs, err := l.cfg.SeedTargets()
	if err != nil {
		log.ErrorContext(ctx, "Failed to parse seed targets", "error", err)
		return err
	}
	for _, addr := range addrs {
		id := l.db.Insert(db.NewTarget(addr))
		log.InfoContext(ctx, "Added seed target", "target", id, "address", addr)
	}
	return nil
}
