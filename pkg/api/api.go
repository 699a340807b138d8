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

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/pkg/lifecycle"
)

type API interface {
	// Run serves the api until it is shut down
	Run(ctx context.Context) error
	// Shutdown gracefully shuts down the api server and waits until Run returned
	Shutdown(ctx context.Context) error
	// RegisterRoutes sets up all endpoint handlers for the given routes
	RegisterRoutes(ctx context.Context, routes ...Route) error
	// OnShutdown registers a function called when the server shuts down.
	// Used to close hijacked connections like websockets.
	OnShutdown(f func())
}

type api struct {
	server *http.Server
	router chi.Router
	cors   []string
	ctl    *lifecycle.Controller
}

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	tick              = 100 * time.Millisecond
)

// New creates a new api
func New(cfg Config) API {
	r := chi.NewRouter()
	return &api{
		server: &http.Server{Addr: cfg.ListeningAddress, Handler: r, ReadHeaderTimeout: readHeaderTimeout},
		router: r,
		cors:   cfg.AllowedOrigins,
		ctl:    lifecycle.New(),
	}
}

// Run serves the management api.
// Blocks until the api is shut down or the context is done.
func (a *api) Run(ctx context.Context) error {
	if len(a.router.Routes()) == 0 {
		return fmt.Errorf("failed serving API: %w", ErrNoRoutes)
	}
	return a.ctl.Run(ctx, a.serve)
}

func (a *api) serve(ctx context.Context) error {
	log := logger.FromContext(ctx)

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		log.ErrorContext(ctx, "Failed to listen", "addr", a.server.Addr, "error", err)
		return fmt.Errorf("failed serving API: %w", err)
	}

	cErr := make(chan error, 1)
	go func() {
		defer close(cErr)
		log.InfoContext(ctx, "Serving Api", "addr", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Failed to serve api", "error", err)
			cErr <- err
		}
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for op := a.ctl.Poll(); op == lifecycle.Next; op = a.ctl.Tick(ctx, ticker.C) {
		select {
		case err := <-cErr:
			return fmt.Errorf("failed serving API: %w", err)
		default:
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(ctx, "Failed to shutdown api server", "error", err)
		return fmt.Errorf("failed shutting down API: %w", errors.Join(ctx.Err(), err))
	}
	if err := <-cErr; err != nil {
		return fmt.Errorf("failed serving API: %w", err)
	}
	log.InfoContext(ctx, "Api server closed")
	return ctx.Err()
}

// Shutdown gracefully shuts down the api server.
// Returns once Run returned or the context is done.
func (a *api) Shutdown(ctx context.Context) error {
	return a.ctl.Handle().Shutdown(ctx)
}

func (a *api) OnShutdown(f func()) {
	a.server.RegisterOnShutdown(f)
}

type Route struct {
	Path    string
	Method  string
	Handler http.HandlerFunc
}

// RegisterRoutes sets up all endpoint handlers for the given routes
func (a *api) RegisterRoutes(ctx context.Context, routes ...Route) error {
	a.router.Use(logger.Middleware(ctx))
	if len(a.cors) > 0 {
		a.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.cors,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	for _, route := range routes {
		switch route.Method {
		case http.MethodGet:
			a.router.Get(route.Path, route.Handler)
		case http.MethodPost:
			a.router.Post(route.Path, route.Handler)
		case http.MethodPut:
			a.router.Put(route.Path, route.Handler)
		case http.MethodDelete:
			a.router.Delete(route.Path, route.Handler)
		case http.MethodPatch:
			a.router.Patch(route.Path, route.Handler)
		case "Handle":
			a.router.Handle(route.Path, route.Handler)
		case "HandleFunc":
			a.router.HandleFunc(route.Path, route.Handler)
		default:
			return ErrUnsupportedMethod{Path: route.Path, Method: route.Method}
		}
	}

	// Handles requests with simple http ok
	a.router.Handle("/", okHandler(ctx))

	return nil
}

// okHandler returns a handler that will serve status ok
func okHandler(ctx context.Context) http.Handler {
	log := logger.FromContext(ctx)

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("ok"))
		if err != nil {
			log.Error("Could not write response", "error", err.Error())
		}
	})
}
