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

package lookout

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/pkg/api"
	"github.com/caas-team/lookout/pkg/db"
)

type encoder interface {
	Encode(v any) error
}

const (
	urlParamTargetID = "id"
	maxBodySize      = 1 << 12
)

// CreateTargetRequest is the body of a target creation request
type CreateTargetRequest struct {
	Addr string `json:"addr"`
}

// Status is the state of the monitor
type Status struct {
	Targets int           `json:"targets"`
	Running []db.TargetID `json:"running"`
}

func (l *Lookout) routes() []api.Route {
	return []api.Route{
		{Path: "/v1/targets", Method: http.MethodGet, Handler: l.handleListTargets},
		{Path: "/v1/targets", Method: http.MethodPost, Handler: l.handleCreateTarget},
		{Path: "/v1/targets/{" + urlParamTargetID + "}", Method: http.MethodGet, Handler: l.handleGetTarget},
		{Path: "/v1/targets/{" + urlParamTargetID + "}", Method: http.MethodDelete, Handler: l.handleDeleteTarget},
		{Path: "/v1/targets/{" + urlParamTargetID + "}/results", Method: http.MethodGet, Handler: l.handleTargetResults},
		{Path: "/v1/events", Method: http.MethodGet, Handler: l.handleEvents},
		{Path: "/v1/status", Method: http.MethodGet, Handler: l.handleStatus},
		{Path: "/openapi", Method: http.MethodGet, Handler: l.handleOpenAPI},
		{Path: "/metrics", Method: "Handle", Handler: l.metrics.Handler().ServeHTTP},
	}
}

func (l *Lookout) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets := l.db.List()
	slices.SortFunc(targets, func(a, b db.Target) int {
		if c := a.Address.Compare(b.Address); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	writeJSON(w, r, http.StatusOK, targets)
}

func (l *Lookout) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CreateTargetRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		log.DebugContext(r.Context(), "Failed to decode request body", "error", err)
		writeStatus(w, log, http.StatusBadRequest)
		return
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(req.Addr))
	if err != nil {
		log.DebugContext(r.Context(), "Invalid target address", "addr", req.Addr, "error", err)
		writeStatus(w, log, http.StatusBadRequest)
		return
	}

	target := db.NewTarget(addr)
	l.db.Insert(target)
	log.InfoContext(r.Context(), "Added target", "target", target.ID, "address", target.Address)
	writeJSON(w, r, http.StatusOK, target)
}

func (l *Lookout) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	entry, ok := l.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, entry.Target)
}

func (l *Lookout) handleTargetResults(w http.ResponseWriter, r *http.Request) {
	entry, ok := l.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, entry.History)
}

func (l *Lookout) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id, ok := targetID(w, r)
	if !ok {
		return
	}

	if _, existed := l.db.Delete(id); existed {
		log.InfoContext(r.Context(), "Deleted target", "target", id)
	}
	writeStatus(w, log, http.StatusAccepted)
}

func (l *Lookout) handleStatus(w http.ResponseWriter, r *http.Request) {
	running := l.manager.Running()
	slices.SortFunc(running, func(a, b db.TargetID) int {
		return strings.Compare(a.String(), b.String())
	})
	writeJSON(w, r, http.StatusOK, Status{
		Targets: len(l.db.ListKeys()),
		Running: running,
	})
}

func (l *Lookout) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	oapi, err := OpenAPI()
	if err != nil {
		log.Error("Failed to create openapi", "error", err)
		writeStatus(w, log, http.StatusInternalServerError)
		return
	}

	var marshaler encoder
	switch r.Header.Get("Accept") {
	case "application/json":
		marshaler = json.NewEncoder(w)
		w.Header().Add("Content-Type", "application/json")
	default:
		marshaler = yaml.NewEncoder(w)
		w.Header().Add("Content-Type", "text/yaml")
	}

	if err = marshaler.Encode(oapi); err != nil {
		log.Error("Failed to marshal openapi", "error", err)
		writeStatus(w, log, http.StatusInternalServerError)
	}
}

// lookup returns the entry of the target addressed by the request.
// It writes the error response if the id is malformed or unknown.
func (l *Lookout) lookup(w http.ResponseWriter, r *http.Request) (db.Entry, bool) {
	id, ok := targetID(w, r)
	if !ok {
		return db.Entry{}, false
	}
	entry, ok := l.db.Get(id)
	if !ok {
		writeStatus(w, logger.FromContext(r.Context()), http.StatusNotFound)
		return db.Entry{}, false
	}
	return entry, true
}

func targetID(w http.ResponseWriter, r *http.Request) (db.TargetID, bool) {
	id, err := db.ParseTargetID(chi.URLParam(r, urlParamTargetID))
	if err != nil {
		log := logger.FromContext(r.Context())
		log.DebugContext(r.Context(), "Invalid target id", "error", err)
		writeStatus(w, log, http.StatusBadRequest)
		return db.TargetID{}, false
	}
	return id, true
}

// writeStatus writes the status code and its text as body
func writeStatus(w http.ResponseWriter, log *slog.Logger, code int) {
	w.WriteHeader(code)
	if _, err := w.Write([]byte(http.StatusText(code))); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	log := logger.FromContext(r.Context())
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Error("Failed to encode response", "error", err)
		writeStatus(w, log, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(b); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}
