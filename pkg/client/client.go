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

// Package client is the http client of the lookout management api.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/caas-team/lookout/internal/helper"
	"github.com/caas-team/lookout/internal/httpclient"
	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/pkg/db"
	"github.com/caas-team/lookout/pkg/lookout"
)

const maxErrorBody = 512

// Client talks to a running lookout instance.
// The http.Client is taken from the request context, see [httpclient.IntoContext].
type Client struct {
	server string
	retry  helper.RetryConfig
}

// New creates a new client for the given configuration
func New(cfg Config) *Client {
	return &Client{
		server: strings.TrimSuffix(cfg.Server, "/"),
		retry:  cfg.Retry,
	}
}

// Message is a message of the event stream.
// Kind is one of "updated", "deleted" or "lagged".
type Message struct {
	Kind   string      `json:"kind"`
	ID     db.TargetID `json:"id"`
	Target *db.Target  `json:"target,omitempty"`
	Missed uint64      `json:"missed,omitempty"`
}

// List returns all targets
func (c *Client) List(ctx context.Context) ([]db.Target, error) {
	var targets []db.Target
	if err := c.do(ctx, http.MethodGet, "/v1/targets", nil, http.StatusOK, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// Add creates a new target for the given address
func (c *Client) Add(ctx context.Context, addr string) (db.Target, error) {
	body, err := json.Marshal(lookout.CreateTargetRequest{Addr: addr})
	if err != nil {
		return db.Target{}, fmt.Errorf("failed to encode request: %w", err)
	}
	var target db.Target
	if err := c.do(ctx, http.MethodPost, "/v1/targets", body, http.StatusOK, &target); err != nil {
		return db.Target{}, err
	}
	return target, nil
}

// Get returns the target with the given id
func (c *Client) Get(ctx context.Context, id db.TargetID) (db.Target, error) {
	var target db.Target
	if err := c.do(ctx, http.MethodGet, "/v1/targets/"+id.String(), nil, http.StatusOK, &target); err != nil {
		return db.Target{}, err
	}
	return target, nil
}

// Delete requests the deletion of the target with the given id.
// Deleting an unknown target is not an error.
func (c *Client) Delete(ctx context.Context, id db.TargetID) error {
	return c.do(ctx, http.MethodDelete, "/v1/targets/"+id.String(), nil, http.StatusAccepted, nil)
}

// Results returns the probe history of a target, oldest result first
func (c *Client) Results(ctx context.Context, id db.TargetID) ([]db.ProbeResult, error) {
	var results []db.ProbeResult
	if err := c.do(ctx, http.MethodGet, "/v1/targets/"+id.String()+"/results", nil, http.StatusOK, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Status returns the monitor status
func (c *Client) Status(ctx context.Context) (lookout.Status, error) {
	var status lookout.Status
	if err := c.do(ctx, http.MethodGet, "/v1/status", nil, http.StatusOK, &status); err != nil {
		return lookout.Status{}, err
	}
	return status, nil
}

// Watch streams the store events to fn until the context is done,
// the server closes the stream or fn returns an error
func (c *Client) Watch(ctx context.Context, fn func(Message) error) error {
	log := logger.FromContext(ctx)
	u, err := url.Parse(c.server + "/v1/events")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidServer, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.DebugContext(ctx, "Event stream closed by server")
				return nil
			}
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}

// do sends the request and decodes the response into out if the status matches want.
// Transport errors and server errors are retried.
func (c *Client) do(ctx context.Context, method, path string, body []byte, want int, out any) error {
	log := logger.FromContext(ctx).With("method", method, "path", path)
	client := httpclient.FromContext(ctx)

	var (
		code int
		data []byte
	)
	err := helper.Retry(func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.server+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := client.Do(req) //nolint:bodyclose // closed in defer
		if err != nil {
			log.DebugContext(ctx, "Request failed", "error", err)
			return err
		}
		defer func(b io.ReadCloser) {
			if cErr := b.Close(); cErr != nil {
				log.ErrorContext(ctx, "Failed to close response body", "error", cErr)
			}
		}(resp.Body)

		code = resp.StatusCode
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if code >= http.StatusInternalServerError {
			return ErrUnexpectedStatus{Code: code, Body: errorBody(data)}
		}
		return nil
	}, c.retry)(ctx)
	if err != nil {
		var statusErr ErrUnexpectedStatus
		if errors.As(err, &statusErr) {
			return statusErr
		}
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}

	switch {
	case code == want:
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusBadRequest:
		return ErrBadRequest
	default:
		return ErrUnexpectedStatus{Code: code, Body: errorBody(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func errorBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
