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

package healthz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/pkg/lookout"
)

type Checker interface {
	// CheckOverallHealth reports whether the api, the metrics endpoint and
	// the monitor of a local lookout are healthy
	CheckOverallHealth(ctx context.Context) bool
}

// checker is used to check the health of the lookout's endpoints
type checker struct {
	addr   string
	client *http.Client
}

// New creates a new healthz checker
// address is the listening address of the API
func New(address string, timeout time.Duration) Checker {
	return &checker{
		addr:   formatAddress(address),
		client: &http.Client{Timeout: timeout},
	}
}

func (c *checker) CheckOverallHealth(ctx context.Context) bool {
	return c.isEndpointHealthy(ctx, "/") && c.isEndpointHealthy(ctx, "/metrics") && c.isMonitorHealthy(ctx)
}

// isEndpointHealthy checks if the endpoint answers with 200
func (c *checker) isEndpointHealthy(ctx context.Context, path string) bool {
	log := logger.FromContext(ctx).With("path", path)

	resp, err := c.get(ctx, path) //nolint:bodyclose // closed in defer
	if err != nil {
		log.Error("Failed to send request", "error", err)
		return false
	}
	defer closeBody(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Warn("Endpoint is unhealthy", "status", resp.StatusCode)
		return false
	}
	return true
}

// isMonitorHealthy checks that every known target has a running worker
func (c *checker) isMonitorHealthy(ctx context.Context) bool {
	log := logger.FromContext(ctx).With("path", "/v1/status")

	resp, err := c.get(ctx, "/v1/status") //nolint:bodyclose // closed in defer
	if err != nil {
		log.Error("Failed to send request", "error", err)
		return false
	}
	defer closeBody(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Warn("Status endpoint is unhealthy", "status", resp.StatusCode)
		return false
	}

	var status lookout.Status
	if err = json.NewDecoder(resp.Body).Decode(&status); err != nil {
		log.Error("Failed to decode status", "error", err)
		return false
	}
	if len(status.Running) != status.Targets {
		log.Warn("Monitor is not reconciled", "targets", status.Targets, "running", len(status.Running))
		return false
	}
	return true
}

func (c *checker) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s%s", c.addr, path), http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

func closeBody(ctx context.Context, b io.ReadCloser) {
	if err := b.Close(); err != nil {
		logger.FromContext(ctx).Error("Failed to close response body", "error", err)
	}
}

// formatAddress formats the address to be used in the healthz checker
func formatAddress(addr string) string {
	// Localhost is a special case, since it's the only address that doesn't need to be formatted
	if addr == "localhost" || addr == "127.0.0.1" || addr == net.IPv6loopback.String() {
		return addr
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort("localhost", "8080")
	}

	return net.JoinHostPort("localhost", port)
}
