package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/spf13/viper"

	"github.com/caas-team/lookout/internal/echo"
	"github.com/caas-team/lookout/pkg/config"
	"github.com/caas-team/lookout/pkg/db"
	"github.com/caas-team/lookout/pkg/lookout"
)

var _ Runner = (*E2E)(nil)

// E2E is an end-to-end test.
type E2E struct {
	t       *testing.T
	config  config.Config
	pinger  echo.Pinger
	lookout *lookout.Lookout
	path    string
	mu      sync.Mutex
	running bool
}

// WithPinger sets the pinger used by the lookout.
func (t *E2E) WithPinger(p echo.Pinger) *E2E {
	t.pinger = p
	return t
}

// WithConfigFile writes the configuration to the file at path before
// the lookout starts and loads it from there.
func (t *E2E) WithConfigFile(path string) *E2E {
	t.path = path
	return t
}

// URL returns the url of the given api path.
func (t *E2E) URL(path string) string {
	return "http://" + t.config.Api.ListeningAddress + path
}

// Run runs the test.
// Runs indefinitely until the context is canceled.
func (t *E2E) Run(ctx context.Context) error {
	if t.isRunning() {
		t.t.Fatal("E2E.Run must be called once")
	}

	cfg := &t.config
	if t.path != "" {
		var err error
		if cfg, err = t.loadConfigFile(); err != nil {
			t.t.Fatalf("Failed to load config file: %v", err)
		}
	}

	l, err := lookout.New(cfg, t.pinger)
	if err != nil {
		t.t.Fatalf("Failed to create lookout: %v", err)
	}

	t.mu.Lock()
	t.lookout = l
	t.running = true
	t.mu.Unlock()
	return l.Run(ctx)
}

// AwaitStartup waits for the provided URL to be ready.
//
// Must be called after the e2e test started with [E2E.Run].
func (t *E2E) AwaitStartup(u string, failureTimeout time.Duration) *E2E {
	t.t.Helper()
	// To ensure the goroutine is started before we are checking if the test is running.
	const initialDelay = 100 * time.Millisecond
	<-time.After(initialDelay)
	if !t.isRunning() {
		t.t.Fatal("E2E.AwaitStartup must be called after E2E.Run")
	}

	const retryInterval = 100 * time.Millisecond
	start := time.Now()
	deadline := start.Add(failureTimeout)

	for {
		resp, err := get(u)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				t.t.Logf("%s is ready after %v", u, time.Since(start))
				return t
			}
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		if time.Now().After(deadline) {
			t.t.Errorf("%s is not ready after %v: %v", u, failureTimeout, err)
			return t
		}
		<-time.After(retryInterval)
	}
}

// AwaitResults waits until every target has at least n probe results.
//
// Must be called after the e2e test started with [E2E.Run].
func (t *E2E) AwaitResults(n int, failureTimeout time.Duration) *E2E {
	t.t.Helper()
	if !t.isRunning() {
		t.t.Fatal("E2E.AwaitResults must be called after E2E.Run")
	}

	const retryInterval = 50 * time.Millisecond
	deadline := time.Now().Add(failureTimeout)
	for {
		missing, err := t.targetsBelow(n)
		if err == nil && len(missing) == 0 {
			return t
		}
		if time.Now().After(deadline) {
			t.t.Errorf("Targets %v have less than %d results after %v: %v", missing, n, failureTimeout, err)
			return t
		}
		<-time.After(retryInterval)
	}
}

// targetsBelow returns the targets with less than n results
func (t *E2E) targetsBelow(n int) ([]db.TargetID, error) {
	var targets []db.Target
	if err := getJSON(t.URL("/v1/targets"), &targets); err != nil {
		return nil, err
	}
	var missing []db.TargetID
	for _, target := range targets {
		var results []db.ProbeResult
		if err := getJSON(t.URL("/v1/targets/"+target.ID.String()+"/results"), &results); err != nil {
			return nil, err
		}
		if len(results) < n {
			missing = append(missing, target.ID)
		}
	}
	return missing, nil
}

// loadConfigFile writes the configuration to the config file and loads it the way the cli does.
func (t *E2E) loadConfigFile() (*config.Config, error) {
	const fileMode = 0o644
	err := os.MkdirAll(filepath.Dir(t.path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create %q: %w", filepath.Dir(t.path), err)
	}

	b := ConfigBuilder{cfg: t.config}
	if err = os.WriteFile(t.path, b.YAML(t.t), fileMode); err != nil {
		return nil, fmt.Errorf("failed to write %q: %w", t.path, err)
	}

	cfg, err := config.Load(viper.New(), t.path)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(context.Background()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isRunning returns true if the test is running.
func (t *E2E) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// e2eHttpAsserter is an HTTP asserter for end-to-end tests.
type e2eHttpAsserter struct {
	e2e      *E2E
	url      string
	method   string
	body     []byte
	response func(body []byte) error
	schema   *openapi3.T
	router   routers.Router
}

// HttpAssertion creates a new HTTP assertion for the given URL.
// The request is a GET request unless set otherwise with WithRequest.
func (t *E2E) HttpAssertion(u string) *e2eHttpAsserter {
	return &e2eHttpAsserter{e2e: t, url: u, method: http.MethodGet}
}

// WithRequest sets the method and the JSON body of the request.
func (a *e2eHttpAsserter) WithRequest(method string, body any) *e2eHttpAsserter {
	a.e2e.t.Helper()
	a.method = method
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.e2e.t.Fatalf("Failed to encode request body: %v", err)
		}
		a.body = b
	}
	return a
}

// Assert asserts the status code and optional validations against the response.
// Optional validations must be set before calling this method.
//
// Must be called after the e2e test started with [E2E.Run].
func (a *e2eHttpAsserter) Assert(status int) {
	a.e2e.t.Helper()
	if !a.e2e.isRunning() {
		a.e2e.t.Fatal("e2eHttpAsserter.Assert must be called after E2E.Run")
	}

	req, err := http.NewRequestWithContext(context.Background(), a.method, a.url, bytes.NewReader(a.body))
	if err != nil {
		a.e2e.t.Fatalf("Failed to create request: %v", err)
		return
	}
	if a.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.e2e.t.Errorf("Failed to %s %s: %v", a.method, a.url, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != status {
		a.e2e.t.Errorf("Want status code %d for %s %s, got %d", status, a.method, a.url, resp.StatusCode)
		return
	}
	a.e2e.t.Logf("Got status code %d for %s %s", resp.StatusCode, a.method, a.url)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		a.e2e.t.Errorf("Failed to read response body: %v", err)
		return
	}

	if status == http.StatusOK {
		if a.schema != nil && a.router != nil {
			if err = a.assertSchema(req, resp.StatusCode, data); err != nil {
				a.e2e.t.Errorf("Response from %q does not match schema: %v", a.url, err)
				return
			}
		}

		if a.response != nil {
			if err = a.response(data); err != nil {
				a.e2e.t.Errorf("Failed to assert response: %v", err)
			}
		}
	}
}

// WithSchema fetches the OpenAPI schema and validates the response against it.
func (a *e2eHttpAsserter) WithSchema() *e2eHttpAsserter {
	a.e2e.t.Helper()
	schema, err := a.fetchSchema()
	if err != nil {
		a.e2e.t.Fatalf("Failed to fetch OpenAPI schema: %v", err)
	}

	router, err := gorillamux.NewRouter(schema)
	if err != nil {
		a.e2e.t.Fatalf("Failed to create router from OpenAPI schema: %v", err)
	}

	a.schema = schema
	a.router = router
	return a
}

// WithAddresses expects the response to be a target list with exactly the given addresses.
func (a *e2eHttpAsserter) WithAddresses(addrs ...string) *e2eHttpAsserter {
	a.response = func(body []byte) error {
		var targets []db.Target
		if err := json.Unmarshal(body, &targets); err != nil {
			return fmt.Errorf("failed to decode targets: %w", err)
		}
		got := make([]string, 0, len(targets))
		for _, t := range targets {
			got = append(got, t.Address.String())
		}
		want := slices.Clone(addrs)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return fmt.Errorf("got addresses %v, want %v", got, want)
		}
		return nil
	}
	return a
}

// WithJSON decodes the response body into v.
func (a *e2eHttpAsserter) WithJSON(v any) *e2eHttpAsserter {
	a.response = func(body []byte) error {
		return json.Unmarshal(body, v)
	}
	return a
}

// fetchSchema fetches the OpenAPI schema from the server.
func (a *e2eHttpAsserter) fetchSchema() (*openapi3.T, error) {
	ctx := context.Background()
	u, err := url.Parse(a.url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	u.Path = "/openapi"

	resp, err := get(u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to GET OpenAPI schema: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAPI schema: %w", err)
	}

	loader := openapi3.NewLoader()
	schema, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI schema: %w", err)
	}

	if err = schema.Validate(ctx); err != nil {
		return nil, fmt.Errorf("OpenAPI schema validation error: %w", err)
	}

	return schema, nil
}

// assertSchema asserts the response body against the OpenAPI schema.
func (a *e2eHttpAsserter) assertSchema(req *http.Request, status int, data []byte) error {
	route, _, err := a.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("failed to find route: %w", err)
	}

	responseRef := route.Operation.Responses.Get(status)
	if responseRef == nil || responseRef.Value == nil {
		return fmt.Errorf("no response defined in OpenAPI schema for status code %d", status)
	}

	mediaType := responseRef.Value.Content.Get("application/json")
	if mediaType == nil {
		return errors.New("no media type defined in OpenAPI schema for Content-Type 'application/json'")
	}

	var body any
	if err = json.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	if err = mediaType.Schema.Value.VisitJSON(body); err != nil {
		return fmt.Errorf("response body does not match schema: %w", err)
	}

	return nil
}

func get(u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

func getJSON(u string, v any) error {
	resp, err := get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
