package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caas-team/lookout/internal/helper"
	"github.com/caas-team/lookout/internal/httpclient"
	"github.com/caas-team/lookout/pkg/db"
	"github.com/caas-team/lookout/pkg/lookout"
)

const server = "http://lookout.test:8080"

func newTestClient(t *testing.T) (*Client, context.Context) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Server = server
	cfg.Retry = helper.RetryConfig{Count: 2, Delay: time.Millisecond}
	return New(cfg), httpclient.IntoContext(context.Background(), &http.Client{})
}

func TestClient_List(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	targets := []db.Target{
		db.NewTarget(netip.MustParseAddr("1.1.1.1")),
		db.NewTarget(netip.MustParseAddr("2001:db8::1")),
	}
	httpmock.RegisterResponder(http.MethodGet, server+"/v1/targets", httpmock.NewJsonResponderOrPanic(http.StatusOK, targets))

	c, ctx := newTestClient(t)
	got, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, targets, got)
}

func TestClient_Add(t *testing.T) {
	target := db.NewTarget(netip.MustParseAddr("8.8.8.8"))

	tests := []struct {
		name      string
		responder httpmock.Responder
		want      db.Target
		wantErr   error
	}{
		{
			name:      "created",
			responder: httpmock.NewJsonResponderOrPanic(http.StatusOK, target),
			want:      target,
		},
		{
			name:      "rejected address",
			responder: httpmock.NewStringResponder(http.StatusBadRequest, http.StatusText(http.StatusBadRequest)),
			wantErr:   ErrBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.Activate()
			defer httpmock.DeactivateAndReset()

			var body lookout.CreateTargetRequest
			httpmock.RegisterResponder(http.MethodPost, server+"/v1/targets", func(req *http.Request) (*http.Response, error) {
				b, err := io.ReadAll(req.Body)
				if err != nil {
					return nil, err
				}
				if err = json.Unmarshal(b, &body); err != nil {
					return nil, err
				}
				return tt.responder(req)
			})

			c, ctx := newTestClient(t)
			got, err := c.Add(ctx, "8.8.8.8")
			assert.Equal(t, "8.8.8.8", body.Addr)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Get(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	known := db.NewTarget(netip.MustParseAddr("9.9.9.9"))
	unknown := db.NewTargetID()
	httpmock.RegisterResponder(http.MethodGet, server+"/v1/targets/"+known.ID.String(), httpmock.NewJsonResponderOrPanic(http.StatusOK, known))
	httpmock.RegisterResponder(http.MethodGet, server+"/v1/targets/"+unknown.String(), httpmock.NewStringResponder(http.StatusNotFound, ""))

	c, ctx := newTestClient(t)
	got, err := c.Get(ctx, known.ID)
	require.NoError(t, err)
	assert.Equal(t, known, got)

	_, err = c.Get(ctx, unknown)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, httpmock.GetCallCountInfo()["GET "+server+"/v1/targets/"+unknown.String()], "Client errors must not be retried")
}

func TestClient_Delete(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	id := db.NewTargetID()
	httpmock.RegisterResponder(http.MethodDelete, server+"/v1/targets/"+id.String(), httpmock.NewStringResponder(http.StatusAccepted, ""))

	c, ctx := newTestClient(t)
	assert.NoError(t, c.Delete(ctx, id))
}

func TestClient_Results(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	id := db.NewTargetID()
	results := []db.ProbeResult{
		{IssuedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Elapsed: time.Millisecond, ProbeStatus: db.StatusOkWith(time.Millisecond)},
		{IssuedAt: time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC), Elapsed: time.Second, ProbeStatus: db.StatusTimedOut()},
		{IssuedAt: time.Date(2025, 1, 1, 0, 0, 2, 0, time.UTC), ProbeStatus: db.StatusFailed("network unreachable")},
	}
	httpmock.RegisterResponder(http.MethodGet, server+"/v1/targets/"+id.String()+"/results", httpmock.NewJsonResponderOrPanic(http.StatusOK, results))

	c, ctx := newTestClient(t)
	got, err := c.Results(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, results, got)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{name: "no failure", failures: 0, wantCalls: 1},
		{name: "recovers", failures: 2, wantCalls: 3},
		{name: "gives up", failures: 5, wantCalls: 3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.Activate()
			defer httpmock.DeactivateAndReset()

			calls := 0
			httpmock.RegisterResponder(http.MethodGet, server+"/v1/status", func(req *http.Request) (*http.Response, error) {
				calls++
				if calls <= tt.failures {
					return httpmock.NewStringResponse(http.StatusServiceUnavailable, "starting"), nil
				}
				return httpmock.NewJsonResponse(http.StatusOK, lookout.Status{Targets: 1})
			})

			c, ctx := newTestClient(t)
			got, err := c.Status(ctx)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				var statusErr ErrUnexpectedStatus
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
				assert.Equal(t, "starting", statusErr.Body)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, got.Targets)
		})
	}
}

func TestClient_Watch(t *testing.T) {
	target := db.NewTarget(netip.MustParseAddr("10.0.0.1"))
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/events" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(db.Updated(target))
		_ = conn.WriteJSON(lookout.LagNotice{Kind: lookout.KindLagged, Missed: 3})
		_ = conn.WriteJSON(db.Deleted(target.ID))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Server = srv.URL
	c := New(cfg)

	var got []Message
	err := c.Watch(context.Background(), func(m Message) error {
		got = append(got, m)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, string(db.EventUpdated), got[0].Kind)
	assert.Equal(t, target.ID, got[0].ID)
	require.NotNil(t, got[0].Target)
	assert.Equal(t, target.Address, got[0].Target.Address)
	assert.Equal(t, Message{Kind: lookout.KindLagged, Missed: 3}, got[1])
	assert.Equal(t, Message{Kind: string(db.EventDeleted), ID: target.ID}, got[2])
}

func TestClient_WatchContextCanceled(t *testing.T) {
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	cfg := DefaultConfig()
	cfg.Server = srv.URL
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := New(cfg).Watch(ctx, func(Message) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "https", mutate: func(c *Config) { c.Server = "https://lookout.example.com" }},
		{name: "missing scheme", mutate: func(c *Config) { c.Server = "localhost:8080" }, wantErr: ErrInvalidServer},
		{name: "unsupported scheme", mutate: func(c *Config) { c.Server = "ftp://localhost" }, wantErr: ErrInvalidServer},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative retries", mutate: func(c *Config) { c.Retry.Count = -1 }, wantErr: ErrInvalidRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
