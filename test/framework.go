package test

import (
	"context"
	"testing"
	"time"

	echomock "github.com/caas-team/lookout/internal/echo/test"
	"github.com/caas-team/lookout/pkg/config"
)

// Runner is a test runner.
type Runner interface {
	// Run runs the test.
	Run(ctx context.Context) error
}

// Framework is a test framework.
// It provides a way to run end-to-end tests against a complete lookout.
type Framework struct {
	t *testing.T
}

// NewFramework creates a new test framework.
func NewFramework(t *testing.T) *Framework {
	t.Helper()
	return &Framework{t: t}
}

// E2E creates a new end-to-end test.
// If the test is run in short mode, it will be skipped.
// The lookout probes with a mock pinger unless another one is set with [E2E.WithPinger].
func (f *Framework) E2E(t *testing.T, cfg *config.Config) *E2E {
	if testing.Short() {
		f.t.Skip("skipping e2e tests")
		return nil
	}

	if cfg == nil {
		cfg = NewLookoutConfig().Config(f.t)
	}

	return &E2E{
		t:      t,
		config: *cfg,
		pinger: echomock.New(time.Millisecond),
	}
}
