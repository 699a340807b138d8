package echomock

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/caas-team/lookout/internal/echo"
)

var _ echo.Pinger = (*PingerMock)(nil)

// PingerMock is a configurable echo.Pinger for tests
type PingerMock struct {
	mu    sync.Mutex
	rtt   time.Duration
	err   error
	delay time.Duration
	calls map[netip.Addr]int
}

// New creates a PingerMock answering every ping with the given round trip time
func New(rtt time.Duration) *PingerMock {
	return &PingerMock{
		rtt:   rtt,
		calls: make(map[netip.Addr]int),
	}
}

func (m *PingerMock) Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) (time.Duration, error) {
	m.mu.Lock()
	m.calls[addr]++
	rtt, err, delay := m.rtt, m.err, m.delay
	m.mu.Unlock()

	if delay >= timeout {
		select {
		case <-time.After(timeout):
		case <-ctx.Done():
		}
		return 0, echo.ErrTimeout
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return rtt, err
}

// SetErr sets the error returned by Ping
func (m *PingerMock) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes Ping block for the given duration.
// Delays not shorter than the timeout result in echo.ErrTimeout.
func (m *PingerMock) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns the number of pings sent to addr
func (m *PingerMock) Calls(addr netip.Addr) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[addr]
}
