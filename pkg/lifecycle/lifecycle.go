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

// Package lifecycle provides the cooperative shutdown primitive shared by
// all long-running loops of lookout.
//
// A loop owns one [Controller] and asks it on every iteration whether it
// should continue ([Next]) or stop ([Control]). The owner of the loop holds
// a [Handle] whose Shutdown requests the stop and waits until the loop
// has returned.
package lifecycle

import (
	"context"
	"sync"
	"time"
)

// Operation tells a loop what to do after a tick.
type Operation int

const (
	// Next indicates that the loop should run its next iteration.
	Next Operation = iota
	// Control indicates that a shutdown was requested and the loop should return.
	Control
)

// String returns the string representation of the operation
func (o Operation) String() string {
	switch o {
	case Next:
		return "next"
	case Control:
		return "control"
	default:
		return "unknown"
	}
}

// Controller is the shutdown signal of exactly one loop.
// The zero value is not usable, use [New].
type Controller struct {
	mu sync.Mutex
	// stop is closed once a shutdown was requested
	stop chan struct{}
	// done is closed once the loop has returned
	done chan struct{}
	// stopped and running track the state of the channels above
	stopped bool
	running bool
	exited  bool
}

// New creates a new Controller.
func New() *Controller {
	return &Controller{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Tick blocks until either the timer fires or a shutdown is requested.
// It returns [Next] on a timer event and [Control] once a shutdown was requested
// or the context is done. A pending shutdown always wins over a ready timer.
func (c *Controller) Tick(ctx context.Context, timer <-chan time.Time) Operation {
	if c.Poll() == Control {
		return Control
	}

	select {
	case <-c.stop:
		return Control
	case <-ctx.Done():
		return Control
	case <-timer:
		return c.Poll()
	}
}

// Poll returns [Control] if a shutdown was requested and [Next] otherwise.
// It never blocks.
func (c *Controller) Poll() Operation {
	select {
	case <-c.stop:
		return Control
	default:
		return Next
	}
}

// Stopping returns a channel that is closed once a shutdown was requested.
// Loops use it to abort blocking sends; the decision to return is still
// taken by [Controller.Tick] or [Controller.Poll].
func (c *Controller) Stopping() <-chan struct{} {
	return c.stop
}

// Run executes the loop and marks the controller as running until the loop returns.
// A controller can only run one loop during its lifetime.
func (c *Controller) Run(ctx context.Context, loop func(ctx context.Context) error) error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.exit()
	return loop(ctx)
}

// Go executes the loop in a new goroutine. The controller is marked as running
// before Go returns, so a following Shutdown always waits for the loop.
// The returned channel receives the error of the loop and is closed afterwards.
func (c *Controller) Go(ctx context.Context, loop func(ctx context.Context) error) <-chan error {
	cErr := make(chan error, 1)
	if err := c.enter(); err != nil {
		cErr <- err
		close(cErr)
		return cErr
	}

	go func() {
		defer close(cErr)
		defer c.exit()
		cErr <- loop(ctx)
	}()
	return cErr
}

// Handle returns the handle used to shut the loop down.
func (c *Controller) Handle() Handle {
	return Handle{c: c}
}

// enter marks the controller as running
func (c *Controller) enter() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.exited {
		return ErrAlreadyStarted
	}
	c.running = true
	return nil
}

// exit marks the loop as returned and releases all waiting handles
func (c *Controller) exit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.exited = true
	close(c.done)
}

// request closes the stop channel once and reports whether
// there is a loop the caller has to wait for
func (c *Controller) request() (wait bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		close(c.stop)
		c.stopped = true
	}
	return c.running || c.exited
}

// Handle is the owner side of a [Controller].
// Handles are cheap values and can be copied freely.
type Handle struct {
	c *Controller
}

// Shutdown requests the shutdown of the loop and blocks until the loop has returned.
// If the loop never started, Shutdown returns immediately and the loop will observe
// the shutdown on its first check. Shutdown is safe to call multiple times and from
// multiple goroutines. If the context is done before the loop returned, the context
// error is returned.
func (h Handle) Shutdown(ctx context.Context) error {
	if h.c == nil {
		return nil
	}
	if !h.c.request() {
		return nil
	}

	select {
	case <-h.c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed once the loop has returned.
func (h Handle) Done() <-chan struct{} {
	return h.c.done
}
