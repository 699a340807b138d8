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

package db

import (
	"sync"
	"sync/atomic"
)

// bus fans out store events to all current subscriptions.
// Every subscription has its own bounded backlog; when it is full the
// oldest pending event is dropped and counted as lag.
type bus struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	backlog int
}

func newBus(backlog int) *bus {
	return &bus{
		subs:    make(map[*Subscription]struct{}),
		backlog: backlog,
	}
}

func (b *bus) subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &Subscription{
		bus:    b,
		events: make(chan Event, b.backlog),
	}
	b.subs[s] = struct{}{}
	return s
}

// publish never blocks
func (b *bus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		s.offer(ev)
	}
}

func (b *bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.events)
	}
}

// Subscription receives all events published after it was created.
// Delivery is at most once: a subscriber that falls behind loses its
// oldest pending events and can learn about that through [Subscription.Lagged].
type Subscription struct {
	bus    *bus
	events chan Event
	lagged atomic.Uint64
}

// Events returns the channel the events are delivered on.
// The channel is closed by [Subscription.Close].
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Lagged returns the number of events dropped since the last call and resets the counter.
func (s *Subscription) Lagged() uint64 {
	return s.lagged.Swap(0)
}

// Close detaches the subscription from the store. It is safe to call Close multiple times.
func (s *Subscription) Close() {
	s.bus.remove(s)
}

// offer must be called with the bus lock held
func (s *Subscription) offer(ev Event) {
	for {
		select {
		case s.events <- ev:
			return
		default:
		}
		// the consumer may drain concurrently, so dropping can miss
		select {
		case <-s.events:
			s.lagged.Add(1)
		default:
		}
	}
}
