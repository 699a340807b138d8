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
)

const (
	// DefaultHistoryCapacity is the number of probe results kept per target
	DefaultHistoryCapacity = 300
	// DefaultEventBacklog is the number of events buffered per subscriber
	DefaultEventBacklog = 15
)

// Store is the registry of all monitored targets and their probe history.
// Every mutation is published to all subscriptions.
type Store interface {
	// Insert stores the target with an empty history and returns its id
	Insert(target Target) TargetID
	// Delete removes the target. The deleted event is published even if the
	// target did not exist.
	Delete(id TargetID) (Target, bool)
	// Get returns a copy of the target and its history
	Get(id TargetID) (Entry, bool)
	// ListKeys returns the ids of all targets
	ListKeys() []TargetID
	// List returns all targets
	List() []Target
	// PushResult appends the result to the history of the target.
	// It reports false if the target does not exist (anymore).
	PushResult(id TargetID, result ProbeResult) bool
	// Subscribe returns a subscription to all future store events
	Subscribe() *Subscription
}

var _ Store = (*InMemory)(nil)

type entry struct {
	target  Target
	history *history
}

// InMemory is a volatile [Store]
type InMemory struct {
	mu       sync.RWMutex
	entries  map[TargetID]*entry
	capacity int
	bus      *bus
}

// NewInMemory creates a new in-memory store keeping capacity results per target
// and buffering backlog events per subscriber.
func NewInMemory(capacity, backlog int) (*InMemory, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if backlog <= 0 {
		return nil, ErrInvalidBacklog
	}
	return &InMemory{
		entries:  make(map[TargetID]*entry),
		capacity: capacity,
		bus:      newBus(backlog),
	}, nil
}

func (i *InMemory) Insert(target Target) TargetID {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[target.ID] = &entry{
		target:  target,
		history: newHistory(i.capacity),
	}
	i.bus.publish(Updated(target))
	return target.ID
}

func (i *InMemory) Delete(id TargetID) (Target, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	e, ok := i.entries[id]
	if ok {
		delete(i.entries, id)
	}
	i.bus.publish(Deleted(id))
	if !ok {
		return Target{}, false
	}
	return e.target, true
}

func (i *InMemory) Get(id TargetID) (Entry, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	e, ok := i.entries[id]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Target:  e.target,
		History: e.history.snapshot(),
	}, true
}

func (i *InMemory) ListKeys() []TargetID {
	i.mu.RLock()
	defer i.mu.RUnlock()
	keys := make([]TargetID, 0, len(i.entries))
	for id := range i.entries {
		keys = append(keys, id)
	}
	return keys
}

func (i *InMemory) List() []Target {
	i.mu.RLock()
	defer i.mu.RUnlock()
	targets := make([]Target, 0, len(i.entries))
	for _, e := range i.entries {
		targets = append(targets, e.target)
	}
	return targets
}

func (i *InMemory) PushResult(id TargetID, result ProbeResult) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	e, ok := i.entries[id]
	if !ok {
		return false
	}
	e.history.push(result)
	return true
}

func (i *InMemory) Subscribe() *Subscription {
	return i.bus.subscribe()
}
