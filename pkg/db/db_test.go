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
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *InMemory {
	t.Helper()
	s, err := NewInMemory(DefaultHistoryCapacity, DefaultEventBacklog)
	require.NoError(t, err)
	return s
}

func result(n int) ProbeResult {
	return ProbeResult{
		IssuedAt:    time.Date(2025, 1, 1, 0, 0, n, 0, time.UTC),
		Elapsed:     time.Duration(n) * time.Millisecond,
		ProbeStatus: StatusOkWith(time.Duration(n) * time.Millisecond),
	}
}

func TestNewInMemory(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		backlog  int
		wantErr  error
	}{
		{name: "defaults", capacity: DefaultHistoryCapacity, backlog: DefaultEventBacklog},
		{name: "zero capacity", capacity: 0, backlog: 1, wantErr: ErrInvalidCapacity},
		{name: "negative backlog", capacity: 1, backlog: -1, wantErr: ErrInvalidBacklog},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewInMemory(tt.capacity, tt.backlog)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, s.ListKeys())
		})
	}
}

func TestInMemory_InsertGet(t *testing.T) {
	s := newStore(t)
	target := NewTarget(netip.MustParseAddr("8.8.8.8"))

	id := s.Insert(target)
	assert.Equal(t, target.ID, id)

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, target, got.Target)
	assert.Empty(t, got.History)

	_, ok = s.Get(NewTargetID())
	assert.False(t, ok)
}

func TestInMemory_Delete(t *testing.T) {
	s := newStore(t)
	target := NewTarget(netip.MustParseAddr("2001:db8::1"))
	s.Insert(target)

	removed, ok := s.Delete(target.ID)
	require.True(t, ok)
	assert.Equal(t, target, removed)

	_, ok = s.Get(target.ID)
	assert.False(t, ok)

	removed, ok = s.Delete(target.ID)
	assert.False(t, ok)
	assert.Equal(t, Target{}, removed)
}

func TestInMemory_DeleteUnknown(t *testing.T) {
	s := newStore(t)
	known := NewTarget(netip.MustParseAddr("1.1.1.1"))
	s.Insert(known)

	_, ok := s.Delete(NewTargetID())
	assert.False(t, ok)
	assert.Equal(t, []Target{known}, s.List())
}

func TestInMemory_PushResult(t *testing.T) {
	tests := []struct {
		name   string
		pushes int
		want   []ProbeResult
	}{
		{name: "no results", pushes: 0, want: []ProbeResult{}},
		{name: "below capacity", pushes: 3, want: []ProbeResult{result(0), result(1), result(2)}},
		{
			name:   "evicts oldest past capacity",
			pushes: 310,
			want: func() []ProbeResult {
				r := make([]ProbeResult, 0, DefaultHistoryCapacity)
				for n := 10; n < 310; n++ {
					r = append(r, result(n))
				}
				return r
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			id := s.Insert(NewTarget(netip.MustParseAddr("8.8.8.8")))

			for n := range tt.pushes {
				require.True(t, s.PushResult(id, result(n)))
			}

			got, ok := s.Get(id)
			require.True(t, ok)
			assert.Len(t, got.History, min(tt.pushes, DefaultHistoryCapacity))
			if diff := cmp.Diff(tt.want, got.History); diff != "" {
				t.Errorf("History mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInMemory_PushResultAfterDelete(t *testing.T) {
	s := newStore(t)
	id := s.Insert(NewTarget(netip.MustParseAddr("8.8.8.8")))
	s.Delete(id)

	assert.False(t, s.PushResult(id, result(0)))
	_, ok := s.Get(id)
	assert.False(t, ok)
}

func TestInMemory_GetReturnsCopy(t *testing.T) {
	s := newStore(t)
	id := s.Insert(NewTarget(netip.MustParseAddr("8.8.8.8")))
	s.PushResult(id, result(1))

	got, _ := s.Get(id)
	got.History[0] = result(99)

	again, _ := s.Get(id)
	assert.Equal(t, result(1), again.History[0])
}

func TestInMemory_Subscribe(t *testing.T) {
	s := newStore(t)
	subs := []*Subscription{s.Subscribe(), s.Subscribe()}
	target := NewTarget(netip.MustParseAddr("9.9.9.9"))

	s.Insert(target)
	s.Delete(target.ID)

	for _, sub := range subs {
		assert.Equal(t, Updated(target), <-sub.Events())
		assert.Equal(t, Deleted(target.ID), <-sub.Events())
		select {
		case ev := <-sub.Events():
			t.Errorf("Expected exactly two events, got additional %v", ev)
		default:
		}
		assert.Zero(t, sub.Lagged())
	}
}

func TestInMemory_SubscribeNoReplay(t *testing.T) {
	s := newStore(t)
	s.Insert(NewTarget(netip.MustParseAddr("9.9.9.9")))

	sub := s.Subscribe()
	select {
	case ev := <-sub.Events():
		t.Errorf("Expected no replayed events, got %v", ev)
	default:
	}
}

func TestSubscription_DropsOldest(t *testing.T) {
	s, err := NewInMemory(DefaultHistoryCapacity, 2)
	require.NoError(t, err)
	sub := s.Subscribe()

	targets := make([]Target, 5)
	for n := range targets {
		targets[n] = NewTarget(netip.AddrFrom4([4]byte{10, 0, 0, byte(n)}))
		s.Insert(targets[n])
	}

	assert.Equal(t, uint64(3), sub.Lagged())
	assert.Zero(t, sub.Lagged(), "Lagged must reset the counter")
	assert.Equal(t, Updated(targets[3]), <-sub.Events())
	assert.Equal(t, Updated(targets[4]), <-sub.Events())
}

func TestSubscription_Close(t *testing.T) {
	s := newStore(t)
	sub := s.Subscribe()
	sub.Close()
	sub.Close()

	s.Insert(NewTarget(netip.MustParseAddr("8.8.8.8")))
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestInMemory_Concurrent(t *testing.T) {
	s := newStore(t)
	sub := s.Subscribe()
	defer sub.Close()

	var wg sync.WaitGroup
	for n := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.Insert(NewTarget(netip.AddrFrom4([4]byte{10, 0, 0, byte(n)})))
			s.PushResult(id, result(n))
			_, _ = s.Get(id)
			_ = s.ListKeys()
		}()
	}
	wg.Wait()

	assert.Len(t, s.List(), 20)
	assert.Len(t, s.ListKeys(), 20)
}

func TestHistory(t *testing.T) {
	h := newHistory(3)
	for n := range 5 {
		h.push(result(n))
	}
	assert.Equal(t, 3, h.len())
	assert.Equal(t, []ProbeResult{result(2), result(3), result(4)}, h.snapshot())
}
