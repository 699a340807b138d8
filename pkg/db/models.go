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
	"time"

	"github.com/google/uuid"
)

// TargetID identifies a target. It is a random (v4) UUID
// assigned once at creation and never reused.
type TargetID = uuid.UUID

// NewTargetID returns a fresh target id
func NewTargetID() TargetID {
	return uuid.New()
}

// ParseTargetID parses the string representation of a target id
func ParseTargetID(s string) (TargetID, error) {
	return uuid.Parse(s)
}

// Target is a single monitored network endpoint.
// Targets are immutable after creation.
type Target struct {
	ID      TargetID   `json:"id" yaml:"id"`
	Address netip.Addr `json:"address" yaml:"address"`
}

// NewTarget creates a target with a fresh id for the given address
func NewTarget(addr netip.Addr) Target {
	return Target{ID: NewTargetID(), Address: addr}
}

// Status is the outcome class of a single probe
type Status string

const (
	// StatusOk means the echo reply arrived within the timeout
	StatusOk Status = "OK"
	// StatusTimeout means no reply arrived within the timeout
	StatusTimeout Status = "TIMEOUT"
	// StatusFailure means the probe could not be performed
	StatusFailure Status = "FAILURE"
)

// ProbeStatus is the classified outcome of a probe.
// RTT is only set for [StatusOk], Reason only for [StatusFailure].
type ProbeStatus struct {
	Status Status        `json:"status" yaml:"status"`
	RTT    time.Duration `json:"rtt,omitempty" yaml:"rtt,omitempty"`
	Reason string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// StatusOkWith returns a successful probe status with the given round trip time
func StatusOkWith(rtt time.Duration) ProbeStatus {
	return ProbeStatus{Status: StatusOk, RTT: rtt}
}

// StatusTimedOut returns a timed out probe status
func StatusTimedOut() ProbeStatus {
	return ProbeStatus{Status: StatusTimeout}
}

// StatusFailed returns a failed probe status with a human readable reason
func StatusFailed(reason string) ProbeStatus {
	return ProbeStatus{Status: StatusFailure, Reason: reason}
}

// ProbeResult is the immutable record of a single probe attempt.
// The status fields are flattened into the result when encoded.
type ProbeResult struct {
	// IssuedAt is the UTC wall clock time the probe was sent
	IssuedAt time.Time `json:"issuedAt" yaml:"issuedAt"`
	// Elapsed is the time the probe took, regardless of its outcome
	Elapsed     time.Duration `json:"elapsed" yaml:"elapsed"`
	ProbeStatus `yaml:",inline"`
}

// Entry is a copy of a target together with its probe history,
// oldest result first.
type Entry struct {
	Target  Target        `json:"target"`
	History []ProbeResult `json:"history"`
}

// EventKind is the kind of a store change
type EventKind string

const (
	// EventUpdated is published when a target was created
	EventUpdated EventKind = "updated"
	// EventDeleted is published when a target was deleted
	EventDeleted EventKind = "deleted"
)

// Event notifies subscribers about a store mutation.
// Updated events carry the target, deleted events only its id.
type Event struct {
	Kind   EventKind `json:"kind"`
	ID     TargetID  `json:"id"`
	Target *Target   `json:"target,omitempty"`
}

// Updated returns the event published for a created target
func Updated(t Target) Event {
	return Event{Kind: EventUpdated, ID: t.ID, Target: &t}
}

// Deleted returns the event published for a deleted target
func Deleted(id TargetID) Event {
	return Event{Kind: EventDeleted, ID: id}
}
