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

package config

import "errors"

var (
	// ErrInvalidTarget is returned when a seed target is not a valid ip address
	ErrInvalidTarget = errors.New("invalid target address")
	// ErrInvalidHistoryCapacity is returned when the history capacity is not positive
	ErrInvalidHistoryCapacity = errors.New("invalid history capacity")
	// ErrInvalidEventBacklog is returned when the event backlog is not positive
	ErrInvalidEventBacklog = errors.New("invalid event backlog")
	// ErrInvalidConfig is returned when the validation of the configuration failed
	ErrInvalidConfig = errors.New("validation of configuration failed")
)
