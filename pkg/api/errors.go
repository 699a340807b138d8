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

package api

import (
	"errors"
	"fmt"
)

// ErrNoRoutes is returned when the api is started without registered routes
var ErrNoRoutes = errors.New("no routes initialized")

// ErrUnsupportedMethod is returned when a route is registered with an unknown method
type ErrUnsupportedMethod struct {
	Path   string
	Method string
}

func (e ErrUnsupportedMethod) Error() string {
	return fmt.Sprintf("unsupported method for %s: %s", e.Path, e.Method)
}

// ErrInvalidAddress is returned when the listening address cannot be parsed
type ErrInvalidAddress struct {
	Address string
	Err     error
}

func (e ErrInvalidAddress) Error() string {
	return fmt.Sprintf("invalid listening address %q: %v", e.Address, e.Err)
}

// Unwrap returns the wrapped error
func (e ErrInvalidAddress) Unwrap() error {
	return e.Err
}
