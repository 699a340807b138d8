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

package lookout

import "fmt"

// ErrUnexpectedStop is returned when a component stopped without a shutdown request
type ErrUnexpectedStop struct {
	Component string
	Err       error
}

func (e ErrUnexpectedStop) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s stopped unexpectedly", e.Component)
	}
	return fmt.Sprintf("%s stopped unexpectedly: %v", e.Component, e.Err)
}

// Unwrap returns the wrapped error
func (e ErrUnexpectedStop) Unwrap() error {
	return e.Err
}
