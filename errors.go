// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nin

import (
	"errors"
	"fmt"
)

// Sentinel errors for the depfile pipeline and the build-server IPC. Callers
// match on these with errors.Is; readers additionally wrap them with the
// offending path via fmt.Errorf("%s: %w", path, err).
var (
	// ErrMissingColon means a depfile rule had no ':' target delimiter.
	ErrMissingColon = errors.New("expected ':' in depfile")

	// ErrMultipleOutputs means two distinct targets appeared on one rule line.
	ErrMultipleOutputs = errors.New("depfile has multiple outputs on one line")

	// ErrMultipleOutputsSeparateLines means distinct targets appeared on
	// separate lines of the same depfile; policy-gated, see
	// MultipleOutputsPolicy.
	ErrMultipleOutputsSeparateLines = errors.New("depfile has multiple outputs across separate lines")

	// ErrExpectedOutputMismatch means Read's parsed primary target differs
	// from the caller's expected output.
	ErrExpectedOutputMismatch = errors.New("depfile mentions a different output than expected")

	// ErrStateMismatch means a client's StateFingerprint did not match the
	// build server's captured fingerprint.
	ErrStateMismatch = errors.New("client state does not match server state")

	// ErrTransport covers short reads/writes and malformed ancillary data on
	// the IPC channel.
	ErrTransport = errors.New("ipc transport error")
)

// MultipleOutputsPolicy selects how DepfileParser reacts to a secondary
// target introduced on a line after the first.
type MultipleOutputsPolicy int

const (
	// MultipleOutputsWarn logs and continues; the default.
	MultipleOutputsWarn MultipleOutputsPolicy = iota
	// MultipleOutputsError is fatal, same as same-line multiple outputs.
	MultipleOutputsError
	// MultipleOutputsIgnore silently accepts the file and drops the line.
	MultipleOutputsIgnore
)

// wrapPath prefixes err with path, matching the depfile reader's
// "<path>: <inner>" convention (depfile_reader.cc's loadIntoCache).
func wrapPath(path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", path, err)
}
