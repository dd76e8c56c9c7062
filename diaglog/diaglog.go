// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package diaglog provides the leveled logging capability injected into the
// depfile pipeline and the build-server IPC: a small interface plus three
// implementations, rather than a process-wide global logger.
package diaglog

// Logger is the capability every component that needs to report diagnostics
// takes as a dependency, instead of reaching for a global.
type Logger interface {
	Info(msg string, args ...interface{})
	Warning(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NullLogger discards everything. Used by unit tests and depios -quiet.
type NullLogger struct{}

func (NullLogger) Info(string, ...interface{})    {}
func (NullLogger) Warning(string, ...interface{}) {}
func (NullLogger) Error(string, ...interface{})   {}
