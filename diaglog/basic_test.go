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

package diaglog

import (
	"bytes"
	"testing"
)

func TestBasicLogger_Prefixes(t *testing.T) {
	var buf bytes.Buffer
	l := &BasicLogger{Out: &buf}

	l.Info("building %s", "foo.o")
	l.Warning("stale depfile %s", "foo.d")
	l.Error("command failed: %s", "exit 1")

	want := "nin: building foo.o\n" +
		"nin: warning: stale depfile foo.d\n" +
		"nin: error: command failed: exit 1\n"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestBasicLogger_DefaultsToStderrWithoutPanicking(t *testing.T) {
	l := &BasicLogger{}
	l.Info("no explicit writer configured")
}

func TestNullLogger_DiscardsEverything(t *testing.T) {
	var l NullLogger
	// Must not panic regardless of args; nothing else to assert since the
	// whole point of NullLogger is that it produces no observable effect.
	l.Info("x")
	l.Warning("y %d", 1)
	l.Error("z")
}
