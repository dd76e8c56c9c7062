// Copyright 2012 Google Inc. All Rights Reserved.
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

//go:build !windows

package nin

import "testing"

func TestShellJoin_PlainArgsUnquoted(t *testing.T) {
	got := shellJoin([]string{"cc", "-c", "foo.c", "-o", "foo.o"})
	want := "cc -c foo.c -o foo.o"
	if got != want {
		t.Fatalf("shellJoin = %q, want %q", got, want)
	}
}

func TestShellJoin_QuotesArgWithSpace(t *testing.T) {
	got := shellJoin([]string{"cc", "-I", "/path with space/include"})
	want := "cc -I '/path with space/include'"
	if got != want {
		t.Fatalf("shellJoin = %q, want %q", got, want)
	}
}

func TestShellJoin_EscapesEmbeddedSingleQuote(t *testing.T) {
	got := shellJoin([]string{"echo", "it's here"})
	want := `echo 'it'\''s here'`
	if got != want {
		t.Fatalf("shellJoin = %q, want %q", got, want)
	}
}

func TestShellJoin_QuotesShellMetacharacters(t *testing.T) {
	got := shellJoin([]string{"sh", "-c", "a && b"})
	want := "sh -c 'a && b'"
	if got != want {
		t.Fatalf("shellJoin = %q, want %q", got, want)
	}
}

func TestShellJoin_EmptyArgIsQuoted(t *testing.T) {
	got := shellJoin([]string{"cc", ""})
	want := "cc ''"
	if got != want {
		t.Fatalf("shellJoin = %q, want %q", got, want)
	}
}

func TestShellJoin_EmptyArgv(t *testing.T) {
	if got := shellJoin(nil); got != "" {
		t.Fatalf("shellJoin(nil) = %q, want empty", got)
	}
}
