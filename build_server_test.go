// Copyright 2018 Google Inc. All Rights Reserved.
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
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeServerTransport replays a canned sequence of BuildRequests to
// BuildServer.Serve and records the exit codes it replies with.
type fakeServerTransport struct {
	requests  []*BuildRequest
	idx       int
	replies   []int
	acceptErr error
}

func (t *fakeServerTransport) Listen() error { return nil }

func (t *fakeServerTransport) Accept() (*BuildRequest, error) {
	if t.idx >= len(t.requests) {
		if t.acceptErr != nil {
			return nil, t.acceptErr
		}
		return nil, errors.New("fakeServerTransport: no more requests queued")
	}
	req := t.requests[t.idx]
	t.idx++
	return req, nil
}

func (t *fakeServerTransport) Reply(req *BuildRequest, exitCode int) error {
	t.replies = append(t.replies, exitCode)
	return nil
}

func (t *fakeServerTransport) Close() error { return nil }

func (t *fakeServerTransport) RequestBuild(fingerprint []byte, argv []string) (int, error) {
	return 0, errors.New("fakeServerTransport does not implement RequestBuild")
}

func TestBuildServer_FingerprintMismatchShutsDownImmediately(t *testing.T) {
	transport := &fakeServerTransport{
		requests: []*BuildRequest{{Fingerprint: []byte("client-fp")}},
	}
	server := &BuildServer{Transport: transport, Fingerprint: []byte("server-fp")}

	if err := server.Serve(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{ServerShutdownExitCode}, transport.replies); diff != "" {
		t.Fatalf("replies mismatch (-want +got):\n%s", diff)
	}
	if transport.idx != 1 {
		t.Fatalf("accepted %d requests, want exactly 1", transport.idx)
	}
}

func TestBuildServer_DispatchesToRunOnMatch(t *testing.T) {
	var gotArgv []string
	runner := func(stdin, stdout, stderr *os.File, argv []string) int {
		gotArgv = argv
		return ServerShutdownExitCode
	}
	transport := &fakeServerTransport{
		requests: []*BuildRequest{{Fingerprint: []byte("fp"), Argv: []string{"cc", "-c", "a.c"}}},
	}
	server := &BuildServer{Transport: transport, Fingerprint: []byte("fp"), Run: runner}

	if err := server.Serve(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"cc", "-c", "a.c"}, gotArgv); diff != "" {
		t.Fatalf("Run argv mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{ServerShutdownExitCode}, transport.replies); diff != "" {
		t.Fatalf("replies mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildServer_ContinuesAfterNonShutdownExit(t *testing.T) {
	runner := func(stdin, stdout, stderr *os.File, argv []string) int { return 0 }
	transport := &fakeServerTransport{
		requests: []*BuildRequest{
			{Fingerprint: []byte("fp"), Argv: []string{"cc"}},
		},
		acceptErr: errors.New("no more clients"),
	}
	server := &BuildServer{Transport: transport, Fingerprint: []byte("fp"), Run: runner}

	err := server.Serve()
	if err == nil {
		t.Fatal("Serve() = nil, want an error once Accept starts failing")
	}
	if diff := cmp.Diff([]int{0}, transport.replies); diff != "" {
		t.Fatalf("replies mismatch (-want +got), server must keep serving after a successful non-shutdown build:\n%s", diff)
	}
}

func TestBuildServer_LaunchWorker(t *testing.T) {
	var gotArgv []string
	launcher := WorkerLauncher(func(req *BuildRequest) (int, func() (int, error), error) {
		gotArgv = req.Argv
		return 4242, func() (int, error) { return ServerShutdownExitCode, nil }, nil
	})
	transport := &fakeServerTransport{
		requests: []*BuildRequest{{Fingerprint: []byte("fp"), Argv: []string{"cc", "-c", "b.c"}}},
	}
	server := &BuildServer{Transport: transport, Fingerprint: []byte("fp"), LaunchWorker: launcher}

	if err := server.Serve(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"cc", "-c", "b.c"}, gotArgv); diff != "" {
		t.Fatalf("LaunchWorker argv mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{ServerShutdownExitCode}, transport.replies); diff != "" {
		t.Fatalf("replies mismatch (-want +got):\n%s", diff)
	}
}
