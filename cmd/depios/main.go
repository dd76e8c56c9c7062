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

// Command depios is a resident build-server front end: the first
// invocation in a directory starts a server and runs the build through it;
// later invocations in the same directory reuse the warm server as long as
// its state fingerprint (argv and version, plus env on Windows and the
// binary's mtime on Linux) still matches.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	nin "github.com/maruel/depios"
	"github.com/maruel/depios/diaglog"
)

func main() {
	os.Exit(run())
}

func run() int {
	verbose := flag.Bool("v", false, "enable verbose (glog V=1) logging")
	quiet := flag.Bool("quiet", false, "discard all diagnostic logging")
	flag.Parse()

	logger := newLogger(*verbose, *quiet)

	switch {
	case os.Getenv(nin.ReexecWorkerEnv) == "1":
		return runWorker()
	case os.Getenv(nin.ServerModeEnv) == "1":
		return runServer(logger)
	default:
		return runClient(logger)
	}
}

func newLogger(verbose, quiet bool) diaglog.Logger {
	if quiet {
		return diaglog.NullLogger{}
	}
	v := 0
	if verbose {
		v = 1
	}
	return &diaglog.GlogLogger{V: v}
}

// runWorker executes one build command, replaying the argv the client
// originally invoked depios with. It is only reached in a process the
// server re-exec'd via NewReexecWorkerLauncher.
func runWorker() int {
	return nin.RunBuildCommand(os.Stdin, os.Stdout, os.Stderr, flag.Args())
}

// runClient sends the build request to a resident server, starting one
// first if none answers, and returns the exit code the worker produced.
func runClient(logger diaglog.Logger) int {
	transport := newTransport(logger)
	argv := flag.Args()

	client := &nin.BuildClient{
		Transport: transport,
		Logger:    logger,
		StartServer: func() error {
			return startServer(argv)
		},
		ServerGone: func() bool {
			return !transport.Ready()
		},
	}

	code, err := client.Run(argv, os.Environ())
	if err != nil {
		fmt.Fprintf(os.Stderr, "depios: %v\n", err)
		return 1
	}
	return code
}

// runServer blocks serving build requests until a fingerprint mismatch (a
// newer client with a different state fingerprint) tells it to make way
// for a fresh server.
func runServer(logger diaglog.Logger) int {
	argv := flag.Args()
	// Leave out the variable startServer added, so the environment matches
	// the one the client fingerprints.
	var env []string
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, nin.ServerModeEnv+"=") {
			env = append(env, kv)
		}
	}
	server := &nin.BuildServer{
		Transport:   newTransport(logger),
		Fingerprint: nin.StateFingerprint(argv, env),
		Logger:      logger,
	}
	configureWorker(server)
	if err := server.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "depios: server: %v\n", err)
		return 1
	}
	return 0
}
