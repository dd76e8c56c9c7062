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
	"fmt"
	"io"
	"os"
)

// BasicLogger writes Warning/Error to a writer (os.Stderr by default) with
// the "nin: warning:"/"nin: error:" prefixes the command-line tool uses.
// Info is written without a level prefix, matching infof's "nin: " prefix.
type BasicLogger struct {
	Out io.Writer
}

// NewBasicLogger returns a BasicLogger writing to os.Stderr.
func NewBasicLogger() *BasicLogger {
	return &BasicLogger{Out: os.Stderr}
}

func (l *BasicLogger) out() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return os.Stderr
}

func (l *BasicLogger) Info(msg string, args ...interface{}) {
	fmt.Fprintf(l.out(), "nin: "+msg+"\n", args...)
}

func (l *BasicLogger) Warning(msg string, args ...interface{}) {
	fmt.Fprintf(l.out(), "nin: warning: "+msg+"\n", args...)
}

func (l *BasicLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(l.out(), "nin: error: "+msg+"\n", args...)
}
