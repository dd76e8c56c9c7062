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

import "github.com/golang/glog"

// GlogLogger is the production Logger, backed by glog. Info is emitted at
// verbosity level 1 so routine traces don't flood default output; Warning
// and Error always go through.
type GlogLogger struct {
	// V selects the glog.V() level Info is gated behind. Zero means 1.
	V int
}

func (l GlogLogger) level() glog.Level {
	if l.V <= 0 {
		return 1
	}
	return glog.Level(l.V)
}

func (l GlogLogger) Info(msg string, args ...interface{}) {
	if glog.V(l.level()) {
		glog.Infof(msg, args...)
	}
}

func (l GlogLogger) Warning(msg string, args ...interface{}) {
	glog.Warningf(msg, args...)
}

func (l GlogLogger) Error(msg string, args ...interface{}) {
	glog.Errorf(msg, args...)
}
