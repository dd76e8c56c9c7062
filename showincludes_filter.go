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

import "strings"

// showIncludesPrefix is the fixed ASCII marker MSVC's /showIncludes emits
// ahead of each header path.
const showIncludesPrefix = "Note: including file: "

// ShowIncludesFilter separates cl.exe's /showIncludes noise from the rest of
// a build step's stderr: each marked line contributes a path to Includes,
// everything else is copied verbatim into Filtered.
type ShowIncludesFilter struct {
	Includes []string
	Filtered string
}

// Filter scans output line by line and populates Includes/Filtered.
func (f *ShowIncludesFilter) Filter(output string) string {
	var filtered strings.Builder
	in := 0
	for in < len(output) {
		next := strings.IndexByte(output[in:], '\n')
		if next == -1 {
			next = len(output)
		} else {
			next = in + next + 1
		}
		line := output[in:next]
		if strings.HasPrefix(line, showIncludesPrefix) {
			rest := line[len(showIncludesPrefix):]
			rest = strings.TrimLeft(rest, " ")
			rest = strings.TrimRight(rest, "\r\n")
			f.Includes = append(f.Includes, rest)
		} else {
			filtered.WriteString(line)
		}
		in = next
	}
	f.Filtered = filtered.String()
	return f.Filtered
}
