// Copyright 2016 SAP SE All Rights Reserved.
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

// isUnixCCFilenameChar restricts what UnixCCParser treats as part of a
// filename: letters, digits, '-', '_', '/', '.'.
func isUnixCCFilenameChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '-', '_', '/', '.':
		return true
	}
	return false
}

// UnixCCParser picks the lines a plain Unix cc emits that are nothing but an
// include path out of a build step's stderr. A line qualifies only if,
// after skipping leading tabs, the whole remainder up to the newline is at
// least two filename characters with nothing else on the line.
type UnixCCParser struct {
	Includes map[string]bool
}

// Parse scans output, recording qualifying lines into Includes and
// appending every other line verbatim to the returned filtered text.
func (p *UnixCCParser) Parse(output string) string {
	if p.Includes == nil {
		p.Includes = map[string]bool{}
	}
	var filtered []byte
	in := 0
	end := len(output)
	for in < end {
		lineStart := in
		for in < end && output[in] == '\t' {
			in++
		}
		filenameStart := in
		for in < end && isUnixCCFilenameChar(output[in]) {
			in++
		}
		filenameEnd := in
		if filenameStart+1 < in && in < end && output[in] == '\n' {
			in++
			p.Includes[output[filenameStart:filenameEnd]] = true
			continue
		}
		for in < end && output[in] != '\n' {
			in++
		}
		if in < end {
			in++
		}
		filtered = append(filtered, output[lineStart:in]...)
	}
	return string(filtered)
}
