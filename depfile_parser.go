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

import "github.com/maruel/depios/diaglog"

// DepfileRecord is the parsed product of one GCC/Clang-style depfile rule:
// one primary target plus the files it depends on. Every StringSpan aliases
// the buffer passed to DepfileParser.Parse; that buffer must outlive the
// record.
type DepfileRecord struct {
	Out StringSpan
	Ins []StringSpan
}

// DepfileParserOptions configures DepfileParser.
type DepfileParserOptions struct {
	// OnSeparateLines governs a secondary target introduced on a line after
	// the first. A secondary target on the SAME line as another is fatal,
	// regardless of this setting, once a dependency follows it on that rule.
	OnSeparateLines MultipleOutputsPolicy
	Logger          diaglog.Logger
}

// DepfileParser parses the dependency information emitted by gcc/clang's -M
// flags: `target: dep1 dep2 ...`, possibly continued across lines with a
// trailing backslash, possibly containing more than one rule.
//
// A note on backslashes in Makefiles, from reading the docs: backslash-
// newline is the line continuation character. Backslash-# escapes a #
// (otherwise meaningful as a comment start). Finally, quoting the GNU
// manual, "Backslashes that are not in danger of quoting '%' characters go
// unmolested."
//
// Rather than implement all of the above, this follows what GCC/Clang
// actually produce: backslashes escape a space or hash sign. When a space is
// preceded by 2N+1 backslashes, it represents N backslashes followed by a
// space. When a space is preceded by 2N backslashes, it represents 2N
// backslashes at the end of a filename. A hash sign is escaped by a single
// backslash, and so is a colon that is not followed by whitespace or the end
// of input; all other backslashes are left unmolested.
type DepfileParser struct {
	Options DepfileParserOptions
}

func isGCCFilenameChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b >= 0x80:
		return true
	}
	switch b {
	case '+', ',', '/', '_', ':', '.', '~', '(', ')', '{', '}', '%', '=', '@', '[', ']', '!', '-':
		return true
	}
	return false
}

// Parse parses content (which must be NUL-terminated) in place, returning
// the rule's DepfileRecord.
//
// Parse may rewrite content in place to resolve escapes; returned spans
// alias the rewritten region, so content must outlive the record. Unlike
// the DMD parser, Parse never deduplicates Ins: the same input listed twice
// produces two spans.
func (p *DepfileParser) Parse(content []byte) (DepfileRecord, error) {
	if len(content) == 0 || content[len(content)-1] != 0 {
		panic("depfile content must be NUL-terminated")
	}
	var rec DepfileRecord
	in := 0
	end := len(content)
	haveTarget := false
	haveSecondaryTargetOnRule := false
	haveNewlineSincePrimary := false
	warnedDistinctLines := false
	parsingTargets := true

	for in < end {
		haveNewline := false
		filenameStart := in
		wr := in

	span:
		for {
			start := in
			switch {
			case content[in] == 0:
				in++
				break span

			case content[in] == '$' && in+1 < end && content[in+1] == '$':
				content[wr] = '$'
				wr++
				in += 2
				continue span

			case content[in] == '\\':
				run := in
				for run < end && content[run] == '\\' {
					run++
				}
				count := run - in
				var next byte
				if run < end {
					next = content[run]
				}
				switch {
				case next == ' ':
					if count%2 == 1 {
						// 2N+1 backslashes + space -> N backslashes + literal space.
						n := count / 2
						if wr < start {
							for i := 0; i < n; i++ {
								content[wr+i] = '\\'
							}
						}
						wr += n
						content[wr] = ' '
						wr++
						in = run + 1
						continue span
					}
					// 2N backslashes + space -> 2N backslashes, end of filename.
					if wr < start {
						for i := 0; i < count; i++ {
							content[wr+i] = '\\'
						}
					}
					wr += count
					in = run + 1
					break span

				case next == '#' || (next == ':' && content[run+1] != 0 &&
					content[run+1] != ' ' && content[run+1] != '\t' &&
					content[run+1] != '\r' && content[run+1] != '\n'):
					// M backslashes + '#' or ':' -> M-1 backslashes + the
					// character. A backslash-colon followed by whitespace or the
					// end of input is plain text handled by the default case.
					if count > 1 && wr < start {
						for i := 0; i < count-1; i++ {
							content[wr+i] = '\\'
						}
					}
					wr += count - 1
					content[wr] = next
					wr++
					in = run + 1
					continue span

				case run < end && (next == '\n' || (next == '\r' && run+1 < end && content[run+1] == '\n')):
					// Backslashes preceding the continuation aren't special on
					// their own; only the final one pairs with the newline.
					if count > 1 {
						if wr < start {
							for i := 0; i < count-1; i++ {
								content[wr+i] = '\\'
							}
						}
						wr += count - 1
					}
					in = run + 1
					if next == '\r' {
						in++
					}
					break span

				default:
					// Backslash run followed by an ordinary character: copied
					// verbatim, unmolested.
					l := run - start
					if run < end {
						l++
					}
					if wr < start {
						copy(content[wr:wr+l], content[start:start+l])
					}
					wr += l
					in = start + l
					continue span
				}

			case isGCCFilenameChar(content[in]):
				j := in
				for j < end && isGCCFilenameChar(content[j]) {
					j++
				}
				l := j - in
				if wr < start {
					copy(content[wr:wr+l], content[start:start+l])
				}
				wr += l
				in = j
				continue span

			case content[in] == '\n':
				in++
				haveNewline = true
				break span

			case content[in] == '\r' && in+1 < end && content[in+1] == '\n':
				in += 2
				haveNewline = true
				break span

			default:
				// Any other character, whitespace included, terminates the
				// current filename without being appended.
				in++
				break span
			}
		}

		l := wr - filenameStart
		isDependency := !parsingTargets
		if l > 0 && content[filenameStart+l-1] == ':' {
			l--
			parsingTargets = false
			haveTarget = true
		}

		if l > 0 {
			sp := MakeStringSpan(content, filenameStart, l)
			if isDependency {
				if haveSecondaryTargetOnRule {
					if !haveNewlineSincePrimary {
						return DepfileRecord{}, ErrMultipleOutputs
					}
					switch p.Options.OnSeparateLines {
					case MultipleOutputsError:
						return DepfileRecord{}, ErrMultipleOutputsSeparateLines
					case MultipleOutputsIgnore:
						// Accept the file, drop this dependency.
					default:
						if !warnedDistinctLines {
							warnedDistinctLines = true
							if p.Options.Logger != nil {
								p.Options.Logger.Warning("depfile has multiple output paths (on separate lines); continuing anyway")
							}
						}
					}
				} else {
					rec.Ins = append(rec.Ins, sp)
				}
			} else if rec.Out.buf == nil {
				rec.Out = sp
			} else if !rec.Out.Equal(sp) {
				// Only fatal once a dependency token follows; see the
				// isDependency branch above.
				haveSecondaryTargetOnRule = true
			}
		}

		if haveNewline {
			parsingTargets = true
			haveSecondaryTargetOnRule = false
			if haveTarget {
				haveNewlineSincePrimary = true
			}
		}
	}
	if !haveTarget {
		return DepfileRecord{}, ErrMissingColon
	}
	return rec, nil
}
