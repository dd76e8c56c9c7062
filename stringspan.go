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

// StringSpan is a non-owning view into a byte buffer owned by someone else.
//
// It plays the role the upstream C++ tool gives StringPiece: a (ptr, len)
// pair that aliases a parse buffer instead of copying out of it. Go has no
// raw pointers, so the alias is expressed as buf[Start:Start+Len]; buf must
// outlive every StringSpan derived from it.
type StringSpan struct {
	buf   []byte
	Start int
	Len   int
}

// MakeStringSpan returns a StringSpan over buf[start:start+length].
func MakeStringSpan(buf []byte, start, length int) StringSpan {
	return StringSpan{buf: buf, Start: start, Len: length}
}

// Bytes returns the span's bytes. The returned slice aliases buf; callers
// must not retain it past buf's lifetime.
func (s StringSpan) Bytes() []byte {
	return s.buf[s.Start : s.Start+s.Len]
}

// String copies the span's bytes into a new, independently owned string.
func (s StringSpan) String() string {
	if s.Len == 0 {
		return ""
	}
	return string(s.Bytes())
}

// Equal reports whether two spans hold the same bytes, regardless of which
// buffer backs them.
func (s StringSpan) Equal(o StringSpan) bool {
	if s.Len != o.Len {
		return false
	}
	a, b := s.Bytes(), o.Bytes()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Empty reports whether the span has zero length.
func (s StringSpan) Empty() bool {
	return s.Len == 0
}
