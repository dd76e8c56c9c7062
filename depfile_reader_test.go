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

package nin

import (
	"errors"
	"io/fs"
	"testing"
)

type fakeFS map[string][]byte

func (f fakeFS) ReadFile(path string) ([]byte, error) {
	content, ok := f[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return content, nil
}

func TestDepfileReader_Read(t *testing.T) {
	r := &DepfileReader{FS: fakeFS{"out.d": []byte("out.o: a.h b.h\n")}}
	rec, err := r.Read("out.d", "out.o")
	if err != nil {
		t.Fatal(err)
	}
	assertIns(t, rec, "a.h", "b.h")
}

func TestDepfileReader_ReadEmptyFile(t *testing.T) {
	r := &DepfileReader{FS: fakeFS{"out.d": []byte{}}}
	rec, err := r.Read("out.d", "out.o")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Out.String() != "" || len(rec.Ins) != 0 {
		t.Fatalf("rec = %+v, want zero value", rec)
	}
}

func TestDepfileReader_ReadOutputMismatch(t *testing.T) {
	r := &DepfileReader{FS: fakeFS{"out.d": []byte("other.o: a.h\n")}}
	_, err := r.Read("out.d", "out.o")
	if !errors.Is(err, ErrExpectedOutputMismatch) {
		t.Fatalf("err = %v, want ErrExpectedOutputMismatch", err)
	}
}

func TestDepfileReader_ReadMissingFile(t *testing.T) {
	r := &DepfileReader{FS: fakeFS{}}
	_, err := r.Read("missing.d", "out.o")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestDepfileReader_ReadGroupSplitsAndConsumes(t *testing.T) {
	r := &DepfileReader{FS: fakeFS{"group-a.d": []byte(
		"foo.o: a.h\\\n" +
			" shared.h\n" +
			"bar.o: b.h\\\n" +
			" shared.h\n",
	)}}

	rec, found, err := r.ReadGroup("group-a.d", "foo.o")
	if err != nil || !found {
		t.Fatalf("ReadGroup(foo.o) = %v, %v, %v", rec, found, err)
	}
	assertIns(t, rec, "a.h", "shared.h")

	// A second request for the same output finds nothing: ReadGroup
	// consumes each (path, output) pair exactly once.
	_, found, err = r.ReadGroup("group-a.d", "foo.o")
	if err != nil || found {
		t.Fatalf("ReadGroup(foo.o) second call: found = %v, err = %v, want false, nil", found, err)
	}

	rec, found, err = r.ReadGroup("group-a.d", "bar.o")
	if err != nil || !found {
		t.Fatalf("ReadGroup(bar.o) = %v, %v, %v", rec, found, err)
	}
	assertIns(t, rec, "b.h", "shared.h")
}

func TestDepfileReader_ReadGroupMissingFileIsNotAnError(t *testing.T) {
	r := &DepfileReader{FS: fakeFS{}}
	_, found, err := r.ReadGroup("group-missing.d", "out.o")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("found = true, want false for a nonexistent group file")
	}
}

func TestDepfileReader_ReadGroupUnknownOutput(t *testing.T) {
	r := &DepfileReader{FS: fakeFS{"group-b.d": []byte("foo.o: a.h\n")}}
	_, found, err := r.ReadGroup("group-b.d", "bar.o")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("found = true, want false for an output absent from the group")
	}
}
