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
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FileSystem is the subset of disk access DepfileReader needs, kept small
// so tests can inject an in-memory implementation.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFileSystem reads from the real filesystem via os.ReadFile.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DepfileReader reads and parses GCC/Clang-style depfiles, consulting a
// process-wide group cache for aggregated depfiles that describe more than
// one output.
type DepfileReader struct {
	FS      FileSystem
	Options DepfileParserOptions
}

// NewDepfileReader returns a DepfileReader backed by the real filesystem.
func NewDepfileReader(opts DepfileParserOptions) *DepfileReader {
	return &DepfileReader{FS: OSFileSystem{}, Options: opts}
}

func (r *DepfileReader) fs() FileSystem {
	if r.FS != nil {
		return r.FS
	}
	return OSFileSystem{}
}

// Read reads path, parses it as a single-rule depfile, and checks that its
// primary target matches expectedOutput. An empty file is a success with a
// zero-value DepfileRecord.
func (r *DepfileReader) Read(path, expectedOutput string) (DepfileRecord, error) {
	content, err := r.fs().ReadFile(path)
	if err != nil {
		return DepfileRecord{}, err
	}
	if len(content) == 0 {
		return DepfileRecord{}, nil
	}
	p := &DepfileParser{Options: r.Options}
	rec, err := p.Parse(nulTerminate(content))
	if err != nil {
		return DepfileRecord{}, wrapPath(path, err)
	}
	if rec.Out.String() != expectedOutput {
		return DepfileRecord{}, fmt.Errorf("expected depfile %q to mention %q, got %q: %w", path, expectedOutput, rec.Out.String(), ErrExpectedOutputMismatch)
	}
	return rec, nil
}

// ReadGroup reads path through the process-wide group cache and returns the
// record filed under requestedOutput, consuming it on success. found is
// false when path has no entry for requestedOutput, which is not an error:
// it means the output is new to the project.
func (r *DepfileReader) ReadGroup(path, requestedOutput string) (rec DepfileRecord, found bool, err error) {
	return defaultDepfileGroupCache.readGroup(r.fs(), r.Options, path, requestedOutput)
}

// nulTerminate returns content with a trailing NUL byte, copying only when
// needed so DepfileParser.Parse's in-place rewrite never corrupts a caller's
// buffer outside of depfile_reader.go's control.
func nulTerminate(content []byte) []byte {
	if len(content) > 0 && content[len(content)-1] == 0 {
		return content
	}
	out := make([]byte, len(content)+1)
	copy(out, content)
	return out
}

// DepfileGroupCache is the process-wide cache of aggregated depfiles: a
// depfile_path maps to a map of output name to its not-yet-consumed
// DepfileRecord. Each (path, output) pair is delivered to at most one
// caller; concurrent ReadGroup calls for the same path are collapsed into a
// single disk read via singleflight ahead of the exclusive map mutation.
type DepfileGroupCache struct {
	mu    sync.Mutex
	sf    singleflight.Group
	files map[string]map[string]DepfileRecord
}

var defaultDepfileGroupCache = &DepfileGroupCache{files: map[string]map[string]DepfileRecord{}}

func (c *DepfileGroupCache) readGroup(fsys FileSystem, opts DepfileParserOptions, path, output string) (DepfileRecord, bool, error) {
	c.mu.Lock()
	fileMap, cached := c.files[path]
	c.mu.Unlock()

	if !cached {
		_, err, _ := c.sf.Do(path, func() (interface{}, error) {
			loaded, loadErr := loadDepfileGroup(fsys, opts, path)
			if loadErr != nil {
				return nil, loadErr
			}
			c.mu.Lock()
			if _, exists := c.files[path]; !exists {
				c.files[path] = loaded
			}
			c.mu.Unlock()
			return nil, nil
		})
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return DepfileRecord{}, false, nil
			}
			return DepfileRecord{}, false, err
		}
		c.mu.Lock()
		fileMap = c.files[path]
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := fileMap[output]
	if ok {
		delete(fileMap, output)
	}
	return rec, ok, nil
}

// loadDepfileGroup reads path and splits it into per-rule chunks using the
// Make continuation convention: a rule extends while its last non-newline
// character is '\'; the next newline otherwise ends it. Each chunk is
// parsed independently and filed under its primary target.
func loadDepfileGroup(fsys FileSystem, opts DepfileParserOptions, path string) (map[string]DepfileRecord, error) {
	content, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]DepfileRecord{}, nil
		}
		return nil, err
	}
	result := map[string]DepfileRecord{}
	if len(content) == 0 {
		return result, nil
	}

	var chunk []byte
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		p := &DepfileParser{Options: opts}
		rec, err := p.Parse(nulTerminate(chunk))
		chunk = chunk[:0]
		if err != nil {
			return wrapPath(path, err)
		}
		result[rec.Out.String()] = rec
		return nil
	}

	in := 0
	for in < len(content) {
		nl := bytes.IndexByte(content[in:], '\n')
		var line []byte
		if nl == -1 {
			line = content[in:]
			in = len(content)
		} else {
			line = content[in : in+nl+1]
			in = in + nl + 1
		}
		chunk = append(chunk, line...)
		trimmed := bytes.TrimRight(line, "\n")
		if len(trimmed) == 0 || trimmed[len(trimmed)-1] != '\\' || in >= len(content) {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return result, nil
}
