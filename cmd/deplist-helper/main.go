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

// Command deplist-helper converts compiler dependency output (GCC/Clang
// depfiles or MSVC /showIncludes stderr) into a plain newline-separated
// deplist.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	nin "github.com/maruel/depios"
)

func usage() {
	fmt.Fprint(os.Stderr, `deplist-helper: convert dependency output into a deplist.

usage: deplist-helper [options] infile
options:
  -f FORMAT  specify input format; formats are
               gcc  gcc/clang Makefile-like depfile output (default)
               cl   MSVC cl.exe /showIncludes output
  -o FILE    write output to FILE (default: stdout)
`)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("deplist-helper", flag.ContinueOnError)
	fs.Usage = usage
	format := fs.String("f", "gcc", "input format: gcc or cl")
	outputPath := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 0
	}

	rest := fs.Args()
	if len(rest) < 1 {
		usage()
		return 1
	}
	inputPath := rest[0]

	content, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deplist-helper: loading %s: %v\n", inputPath, err)
		return 1
	}

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "deplist-helper: opening %s: %v\n", *outputPath, err)
			return 1
		}
		defer f.Close()
		out = f
	}

	var inputs []string
	switch *format {
	case "gcc":
		p := &nin.DepfileParser{}
		buf := append(append([]byte(nil), content...), 0)
		rec, err := p.Parse(buf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "deplist-helper: parsing %s: %v\n", inputPath, err)
			return 1
		}
		for _, in := range rec.Ins {
			inputs = append(inputs, in.String())
		}
	case "cl":
		var filter nin.ShowIncludesFilter
		text := filter.Filter(string(content))
		fmt.Print(text)
		inputs = filter.Includes
	default:
		fmt.Fprintf(os.Stderr, "deplist-helper: unknown input format %q\n", *format)
		return 1
	}

	w := bufio.NewWriter(out)
	for _, in := range inputs {
		fmt.Fprintln(w, in)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "deplist-helper: writing output: %v\n", err)
		return 1
	}
	return 0
}
