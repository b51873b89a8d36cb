/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

// Command schemacheck validates record type schemas and prints the term rows
// each type writes per record.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	cipherstash "github.com/cipherstash/cipherstash-dynamodb"
	"github.com/cipherstash/cipherstash-dynamodb/processor"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
	"github.com/cipherstash/cipherstash-dynamodb/terms"
)

var (
	versionFlag  = flag.Bool("version", false, "Show version information")
	vFlag        = flag.Bool("v", false, "Show version information (short)")
	maxPrefixLen = flag.Int("max-prefix-len", registry.DefaultMaxPrefixLen, "Default prefix cap for fields without one")
	suffixesFlag = flag.Bool("suffixes", false, "List every term-row sort-key suffix")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] schema.yaml...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag || *vFlag {
		info := cipherstash.GetVersionInfo()
		fmt.Printf("schemacheck version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(os.Stdout, flag.Args(), *maxPrefixLen, *suffixesFlag); err != nil {
		fmt.Fprintf(os.Stderr, "schemacheck: %v\n", err)
		os.Exit(1)
	}
}

// run loads every file into one registry, so clashes between files are
// reported too, and prints a summary of each type.
func run(w io.Writer, files []string, defaultCap int, listSuffixes bool) error {
	reg := registry.New(registry.WithMaxPrefixLen(defaultCap))
	for _, path := range files {
		types, err := processor.LoadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, rt := range types {
			if err := reg.Register(rt); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	reg.Freeze()

	for _, name := range reg.Types() {
		rt, _ := reg.Lookup(name)
		describe(w, rt, listSuffixes)
	}
	return nil
}

func describe(w io.Writer, rt *registry.RecordType, listSuffixes bool) {
	fmt.Fprintf(w, "%s\n", rt.Name())
	fmt.Fprintf(w, "  partition key: %s\n", rt.PartitionKey())
	if sk := rt.SortKey(); sk.Dynamic() {
		fmt.Fprintf(w, "  sort key:      %s#<%s>\n", sk.Prefix, sk.Field)
	} else {
		fmt.Fprintf(w, "  sort key:      %s\n", sk.Prefix)
	}

	for _, idx := range rt.SingleIndexes() {
		rows := 1
		if idx.Mode == registry.ModePrefix {
			rows = rt.PrefixCap(idx.Field)
		}
		fmt.Fprintf(w, "  %-6s %-24s up to %d rows\n", idx.Mode, idx.Field, rows)
	}
	for _, g := range rt.Groups() {
		fmt.Fprintf(w, "  %-6s %-24s up to %d rows\n", "group", g.Name, rt.GroupFanOut(g))
	}
	fmt.Fprintf(w, "  term rows per record: at most %d\n", rt.TermRowBound())

	if listSuffixes {
		for _, s := range terms.Suffixes(rt) {
			fmt.Fprintf(w, "    %s\n", s)
		}
	}
}
