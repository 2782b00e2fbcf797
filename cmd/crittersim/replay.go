/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package main

import (
	"bufio"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/critter-hpc/critter/record"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// printRecording decodes one record.Node per line from r and prints a
// compact summary table, the replay counterpart to session.Stop's
// stdoutStream/fileStream writers in record/stream.go.
func printRecording(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	fmt.Printf("%-8s %-10s %12s %12s %12s\n", "session", "iteration", "runtime", "bytes", "comm_time")
	count := 0
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var n record.Node
		if err := json.Unmarshal(line, &n); err != nil {
			return fmt.Errorf("crittersim: replay: decode line %d: %w", count+1, err)
		}
		fmt.Printf("%-8s %-10d %12.6f %12.0f %12.6f\n",
			shortID(n.SessionID), n.Iteration, n.PathTotals[7], n.PathTotals[0], n.PathTotals[1])
		count++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("crittersim: replay: scan: %w", err)
	}
	fmt.Printf("%d iteration(s) replayed\n", count)
	return nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
