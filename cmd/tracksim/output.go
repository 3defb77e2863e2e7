package main

import (
	"fmt"
	"os"
)

// Output helpers shared by the commands:
//   ✓ success, ⚠ warning or skipped item, ✗ error (stderr).

func printSection(title string) {
	fmt.Printf("\n=== %s ===\n", title)
}

func printOK(name, msg string) {
	if name == "" {
		fmt.Printf("  ✓  %s\n", msg)
		return
	}
	fmt.Printf("  ✓  [%s] %s\n", name, msg)
}

func printWarn(name, msg string) {
	if name == "" {
		fmt.Printf("  ⚠  %s\n", msg)
		return
	}
	fmt.Printf("  ⚠  [%s] %s\n", name, msg)
}

func printErr(name, msg string) {
	if name == "" {
		fmt.Fprintf(os.Stderr, "  ✗  %s\n", msg)
		return
	}
	fmt.Fprintf(os.Stderr, "  ✗  [%s] %s\n", name, msg)
}
