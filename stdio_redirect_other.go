//go:build !unix

package main

import (
	"fmt"
	"os"
)

// Runtime panics still go to the original stderr here; only Go-level writes
// through os.Stdout and os.Stderr are captured.
func redirectStdIO(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	os.Stdout = f
	os.Stderr = f
	return nil
}
