package main

import (
	"testing"
)

// TestMain_Imports verifies that the main package compiles and its imports
// resolve. main() itself delegates to cmd.Execute, which exits the process,
// so behavior is covered by the cmd package tests.
func TestMain_Imports(t *testing.T) {
}
