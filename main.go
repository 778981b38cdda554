package main

import (
	"github.com/pihamlab/morselink/cmd"
	"github.com/pihamlab/morselink/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
