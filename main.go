// main is the entry point for the sca CLI.
package main

import (
	"github.com/huangsam/sca/cmd"
	"github.com/huangsam/sca/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("Command failed", err)
	}
}
