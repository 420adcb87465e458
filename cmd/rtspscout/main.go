// Package main is the entry point of the rtspscout command.
package main

import (
	"github.com/anstrom/rtspscout/cmd/cli"
)

// Build information, set by ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
