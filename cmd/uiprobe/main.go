// Command uiprobe drives a live web UI through a scenario and captures
// screenshots and tagged console telemetry for inspection.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/uiprobe/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
