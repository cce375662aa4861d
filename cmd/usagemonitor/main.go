// Package main is the entry point for the usage monitoring helper.
package main

import (
	"fmt"
	"os"

	"github.com/j-veylop/rewardgate/internal/monitor/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
