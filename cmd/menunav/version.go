package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	buildID   = "dev"
	buildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("menunav %s (built %s)\n", buildID, buildTime)
	},
}
