package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("faceswap %s (OpenCV %s, gocv %s)\n", Version, gocv.OpenCVVersion(), gocv.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
