// Command minos boots the emulated machine and attaches a console frontend
// to it: a full-screen terminal view of the text framebuffer, or a plain
// serial session on stdin/stdout or a pseudo terminal.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagLogLevel string
	flagLogFile  string
)

func main() {
	root := &cobra.Command{
		Use:           "minos",
		Short:         "Run the minos machine and its console",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML machine config")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of stderr")

	root.AddCommand(newRunCmd(), newSerialCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
