// Package helpers provides shared helper functions for CLI commands.
package helpers

import (
	"os"

	"github.com/spf13/cobra"

	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tui"
)

// DebugFlag is the persistent flag enabling debug output
const DebugFlag = "debug"

// NewSplog builds the console and log file output for a command
func NewSplog(cmd *cobra.Command) *tui.Splog {
	debug, _ := cmd.Root().PersistentFlags().GetBool(DebugFlag)
	debug = debug || os.Getenv("DEBUG") != ""
	splog, err := tui.NewSplogWithConfig(tui.GetLogFilePath(), debug)
	if err != nil {
		return tui.NewSplogWithWriter(os.Stdout, debug)
	}
	return splog
}

// Run builds the runtime context of the repository in the working directory
// and passes it to fn
func Run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) error {
	splog := NewSplog(cmd)
	defer func() { _ = splog.Close() }()

	ctx, err := runtime.New(cmd.Context(), runtime.Options{Path: ".", Splog: splog})
	if err != nil {
		return err
	}
	return fn(ctx)
}
