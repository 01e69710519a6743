package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "routine",
		Short:         "Voice-command alarms, schedules and reminders",
		Long:          "routine turns spoken or typed commands like \"set alarm for 7 AM tomorrow\" into alarms, schedule items and reminders, and notifies when they come due.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newREPLCmd(),
		newSayCmd(),
		newAddCmd(),
		newListCmd(),
		newRmCmd(),
		newVAPIDKeysCmd(),
		newHashTokenCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
