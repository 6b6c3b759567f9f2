package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appVersion = "0.5.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "fishlog",
		Short:         "Maori fishing calendar and fishing log",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file to load before reading the environment")

	root.AddCommand(
		newCalendarCmd(),
		newDayCmd(),
		newPhasesCmd(),
		newServeCmd(&envFile),
		newExportCmd(&envFile),
		newImportCmd(&envFile),
	)
	return root
}
