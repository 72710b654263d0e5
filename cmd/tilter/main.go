package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/tilter/internal/cli"
	"github.com/example/tilter/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "tilter",
		Short:   "tilter - schema-driven annotation hierarchy engine",
		Version: version.String(),
		Long: `tilter manages annotation tasks over documents, expands schema-driven
subtasks as annotations arrive, and reassembles the nested tilt documents.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.FeedCmd())
	rootCmd.AddCommand(cli.TaskCmd())
	rootCmd.AddCommand(cli.TiltCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
