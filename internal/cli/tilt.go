package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/tilter/internal/wire"
)

var tiltCmd = &cobra.Command{
	Use:   "tilt",
	Short: "Assemble and publish tilt documents",
	Long:  "Reassemble nested tilt documents from annotated task trees and push them to the registry",
}

var tiltExportCmd = &cobra.Command{
	Use:   "export [root-task-id]",
	Short: "Assemble a tilt document and print it as JSON",
	Long: `Assembles the nested document for one root task, or for every root
task when no ID is given. Output goes to stdout or --out.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")

		var payload any
		if len(args) == 1 {
			doc, err := wire.TiltService().Assemble(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			payload = doc
		} else {
			docs, err := wire.TiltService().AssembleAll(cmd.Context())
			if err != nil {
				return err
			}
			payload = docs
		}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}

		if outPath != "" {
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Printf("✓ Wrote %s\n", outPath)
			return nil
		}
		fmt.Println(string(data))
		return nil
	},
}

var tiltPushCmd = &cobra.Command{
	Use:   "push [root-task-id]",
	Short: "Assemble a document and upload it to the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		location, err := wire.TiltService().Push(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to push document: %w", err)
		}
		fmt.Printf("✓ Pushed document: %s\n", location)
		return nil
	},
}

var tiltUnpushCmd = &cobra.Command{
	Use:   "unpush [root-task-id]",
	Short: "Remove a previously pushed document from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.TiltService().Unpush(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to unpush document: %w", err)
		}
		fmt.Printf("✓ Removed document for task %s from registry\n", args[0])
		return nil
	},
}

func init() {
	tiltExportCmd.Flags().String("out", "", "Write output to file instead of stdout")

	tiltCmd.AddCommand(tiltExportCmd)
	tiltCmd.AddCommand(tiltPushCmd)
	tiltCmd.AddCommand(tiltUnpushCmd)
}

// TiltCmd returns the tilt command
func TiltCmd() *cobra.Command {
	return tiltCmd
}
