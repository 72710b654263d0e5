package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/tilter/internal/feeder"
	"github.com/example/tilter/internal/wire"
)

// FeedCmd returns the feed command that ingests a directory of documents.
func FeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed [dir]",
		Short: "Ingest documents from a directory as root tasks",
		Long: `Ingests every .json and .pdf file directly under the directory.
JSON files carry {"name": ..., "text": ..., "url": ...}; PDFs are extracted
to plain text. Re-feeding the same directory is a no-op for unchanged files.

With no argument the feed_dir from config is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				dir = wire.Config().FeedDir
			}
			if dir == "" {
				return fmt.Errorf("no directory given and no feed_dir in config")
			}

			f := feeder.NewFeeder(wire.TaskService(), wire.Logger())
			result, err := f.FeedDir(cmd.Context(), dir)
			if err != nil {
				return err
			}

			fmt.Printf("%s Feed complete: %d ingested, %d already present",
				color.New(color.FgGreen).Sprint("✓"), result.Ingested, result.Existing)
			if len(result.Skipped) > 0 {
				fmt.Printf(", %s", color.New(color.FgYellow).Sprintf("%d skipped", len(result.Skipped)))
			}
			fmt.Println()
			for _, name := range result.Skipped {
				fmt.Printf("  %s %s\n", color.New(color.FgYellow).Sprint("skipped:"), name)
			}
			return nil
		},
	}
	return cmd
}
