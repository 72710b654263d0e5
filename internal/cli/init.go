package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/tilter/internal/config"
	"github.com/example/tilter/internal/tiltschema"
)

// InitCmd returns the init command that writes a fresh config.
func InitCmd() *cobra.Command {
	var schemaPath string
	var language string
	var registryURL string
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a tilter workspace in the current directory",
		Long: `Writes .tilter/config.json pointing at the annotation schema.

The schema is parsed once here so a broken schema fails at init instead
of at first use.

Examples:
  tilter init --schema ./tilt-schema.json
  tilter init --schema ./tilt-schema.json --registry http://localhost:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemaPath == "" {
				return fmt.Errorf("--schema is required")
			}
			if _, err := tiltschema.Load(schemaPath); err != nil {
				return fmt.Errorf("schema did not parse: %w", err)
			}

			cfg := &config.Config{
				Version:     "1",
				SchemaPath:  schemaPath,
				Language:    language,
				RegistryURL: registryURL,
				ListenAddr:  listenAddr,
			}
			if err := config.SaveConfig(".", cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Printf("✓ Initialized tilter workspace (schema: %s)\n", schemaPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "Path to the annotation schema JSON")
	cmd.Flags().StringVar(&language, "language", "en", "Document language recorded in meta")
	cmd.Flags().StringVar(&registryURL, "registry", "", "Base URL of the external document registry")
	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "HTTP listen address for serve")
	return cmd
}
