package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/tilter/internal/config"
	"github.com/example/tilter/internal/db"
	"github.com/example/tilter/internal/tiltschema"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	OK      bool
	Details string // Only shown on failure
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the tilter environment",
		Long: `Environment health check for tilter.

Validates:
- Config file (.tilter/config.json)
- Schema file parses
- Database file is reachable
- Registry endpoint responds (if configured)

Examples:
  tilter doctor           # Run full health check
  tilter doctor --quiet   # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := []CheckResult{}

			cfg, cfgResult := checkConfig()
			results = append(results, cfgResult)
			if cfg != nil {
				results = append(results, checkSchema(cfg))
				results = append(results, checkDatabase())
				results = append(results, checkRegistry(cfg))
			}

			hasErrors := false
			for _, r := range results {
				if !r.OK {
					hasErrors = true
					break
				}
			}

			if !quiet {
				ok := color.New(color.FgGreen).Sprint("OK")
				missing := color.New(color.FgRed).Sprint("MISSING")

				fmt.Println()
				fmt.Println("Check              Status")
				fmt.Println("─────────────────────────")
				for _, r := range results {
					status := ok
					if !r.OK {
						status = missing
					}
					fmt.Printf("%-18s %s\n", r.Name, status)
				}
				fmt.Println()

				for _, r := range results {
					if !r.OK && r.Details != "" {
						fmt.Printf("%s:\n  %s\n", r.Name, r.Details)
					}
				}

				if !hasErrors {
					fmt.Println("All checks passed.")
				}
			}

			if hasErrors {
				return fmt.Errorf("environment validation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Exit code only, no output")
	return cmd
}

func checkConfig() (*config.Config, CheckResult) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, CheckResult{Name: "Config", OK: false, Details: fmt.Sprintf("%v (run 'tilter init --schema <path>')", err)}
	}
	return cfg, CheckResult{Name: "Config", OK: true}
}

func checkSchema(cfg *config.Config) CheckResult {
	schema, err := tiltschema.Load(cfg.SchemaPath)
	if err != nil {
		return CheckResult{Name: "Schema", OK: false, Details: err.Error()}
	}
	if err := config.ValidateDefaults(schema, cfg.Defaults); err != nil {
		return CheckResult{Name: "Schema", OK: false, Details: err.Error()}
	}
	return CheckResult{Name: "Schema", OK: true}
}

func checkDatabase() CheckResult {
	path, err := db.GetDBPath()
	if err != nil {
		return CheckResult{Name: "Database", OK: false, Details: err.Error()}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Not fatal, GetDB creates it on first use
		return CheckResult{Name: "Database", OK: true}
	}
	if _, err := db.GetDB(); err != nil {
		return CheckResult{Name: "Database", OK: false, Details: err.Error()}
	}
	return CheckResult{Name: "Database", OK: true}
}

func checkRegistry(cfg *config.Config) CheckResult {
	if cfg.RegistryURL == "" {
		return CheckResult{Name: "Registry", OK: true}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(cfg.RegistryURL)
	if err != nil {
		return CheckResult{Name: "Registry", OK: false, Details: fmt.Sprintf("registry not reachable: %v", err)}
	}
	resp.Body.Close()
	return CheckResult{Name: "Registry", OK: true}
}
