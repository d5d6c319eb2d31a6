package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/depseed/internal/config"
	"github.com/mvp-joe/depseed/internal/pipeline"
	"github.com/mvp-joe/depseed/internal/registry"
)

var checkJSON bool

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show which module references are published on the registry",
	Long: `Check scans the project like "depseed scan" and looks every reference up
on the package registry. Nothing is added.

Examples:
  depseed check
  depseed check --json
`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output as JSON")
}

// checkEntry is the JSON form of one lookup.
type checkEntry struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Exists bool   `json:"exists"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// An existing environment does not stop a check; a missing project does.
	if state, err := checkProject(cfg); err != nil && state == pipeline.StateTargetMissing {
		return err
	}

	client, closeClient, err := newRegistryClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	return executeCheck(ctx, cfg, client, cmd.OutOrStdout())
}

func executeCheck(ctx context.Context, cfg *config.Config, client registry.Client, out io.Writer) error {
	lookups, err := newPipelineRunner(cfg, client, nil).Lookups(ctx)
	if err != nil {
		return err
	}

	if checkJSON {
		entries := make([]checkEntry, len(lookups))
		for i, l := range lookups {
			entries[i] = checkEntry{
				Name:   l.Ref.Name,
				File:   l.Ref.File,
				Line:   l.Ref.Line,
				Exists: l.Exists,
			}
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	published := 0
	for _, l := range lookups {
		mark := "✗"
		if l.Exists {
			mark = "✓"
			published++
		}
		fmt.Fprintf(out, "%s %s\n", mark, relativeRef(projPath, l.Ref))
	}
	if !quietFlag {
		fmt.Fprintf(out, "%d of %d references are published\n", published, len(lookups))
	}
	return nil
}
