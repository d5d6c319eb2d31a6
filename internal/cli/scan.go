package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/depseed/internal/config"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the module references found in the project",
	Long: `Scan parses every Python file under the project and prints one line per
import statement that contributes a module reference. Nothing is looked up
and nothing is added.

Examples:
  depseed scan --proj_path ~/code/app --venv_name .venv
  depseed scan --top-level
`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return executeScan(ctx, cfg, cmd.OutOrStdout())
}

func executeScan(ctx context.Context, cfg *config.Config, out io.Writer) error {
	refs, err := newPipelineRunner(cfg, nil, nil).Scan(ctx)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		fmt.Fprintln(out, relativeRef(projPath, ref))
	}
	if !quietFlag {
		fmt.Fprintf(out, "%d references\n", len(refs))
	}
	return nil
}
