package cli

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/depseed/internal/parsers"
	"github.com/mvp-joe/depseed/internal/pipeline"
	"github.com/mvp-joe/depseed/internal/provision"
)

// CLIProgressReporter implements progress reporting with progress bars.
type CLIProgressReporter struct {
	out       io.Writer
	quiet     bool
	verbose   bool
	lookupBar *progressbar.ProgressBar
	startTime time.Time
	published int
}

// NewCLIProgressReporter creates a new CLI progress reporter. Bars and the
// final summary are written to out; per-step lines go to the standard logger.
func NewCLIProgressReporter(out io.Writer, quiet, verbose bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		out:       out,
		quiet:     quiet,
		verbose:   verbose,
		startTime: time.Now(),
	}
}

func (c *CLIProgressReporter) OnScanStart(runID, projectPath string) {
	if c.quiet {
		return
	}
	c.startTime = time.Now()
	c.published = 0
	if c.verbose {
		log.Printf("Run %s\n", runID)
	}
	log.Printf("Scanning %s...\n", projectPath)
}

func (c *CLIProgressReporter) OnScanComplete(files, references int) {
	if c.quiet {
		return
	}
	log.Printf("Found %d import references in %d files\n", references, files)

	// Verbose mode logs one line per lookup instead of drawing a bar.
	if c.verbose || references == 0 {
		return
	}
	c.lookupBar = progressbar.NewOptions(references,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Checking registry"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnLookup(ref parsers.ModuleRef, exists bool) {
	if exists {
		c.published++
	}
	if c.quiet {
		return
	}
	if c.lookupBar != nil {
		c.lookupBar.Add(1)
	}
	if c.verbose {
		state := "not published"
		if exists {
			state = "published"
		}
		log.Printf("  %s: %s\n", ref, state)
	}
}

func (c *CLIProgressReporter) OnProvisioned(result provision.Result) {
	if result.Failed() {
		// Failures are reported even in quiet mode.
		log.Printf("Warning: %v\n", result.Err)
		return
	}
	if c.quiet {
		return
	}
	// Dry-run commands are printed once by the caller.
	if c.verbose && !result.Skipped {
		log.Printf("Ran: %s\n", formatCommand(result.Command))
	}
}

func (c *CLIProgressReporter) OnComplete(summary *pipeline.Summary) {
	if c.lookupBar != nil {
		c.lookupBar.Finish()
		c.lookupBar = nil
	}
	if c.quiet {
		return
	}

	added := summary.Report.Added()
	failed := summary.Report.Failures()

	fmt.Fprintln(c.out)
	switch {
	case summary.Err != nil:
		fmt.Fprintf(c.out, "✗ Run failed after %.1fs (%d dependencies added)\n", summary.Duration.Seconds(), len(added))
	case dryRunReport(summary.Report):
		fmt.Fprintf(c.out, "✓ %d dependencies would be added (dry run)\n", len(added))
	default:
		fmt.Fprintf(c.out, "✓ %d dependencies added in %.1fs\n", len(added), summary.Duration.Seconds())
	}
	fmt.Fprintf(c.out, "  Files scanned:   %d\n", summary.Files)
	fmt.Fprintf(c.out, "  References:      %d\n", len(summary.References))
	fmt.Fprintf(c.out, "  Published:       %d\n", c.published)
	if len(failed) > 0 {
		fmt.Fprintf(c.out, "  Failed:          %d\n", len(failed))
	}
}

func dryRunReport(report *provision.Report) bool {
	for _, res := range report.Results {
		if !res.Skipped {
			return false
		}
	}
	return len(report.Results) > 0
}
