package pipeline

import (
	"github.com/mvp-joe/depseed/internal/parsers"
	"github.com/mvp-joe/depseed/internal/provision"
)

// ProgressReporter provides callbacks for reporting run progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnScanStart is called before files are enumerated.
	OnScanStart(runID, projectPath string)

	// OnScanComplete is called once every file has been parsed.
	OnScanComplete(files, references int)

	// OnLookup is called after each registry lookup.
	OnLookup(ref parsers.ModuleRef, exists bool)

	// OnProvisioned is called after each add invocation.
	OnProvisioned(result provision.Result)

	// OnComplete is called when the run finishes, successfully or not.
	OnComplete(summary *Summary)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnScanStart(runID, projectPath string)       {}
func (n *NoOpProgressReporter) OnScanComplete(files, references int)        {}
func (n *NoOpProgressReporter) OnLookup(ref parsers.ModuleRef, exists bool) {}
func (n *NoOpProgressReporter) OnProvisioned(result provision.Result)       {}
func (n *NoOpProgressReporter) OnComplete(summary *Summary)                 {}
