package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/mvp-joe/depseed/internal/discovery"
	"github.com/mvp-joe/depseed/internal/parsers"
	"github.com/mvp-joe/depseed/internal/provision"
	"github.com/mvp-joe/depseed/internal/registry"
	"github.com/mvp-joe/depseed/internal/venv"
)

var (
	// ErrNotDirectory indicates the project path is missing or not a directory
	ErrNotDirectory = errors.New("is not a directory")

	// ErrEnvironmentExists indicates a well-formed environment is already in place
	ErrEnvironmentExists = errors.New("already has a Python virtual environment")

	// ErrRunInProgress indicates another process holds the project lock
	ErrRunInProgress = errors.New("another run is provisioning this project")
)

// State is the orchestrator's position in a run.
type State int

const (
	StateTargetMissing State = iota
	StateEnvironmentAlreadyValid
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateTargetMissing:
		return "target-missing"
	case StateEnvironmentAlreadyValid:
		return "environment-already-valid"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a run.
type Options struct {
	ProjectPath string

	// VenvName is the environment directory under ProjectPath. It is also
	// excluded from scanning.
	VenvName  string
	Scan      discovery.Options
	Imports   parsers.Options
	Provision provision.Options

	// Layout overrides the expected environment listing. Defaults to the
	// running platform's layout.
	Layout []string

	// LockDir holds the per-project lock files. Defaults to os.TempDir().
	LockDir string
}

// Summary describes a finished (or aborted) run.
type Summary struct {
	RunID       string
	ProjectPath string
	Files       int
	References  []parsers.ModuleRef
	Validated   []parsers.ModuleRef
	Report      *provision.Report
	Duration    time.Duration

	// Err is the error Run returned, if any.
	Err error
}

// Lookup pairs a reference with its registry verdict.
type Lookup struct {
	Ref    parsers.ModuleRef
	Exists bool
}

// Runner drives enumerate → extract → filter → provision for one project.
type Runner struct {
	client   registry.Client
	commands provision.Runner
	opts     Options
	progress ProgressReporter
}

// NewRunner creates a runner. client answers registry lookups and commands
// executes the provisioning tool.
func NewRunner(client registry.Client, commands provision.Runner, opts Options) *Runner {
	if opts.Layout == nil {
		opts.Layout = venv.LayoutFor(runtime.GOOS)
	}
	if opts.LockDir == "" {
		opts.LockDir = os.TempDir()
	}
	return &Runner{
		client:   client,
		commands: commands,
		opts:     opts,
		progress: &NoOpProgressReporter{},
	}
}

// WithProgress sets the progress reporter.
func (r *Runner) WithProgress(progress ProgressReporter) *Runner {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	r.progress = progress
	return r
}

// Check evaluates the preconditions. It returns StateRunning and no error
// when the run may proceed.
func (r *Runner) Check() (State, error) {
	info, err := os.Stat(r.opts.ProjectPath)
	if err != nil || !info.IsDir() {
		return StateTargetMissing, fmt.Errorf("%s %w", r.opts.ProjectPath, ErrNotDirectory)
	}

	desc := venv.Descriptor{
		Path:     filepath.Join(r.opts.ProjectPath, r.opts.VenvName),
		Expected: r.opts.Layout,
	}
	exists, err := desc.Matches()
	if err != nil {
		return StateEnvironmentAlreadyValid, fmt.Errorf("failed to inspect %s: %w", desc.Path, err)
	}
	if exists {
		return StateEnvironmentAlreadyValid, fmt.Errorf("%s %w %s", r.opts.ProjectPath, ErrEnvironmentExists, r.opts.VenvName)
	}

	return StateRunning, nil
}

// Run checks the preconditions, then scans, filters and provisions.
//
// Every file is parsed before the registry is consulted, so a syntax error
// aborts the run with nothing provisioned. Lookups and adds then interleave:
// a registry failure leaves earlier dependencies added.
func (r *Runner) Run(ctx context.Context) (_ *Summary, err error) {
	if _, err := r.Check(); err != nil {
		return nil, err
	}

	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	summary := &Summary{
		RunID:       uuid.New().String(),
		ProjectPath: r.opts.ProjectPath,
		References:  []parsers.ModuleRef{},
		Validated:   []parsers.ModuleRef{},
		Report:      &provision.Report{Results: []provision.Result{}},
	}
	defer func() {
		summary.Duration = time.Since(start)
		summary.Err = err
		r.progress.OnComplete(summary)
	}()

	r.progress.OnScanStart(summary.RunID, r.opts.ProjectPath)

	refs, files, err := r.scan(ctx)
	if err != nil {
		return summary, err
	}
	summary.Files = files
	summary.References = refs
	r.progress.OnScanComplete(files, len(refs))

	validated := r.validate(ctx, refs, summary)

	provOpts := r.opts.Provision
	provOpts.Dir = r.opts.ProjectPath
	onResult := provOpts.OnResult
	provOpts.OnResult = func(res provision.Result) {
		if onResult != nil {
			onResult(res)
		}
		r.progress.OnProvisioned(res)
	}

	report, err := provision.New(r.commands, provOpts).Provision(ctx, names(validated))
	if report != nil {
		summary.Report = report
	}
	return summary, err
}

// Scan extracts the module references without consulting the registry.
func (r *Runner) Scan(ctx context.Context) ([]parsers.ModuleRef, error) {
	if state, err := r.Check(); err != nil && state == StateTargetMissing {
		return nil, err
	}
	refs, _, err := r.scan(ctx)
	return refs, err
}

// Lookups extracts the references and asks the registry about each one,
// without provisioning anything.
func (r *Runner) Lookups(ctx context.Context) ([]Lookup, error) {
	refs, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}

	lookups := make([]Lookup, 0, len(refs))
	for _, ref := range refs {
		ok, err := registry.Exists(ctx, r.client, ref.Name)
		if err != nil {
			return nil, err
		}
		r.progress.OnLookup(ref, ok)
		lookups = append(lookups, Lookup{Ref: ref, Exists: ok})
	}
	return lookups, nil
}

// scan parses every source file and returns the references and file count.
func (r *Runner) scan(ctx context.Context) ([]parsers.ModuleRef, int, error) {
	scanOpts := r.opts.Scan
	scanOpts.Exclude = r.opts.VenvName

	enumerator, err := discovery.NewEnumerator(r.opts.ProjectPath, scanOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid scan options: %w", err)
	}

	files := 0
	counted := func(yield func(string, error) bool) {
		for path, err := range enumerator.Files() {
			if err == nil {
				files++
			}
			if !yield(path, err) {
				return
			}
		}
	}

	refs, err := parsers.NewImportExtractor(r.opts.Imports).ExtractAll(ctx, counted)
	if err != nil {
		return nil, files, err
	}
	return refs, files, nil
}

// validate lazily keeps the references the registry knows, recording them
// in summary as they pass.
func (r *Runner) validate(ctx context.Context, refs []parsers.ModuleRef, summary *Summary) iter.Seq2[parsers.ModuleRef, error] {
	var all iter.Seq2[parsers.ModuleRef, error] = func(yield func(parsers.ModuleRef, error) bool) {
		for _, ref := range refs {
			if !yield(ref, nil) {
				return
			}
		}
	}

	// Filter asks for the key right before calling the predicate, which lets
	// the predicate report the whole reference.
	var current parsers.ModuleRef
	key := func(ref parsers.ModuleRef) string {
		current = ref
		return ref.Name
	}

	exists := registry.ExistsIn(r.client)
	keep := func(ctx context.Context, name string) (bool, error) {
		ok, err := exists(ctx, name)
		if err == nil {
			r.progress.OnLookup(current, ok)
		}
		return ok, err
	}

	return func(yield func(parsers.ModuleRef, error) bool) {
		for ref, err := range registry.Filter(ctx, all, key, keep) {
			if err == nil {
				summary.Validated = append(summary.Validated, ref)
			}
			if !yield(ref, err) {
				return
			}
		}
	}
}

// lockPath returns the lock file for the project. The name is stable per
// absolute project path.
func (r *Runner) lockPath() (string, string, error) {
	absPath, err := filepath.Abs(r.opts.ProjectPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve project path: %w", err)
	}

	key := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(absPath)))
	return filepath.Join(r.opts.LockDir, fmt.Sprintf("depseed-%s.lock", key)), absPath, nil
}

// lock takes the per-project lock and returns its release function.
func (r *Runner) lock() (func(), error) {
	lockPath, absPath, err := r.lockPath()
	if err != nil {
		return nil, err
	}

	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, absPath)
	}

	// The lock file is left in place so every run locks the same inode.
	return func() {
		_ = fileLock.Unlock()
	}, nil
}

// names maps validated references to bare dependency names.
func names(refs iter.Seq2[parsers.ModuleRef, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for ref, err := range refs {
			if !yield(ref.Name, err) {
				return
			}
		}
	}
}
