package provision

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// Failure policies. They mirror the config package's values.
const (
	PolicyFatal  = "fatal"
	PolicyReport = "report"
)

// ErrProvisionFailed is matched by every failed add, whatever the policy.
var ErrProvisionFailed = errors.New("provisioning failed")

// Options configures a Provisioner.
type Options struct {
	// Tool and Args form the command prefix; the dependency name is appended.
	Tool string
	Args []string

	// Dir is the working directory of every invocation (the project root).
	Dir string

	// FailurePolicy is PolicyFatal (stop at the first failure) or PolicyReport
	// (attempt everything, fail at the end).
	FailurePolicy string

	// DryRun records the commands without running them.
	DryRun bool

	// OnResult, when set, is called after every dependency.
	OnResult func(Result)
}

// Result describes one add invocation.
type Result struct {
	Dependency string
	Command    []string
	ExitCode   int
	Output     string
	Skipped    bool
	Err        error
}

// Failed reports whether the invocation did not succeed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Report aggregates the results of one provisioning pass.
type Report struct {
	Results []Result
}

// Added returns the dependencies that were added (or would be, in a dry run).
func (r *Report) Added() []string {
	names := []string{}
	for _, res := range r.Results {
		if !res.Failed() {
			names = append(names, res.Dependency)
		}
	}
	return names
}

// Failures returns the failed results in order.
func (r *Report) Failures() []Result {
	failed := []Result{}
	for _, res := range r.Results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// ProvisionError describes a single failed add.
type ProvisionError struct {
	Dependency string
	ExitCode   int
	Output     string
	Err        error
}

func (e *ProvisionError) Error() string {
	msg := fmt.Sprintf("failed to add %s (exit %d): %v", e.Dependency, e.ExitCode, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ProvisionError) Unwrap() []error {
	return []error{ErrProvisionFailed, e.Err}
}

// Provisioner adds dependencies to the project environment one at a time.
type Provisioner struct {
	runner Runner
	opts   Options
}

// New creates a provisioner. An empty policy means PolicyFatal.
func New(runner Runner, opts Options) *Provisioner {
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = PolicyFatal
	}
	return &Provisioner{runner: runner, opts: opts}
}

// Command returns the argv used to add name.
func (p *Provisioner) Command(name string) []string {
	argv := make([]string, 0, len(p.opts.Args)+2)
	argv = append(argv, p.opts.Tool)
	argv = append(argv, p.opts.Args...)
	return append(argv, name)
}

// Add runs the tool for a single dependency.
func (p *Provisioner) Add(ctx context.Context, name string) Result {
	res := Result{
		Dependency: name,
		Command:    p.Command(name),
	}

	if p.opts.DryRun {
		res.Skipped = true
		return res
	}

	output, err := p.runner.Run(ctx, p.opts.Dir, res.Command)
	res.Output = string(output)
	res.ExitCode = exitCode(err)
	if err != nil {
		res.Err = &ProvisionError{
			Dependency: name,
			ExitCode:   res.ExitCode,
			Output:     res.Output,
			Err:        err,
		}
	}
	return res
}

// Provision adds every dependency in deps, in order.
//
// The report always covers what was attempted, including when an error is
// returned. Upstream sequence errors abort immediately.
func (p *Provisioner) Provision(ctx context.Context, deps iter.Seq2[string, error]) (*Report, error) {
	report := &Report{Results: []Result{}}

	for name, err := range deps {
		if err != nil {
			return report, err
		}

		res := p.Add(ctx, name)
		report.Results = append(report.Results, res)
		if p.opts.OnResult != nil {
			p.opts.OnResult(res)
		}

		if res.Failed() && p.opts.FailurePolicy == PolicyFatal {
			return report, res.Err
		}
	}

	failures := report.Failures()
	if len(failures) == 0 {
		return report, nil
	}

	errs := make([]error, 0, len(failures)+1)
	errs = append(errs, fmt.Errorf("%w: %d of %d dependencies could not be added",
		ErrProvisionFailed, len(failures), len(report.Results)))
	for _, f := range failures {
		errs = append(errs, f.Err)
	}
	return report, errors.Join(errs...)
}
