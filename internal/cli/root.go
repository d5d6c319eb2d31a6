package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/depseed/internal/config"
	"github.com/mvp-joe/depseed/internal/pipeline"
	"github.com/mvp-joe/depseed/internal/provision"
	"github.com/mvp-joe/depseed/internal/registry"
)

var (
	cfgFile       string
	projPath      string
	venvName      string
	verbose       bool
	quietFlag     bool
	dryRun        bool
	strictAliases bool
	topLevel      bool
	failurePolicy string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "depseed",
	Short: "Add a Python project's third-party imports with poetry",
	Long: `depseed scans a Python project for import statements, keeps the module
names that are published on PyPI, and adds each one with "poetry add".

The run is refused when the project already has a virtual environment
under --venv_name. The environment directory is never scanned.

Examples:
  # Provision the current directory
  depseed

  # Provision a project whose environment lives in .venv
  depseed --proj_path ~/code/app --venv_name .venv

  # Show what would be added without running poetry
  depseed --dry-run
`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runProvision,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&projPath, "proj_path", ".", "Python project root")
	flags.StringVar(&venvName, "venv_name", "", "virtual environment directory under the project (excluded from scanning)")
	flags.StringVar(&cfgFile, "config", "", "config file (default is <proj_path>/.depseed/config.yml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	flags.BoolVar(&strictAliases, "strict-aliases", false, "skip import statements where any name is aliased")
	flags.BoolVar(&topLevel, "top-level", false, "reduce dotted module paths to their first component")

	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the commands instead of running them")
	rootCmd.Flags().StringVar(&failurePolicy, "failure-policy", "", "fatal (stop at the first failed add) or report (attempt all)")
}

func runProvision(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Preconditions fail before the registry cache is opened.
	if _, err := checkProject(cfg); err != nil {
		return err
	}

	client, closeClient, err := newRegistryClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	progress := NewCLIProgressReporter(cmd.OutOrStdout(), quietFlag, verbose)
	return executeProvision(ctx, cfg, client, provision.NewExecRunner(), progress, cmd.OutOrStdout())
}

// executeProvision runs the full pipeline with the given collaborators.
func executeProvision(ctx context.Context, cfg *config.Config, client registry.Client, commands provision.Runner, progress pipeline.ProgressReporter, out io.Writer) error {
	runner := newPipelineRunner(cfg, client, commands).WithProgress(progress)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if dryRun {
		for _, res := range summary.Report.Results {
			fmt.Fprintln(out, formatCommand(res.Command))
		}
	}
	return nil
}

// loadConfig loads the project configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var loader config.Loader
	if cfgFile != "" {
		loader = config.NewFileLoader(cfgFile)
	} else {
		loader = config.NewLoader(projPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.Flags().Changed("strict-aliases") {
		cfg.Imports.StrictAliases = strictAliases
	}
	if cmd.Flags().Changed("top-level") {
		cfg.Imports.TopLevelOnly = topLevel
	}
	if cmd.Flags().Changed("failure-policy") {
		cfg.Provision.FailurePolicy = failurePolicy
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	if verbose && !quietFlag {
		if cfgFile != "" {
			log.Printf("Using config file: %s\n", cfgFile)
		}
		log.Printf("Registry: %s (tool: %s)\n", cfg.Registry.URL, cfg.Provision.Tool)
	}

	return cfg, nil
}

// newRegistryClient builds PyPI -> persistent cache -> in-process cache.
// The returned function releases both caches.
func newRegistryClient(cfg *config.Config) (registry.Client, func(), error) {
	var client registry.Client = registry.NewPyPIClient(cfg.Registry.URL, cfg.Registry.Timeout)
	closers := []func(){}

	cachePath, err := cfg.ResolvedCachePath()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve cache path: %w", err)
	}
	if cachePath != "" {
		store, err := registry.OpenStore(cachePath, cfg.Registry.CacheTTL)
		if err != nil {
			// The persistent cache is an optimization; run without it.
			log.Printf("Warning: registry cache disabled: %v\n", err)
		} else {
			if _, err := store.Prune(); err != nil {
				log.Printf("Warning: failed to prune registry cache: %v\n", err)
			}
			client = registry.NewPersistentClient(client, store)
			closers = append(closers, func() { _ = store.Close() })
		}
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// A zero cache size disables the in-process cache.
	if cfg.Registry.CacheSize > 0 {
		cached, err := registry.NewCachedClient(client, cfg.Registry.CacheSize)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		client = cached
		closers = append(closers, cached.Close)
	}

	return client, closeAll, nil
}

// checkProject evaluates the run preconditions without touching any cache.
func checkProject(cfg *config.Config) (pipeline.State, error) {
	return newPipelineRunner(cfg, nil, nil).Check()
}

// newPipelineRunner maps the configuration and flags onto a pipeline runner.
func newPipelineRunner(cfg *config.Config, client registry.Client, commands provision.Runner) *pipeline.Runner {
	return pipeline.NewRunner(client, commands, pipeline.Options{
		ProjectPath: projPath,
		VenvName:    venvName,
		Scan:        discoveryOptions(cfg),
		Imports:     parsersOptions(cfg),
		Provision: provision.Options{
			Tool:          cfg.Provision.Tool,
			Args:          cfg.Provision.Args,
			FailurePolicy: strings.ToLower(cfg.Provision.FailurePolicy),
			DryRun:        dryRun,
		},
	})
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted! Cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
