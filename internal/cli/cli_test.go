package cli

// Test Plan for CLI commands:
// - executeProvision adds only published modules, in the project directory
// - executeProvision --dry-run prints the commands and runs nothing
// - executeProvision surfaces precondition errors
// - provision and check fail on preconditions before the registry cache is created
// - executeScan prints project-relative references and a count
// - executeCheck prints marks per reference, and JSON with --json
// - loadConfig reads .depseed/config.yml and applies flag overrides
// - loadConfig rejects an invalid --failure-policy
// - newRegistryClient works with and without the persistent cache
// - formatCommand quotes arguments with spaces
// - version prints the build information
//
// Note: these tests mutate package-level flag variables and cannot use t.Parallel().

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/depseed/internal/config"
	"github.com/mvp-joe/depseed/internal/pipeline"
	"github.com/mvp-joe/depseed/internal/provision"
	"github.com/mvp-joe/depseed/internal/registry"
)

// setFlags points the package-level flags at project and restores them after the test.
func setFlags(t *testing.T, project string) {
	t.Helper()

	saved := struct {
		cfgFile, projPath, venvName, failurePolicy          string
		verbose, quiet, dryRun, strict, topLevel, checkJSON bool
	}{cfgFile, projPath, venvName, failurePolicy, verbose, quietFlag, dryRun, strictAliases, topLevel, checkJSON}

	t.Cleanup(func() {
		cfgFile, projPath, venvName, failurePolicy = saved.cfgFile, saved.projPath, saved.venvName, saved.failurePolicy
		verbose, quietFlag, dryRun = saved.verbose, saved.quiet, saved.dryRun
		strictAliases, topLevel, checkJSON = saved.strict, saved.topLevel, saved.checkJSON
	})

	cfgFile = ""
	projPath = project
	venvName = ""
	failurePolicy = ""
	verbose = false
	quietFlag = true
	dryRun = false
	strictAliases = false
	topLevel = false
	checkJSON = false
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Registry.CachePath = ""
	return cfg
}

func TestExecuteProvision_AddsPublishedModules(t *testing.T) {
	project := writeProject(t, map[string]string{
		"main.py":     "import os\nimport requests\n",
		"lib/util.py": "from yaml import safe_load\n",
	})
	setFlags(t, project)

	client := registry.NewMockClient("requests", "yaml")
	cmds := provision.NewMockRunner()
	var out bytes.Buffer

	err := executeProvision(context.Background(), testConfig(), client, cmds, &pipeline.NoOpProgressReporter{}, &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"poetry add yaml", "poetry add requests"}, cmds.CommandLines())
	assert.Equal(t, []string{project, project}, cmds.Dirs)
	assert.Empty(t, out.String())
}

func TestExecuteProvision_DryRun(t *testing.T) {
	project := writeProject(t, map[string]string{"main.py": "import os\nimport requests\n"})
	setFlags(t, project)
	dryRun = true

	cmds := provision.NewMockRunner()
	var out bytes.Buffer

	err := executeProvision(context.Background(), testConfig(), registry.NewMockClient("requests"), cmds, &pipeline.NoOpProgressReporter{}, &out)
	require.NoError(t, err)

	assert.Empty(t, cmds.Commands)
	assert.Equal(t, "poetry add requests\n", out.String())
}

func TestExecuteProvision_NotADirectory(t *testing.T) {
	project := writeProject(t, map[string]string{"main.py": "import requests\n"})
	setFlags(t, filepath.Join(project, "main.py"))

	cmds := provision.NewMockRunner()
	err := executeProvision(context.Background(), testConfig(), registry.NewMockClient("requests"), cmds, &pipeline.NoOpProgressReporter{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, pipeline.ErrNotDirectory)
	assert.Empty(t, cmds.Commands)
}

func TestPreconditionsFailBeforeRegistryCache(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cacheDir := filepath.Join(home, ".depseed")

	t.Run("provision on a file", func(t *testing.T) {
		project := writeProject(t, map[string]string{"main.py": "import requests\n"})
		setFlags(t, filepath.Join(project, "main.py"))

		cmd := newFlagCommand()
		cmd.SetOut(&bytes.Buffer{})
		err := runProvision(cmd, nil)
		assert.ErrorIs(t, err, pipeline.ErrNotDirectory)
		assert.NoDirExists(t, cacheDir)
	})

	t.Run("provision with an existing environment", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("uses the POSIX environment layout")
		}
		project := writeProject(t, map[string]string{
			"main.py":          "import requests\n",
			".venv/pyvenv.cfg": "",
			".venv/include/x":  "",
			".venv/lib/x":      "",
			".venv/lib64/x":    "",
			".venv/bin/x":      "",
		})
		setFlags(t, project)
		venvName = ".venv"

		cmd := newFlagCommand()
		cmd.SetOut(&bytes.Buffer{})
		err := runProvision(cmd, nil)
		assert.ErrorIs(t, err, pipeline.ErrEnvironmentExists)
		assert.NoDirExists(t, cacheDir)
	})

	t.Run("check on a file", func(t *testing.T) {
		project := writeProject(t, map[string]string{"main.py": "import requests\n"})
		setFlags(t, filepath.Join(project, "main.py"))

		cmd := newFlagCommand()
		cmd.SetOut(&bytes.Buffer{})
		err := runCheck(cmd, nil)
		assert.ErrorIs(t, err, pipeline.ErrNotDirectory)
		assert.NoDirExists(t, cacheDir)
	})
}

func TestExecuteProvision_FailurePolicyReport(t *testing.T) {
	project := writeProject(t, map[string]string{"main.py": "import bogus\nimport requests\n"})
	setFlags(t, project)

	cfg := testConfig()
	cfg.Provision.FailurePolicy = config.FailurePolicyReport
	cmds := provision.NewMockRunner()
	cmds.Fail("bogus", 1)

	err := executeProvision(context.Background(), cfg, registry.NewMockClient("bogus", "requests"), cmds, &pipeline.NoOpProgressReporter{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, provision.ErrProvisionFailed)
	assert.Equal(t, []string{"poetry add bogus", "poetry add requests"}, cmds.CommandLines())
}

func TestExecuteScan(t *testing.T) {
	project := writeProject(t, map[string]string{
		"main.py":          "import os\nimport a.b.c\n",
		"venv/lib/site.py": "import flask\n",
	})
	setFlags(t, project)
	venvName = "venv"

	var out bytes.Buffer
	require.NoError(t, executeScan(context.Background(), testConfig(), &out))
	assert.Equal(t, "main.py:1: os\nmain.py:2: a.b.c\n", out.String())

	quietFlag = false
	out.Reset()
	cfg := testConfig()
	cfg.Imports.TopLevelOnly = true
	require.NoError(t, executeScan(context.Background(), cfg, &out))
	assert.Equal(t, "main.py:1: os\nmain.py:2: a\n2 references\n", out.String())
}

func TestExecuteCheck(t *testing.T) {
	project := writeProject(t, map[string]string{"main.py": "import os\nimport requests\n"})
	setFlags(t, project)
	client := registry.NewMockClient("requests")

	t.Run("text", func(t *testing.T) {
		quietFlag = false
		checkJSON = false
		var out bytes.Buffer
		require.NoError(t, executeCheck(context.Background(), testConfig(), client, &out))
		assert.Equal(t, "✗ main.py:1: os\n✓ main.py:2: requests\n1 of 2 references are published\n", out.String())
	})

	t.Run("json", func(t *testing.T) {
		checkJSON = true
		var out bytes.Buffer
		require.NoError(t, executeCheck(context.Background(), testConfig(), client, &out))

		var entries []checkEntry
		require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "os", entries[0].Name)
		assert.False(t, entries[0].Exists)
		assert.Equal(t, "requests", entries[1].Name)
		assert.Equal(t, 2, entries[1].Line)
		assert.True(t, entries[1].Exists)
	})
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().BoolVar(&strictAliases, "strict-aliases", false, "")
	cmd.Flags().BoolVar(&topLevel, "top-level", false, "")
	cmd.Flags().StringVar(&failurePolicy, "failure-policy", "", "")
	return cmd
}

func TestLoadConfig_FileAndFlags(t *testing.T) {
	project := writeProject(t, map[string]string{
		".depseed/config.yml": "provision:\n  tool: pdm\n  args: [add]\nregistry:\n  cache_path: \"\"\n",
	})
	setFlags(t, project)

	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Set("top-level", "true"))
	require.NoError(t, cmd.Flags().Set("failure-policy", "report"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "pdm", cfg.Provision.Tool)
	assert.Equal(t, config.FailurePolicyReport, cfg.Provision.FailurePolicy)
	assert.True(t, cfg.Imports.TopLevelOnly)
	assert.False(t, cfg.Imports.StrictAliases)
	assert.Empty(t, cfg.Registry.CachePath)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("imports:\n  strict_aliases: true\n"), 0644))
	setFlags(t, t.TempDir())
	cfgFile = path

	cfg, err := loadConfig(newFlagCommand())
	require.NoError(t, err)
	assert.True(t, cfg.Imports.StrictAliases)

	cfgFile = filepath.Join(dir, "missing.yml")
	_, err = loadConfig(newFlagCommand())
	assert.Error(t, err)
}

func TestLoadConfig_InvalidFailurePolicy(t *testing.T) {
	setFlags(t, t.TempDir())

	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Set("failure-policy", "sometimes"))

	_, err := loadConfig(cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidFailurePolicy)
}

func TestNewRegistryClient(t *testing.T) {
	t.Run("without persistent cache", func(t *testing.T) {
		client, closeClient, err := newRegistryClient(testConfig())
		require.NoError(t, err)
		defer closeClient()
		assert.IsType(t, &registry.CachedClient{}, client)
	})

	t.Run("with persistent cache", func(t *testing.T) {
		cfg := testConfig()
		cfg.Registry.CachePath = filepath.Join(t.TempDir(), "cache", "registry.db")

		client, closeClient, err := newRegistryClient(cfg)
		require.NoError(t, err)
		assert.NotNil(t, client)
		closeClient()
		assert.FileExists(t, cfg.Registry.CachePath)
	})

	t.Run("zero cache size", func(t *testing.T) {
		cfg := testConfig()
		cfg.Registry.CacheSize = 0

		client, closeClient, err := newRegistryClient(cfg)
		require.NoError(t, err)
		defer closeClient()
		assert.IsType(t, &registry.PyPIClient{}, client)
	})
}

func TestFormatCommand(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "poetry add requests", formatCommand([]string{"poetry", "add", "requests"}))
	assert.Equal(t, "poetry add 'my pkg'", formatCommand([]string{"poetry", "add", "my pkg"}))
	assert.Equal(t, `tool 'it'\''s'`, formatCommand([]string{"tool", "it's"}))
	assert.Equal(t, "tool ''", formatCommand([]string{"tool", ""}))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), "depseed "+Version)
	assert.Contains(t, out.String(), "Git commit: "+GitCommit)
}
