package cli

import (
	"path/filepath"
	"strings"

	"github.com/mvp-joe/depseed/internal/config"
	"github.com/mvp-joe/depseed/internal/discovery"
	"github.com/mvp-joe/depseed/internal/parsers"
)

func discoveryOptions(cfg *config.Config) discovery.Options {
	return discovery.Options{
		Extension:     cfg.Scan.Extension,
		IncludeHidden: cfg.Scan.IncludeHidden,
		Ignore:        cfg.Scan.Ignore,
	}
}

func parsersOptions(cfg *config.Config) parsers.Options {
	return parsers.Options{
		StrictAliases: cfg.Imports.StrictAliases,
		TopLevelOnly:  cfg.Imports.TopLevelOnly,
	}
}

// formatCommand renders argv the way a user would type it.
func formatCommand(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			quoted[i] = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
		} else {
			quoted[i] = arg
		}
	}
	return strings.Join(quoted, " ")
}

// relativeRef renders ref with its file relative to the project root.
func relativeRef(root string, ref parsers.ModuleRef) string {
	if rel, err := filepath.Rel(root, ref.File); err == nil {
		ref.File = filepath.ToSlash(rel)
	}
	return ref.String()
}
