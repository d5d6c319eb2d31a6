package venv

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
)

// Expected top-level listings of a freshly created virtual environment.
var (
	WindowsLayout = []string{"Include", "Lib", "pyvenv.cfg", "Scripts"}
	POSIXLayout   = []string{"include", "lib", "lib64", "bin", "pyvenv.cfg"}
)

// LayoutFor returns the expected listing for a GOOS value.
func LayoutFor(goos string) []string {
	if goos == "windows" {
		return slices.Clone(WindowsLayout)
	}
	return slices.Clone(POSIXLayout)
}

// Descriptor pairs an environment directory with the listing it must have.
type Descriptor struct {
	Path     string
	Expected []string
}

// NewDescriptor describes the environment at projectPath/name for the
// running platform. An empty name describes projectPath itself.
func NewDescriptor(projectPath, name string) Descriptor {
	return Descriptor{
		Path:     filepath.Join(projectPath, name),
		Expected: LayoutFor(runtime.GOOS),
	}
}

// Matches reports whether Path is a directory whose entries are exactly
// the expected set. A missing directory does not match.
func (d Descriptor) Matches() (bool, error) {
	info, err := os.Stat(d.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, nil
	}

	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return false, err
	}

	actual := make([]string, len(entries))
	for i, entry := range entries {
		actual[i] = entry.Name()
	}

	return sameSet(actual, d.Expected), nil
}

// sameSet compares two listings ignoring order. Duplicates are impossible
// in a directory listing.
func sameSet(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	a := slices.Clone(actual)
	e := slices.Clone(expected)
	slices.Sort(a)
	slices.Sort(e)
	return slices.Equal(a, e)
}
