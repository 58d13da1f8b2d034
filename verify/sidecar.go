package verify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/mapsc-lang/mapsc/maps"
)

// SidecarSuffix is appended to a corpus file name to find its sidecar.
const SidecarSuffix = ".expect.yaml"

// Sidecar holds per-file verification settings read from
// <file>.expect.yaml.
type Sidecar struct {
	// Requires is a semver constraint on the language version.
	Requires string `yaml:"requires,omitempty"`
	// Skip, when non-empty, is the reason the file is not run.
	Skip        string `yaml:"skip,omitempty"`
	QuitOnError bool   `yaml:"quit_on_error,omitempty"`
	// Exit is the expected status: 0 when every unit passes, 1 when the
	// file is expected to fail.
	Exit   int     `yaml:"exit,omitempty"`
	Stdout *string `yaml:"stdout,omitempty"`
}

// LoadSidecar reads the sidecar for path. A missing sidecar yields the zero
// Sidecar.
func LoadSidecar(path string) (Sidecar, error) {
	var sc Sidecar
	data, err := os.ReadFile(path + SidecarSuffix)
	if errors.Is(err, fs.ErrNotExist) {
		return sc, nil
	}
	if err != nil {
		return sc, fmt.Errorf("read sidecar: %w", err)
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("parse sidecar %s: %w", path+SidecarSuffix, err)
	}
	if sc.Exit != 0 && sc.Exit != 1 {
		return sc, fmt.Errorf("sidecar %s: exit must be 0 or 1, got %d", path+SidecarSuffix, sc.Exit)
	}
	if sc.Requires != "" {
		if _, err := semver.NewConstraint(sc.Requires); err != nil {
			return sc, fmt.Errorf("sidecar %s: invalid requires %q: %w", path+SidecarSuffix, sc.Requires, err)
		}
	}
	return sc, nil
}

// skipReason reports why the file should not run, or "".
func (sc Sidecar) skipReason() string {
	if sc.Skip != "" {
		return sc.Skip
	}
	if sc.Requires == "" {
		return ""
	}
	c, err := semver.NewConstraint(sc.Requires)
	if err != nil {
		return fmt.Sprintf("invalid requires %q", sc.Requires)
	}
	if !c.Check(semver.MustParse(maps.LanguageVersion)) {
		return fmt.Sprintf("requires %s, running %s", sc.Requires, maps.LanguageVersion)
	}
	return ""
}
