package maps

import (
	"fmt"
	"slices"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Flags set by `#enable <flag>` and `#disable <flag>`.
const (
	// FlagTopLevelEvaluation controls whether top-level statements other
	// than definitions and pragmas run.
	FlagTopLevelEvaluation = "top-level evaluation"
	// FlagMutableGlobals allows assigning to a binding of the global scope.
	FlagMutableGlobals = "mutable global variables"
)

var pragmaFlagDefaults = map[string]bool{
	FlagTopLevelEvaluation: true,
	FlagMutableGlobals:     false,
}

// PragmaFlags lists the known flag names, sorted.
func PragmaFlags() []string {
	names := make([]string, 0, len(pragmaFlagDefaults))
	for name := range pragmaFlagDefaults {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func isPragmaFlag(name string) bool {
	_, ok := pragmaFlagDefaults[name]
	return ok
}

// PragmaLocation orders flag declarations. Unit counts the Eval calls made
// against one global scope; Offset is the byte offset in that unit's source.
type PragmaLocation struct {
	Unit   int
	Offset int
}

func (l PragmaLocation) before(other PragmaLocation) bool {
	if l.Unit != other.Unit {
		return l.Unit < other.Unit
	}
	return l.Offset < other.Offset
}

type pragmaDecl struct {
	at    PragmaLocation
	value bool
}

// PragmaStore keeps flag declarations in source order. The value of a flag at
// a location is the last declaration at or before it, or the default.
type PragmaStore struct {
	units int
	decls map[string][]pragmaDecl
}

func NewPragmaStore() *PragmaStore {
	return &PragmaStore{decls: make(map[string][]pragmaDecl)}
}

// begin numbers the next unit evaluated against the store.
func (ps *PragmaStore) begin() int {
	ps.units++
	return ps.units
}

// Set records a declaration. Unknown flags are an error.
func (ps *PragmaStore) Set(flag string, value bool, at PragmaLocation) error {
	if !isPragmaFlag(flag) {
		return fmt.Errorf("unknown pragma flag %q", flag)
	}
	decls := ps.decls[flag]
	i := sort.Search(len(decls), func(i int) bool { return at.before(decls[i].at) })
	decls = slices.Insert(decls, i, pragmaDecl{at: at, value: value})
	ps.decls[flag] = decls
	return nil
}

// Enabled reports the value of flag at a location. Unknown flags read as
// disabled.
func (ps *PragmaStore) Enabled(flag string, at PragmaLocation) bool {
	def, ok := pragmaFlagDefaults[flag]
	if !ok {
		return false
	}
	decls := ps.decls[flag]
	i := sort.Search(len(decls), func(i int) bool { return at.before(decls[i].at) })
	if i == 0 {
		return def
	}
	return decls[i-1].value
}

// Len counts the declarations recorded so far.
func (ps *PragmaStore) Len() int {
	n := 0
	for _, decls := range ps.decls {
		n += len(decls)
	}
	return n
}

func (exec *Execution) location(pos Position) PragmaLocation {
	return PragmaLocation{Unit: exec.unit, Offset: pos.Offset}
}

func (exec *Execution) flagEnabled(flag string, pos Position) bool {
	return exec.pragmas.Enabled(flag, exec.location(pos))
}

func (exec *Execution) evalPragma(s *PragmaStmt) error {
	switch s.Name {
	case "enable", "disable":
		if !isPragmaFlag(s.Args) {
			return exec.errorAt(s.Pos(), ErrKindPragma, "unknown pragma flag %q", s.Args)
		}
		value := s.Name == "enable"
		if exec.flagEnabled(s.Args, s.Pos()) == value {
			exec.warn(s.Pos(), "#%s %s has no effect", s.Name, s.Args)
		}
		if err := exec.pragmas.Set(s.Args, value, exec.location(s.Pos())); err != nil {
			return exec.errorAt(s.Pos(), ErrKindPragma, "%v", err)
		}
		exec.engine.config.Logger.Debug("pragma set", "flag", s.Args, "value", value)
		return nil
	case "version":
		ok, err := exec.engine.VersionSatisfies(s.Args)
		if err != nil {
			return exec.errorAt(s.Pos(), ErrKindPragma, "%v", err)
		}
		if !ok {
			return exec.errorAt(s.Pos(), ErrKindPragma, "language version %s does not satisfy %q", LanguageVersion, s.Args)
		}
		return nil
	default:
		return exec.errorAt(s.Pos(), ErrKindPragma, "invalid pragma declaration #%s", s.Name)
	}
}

// VersionSatisfies checks the running language version against a semver
// constraint such as ">= 0.3, < 1".
func (e *Engine) VersionSatisfies(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	return c.Check(e.version), nil
}
