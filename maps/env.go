package maps

import (
	"maps"
	"slices"
)

// Env is one lexical scope. The parent link is fixed at construction, so a
// chain can never loop back on itself. Scopes captured by closures stay alive
// for as long as any closure refers to them.
type Env struct {
	parent *Env
	values map[string]Value
	// pragmas is set on the global scope only.
	pragmas *PragmaStore
}

func newEnv(parent *Env) *Env {
	return &Env{parent: parent, values: make(map[string]Value)}
}

// NewEnv returns an empty scope chained to parent, which may be nil.
func NewEnv(parent *Env) *Env {
	return newEnv(parent)
}

func (e *Env) Parent() *Env { return e.parent }

func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if val, ok := env.values[name]; ok {
			return val, true
		}
	}
	return Value{}, false
}

// Define binds name in this scope, shadowing outer bindings.
func (e *Env) Define(name string, val Value) {
	e.values[name] = val
}

// Assign updates the nearest existing binding, or defines name in this
// scope when it is unbound everywhere.
func (e *Env) Assign(name string, val Value) {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.values[name]; ok {
			env.values[name] = val
			return
		}
	}
	e.values[name] = val
}

// owner returns the scope holding name, or nil when it is unbound.
func (e *Env) owner(name string) *Env {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.values[name]; ok {
			return env
		}
	}
	return nil
}

// Global reports whether this scope is the global scope of its chain, the
// one that holds pragma declarations.
func (e *Env) Global() bool { return e.pragmas != nil }

// Pragmas returns the pragma store of the nearest global scope. A chain
// without one gets a store on its outermost scope.
func (e *Env) Pragmas() *PragmaStore {
	outer := e
	for env := e; env != nil; env = env.parent {
		if env.pragmas != nil {
			return env.pragmas
		}
		outer = env
	}
	outer.pragmas = NewPragmaStore()
	return outer.pragmas
}

// Lookup returns the value bound directly in this scope.
func (e *Env) Lookup(name string) (Value, bool) {
	val, ok := e.values[name]
	return val, ok
}

// Names lists the bindings of this scope only, sorted.
func (e *Env) Names() []string {
	return slices.Sorted(maps.Keys(e.values))
}

// Snapshot records this scope's bindings together with the contents of every
// list reachable from them, so in-place index assignment can be detected and
// undone. Lists captured only inside closure scopes are not recorded.
type Snapshot struct {
	values map[string]Value
	// lists holds, per binding, the lists reachable from it.
	lists map[string][]listState
}

type listState struct {
	items []Value
	saved []Value
}

func (e *Env) Snapshot() *Snapshot {
	snap := &Snapshot{
		values: maps.Clone(e.values),
		lists:  make(map[string][]listState),
	}
	for name, val := range e.values {
		seen := make(map[listKey]bool)
		snap.lists[name] = collectLists(val, seen, nil)
	}
	return snap
}

func collectLists(val Value, seen map[listKey]bool, out []listState) []listState {
	key, ok := val.listKey()
	if !ok || seen[key] {
		return out
	}
	seen[key] = true
	items := val.List()
	out = append(out, listState{items: items, saved: slices.Clone(items)})
	for _, item := range items {
		out = collectLists(item, seen, out)
	}
	return out
}

// Restore replaces this scope's bindings with the snapshot and writes the
// recorded list contents back in place, so aliases see the old contents too.
func (e *Env) Restore(snap *Snapshot) {
	clear(e.values)
	maps.Copy(e.values, snap.values)
	for _, states := range snap.lists {
		for _, st := range states {
			copy(st.items, st.saved)
		}
	}
}

// Changed lists, sorted, the names in e that were added or rebound since the
// snapshot, or whose reachable lists were modified in place.
func (snap *Snapshot) Changed(e *Env) []string {
	var changed []string
	for _, name := range e.Names() {
		cur := e.values[name]
		prev, ok := snap.values[name]
		if !ok || !sameValue(prev, cur) || listsModified(snap.lists[name]) {
			changed = append(changed, name)
		}
	}
	return changed
}

func listsModified(states []listState) bool {
	for _, st := range states {
		for i := range st.items {
			if !sameValue(st.items[i], st.saved[i]) {
				return true
			}
		}
	}
	return false
}

// sameValue compares scalars by value and lists and functions by identity.
func sameValue(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindList:
		ka, _ := a.listKey()
		kb, _ := b.listKey()
		return ka == kb
	default:
		return a.Equal(b)
	}
}
