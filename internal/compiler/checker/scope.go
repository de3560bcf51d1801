package checker

import "github.com/agc-lang/agc/internal/compiler/types"

// Scope is a single lexical binding table in the scope chain: module scope
// at the root, then one per function body, block, arrow body, for/while
// loop, and match arm (so a match arm's bindings never leak to the next).
type Scope struct {
	parent *Scope
	vars   map[string]*types.Type
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: map[string]*types.Type{}}
}

func (s *Scope) define(name string, t *types.Type) {
	s.vars[name] = t
}

func (s *Scope) lookup(name string) (*types.Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}
