package converter

import "github.com/tsgonest/arkgen/internal/tsdecl"

// substitute returns a copy of n in which unqualified references to a bound
// type parameter are replaced by the bound type. Nodes without bound
// references are shared, not copied.
func substitute(n *tsdecl.Node, bindings map[string]*tsdecl.Node) *tsdecl.Node {
	if n == nil || len(bindings) == 0 {
		return n
	}

	if n.Kind == tsdecl.KindReference && len(n.Args) == 0 {
		if bound, ok := bindings[n.Name]; ok {
			return bound
		}
	}
	if n.Kind == tsdecl.KindMapped {
		// The key parameter shadows a binding of the same name.
		if _, ok := bindings[n.Name]; ok {
			inner := make(map[string]*tsdecl.Node, len(bindings))
			for k, v := range bindings {
				inner[k] = v
			}
			delete(inner, n.Name)
			bindings = inner
		}
	}

	changed := false
	out := *n

	sub := func(child *tsdecl.Node) *tsdecl.Node {
		s := substitute(child, bindings)
		if s != child {
			changed = true
		}
		return s
	}
	subAll := func(children []*tsdecl.Node) []*tsdecl.Node {
		if len(children) == 0 {
			return children
		}
		res := make([]*tsdecl.Node, len(children))
		for i, child := range children {
			res[i] = sub(child)
		}
		return res
	}

	out.Elem = sub(n.Elem)
	out.Index = sub(n.Index)
	out.Args = subAll(n.Args)
	out.Types = subAll(n.Types)
	if len(n.Elements) > 0 {
		out.Elements = make([]tsdecl.TupleElement, len(n.Elements))
		for i, el := range n.Elements {
			el.Type = sub(el.Type)
			out.Elements[i] = el
		}
	}
	if len(n.Members) > 0 {
		out.Members = make([]tsdecl.Member, len(n.Members))
		for i, m := range n.Members {
			m.Type = sub(m.Type)
			m.KeyType = sub(m.KeyType)
			out.Members[i] = m
		}
	}

	if !changed {
		return n
	}
	return &out
}
