package compiler

import (
	"strconv"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/queryir"
)

// occurrence is one expression a variable was asserted equal to. Either
// expr is set (a column or path the variable was matched against) or term
// is (the other side of an equality, resolved lazily because it may
// reference variables bound later in the body).
type occurrence struct {
	expr queryir.Expr
	term ir.Term
}

// pending is an equality whose sides may reference variables bound later
// in the body. The left side is either an already resolved target or a
// term.
type pending struct {
	target queryir.Expr
	left   ir.Term
	term   ir.Term
}

// context is the state of one clause compilation. A fresh context is
// created per compilation; nothing survives between clauses.
type context struct {
	schema Schema
	rule   int
	kind   queryir.TableKind // Base for rules, History for explanations

	fresh    int
	vars     map[string]int // variable name -> union-find index
	uf       unionFind
	occs     map[int][]occurrence // root index -> occurrences, in body order
	params   []queryir.Binding
	from     []queryir.TableRef
	atoms    []string
	where    []queryir.Predicate
	deferred []pending

	resolved  map[int]queryir.Expr // root -> representative expression
	repIndex  map[int]int          // root -> occurrence the representative came from
	resolving map[int]bool

	bound     int64 // explanation timestamp bound
	boundUsed bool
}

func newContext(schema Schema, rule int, kind queryir.TableKind) *context {
	return &context{
		schema:    schema,
		rule:      rule,
		kind:      kind,
		vars:      make(map[string]int),
		occs:      make(map[int][]occurrence),
		resolved:  make(map[int]queryir.Expr),
		repIndex:  make(map[int]int),
		resolving: make(map[int]bool),
	}
}

func (c *context) alias(relation string) string {
	c.fresh++
	return ir.ReservedPrefix + "_" + relation + strconv.Itoa(c.fresh)
}

// addParam allocates a fresh parameter for a literal value.
func (c *context) addParam(v any) queryir.Param {
	return c.addParamNamed("p"+strconv.Itoa(len(c.params)), v)
}

func (c *context) addParamNamed(name string, v any) queryir.Param {
	c.params = append(c.params, queryir.Binding{Name: name, Value: v})
	return queryir.Param{Name: name}
}

// boundRef references the timestamp bound, binding it on first use so
// statements without history tables carry no unused parameter.
func (c *context) boundRef() queryir.Param {
	if !c.boundUsed {
		c.boundUsed = true
		return c.addParamNamed(BoundParam, c.bound)
	}
	return queryir.Param{Name: BoundParam}
}

func (c *context) constParam(v ir.Value) queryir.Param {
	return c.addParam(ir.Param(v))
}

// factParam binds one argument of a ground fact.
func (c *context) factParam(t ir.Term, col ir.ColumnType) (queryir.Expr, error) {
	v, err := termParam(t, col)
	if err != nil {
		return nil, newError(ErrInvalidTerm, c.rule, "fact argument: %v", err)
	}
	p := c.addParam(v)
	p.JSON = col == ir.JSON
	return p, nil
}

func (c *context) varIndex(name string) int {
	if i, ok := c.vars[name]; ok {
		return i
	}
	i := c.uf.add()
	c.vars[name] = i
	return i
}

func (c *context) addOccurrence(name string, o occurrence) {
	root := c.uf.find(c.varIndex(name))
	c.occs[root] = append(c.occs[root], o)
}

func (c *context) union(a, b string) {
	keep, gone := c.uf.union(c.varIndex(a), c.varIndex(b))
	if keep == gone {
		return
	}
	c.occs[keep] = append(c.occs[keep], c.occs[gone]...)
	delete(c.occs, gone)
}

// isBound reports whether a variable has at least one occurrence in the
// positive part of the body.
func (c *context) isBound(name string) bool {
	i, ok := c.vars[name]
	if !ok {
		return false
	}
	return len(c.occs[c.uf.find(i)]) > 0
}

// compileBody processes literals in the fixed order: positive atoms and
// equalities as they appear, then negations, then raw constraints.
func (c *context) compileBody(body []ir.Literal) error {
	for _, l := range body {
		switch lit := l.(type) {
		case ir.Atom:
			if err := c.compileAtom(lit); err != nil {
				return err
			}
		case ir.Eq:
			c.compileEq(lit)
		case ir.Not, ir.Raw:
		default:
			return newError(ErrInvalidTerm, c.rule, "unsupported literal %T", l)
		}
	}
	for _, l := range body {
		if n, ok := l.(ir.Not); ok {
			if err := c.compileNot(n); err != nil {
				return err
			}
		}
	}
	for _, l := range body {
		if r, ok := l.(ir.Raw); ok {
			cond, err := c.template(r.Template, r.Args)
			if err != nil {
				return err
			}
			c.where = append(c.where, queryir.Check{Cond: cond})
		}
	}
	return nil
}

func (c *context) compileAtom(a ir.Atom) error {
	rel, ok := c.schema.Lookup(a.Relation)
	if !ok {
		return newError(ErrUnknownRelation, c.rule, "relation %q is not declared", a.Relation)
	}
	alias := c.alias(rel.Name)
	c.from = append(c.from, queryir.TableRef{Relation: rel.Name, Kind: c.kind, Alias: alias})
	c.atoms = append(c.atoms, rel.Name)
	if c.kind == queryir.History {
		c.where = append(c.where, queryir.Before{Alias: alias, Bound: c.boundRef()})
	}
	for i, arg := range a.Args {
		col := queryir.Column{Alias: alias, Index: i, Type: rel.Types[i]}
		if err := c.unify(arg, col, rel.Types[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *context) compileEq(eq ir.Eq) {
	lv, lok := eq.Left.(ir.Var)
	rv, rok := eq.Right.(ir.Var)
	switch {
	case lok && rok:
		c.union(lv.Name, rv.Name)
	case lok:
		c.addOccurrence(lv.Name, occurrence{term: eq.Right})
	case rok:
		c.addOccurrence(rv.Name, occurrence{term: eq.Left})
	default:
		c.deferred = append(c.deferred, pending{left: eq.Left, term: eq.Right})
	}
}

// unify matches a term against a target expression of type col.
//
//   - Var: the target joins the variable's class
//   - Const: equality against a fresh parameter
//   - Compound: array shape check on the functor key, then each argument
//     against its path
//   - List: array shape check, then each element against its index
//   - Expr: equality against the substituted template, deferred until all
//     positive literals are bound
func (c *context) unify(t ir.Term, target queryir.Expr, col ir.ColumnType) error {
	switch term := t.(type) {
	case ir.Var:
		if term.Name != Wildcard {
			c.addOccurrence(term.Name, occurrence{expr: target})
		}
	case ir.Const:
		c.where = append(c.where, queryir.Equals{Left: target, Right: c.constParam(term.Value)})
	case ir.Compound:
		if col != ir.JSON {
			return newError(ErrInvalidTerm, c.rule, "compound %s in %s column", term, col)
		}
		args := queryir.Path{Base: target, Steps: []queryir.PathStep{queryir.KeyStep(term.Functor)}}
		c.where = append(c.where, queryir.IsArray{Value: args, Len: len(term.Args)})
		for i, a := range term.Args {
			p := queryir.Path{Base: target, Steps: []queryir.PathStep{queryir.KeyStep(term.Functor), queryir.IndexStep(i)}}
			if err := c.unify(a, p, ir.JSON); err != nil {
				return err
			}
		}
	case ir.List:
		if col != ir.JSON {
			return newError(ErrInvalidTerm, c.rule, "list %s in %s column", term, col)
		}
		c.where = append(c.where, queryir.IsArray{Value: target, Len: len(term.Elems)})
		for i, e := range term.Elems {
			p := queryir.Path{Base: target, Steps: []queryir.PathStep{queryir.IndexStep(i)}}
			if err := c.unify(e, p, ir.JSON); err != nil {
				return err
			}
		}
	case ir.Expr:
		c.deferred = append(c.deferred, pending{target: target, term: term})
	default:
		return newError(ErrInvalidTerm, c.rule, "unsupported term %T", t)
	}
	return nil
}

// compileNot emits NOT EXISTS over the negated relation. Arguments are
// matched against the outer bindings; variables that are not bound outside
// are existential and scoped to the subquery.
func (c *context) compileNot(n ir.Not) error {
	rel, ok := c.schema.Lookup(n.Atom.Relation)
	if !ok {
		return newError(ErrUnknownRelation, c.rule, "relation %q is not declared", n.Atom.Relation)
	}
	alias := c.alias(rel.Name)
	sub := &negation{ctx: c, locals: make(map[string]queryir.Expr)}
	if c.kind == queryir.History {
		sub.where = append(sub.where, queryir.Before{Alias: alias, Bound: c.boundRef()})
	}
	for i, arg := range n.Atom.Args {
		col := queryir.Column{Alias: alias, Index: i, Type: rel.Types[i]}
		if err := sub.unify(arg, col, rel.Types[i]); err != nil {
			return err
		}
	}
	c.where = append(c.where, queryir.NotExists{
		From:  []queryir.TableRef{{Relation: rel.Name, Kind: c.kind, Alias: alias}},
		Where: sub.where,
	})
	return nil
}

// negation collects the predicates of one NOT EXISTS subquery.
type negation struct {
	ctx    *context
	locals map[string]queryir.Expr
	where  []queryir.Predicate
}

func (n *negation) unify(t ir.Term, target queryir.Expr, col ir.ColumnType) error {
	c := n.ctx
	switch term := t.(type) {
	case ir.Var:
		switch {
		case term.Name == Wildcard:
		case c.isBound(term.Name):
			outer, err := c.resolveVar(term.Name)
			if err != nil {
				return err
			}
			n.where = append(n.where, queryir.Equals{Left: target, Right: outer})
		default:
			if prev, ok := n.locals[term.Name]; ok {
				n.where = append(n.where, queryir.Equals{Left: target, Right: prev})
			} else {
				n.locals[term.Name] = target
			}
		}
	case ir.Const:
		n.where = append(n.where, queryir.Equals{Left: target, Right: c.constParam(term.Value)})
	case ir.Compound:
		if col != ir.JSON {
			return newError(ErrInvalidTerm, c.rule, "compound %s in %s column", term, col)
		}
		args := queryir.Path{Base: target, Steps: []queryir.PathStep{queryir.KeyStep(term.Functor)}}
		n.where = append(n.where, queryir.IsArray{Value: args, Len: len(term.Args)})
		for i, a := range term.Args {
			p := queryir.Path{Base: target, Steps: []queryir.PathStep{queryir.KeyStep(term.Functor), queryir.IndexStep(i)}}
			if err := n.unify(a, p, ir.JSON); err != nil {
				return err
			}
		}
	case ir.List:
		if col != ir.JSON {
			return newError(ErrInvalidTerm, c.rule, "list %s in %s column", term, col)
		}
		n.where = append(n.where, queryir.IsArray{Value: target, Len: len(term.Elems)})
		for i, e := range term.Elems {
			p := queryir.Path{Base: target, Steps: []queryir.PathStep{queryir.IndexStep(i)}}
			if err := n.unify(e, p, ir.JSON); err != nil {
				return err
			}
		}
	case ir.Expr:
		e, err := c.resolveTerm(term)
		if err != nil {
			return err
		}
		n.where = append(n.where, queryir.Equals{Left: target, Right: e})
	default:
		return newError(ErrInvalidTerm, c.rule, "unsupported term %T", t)
	}
	return nil
}

// resolveVar returns the representative expression of a variable's class:
// its first direct occurrence (a column or path), else the resolution of
// its first equality term. Results are memoized per class.
func (c *context) resolveVar(name string) (queryir.Expr, error) {
	if name == Wildcard {
		return nil, newError(ErrUnboundVariable, c.rule, "wildcard cannot be used as a value")
	}
	i, ok := c.vars[name]
	if !ok {
		return nil, newError(ErrUnboundVariable, c.rule, "variable %s is not bound by the body", name)
	}
	return c.resolveRoot(c.uf.find(i), name)
}

func (c *context) resolveRoot(root int, name string) (queryir.Expr, error) {
	if e, ok := c.resolved[root]; ok {
		return e, nil
	}
	occs := c.occs[root]
	if len(occs) == 0 {
		return nil, newError(ErrUnboundVariable, c.rule, "variable %s is not bound by the body", name)
	}
	if c.resolving[root] {
		return nil, newError(ErrUnboundVariable, c.rule, "variable %s is defined in terms of itself", name)
	}
	c.resolving[root] = true
	defer delete(c.resolving, root)

	rep := representative(occs)
	e := occs[rep].expr
	if e == nil {
		var err error
		if e, err = c.resolveTerm(occs[rep].term); err != nil {
			return nil, err
		}
	}
	c.resolved[root] = e
	c.repIndex[root] = rep
	return e, nil
}

func representative(occs []occurrence) int {
	for i, o := range occs {
		if o.expr != nil {
			return i
		}
	}
	return 0
}

// resolveTerm turns a term into an expression over bound variables.
func (c *context) resolveTerm(t ir.Term) (queryir.Expr, error) {
	switch term := t.(type) {
	case ir.Var:
		return c.resolveVar(term.Name)
	case ir.Const:
		return c.constParam(term.Value), nil
	case ir.Compound:
		if !ir.ValidIdentifier(term.Functor) {
			return nil, newError(ErrInvalidTerm, c.rule, "invalid functor %q", term.Functor)
		}
		elems, err := c.resolveTerms(term.Args)
		if err != nil {
			return nil, err
		}
		return queryir.Construct{Functor: term.Functor, Elems: elems}, nil
	case ir.List:
		elems, err := c.resolveTerms(term.Elems)
		if err != nil {
			return nil, err
		}
		return queryir.Construct{Elems: elems}, nil
	case ir.Expr:
		return c.template(term.Template, term.Args)
	default:
		return nil, newError(ErrInvalidTerm, c.rule, "unsupported term %T", t)
	}
}

func (c *context) resolveTerms(ts []ir.Term) ([]queryir.Expr, error) {
	out := make([]queryir.Expr, len(ts))
	for i, t := range ts {
		e, err := c.resolveTerm(t)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// template substitutes {var} with resolved variables and {$N} with bound
// parameters.
func (c *context) template(text string, args []ir.Value) (queryir.Template, error) {
	var tpl queryir.Template
	last := 0
	for _, p := range ir.Placeholders(text) {
		tpl.Parts = append(tpl.Parts, text[last:p.Start])
		last = p.End
		if p.Name != "" {
			e, err := c.resolveVar(p.Name)
			if err != nil {
				return queryir.Template{}, err
			}
			tpl.Args = append(tpl.Args, e)
			continue
		}
		if p.Arg >= len(args) {
			return queryir.Template{}, newError(ErrInvalidTerm, c.rule, "template %q references argument {$%d} of %d", text, p.Arg, len(args))
		}
		tpl.Args = append(tpl.Args, c.constParam(args[p.Arg]))
	}
	tpl.Parts = append(tpl.Parts, text[last:])
	return tpl, nil
}

// finish emits deferred equalities and the class equalities chaining every
// occurrence of a variable to its representative.
func (c *context) finish() error {
	for _, p := range c.deferred {
		left := p.target
		if left == nil {
			e, err := c.resolveTerm(p.left)
			if err != nil {
				return err
			}
			left = e
		}
		right, err := c.resolveTerm(p.term)
		if err != nil {
			return err
		}
		c.where = append(c.where, queryir.Equals{Left: left, Right: right})
	}

	names := make([]string, len(c.uf.parent))
	for name, i := range c.vars {
		names[i] = name
	}
	seen := make(map[int]bool)
	for i := range c.uf.parent {
		root := c.uf.find(i)
		if seen[root] {
			continue
		}
		seen[root] = true
		occs := c.occs[root]
		if len(occs) < 2 {
			continue
		}
		rep, err := c.resolveRoot(root, names[i])
		if err != nil {
			return err
		}
		for j, o := range occs {
			if j == c.repIndex[root] {
				continue
			}
			e := o.expr
			if e == nil {
				if e, err = c.resolveTerm(o.term); err != nil {
					return err
				}
			}
			c.where = append(c.where, queryir.Equals{Left: rep, Right: e})
		}
	}
	return nil
}

func (c *context) plan() queryir.Plan {
	return queryir.Plan{From: c.from, Where: c.where, Params: c.params}
}
