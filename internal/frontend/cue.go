package frontend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/build"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/litelog/internal/engine"
	"github.com/roach88/litelog/internal/ir"
)

// Program is a loaded program file.
//
// A program file is CUE with three optional fields:
//
//	name: "transitive"
//	relations: {
//		edge: ["int", "int"]
//		path: ["int", "int"]
//	}
//	facts: edge: [[1, 2], [2, 3]]
//	rules: """
//		path(X, Y) :- edge(X, Y).
//		path(X, Z) :- edge(X, Y), path(Y, Z).
//		"""
//
// Facts become clauses ahead of the rule text, relation by relation in
// file order. A struct with a single field, {succ: [1]}, is the compound
// term succ(1); a list is a list term.
type Program struct {
	Name      string
	Relations []ir.Relation
	Clauses   []ir.Clause
}

// Apply declares the program's relations and asserts its clauses.
func (p *Program) Apply(ctx context.Context, e *engine.Engine) error {
	return e.Add(ctx, p.Relations, p.Clauses)
}

// Error codes reported by LoadError.
const (
	ErrCodeLoadFailed      = "E004" // CUE load failed
	ErrCodeNotFound        = "E005" // path not found
	ErrCodeBuildFailed     = "E006" // CUE build failed
	ErrCodeInvalidRelation = "E101" // malformed relation declaration
	ErrCodeInvalidFact     = "E102" // malformed fact
	ErrCodeInvalidRules    = "E103" // rule text does not parse
)

// LoadError reports a program file that cannot be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError reports whether err is a LoadError with the given code.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Code == code
}

// LoadProgram loads a program from a .cue file or from a directory holding
// one CUE package. A directory whose files have no package clause is loaded
// as a single anonymous package.
func LoadProgram(path string) (*Program, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program not found: %v", err)}
	}

	cfg := &load.Config{Dir: path}
	args := []string{"."}
	if !info.IsDir() {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	inst, err := loadInstance(args, cfg)
	if err != nil && info.IsDir() {
		// Files without a package clause form the anonymous package "_".
		cfg = &load.Config{Dir: path, Package: "_"}
		if anon, anonErr := loadInstance(args, cfg); anonErr == nil {
			inst, err = anon, nil
		}
	}
	if err != nil {
		return nil, err
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return programFromValue(value)
}

func loadInstance(args []string, cfg *load.Config) (*build.Instance, error) {
	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	return inst, nil
}

// LoadProgramSource loads a program from CUE source text. filename is used
// in error positions only.
func LoadProgramSource(filename, src string) (*Program, error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return programFromValue(value)
}

func programFromValue(v cue.Value) (*Program, error) {
	p := &Program{}

	if name := v.LookupPath(cue.ParsePath("name")); name.Exists() {
		s, err := name.String()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("name: %v", err), Pos: name.Pos()}
		}
		p.Name = s
	}

	if err := p.loadRelations(v.LookupPath(cue.ParsePath("relations"))); err != nil {
		return nil, err
	}
	if err := p.loadFacts(v.LookupPath(cue.ParsePath("facts"))); err != nil {
		return nil, err
	}
	if err := p.loadRules(v.LookupPath(cue.ParsePath("rules"))); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Program) loadRelations(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return &LoadError{Code: ErrCodeInvalidRelation, Message: fmt.Sprintf("relations: %v", err), Pos: v.Pos()}
	}
	for iter.Next() {
		name, val := iter.Label(), iter.Value()
		list, err := val.List()
		if err != nil {
			return &LoadError{Code: ErrCodeInvalidRelation, Message: fmt.Sprintf("relation %s: column types must be a list", name), Pos: val.Pos()}
		}
		rel := ir.Relation{Name: name}
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return &LoadError{Code: ErrCodeInvalidRelation, Message: fmt.Sprintf("relation %s: %v", name, err), Pos: list.Value().Pos()}
			}
			typ, err := ir.ParseColumnType(s)
			if err != nil {
				return &LoadError{Code: ErrCodeInvalidRelation, Message: fmt.Sprintf("relation %s: %v", name, err), Pos: list.Value().Pos()}
			}
			rel.Types = append(rel.Types, typ)
		}
		p.Relations = append(p.Relations, rel)
	}
	return nil
}

func (p *Program) loadFacts(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return &LoadError{Code: ErrCodeInvalidFact, Message: fmt.Sprintf("facts: %v", err), Pos: v.Pos()}
	}
	for iter.Next() {
		name, rows := iter.Label(), iter.Value()
		list, err := rows.List()
		if err != nil {
			return &LoadError{Code: ErrCodeInvalidFact, Message: fmt.Sprintf("facts %s: rows must be a list", name), Pos: rows.Pos()}
		}
		for list.Next() {
			row := list.Value()
			cols, err := row.List()
			if err != nil {
				return &LoadError{Code: ErrCodeInvalidFact, Message: fmt.Sprintf("facts %s: each row must be a list", name), Pos: row.Pos()}
			}
			var args []ir.Term
			for cols.Next() {
				t, err := termFromValue(cols.Value())
				if err != nil {
					return &LoadError{Code: ErrCodeInvalidFact, Message: fmt.Sprintf("facts %s: %v", name, err), Pos: cols.Value().Pos()}
				}
				args = append(args, t)
			}
			p.Clauses = append(p.Clauses, ir.Fact(ir.Atom{Relation: name, Args: args}))
		}
	}
	return nil
}

func (p *Program) loadRules(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	text, err := v.String()
	if err != nil {
		return &LoadError{Code: ErrCodeInvalidRules, Message: fmt.Sprintf("rules must be a string: %v", err), Pos: v.Pos()}
	}
	rules, err := ParseRules(text)
	if err != nil {
		return &LoadError{Code: ErrCodeInvalidRules, Message: err.Error(), Pos: v.Pos()}
	}

	declared := make(map[string]bool, len(p.Relations))
	for _, rel := range p.Relations {
		declared[rel.Name] = true
	}
	for _, rel := range rules.Relations {
		if !declared[rel.Name] {
			p.Relations = append(p.Relations, rel)
			declared[rel.Name] = true
		}
	}
	p.Clauses = append(p.Clauses, rules.Clauses...)
	return nil
}

// termFromValue converts a concrete CUE value into a ground term.
func termFromValue(v cue.Value) (ir.Term, error) {
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return ir.Const{Value: ir.Int(n)}, nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return ir.Const{Value: ir.Float(f)}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return ir.Const{Value: ir.String(s)}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return ir.Const{Value: ir.Bool(b)}, nil
	case cue.ListKind:
		list, err := v.List()
		if err != nil {
			return nil, err
		}
		var elems []ir.Term
		for list.Next() {
			t, err := termFromValue(list.Value())
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
		}
		return ir.List{Elems: elems}, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		var c *ir.Compound
		for iter.Next() {
			if c != nil {
				return nil, fmt.Errorf("compound term must have exactly one field")
			}
			args, err := termFromValue(iter.Value())
			if err != nil {
				return nil, err
			}
			list, ok := args.(ir.List)
			if !ok {
				return nil, fmt.Errorf("arguments of %s must be a list", iter.Label())
			}
			c = &ir.Compound{Functor: iter.Label(), Args: list.Elems}
		}
		if c == nil {
			return nil, fmt.Errorf("compound term must have exactly one field")
		}
		return *c, nil
	default:
		return nil, fmt.Errorf("unsupported value of kind %s", v.Kind())
	}
}
