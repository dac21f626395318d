package queryir

import "github.com/roach88/litelog/internal/ir"

// TableKind selects one of the four physical tables of a relation.
type TableKind int

const (
	// Base holds committed facts. Set semantics.
	Base TableKind = iota

	// Delta holds the facts committed in the immediately preceding round.
	Delta

	// New holds candidate facts produced in the current round.
	New

	// History holds every committed fact with its commit timestamp.
	History
)

func (k TableKind) String() string {
	switch k {
	case Base:
		return "base"
	case Delta:
		return "delta"
	case New:
		return "new"
	case History:
		return "history"
	default:
		return "unknown"
	}
}

// TableRef binds an alias to one physical table of a relation.
type TableRef struct {
	Relation string
	Kind     TableKind
	Alias    string
}

// Expr is a scalar or JSON valued expression.
//
// This is a sealed interface - only types in this package implement it.
//
// Expr types:
//   - Column: a column of an aliased table
//   - Timestamp: the commit timestamp column of a History table
//   - Path: a location inside a JSON value
//   - Param: a bound parameter from the constant table
//   - Template: a backend expression with substituted arguments
//   - Construct: a JSON object or array built from sub-expressions
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Column references column Index (x0, x1, ...) of the table bound to
// Alias. Type is the declared column type.
type Column struct {
	Alias string
	Index int
	Type  ir.ColumnType
}

func (Column) exprNode() {}

// Timestamp references the commit timestamp of a History table row.
type Timestamp struct {
	Alias string
}

func (Timestamp) exprNode() {}

// PathStep is one step into a JSON value: an object key or an array index.
// Key is empty for index steps.
type PathStep struct {
	Key   string
	Index int
}

// KeyStep returns an object key step.
func KeyStep(key string) PathStep { return PathStep{Key: key} }

// IndexStep returns an array index step.
func IndexStep(i int) PathStep { return PathStep{Index: i} }

// Path addresses a location inside the JSON value of Base.
//
// Example: the first argument of succ(x) stored in column x0:
//
//	Path{Base: Column{Alias: "t1", Index: 0, Type: ir.JSON},
//	     Steps: []PathStep{KeyStep("succ"), IndexStep(0)}}
type Path struct {
	Base  Expr
	Steps []PathStep
}

func (Path) exprNode() {}

// Param references an entry of Plan.Params. JSON marks a parameter whose
// value is canonical JSON text for a structured constant.
type Param struct {
	Name string
	JSON bool
}

func (Param) exprNode() {}

// Template is a backend expression with holes. Parts and Args interleave:
// Parts[0] Args[0] Parts[1] ... Args[n-1] Parts[n]. Arguments are always
// rendered as scalars.
type Template struct {
	Parts []string
	Args  []Expr
}

func (Template) exprNode() {}

// Construct builds a JSON value. With a Functor it builds
// {"functor":[elems...]}; without one it builds [elems...].
type Construct struct {
	Functor string
	Elems   []Expr
}

func (Construct) exprNode() {}

// Predicate is a boolean condition in a Where list.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: two expressions denote the same value
//   - IsArray: a JSON location holds an array of a fixed length
//   - NotExists: no row matches a correlated subquery
//   - Check: a boolean backend expression
//   - Before: a History row was committed before a bound
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals asserts Left = Right.
type Equals struct {
	Left, Right Expr
}

func (Equals) predicateNode() {}

// IsArray asserts that Value is a JSON array of length Len. Value is a
// Path, or a Column/Param of JSON type.
type IsArray struct {
	Value Expr
	Len   int
}

func (IsArray) predicateNode() {}

// NotExists asserts that no combination of rows from From satisfies
// Where. Where may reference the outer plan's aliases.
type NotExists struct {
	From  []TableRef
	Where []Predicate
}

func (NotExists) predicateNode() {}

// Check asserts that a backend boolean expression holds.
type Check struct {
	Cond Template
}

func (Check) predicateNode() {}

// Before asserts that the History row bound to Alias was committed strictly
// before Bound.
type Before struct {
	Alias string
	Bound Expr
}

func (Before) predicateNode() {}

// Binding is one entry of the constant table.
type Binding struct {
	Name  string
	Value any // database/sql parameter value
}

// Plan is a conjunctive query over aliased tables.
type Plan struct {
	From   []TableRef
	Where  []Predicate
	Params []Binding
}

// WithKind returns a copy of the plan where From[i] reads from kind.
// Used to derive semi-naive delta variants from one compiled plan.
func (p Plan) WithKind(i int, kind TableKind) Plan {
	from := make([]TableRef, len(p.From))
	copy(from, p.From)
	from[i].Kind = kind
	p.From = from
	return p
}

// Statement is an executable query.
//
// This is a sealed interface - only types in this package implement it.
type Statement interface {
	statementNode() // Marker method - seals interface to this package
}

// Insert adds the distinct projected rows of Plan to one table of
// Relation, ignoring rows already present. Types are the target column
// types, one per projected column.
type Insert struct {
	Relation string
	Kind     TableKind
	Types    []ir.ColumnType
	Columns  []Expr
	Plan     Plan
}

func (Insert) statementNode() {}

// Select returns the projected rows of Plan. An empty column list selects
// a constant, which still answers whether any row matches. Limit 0 means
// unlimited.
type Select struct {
	Columns []Expr
	Plan    Plan
	OrderBy []Expr
	Limit   int
}

func (Select) statementNode() {}
