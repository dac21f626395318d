package querysql

import (
	"strconv"
	"strings"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/queryir"
)

// Physical naming of the working tables. The reserved keyword prefix keeps
// them apart from user relation names, which may not contain it.
const (
	deltaPrefix   = ir.ReservedPrefix + "_delta_"
	newPrefix     = ir.ReservedPrefix + "_new_"
	historyPrefix = ir.ReservedPrefix + "_old_"

	// TimestampColumn is the commit timestamp column of history tables.
	TimestampColumn = ir.ReservedPrefix + "_timestamp"
)

// TableName returns the physical table for one kind of a relation.
func TableName(relation string, kind queryir.TableKind) string {
	switch kind {
	case queryir.Delta:
		return deltaPrefix + relation
	case queryir.New:
		return newPrefix + relation
	case queryir.History:
		return historyPrefix + relation
	default:
		return relation
	}
}

// ColumnName returns the name of column i: x0, x1, ...
func ColumnName(i int) string {
	return "x" + strconv.Itoa(i)
}

func columnList(arity int) string {
	cols := make([]string, arity)
	for i := range cols {
		cols[i] = ColumnName(i)
	}
	return strings.Join(cols, ", ")
}

// CreateTables returns the DDL for the four tables of a relation. Every
// column is NOT NULL and the full column tuple is the primary key, so each
// table has set semantics. History rows additionally carry the commit
// timestamp; the key excludes it, so a fact keeps its first commit time.
func CreateTables(rel ir.Relation) []string {
	defs := make([]string, len(rel.Types))
	for i, t := range rel.Types {
		defs[i] = ColumnName(i) + " " + t.SQLType() + " NOT NULL"
	}
	cols := strings.Join(defs, ", ")
	key := "PRIMARY KEY (" + columnList(rel.Arity()) + ")"

	stmts := make([]string, 0, 4)
	for _, kind := range []queryir.TableKind{queryir.Base, queryir.New, queryir.Delta} {
		stmts = append(stmts, "CREATE TABLE IF NOT EXISTS "+TableName(rel.Name, kind)+
			"("+cols+", "+key+") WITHOUT ROWID")
	}
	stmts = append(stmts, "CREATE TABLE IF NOT EXISTS "+TableName(rel.Name, queryir.History)+
		"("+cols+", "+TimestampColumn+" INTEGER NOT NULL, "+key+") WITHOUT ROWID")
	return stmts
}

// PrimeStatements seed a stratum's first round: delta := base, new := {}.
func PrimeStatements(relation string) []string {
	delta := TableName(relation, queryir.Delta)
	return []string{
		"DELETE FROM " + delta,
		"INSERT INTO " + delta + " SELECT * FROM " + relation,
		"DELETE FROM " + TableName(relation, queryir.New),
	}
}

// CommitStatements merges a round's candidates into a relation, in order:
//
//  1. delta := new \ base (anti-join)
//  2. base += delta
//  3. history += delta tagged with :ts
//  4. new := {}
//
// CountDelta then reports how many facts the round committed.
type CommitStatements struct {
	ClearDelta    string
	FillDelta     string
	MergeBase     string
	AppendHistory string // binds :ts
	ClearNew      string
	CountDelta    string
}

// TimestampParam is the parameter name bound by AppendHistory.
const TimestampParam = "ts"

// Commit returns the commit statements for a relation.
func Commit(rel ir.Relation) CommitStatements {
	base := rel.Name
	delta := TableName(rel.Name, queryir.Delta)
	newT := TableName(rel.Name, queryir.New)

	conds := make([]string, rel.Arity())
	for i := range conds {
		c := ColumnName(i)
		conds[i] = "b." + c + " = n." + c
	}

	return CommitStatements{
		ClearDelta: "DELETE FROM " + delta,
		FillDelta: "INSERT OR IGNORE INTO " + delta + " SELECT DISTINCT * FROM " + newT + " AS n" +
			" WHERE NOT EXISTS (SELECT 1 FROM " + base + " AS b WHERE " + strings.Join(conds, " AND ") + ")",
		MergeBase:     "INSERT OR IGNORE INTO " + base + " SELECT * FROM " + delta,
		AppendHistory: "INSERT OR IGNORE INTO " + TableName(rel.Name, queryir.History) + " SELECT *, :" + TimestampParam + " FROM " + delta,
		ClearNew:      "DELETE FROM " + newT,
		CountDelta:    "SELECT COUNT(*) FROM " + delta,
	}
}

// SelectAll returns every committed fact of a relation in column order.
func SelectAll(rel ir.Relation) string {
	cols := columnList(rel.Arity())
	return "SELECT " + cols + " FROM " + rel.Name + " ORDER BY " + cols
}

// SelectHistory returns every committed fact with its timestamp, oldest
// first.
func SelectHistory(rel ir.Relation) string {
	cols := columnList(rel.Arity())
	return "SELECT " + cols + ", " + TimestampColumn + " FROM " + TableName(rel.Name, queryir.History) +
		" ORDER BY " + TimestampColumn + ", " + cols
}

// CommitTimestamp looks up the commit time of one fact. Binds :x0, :x1, ...
func CommitTimestamp(rel ir.Relation) string {
	conds := make([]string, rel.Arity())
	for i := range conds {
		c := ColumnName(i)
		if rel.Types[i] == ir.JSON {
			conds[i] = c + " = json(:" + c + ")"
		} else {
			conds[i] = c + " = :" + c
		}
	}
	return "SELECT " + TimestampColumn + " FROM " + TableName(rel.Name, queryir.History) +
		" WHERE " + strings.Join(conds, " AND ")
}

// InsertRow inserts one fact into a table of a relation. Binds :x0, :x1, ...
func InsertRow(rel ir.Relation, kind queryir.TableKind) string {
	vals := make([]string, rel.Arity())
	for i := range vals {
		c := ":" + ColumnName(i)
		if rel.Types[i] == ir.JSON {
			c = "json(" + c + ")"
		}
		vals[i] = c
	}
	return "INSERT OR IGNORE INTO " + TableName(rel.Name, kind) + " VALUES (" + strings.Join(vals, ", ") + ")"
}

// MaxTimestamp returns the latest commit time recorded for a relation.
func MaxTimestamp(relation string) string {
	return "SELECT COALESCE(MAX(" + TimestampColumn + "), 0) FROM " + TableName(relation, queryir.History)
}

// SelectHistoryAt returns the facts of a relation committed at or before
// :ts, in column order.
func SelectHistoryAt(rel ir.Relation) string {
	cols := columnList(rel.Arity())
	return "SELECT " + cols + " FROM " + TableName(rel.Name, queryir.History) +
		" WHERE " + TimestampColumn + " <= :" + TimestampParam + " ORDER BY " + cols
}
