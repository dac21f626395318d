package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/queryir"
	"github.com/roach88/litelog/internal/querysql"
)

var (
	edgeRel  = ir.Relation{Name: "edge", Types: []ir.ColumnType{ir.Integer, ir.Integer}}
	termsRel = ir.Relation{Name: "terms", Types: []ir.ColumnType{ir.JSON}}
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// declare registers relations or fails the test.
func declare(t *testing.T, s *Store, rels ...ir.Relation) {
	t.Helper()
	for _, rel := range rels {
		if err := s.DeclareRelation(context.Background(), rel); err != nil {
			t.Fatalf("DeclareRelation(%s) failed: %v", rel, err)
		}
	}
}

// stageEdge inserts edge(a, b) into the new table of edge.
func stageEdge(t *testing.T, s *Store, a, b int64) {
	t.Helper()
	_, err := s.Exec(context.Background(), querysql.InsertRow(edgeRel, queryir.New),
		sql.Named("x0", a), sql.Named("x1", b))
	if err != nil {
		t.Fatalf("stage edge(%d, %d) failed: %v", a, b, err)
	}
}
