package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/litelog/internal/ir"
)

func TestDeclareRelation_CreatesTables(t *testing.T) {
	s := createTestStore(t)
	declare(t, s, edgeRel)

	for _, table := range []string{"edge", "litelog_delta_edge", "litelog_new_edge", "litelog_old_edge"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %q not created: %v", table, err)
		}
	}

	rel, ok := s.Lookup("edge")
	if !ok || !rel.Equal(edgeRel) {
		t.Errorf("Lookup(edge) = %v, %v", rel, ok)
	}
}

func TestDeclareRelation_SameSchemaIsNoop(t *testing.T) {
	s := createTestStore(t)
	declare(t, s, edgeRel, edgeRel)

	if got := len(s.Relations()); got != 1 {
		t.Errorf("Relations() has %d entries, want 1", got)
	}
}

func TestDeclareRelation_Mismatch(t *testing.T) {
	s := createTestStore(t)
	declare(t, s, edgeRel)

	other := ir.Relation{Name: "edge", Types: []ir.ColumnType{ir.Integer, ir.Text}}
	err := s.DeclareRelation(context.Background(), other)

	var de *DeclarationError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeclarationError, got %v", err)
	}
	if de.Existing == nil || !de.Existing.Equal(edgeRel) {
		t.Errorf("Existing = %v, want %s", de.Existing, edgeRel)
	}
	if want := "declare edge(INTEGER, TEXT): already declared as edge(INTEGER, INTEGER)"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestDeclareRelation_Invalid(t *testing.T) {
	tests := []struct {
		name string
		rel  ir.Relation
	}{
		{"reserved prefix", ir.Relation{Name: "litelog_edge", Types: []ir.ColumnType{ir.Integer}}},
		{"reserved keyword anywhere", ir.Relation{Name: "myLiteLog", Types: []ir.ColumnType{ir.Integer}}},
		{"not an identifier", ir.Relation{Name: "bad name", Types: []ir.ColumnType{ir.Integer}}},
		{"no columns", ir.Relation{Name: "empty"}},
		{"bad type", ir.Relation{Name: "edge", Types: []ir.ColumnType{"VARCHAR"}}},
	}

	s := createTestStore(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.DeclareRelation(context.Background(), tt.rel)
			if !IsDeclarationError(err) {
				t.Errorf("expected DeclarationError, got %v", err)
			}
		})
	}
	if got := len(s.Relations()); got != 0 {
		t.Errorf("invalid declarations registered %d relations", got)
	}
}

func TestCatalog_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	declare(t, s1, termsRel, edgeRel)
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	want := []ir.Relation{termsRel, edgeRel}
	if diff := cmp.Diff(want, s2.Relations()); diff != "" {
		t.Errorf("Relations() mismatch (-want +got):\n%s", diff)
	}

	// Redeclaring after reopen is still checked against the stored schema.
	err = s2.DeclareRelation(context.Background(), ir.Relation{Name: "terms", Types: []ir.ColumnType{ir.Text}})
	if !IsDeclarationError(err) {
		t.Errorf("expected DeclarationError after reopen, got %v", err)
	}
}
