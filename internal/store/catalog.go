package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/querysql"
)

// DeclareRelation registers a relation schema and creates its four tables.
//
// Declaring the same schema again is a no-op. A redeclaration with a
// different schema, an invalid name, or an invalid column type fails with
// a DeclarationError. Schemas persist in the catalog across reopens.
func (s *Store) DeclareRelation(ctx context.Context, rel ir.Relation) error {
	if err := rel.Validate(); err != nil {
		return &DeclarationError{Relation: rel, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.relations[rel.Name]; ok {
		if existing.Equal(rel) {
			return nil
		}
		return &DeclarationError{Relation: rel, Existing: &existing}
	}

	types, err := marshalTypes(rel.Types)
	if err != nil {
		return &DeclarationError{Relation: rel, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("declare %s: begin tx: %w", rel.Name, err)
	}
	defer tx.Rollback() // No-op if committed

	for _, ddl := range querysql.CreateTables(rel) {
		if _, err := execIn(ctx, tx, ddl); err != nil {
			return fmt.Errorf("declare %s: %w", rel.Name, err)
		}
	}
	if _, err := execIn(ctx, tx, `
		INSERT INTO litelog_relations (name, types, declared)
		VALUES (?, ?, (SELECT COUNT(*) FROM litelog_relations))
	`, rel.Name, types); err != nil {
		return fmt.Errorf("declare %s: %w", rel.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("declare %s: commit: %w", rel.Name, err)
	}

	s.relations[rel.Name] = rel
	s.order = append(s.order, rel.Name)
	return nil
}

// Lookup returns the declared schema of a relation.
func (s *Store) Lookup(name string) (ir.Relation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, ok := s.relations[name]
	return rel, ok
}

// Relations returns every declared schema in declaration order.
func (s *Store) Relations() []ir.Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ir.Relation, len(s.order))
	for i, name := range s.order {
		out[i] = s.relations[name]
	}
	return out
}

// relation is Lookup returning ErrUnknownRelation.
func (s *Store) relation(name string) (ir.Relation, error) {
	rel, ok := s.Lookup(name)
	if !ok {
		return ir.Relation{}, fmt.Errorf("%w: %q", ErrUnknownRelation, name)
	}
	return rel, nil
}

// loadCatalog reads the declared schemas of an existing database.
func (s *Store) loadCatalog(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, types FROM litelog_relations
		ORDER BY declared ASC, name COLLATE BINARY ASC
	`)
	if err != nil {
		return fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, typesJSON string
		if err := rows.Scan(&name, &typesJSON); err != nil {
			return fmt.Errorf("scan catalog: %w", err)
		}
		types, err := unmarshalTypes(typesJSON)
		if err != nil {
			return fmt.Errorf("relation %s: %w", name, err)
		}
		s.relations[name] = ir.Relation{Name: name, Types: types}
		s.order = append(s.order, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate catalog: %w", err)
	}
	return nil
}

// relationNames returns declared relation names, sorted.
func (s *Store) relationNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.relations))
	for name := range s.relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
