package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainProgram = "litelog/program/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramHash identifies a program by its schemas and clauses.
// Relations are order-independent; clause order is significant because
// proofs cite clauses by index.
func ProgramHash(relations []Relation, clauses []Clause) string {
	rels := make([]string, len(relations))
	for i, r := range relations {
		rels[i] = r.String()
	}
	sort.Strings(rels)

	var data []byte
	for _, r := range rels {
		data = append(data, r...)
		data = append(data, '\n')
	}
	data = append(data, 0x00)
	for _, c := range clauses {
		data = append(data, c.String()...)
		data = append(data, '\n')
	}
	return hashWithDomain(DomainProgram, data)
}
