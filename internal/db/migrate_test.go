package db

import (
	"strings"
	"testing"
)

func TestMigration_IsIdempotent(t *testing.T) {
	for _, stmt := range strings.Split(signalingMigration, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Fatalf("statement is not re-runnable: %q", stmt)
		}
	}
}

func TestMigration_GuardsCallInvariants(t *testing.T) {
	for _, want := range []string{
		"CHECK (status IN ('pending', 'ended'))",
		"CHECK (caller_id <> receiver_id)",
		"ON calls (receiver_id, status, created_at DESC)",
	} {
		if !strings.Contains(signalingMigration, want) {
			t.Fatalf("migration missing %q", want)
		}
	}
}
