package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(sqlFS, "sql")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected embedded migrations")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}

	for base := range ups {
		if !downs[base] {
			t.Fatalf("migration %s has no down step", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Fatalf("migration %s has no up step", base)
		}
	}
}

func TestPaymentIntentsTableDefined(t *testing.T) {
	body, err := fs.ReadFile(sqlFS, "sql/000001_payment_intents.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, col := range []string{"id TEXT PRIMARY KEY", "amount BIGINT", "status TEXT", "booking_reference"} {
		if !strings.Contains(string(body), col) {
			t.Fatalf("expected %q in payment_intents migration", col)
		}
	}
}
