package vector

import (
	"context"
	"testing"

	"github.com/viant/quotevec/engine"
)

// TestSQLOrderByDistanceFunctions validates that every metric's SQL function
// can be used in an ORDER BY clause over the quotes table, using embeddings
// stored as BLOBs via EncodeEmbedding.
func TestSQLOrderByDistanceFunctions(t *testing.T) {
	db, err := engine.Open(":memory:")
	if err != nil {
		t.Fatalf("engine.Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	if err := EnsureSchema(context.Background(), db, DefaultTable, 2); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	e1, err := EncodeEmbedding([]float32{1, 0})
	if err != nil {
		t.Fatalf("EncodeEmbedding e1 failed: %v", err)
	}
	e2, err := EncodeEmbedding([]float32{0, 1})
	if err != nil {
		t.Fatalf("EncodeEmbedding e2 failed: %v", err)
	}
	q, err := EncodeEmbedding([]float32{0.8, 0.6})
	if err != nil {
		t.Fatalf("EncodeEmbedding q failed: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO quotes(text, label, embedding) VALUES
		('one', 'quote', ?),
		('two', 'quote', ?)`, e1, e2); err != nil {
		t.Fatalf("insert into quotes failed: %v", err)
	}

	for _, m := range Metrics {
		t.Run(m.String(), func(t *testing.T) {
			rows, err := db.Query(`SELECT text FROM quotes ORDER BY `+m.SQLFunc()+`(embedding, ?)`, q)
			if err != nil {
				t.Fatalf("ORDER BY %s query failed: %v", m.SQLFunc(), err)
			}
			defer rows.Close()

			var texts []string
			for rows.Next() {
				var text string
				if err := rows.Scan(&text); err != nil {
					t.Fatalf("scan text failed: %v", err)
				}
				texts = append(texts, text)
			}
			if err := rows.Err(); err != nil {
				t.Fatalf("rows.Err: %v", err)
			}
			if len(texts) != 2 || texts[0] != "one" || texts[1] != "two" {
				t.Fatalf("ORDER BY %s returned %v, want [one two]", m.SQLFunc(), texts)
			}
		})
	}
}

// TestEnsureSchemaDimensionGuard verifies that a table created for one
// dimension cannot be reopened with another.
func TestEnsureSchemaDimensionGuard(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(":memory:")
	if err != nil {
		t.Fatalf("engine.Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	if err := EnsureSchema(ctx, db, DefaultTable, 3); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if err := EnsureSchema(ctx, db, DefaultTable, 3); err != nil {
		t.Fatalf("EnsureSchema is not idempotent: %v", err)
	}
	if err := EnsureSchema(ctx, db, DefaultTable, 4); err == nil {
		t.Fatalf("EnsureSchema with a different dimension succeeded, want error")
	}
	if err := EnsureSchema(ctx, db, "quotes; DROP TABLE x", 3); err == nil {
		t.Fatalf("EnsureSchema accepted an invalid table name")
	}
	if err := EnsureSchema(ctx, db, "other", 0); err == nil {
		t.Fatalf("EnsureSchema accepted dimension 0")
	}
}
