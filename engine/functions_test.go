package engine

import (
	"math"
	"testing"

	"github.com/viant/quotevec/vector"
)

func TestRegisterVectorFunctionsAndUse(t *testing.T) {
	// Register globally before first connection so functions are available.
	if err := RegisterVectorFunctions(nil); err != nil {
		t.Fatalf("RegisterVectorFunctions failed: %v", err)
	}
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	if err := RegisterVectorFunctions(db); err != nil {
		t.Fatalf("second RegisterVectorFunctions failed: %v", err)
	}

	blob := func(v ...float32) []byte {
		b, err := vector.EncodeEmbedding(v)
		if err != nil {
			t.Fatalf("EncodeEmbedding %v failed: %v", v, err)
		}
		return b
	}
	a := blob(1, 0)
	b := blob(0, 1)
	zero := blob(0, 0)
	threeFour := blob(3, 4)

	testCases := []struct {
		name string
		fn   string
		x, y []byte
		want float64
	}{
		{name: "cosine orthogonal", fn: FuncCosine, x: a, y: b, want: 0},
		{name: "cosine identical", fn: FuncCosine, x: a, y: a, want: 1},
		{name: "cosine distance identical", fn: FuncCosineDistance, x: a, y: a, want: 0},
		{name: "cosine distance orthogonal", fn: FuncCosineDistance, x: a, y: b, want: 1},
		{name: "cosine distance zero vector", fn: FuncCosineDistance, x: zero, y: a, want: 1},
		{name: "l2 3-4-5", fn: FuncL2, x: zero, y: threeFour, want: 5},
		{name: "negative dot", fn: FuncNegDot, x: a, y: threeFour, want: -3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got float64
			if err := db.QueryRow(`SELECT `+tc.fn+`(?, ?)`, tc.x, tc.y).Scan(&got); err != nil {
				t.Fatalf("%s query failed: %v", tc.fn, err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("%s = %v, want %v", tc.fn, got, tc.want)
			}
		})
	}
}

func TestVectorFunctionDimensionMismatch(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	a, _ := vector.EncodeEmbedding([]float32{1, 0})
	b, _ := vector.EncodeEmbedding([]float32{1, 0, 0})
	var got float64
	if err := db.QueryRow(`SELECT vec_l2(?, ?)`, a, b).Scan(&got); err == nil {
		t.Fatalf("vec_l2 with mismatched dims succeeded, want error")
	}
}
