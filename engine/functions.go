package engine

import (
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	sqlite "modernc.org/sqlite"
)

// SQL function names registered by RegisterVectorFunctions.
const (
	FuncCosine         = "vec_cosine"
	FuncCosineDistance = "vec_cosine_distance"
	FuncL2             = "vec_l2"
	FuncNegDot         = "vec_neg_dot"
)

// RegisterVectorFunctions registers the vector scalar functions with the
// driver so they are available on new connections opened after this call:
//
//	vec_cosine(a, b)          cosine similarity
//	vec_cosine_distance(a, b) 1 - cosine similarity
//	vec_l2(a, b)              Euclidean distance
//	vec_neg_dot(a, b)         negative inner product
//
// Existing open connections will not see new functions. Calling it again is
// harmless.
func RegisterVectorFunctions(_ *sql.DB) error {
	fns := map[string]func(a, b []float32) (float64, error){
		FuncCosine:         cosine,
		FuncCosineDistance: cosineDistance,
		FuncL2:             l2,
		FuncNegDot:         negDot,
	}
	for name, fn := range fns {
		if err := sqlite.RegisterDeterministicScalarFunction(name, 2, binaryVectorFunc(name, fn)); err != nil {
			if !strings.Contains(err.Error(), "already registered") {
				return fmt.Errorf("engine: register %s: %w", name, err)
			}
		}
	}
	return nil
}

func binaryVectorFunc(name string, fn func(a, b []float32) (float64, error)) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("engine: %s takes 2 arguments, got %d", name, len(args))
		}
		a, err := asEmbedding(args[0])
		if err != nil {
			return nil, err
		}
		b, err := asEmbedding(args[1])
		if err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			return nil, nil
		}
		dist, err := fn(a, b)
		if err != nil {
			return nil, fmt.Errorf("engine: %s: %w", name, err)
		}
		return dist, nil
	}
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return decodeEmbedding(v)
	default:
		return nil, fmt.Errorf("engine: embedding argument must be a BLOB, got %T", arg)
	}
}

// decodeEmbedding mirrors vector.DecodeEmbedding.
func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes is not a float32 array", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

func cosine(a, b []float32) (float64, error) {
	if err := sameWidth(a, b); err != nil {
		return 0, err
	}
	dot, aa, bb := products(a, b)
	if aa == 0 || bb == 0 {
		return 0, nil
	}
	return dot / math.Sqrt(aa*bb), nil
}

// cosineDistance treats a zero-magnitude operand as orthogonal (distance 1).
func cosineDistance(a, b []float32) (float64, error) {
	sim, err := cosine(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

func l2(a, b []float32) (float64, error) {
	if err := sameWidth(a, b); err != nil {
		return 0, err
	}
	var sq float64
	for i, x := range a {
		d := float64(x) - float64(b[i])
		sq += d * d
	}
	return math.Sqrt(sq), nil
}

func negDot(a, b []float32) (float64, error) {
	if err := sameWidth(a, b); err != nil {
		return 0, err
	}
	dot, _, _ := products(a, b)
	return -dot, nil
}

func sameWidth(a, b []float32) error {
	if len(a) != len(b) {
		return fmt.Errorf("width mismatch %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return fmt.Errorf("empty vectors")
	}
	return nil
}

// products returns a·b, a·a and b·b in float64.
func products(a, b []float32) (dot, aa, bb float64) {
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		aa += x * x
		bb += y * y
	}
	return dot, aa, bb
}
