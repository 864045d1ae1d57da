package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding encodes a vector as a little-endian sequence of IEEE 754
// float32 values without a length prefix; the width is recovered from the
// BLOB size on decode. NaN and infinite components are rejected since they
// would poison every distance computed against the row.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: non-finite component %d (%v)", ErrInvalidArgument, i, v)
		}
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b, nil
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector: invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
