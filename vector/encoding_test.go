package vector

import (
	"errors"
	"math"
	"testing"
)

func TestEncodeDecodeEmbedding_RoundTrip(t *testing.T) {
	orig := []float32{0.0, 1.5, -2.25, 3.75}

	b, err := EncodeEmbedding(orig)
	if err != nil {
		t.Fatalf("EncodeEmbedding failed: %v", err)
	}
	if len(b) != 4*len(orig) {
		t.Fatalf("blob length = %d, want %d", len(b), 4*len(orig))
	}

	decoded, err := DecodeEmbedding(b)
	if err != nil {
		t.Fatalf("DecodeEmbedding failed: %v", err)
	}
	for i := range orig {
		if got, want := decoded[i], orig[i]; got != want {
			t.Fatalf("decoded[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestEncodeEmbedding_RejectsNonFinite(t *testing.T) {
	for _, v := range []float32{float32(math.NaN()), float32(math.Inf(1))} {
		if _, err := EncodeEmbedding([]float32{1, v}); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("EncodeEmbedding(%v) err = %v, want ErrInvalidArgument", v, err)
		}
	}
}

func TestDecodeEmbedding_BadLength(t *testing.T) {
	if _, err := DecodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Fatalf("DecodeEmbedding of 3 bytes succeeded, want error")
	}
}
