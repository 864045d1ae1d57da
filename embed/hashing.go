package embed

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashingModel is the model name reported by HashingEmbedder.
const HashingModel = "hashing-ngram-v1"

// HashingEmbedder is a deterministic bag-of-features model. Each lower-cased
// word and each character trigram of a word (padded with spaces) is hashed
// into one of Dimension buckets with a hash-derived sign. Texts that share
// words or word fragments land close together under cosine distance. Output
// is not normalized.
type HashingEmbedder struct {
	Lifecycle
	dim        int
	batchSize  int
	wordWeight float32
	gramWeight float32
}

// NewHashingEmbedder returns an unbooted embedder producing dim-wide vectors.
func NewHashingEmbedder(dim, batchSize int) (*HashingEmbedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embed: invalid dimension %d", dim)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &HashingEmbedder{dim: dim, batchSize: batchSize}, nil
}

// Boot implements Embedder.
func (h *HashingEmbedder) Boot(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.wordWeight = 1.0
	h.gramWeight = 0.5
	h.MarkReady()
	return nil
}

// Close implements Embedder.
func (h *HashingEmbedder) Close() error {
	h.MarkClosed()
	return nil
}

// Embed implements Embedder.
func (h *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := h.Check(); err != nil {
		return nil, err
	}
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embedOne(text)
	}
	return out, nil
}

func (h *HashingEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, word := range Tokenize(text) {
		h.add(vec, "w:"+word, h.wordWeight)
		padded := []rune(" " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(vec, "g:"+string(padded[i:i+3]), h.gramWeight)
		}
	}
	return vec
}

func (h *HashingEmbedder) add(vec []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	var sum [8]byte
	v := binary.BigEndian.Uint64(hasher.Sum(sum[:0]))
	bucket := int(v % uint64(h.dim))
	if v>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

// Tokenize lower-cases text and splits it into runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Dimension implements Embedder.
func (h *HashingEmbedder) Dimension() int { return h.dim }

// Model implements Embedder.
func (h *HashingEmbedder) Model() string { return HashingModel }

// BatchSizeHint implements Embedder.
func (h *HashingEmbedder) BatchSizeHint() int { return h.batchSize }

// Device implements Embedder.
func (h *HashingEmbedder) Device() string { return "cpu" }

var _ Embedder = (*HashingEmbedder)(nil)
