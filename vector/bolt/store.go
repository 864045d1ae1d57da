package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/viant/quotevec/index/bruteforce"
	"github.com/viant/quotevec/vector"
	"go.etcd.io/bbolt"
)

var metaBucket = []byte("quote_meta")

type record struct {
	Text      string `json:"text"`
	Label     string `json:"label,omitempty"`
	Embedding []byte `json:"embedding"`
}

// Store is a vector.Store backed by bbolt.
type Store struct {
	bucket []byte
	dim    int

	mu sync.RWMutex
	db *bbolt.DB
}

// NewStore creates a store for bucket with embedding width dim. It is not
// usable until Attach hands it a database.
func NewStore(bucket string, dim int) (*Store, error) {
	if bucket == "" {
		bucket = vector.DefaultTable
	}
	if err := vector.ValidateIdentifier(bucket); err != nil {
		return nil, err
	}
	if err := vector.ValidateDimension(dim); err != nil {
		return nil, err
	}
	return &Store{bucket: []byte(bucket), dim: dim}, nil
}

// Attach creates the buckets if needed, checks the recorded dimension and
// makes the store ready.
func (s *Store) Attach(_ context.Context, db *bbolt.DB) error {
	if db == nil {
		return fmt.Errorf("bolt: db is nil")
	}
	key := []byte(string(s.bucket) + ".dimension")
	want := []byte(strconv.Itoa(s.dim))
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(s.bucket); err != nil {
			return vector.Backend("create bucket", err)
		}
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return vector.Backend("create meta bucket", err)
		}
		stored := meta.Get(key)
		if stored == nil {
			return vector.Backend("record dimension", meta.Put(key, want))
		}
		if string(stored) != string(want) {
			return fmt.Errorf("%w: bucket %s was created with dimension %s, configured %d",
				vector.ErrDimensionMismatch, s.bucket, stored, s.dim)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	return nil
}

// Detach releases the database; later calls fail with vector.ErrNotReady.
func (s *Store) Detach() {
	s.mu.Lock()
	s.db = nil
	s.mu.Unlock()
}

// Dimension implements vector.Store.
func (s *Store) Dimension() int { return s.dim }

func (s *Store) conn() (*bbolt.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, vector.ErrNotReady
	}
	return s.db, nil
}

// Add implements vector.Store. Ids come from the bucket sequence, which only
// grows, so a deleted id is never handed out again.
func (s *Store) Add(_ context.Context, quotes []vector.Quote) ([]int64, error) {
	if len(quotes) == 0 {
		return nil, nil
	}
	if err := vector.ValidateQuotes(s.dim, quotes); err != nil {
		return nil, err
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(quotes))
	err = db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, q := range quotes {
			seq, err := b.NextSequence()
			if err != nil {
				return vector.Backend("next sequence", err)
			}
			emb, err := vector.EncodeEmbedding(q.Embedding)
			if err != nil {
				return err
			}
			data, err := json.Marshal(record{Text: q.Text, Label: q.Label, Embedding: emb})
			if err != nil {
				return err
			}
			if err := b.Put(itob(seq), data); err != nil {
				return vector.Backend("put", err)
			}
			ids = append(ids, int64(seq))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Search implements vector.Store.
func (s *Store) Search(_ context.Context, query []float32, opts vector.SearchOptions) ([]vector.Match, error) {
	if err := vector.ValidateSearch(s.dim, query, opts); err != nil {
		return nil, err
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var ids []int64
	var vecs [][]float32
	quotes := map[int64]vector.Quote{}
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			q, err := decode(k, v)
			if err != nil {
				return err
			}
			ids = append(ids, q.ID)
			vecs = append(vecs, q.Embedding)
			q.Embedding = nil
			quotes[q.ID] = q
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	idx := &bruteforce.Index{}
	if err := idx.Build(ids, vecs); err != nil {
		return nil, err
	}
	ranked, distances, err := idx.Query(query, opts.TopN, opts.Metric)
	if err != nil {
		return nil, err
	}
	out := make([]vector.Match, len(ranked))
	for i, id := range ranked {
		out[i] = vector.Match{Quote: quotes[id], Distance: distances[i]}
	}
	return vector.WithinThreshold(out, opts.Threshold), nil
}

// Delete implements vector.Store.
func (s *Store) Delete(_ context.Context, id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if id <= 0 {
		return nil
	}
	return db.Update(func(tx *bbolt.Tx) error {
		return vector.Backend("delete", tx.Bucket(s.bucket).Delete(itob(uint64(id))))
	})
}

// Get implements vector.Store.
func (s *Store) Get(_ context.Context, id int64) (*vector.Quote, bool, error) {
	db, err := s.conn()
	if err != nil {
		return nil, false, err
	}
	if id <= 0 {
		return nil, false, nil
	}
	var out *vector.Quote
	err = db.View(func(tx *bbolt.Tx) error {
		k := itob(uint64(id))
		v := tx.Bucket(s.bucket).Get(k)
		if v == nil {
			return nil
		}
		q, err := decode(k, v)
		if err != nil {
			return err
		}
		out = &q
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// ListAll implements vector.Store. Big-endian keys iterate in id order.
func (s *Store) ListAll(_ context.Context) ([]vector.Quote, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var out []vector.Quote
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			q, err := decode(k, v)
			if err != nil {
				return err
			}
			q.Embedding = nil
			out = append(out, q)
			return nil
		})
	})
	return out, err
}

// Count implements vector.Store.
func (s *Store) Count(_ context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Reset implements vector.Store. The bucket is recreated with its previous
// sequence so ids keep growing.
func (s *Store) Reset(_ context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		seq := tx.Bucket(s.bucket).Sequence()
		if err := tx.DeleteBucket(s.bucket); err != nil {
			return vector.Backend("reset", err)
		}
		b, err := tx.CreateBucket(s.bucket)
		if err != nil {
			return vector.Backend("reset", err)
		}
		return vector.Backend("reset", b.SetSequence(seq))
	})
}

// Reembed implements vector.Store.
func (s *Store) Reembed(_ context.Context, ids []int64, embeddings [][]float32) error {
	if len(ids) != len(embeddings) {
		return fmt.Errorf("%w: %d ids for %d embeddings", vector.ErrInvalidArgument, len(ids), len(embeddings))
	}
	if len(ids) == 0 {
		return nil
	}
	if err := vector.ValidateEmbeddings(s.dim, embeddings); err != nil {
		return err
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for i, id := range ids {
			k := itob(uint64(id))
			v := b.Get(k)
			if v == nil {
				continue
			}
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("bolt: decode quote %d: %w", id, err)
			}
			emb, err := vector.EncodeEmbedding(embeddings[i])
			if err != nil {
				return err
			}
			rec.Embedding = emb
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put(k, data); err != nil {
				return vector.Backend("put", err)
			}
		}
		return nil
	})
}

func decode(k, v []byte) (vector.Quote, error) {
	var rec record
	if err := json.Unmarshal(v, &rec); err != nil {
		return vector.Quote{}, fmt.Errorf("bolt: decode quote %x: %w", k, err)
	}
	emb, err := vector.DecodeEmbedding(rec.Embedding)
	if err != nil {
		return vector.Quote{}, err
	}
	return vector.Quote{ID: int64(binary.BigEndian.Uint64(k)), Text: rec.Text, Label: rec.Label, Embedding: emb}, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

var _ vector.Store = (*Store)(nil)
