package vector

import (
	"math"
	"strings"
)

// Metric selects the distance used to rank stored quotes. The set is closed;
// use ParseMetric to obtain one from configuration.
type Metric int

const (
	// Cosine ranks by cosine distance, 1 - cos(a, b), in [0, 2].
	Cosine Metric = iota
	// Euclidean ranks by L2 distance; for unit vectors it lies in [0, 2].
	Euclidean
	// InnerProduct ranks by the negative inner product; for unit vectors it
	// lies in [-1, 1].
	InnerProduct
)

// Metrics lists every supported metric.
var Metrics = []Metric{Cosine, Euclidean, InnerProduct}

// ParseMetric resolves a metric name. Recognised names are cosine,
// euclidean (or l2) and inner_product (or ip, dot).
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cosine", "":
		return Cosine, nil
	case "euclidean", "l2":
		return Euclidean, nil
	case "inner_product", "ip", "dot":
		return InnerProduct, nil
	}
	return 0, &MetricError{Name: name}
}

// Valid reports whether m is one of the supported metrics.
func (m Metric) Valid() bool {
	return m >= Cosine && m <= InnerProduct
}

func (m Metric) String() string {
	switch m {
	case Cosine:
		return "cosine"
	case Euclidean:
		return "euclidean"
	case InnerProduct:
		return "inner_product"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, &MetricError{Name: m.String()}
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	v, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Decode implements envconfig.Decoder.
func (m *Metric) Decode(value string) error { return m.UnmarshalText([]byte(value)) }

// Operator returns the pgvector operator computing this metric's distance.
func (m Metric) Operator() string {
	switch m {
	case Euclidean:
		return "<->"
	case InnerProduct:
		return "<#>"
	}
	return "<=>"
}

// SQLFunc returns the engine SQL function computing this metric's distance.
func (m Metric) SQLFunc() string {
	switch m {
	case Euclidean:
		return "vec_l2"
	case InnerProduct:
		return "vec_neg_dot"
	}
	return "vec_cosine_distance"
}

// Distance computes the distance between a and b under m.
func (m Metric) Distance(a, b []float32) (float64, error) {
	switch m {
	case Cosine:
		return CosineDistance(a, b)
	case Euclidean:
		return L2Distance(a, b)
	case InnerProduct:
		ip, err := InnerProductOf(a, b)
		return -ip, err
	}
	return 0, &MetricError{Name: m.String()}
}

// DistanceFromSimilarity converts a cosine similarity in [-1, 1] into the
// equivalent distance threshold under m, assuming unit-norm vectors.
func (m Metric) DistanceFromSimilarity(sim float64) float64 {
	switch m {
	case Euclidean:
		return math.Sqrt(math.Max(0, 2-2*sim))
	case InnerProduct:
		return -sim
	}
	return 1 - sim
}
