// Package distance implements the scoring kernels used by a collection's
// top-k scan: Euclidean, Cosine, and DotProduct similarity over equal-length
// float32 vectors, plus the query-side cache scalar each metric needs.
package distance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/floats32"
)

// Metric identifies which distance kernel a collection uses.
type Metric int

const (
	Euclidean Metric = iota
	Cosine
	DotProduct
)

// String returns the wire tag for a metric, matching the original
// prototype's serde rename tags ("euclidean", "cosine", "dot").
func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case Cosine:
		return "cosine"
	case DotProduct:
		return "dot"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMetric parses a metric's wire tag. Unknown tags return an error.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "euclidean":
		return Euclidean, nil
	case "cosine":
		return Cosine, nil
	case "dot":
		return DotProduct, nil
	default:
		return 0, fmt.Errorf("distance: unknown metric %q", s)
	}
}

// Better reports whether score a is a better match than score b under m.
// Euclidean minimizes; Cosine and DotProduct maximize.
func (m Metric) Better(a, b float32) bool {
	if m == Euclidean {
		return a < b
	}
	return a > b
}

// Worse reports whether score a is a worse (or equal) match than score b
// under m, the complement of Better with ties resolved towards "worse".
// Used as the bounded top-k heap's ordering so that its root is the
// worst retained candidate; eviction itself is decided by Better.
func (m Metric) Worse(a, b float32) bool {
	return !m.Better(a, b)
}

// QueryCache precomputes the per-query scalar each kernel needs: |query|^2
// for Euclidean, 0 for Cosine and DotProduct.
func QueryCache(m Metric, query []float32) float32 {
	if m != Euclidean {
		return 0
	}
	return floats32.Dot(query, query)
}

// Score computes the similarity between a stored vector and a query vector
// under the given metric, using a precomputed query-side cache scalar from
// QueryCache.
func Score(m Metric, vector, query []float32, cache float32) float32 {
	switch m {
	case Euclidean:
		return euclidean(vector, query, cache)
	case Cosine, DotProduct:
		// Cosine collections store pre-normalized vectors, so dot
		// product alone reproduces cosine similarity.
		return floats32.Dot(vector, query)
	default:
		return 0
	}
}

// euclidean returns sqrt(max(0, |vector|^2 + |query|^2 - 2*<vector,query>)),
// where queryCache is the precomputed |query|^2 cache scalar. The
// max(0, ...) guard absorbs negative values produced by floating-point
// cancellation when vector and query are nearly identical.
func euclidean(vector, query []float32, queryCache float32) float32 {
	vectorSumSquares := floats32.Dot(vector, vector)
	cross := floats32.Dot(vector, query)
	v := queryCache + vectorSumSquares - 2*cross
	if v < 0 {
		v = 0
	}
	return float32(math.Sqrt(float64(v)))
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return floats32.Norm(v, 2)
}

// float32Epsilon mirrors Rust's std::f32::EPSILON, the smallest value for
// which 1.0 + EPSILON != 1.0 in float32 arithmetic. The original prototype's
// normalize() (similarity.rs) treats any vector at or below this magnitude
// as the zero vector.
const float32Epsilon = 1.1920929e-7

// Normalize returns an L2-normalized copy of v. The zero vector is returned
// unchanged, matching the original prototype's normalize() (similarity.rs).
func Normalize(v []float32) []float32 {
	n := Norm(v)
	out := make([]float32, len(v))
	if n <= float32Epsilon {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / n
	}
	return out
}
