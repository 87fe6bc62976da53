// Package distance provides the public API for vector distance calculations.
//
// The word-vector workflow stores unit-length vectors, so similarity search
// uses the normalized inner product: distance = 1 - dot(a, b). Zero means
// identical direction, smaller means closer. Both the proximity graph and
// the exact index must share the same Func instance for their results to be
// comparable.
package distance

import (
	"fmt"
	"slices"

	"github.com/lexivec/lexivec/internal/math32"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return math32.Dot(a, b)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	return math32.SquaredL2(a, b)
}

// InnerProduct returns 1 - dot(a, b), the normalized inner-product distance.
// Valid as a distance only for unit-length vectors.
func InnerProduct(a, b []float32) float32 {
	return 1 - math32.Dot(a, b)
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := math32.Dot(v, v)
	if norm2 == 0 {
		return false
	}
	math32.ScaleInPlace(v, 1/math32.Sqrt(norm2))
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	// MetricInnerProduct is 1 - dot(a, b) over pre-normalized vectors.
	MetricInnerProduct Metric = iota
	// MetricL2 is the squared Euclidean distance.
	MetricL2
)

func (m Metric) String() string {
	switch m {
	case MetricInnerProduct:
		return "InnerProduct"
	case MetricL2:
		return "L2"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
// Implementations must be symmetric and return smaller values for closer vectors.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricInnerProduct:
		return InnerProduct, nil
	case MetricL2:
		return SquaredL2, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
