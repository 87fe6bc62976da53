// Package math32 provides float32 vector kernels for the distance package.
// This is an internal package - external users should use the distance package.
package math32

import "math"

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}
	return ret
}

// SquaredL2 calculates the squared L2 (Euclidean) distance.
func SquaredL2(a, b []float32) float32 {
	var distance float32
	for i := range a {
		d := a[i] - b[i]
		distance += d * d
	}
	return distance
}

// ScaleInPlace multiplies all elements of a by scalar.
//
// This is primarily used by distance normalization.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// Sqrt returns the square root of x as a float32.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
