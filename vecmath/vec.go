// Package vecmath provides the small fixed-size vector type shared by every
// geometric computation in the simulation core: positions, velocities,
// accelerations, and tree extents. Vectors are always three components wide;
// components beyond the configured spatial dimension are held at zero, which
// is what makes the "2.5-D" mode (3-D positions, 2-D kernel) a pinned
// component rather than a distinct type.
package vecmath

import "math"

// Vec is a three-component vector. Lower-dimensional simulations simply
// leave the unused trailing components at zero.
type Vec [3]float64

// Add returns a+b.
func Add(a, b Vec) Vec {
	return Vec{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Sub returns a-b.
func Sub(a, b Vec) Vec {
	return Vec{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Scale returns v*s.
func Scale(v Vec, s float64) Vec {
	return Vec{v[0] * s, v[1] * s, v[2] * s}
}

// AddScaled returns a + b*s, the fused form used by the integrator's
// kick/drift updates.
func AddScaled(a, b Vec, s float64) Vec {
	return Vec{a[0] + b[0]*s, a[1] + b[1]*s, a[2] + b[2]*s}
}

// Dot returns the inner product of a and b.
func Dot(a, b Vec) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Norm returns the Euclidean length of v.
func Norm(v Vec) float64 {
	return math.Sqrt(Dot(v, v))
}

// Zero reports the zero vector.
func Zero() Vec { return Vec{} }

// ZeroComponent zeros component k in place, used to pin the z-axis under
// two_and_half_sim.
func (v *Vec) ZeroComponent(k int) {
	v[k] = 0
}

// Unit returns v scaled to unit length, or the zero vector if v is
// (numerically) zero.
func Unit(v Vec) Vec {
	n := Norm(v)
	if n < 1e-300 {
		return Vec{}
	}
	return Scale(v, 1/n)
}
