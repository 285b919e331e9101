// Package kernel implements the dimensionless SPH smoothing kernels: the
// cubic spline and Wendland C4 families. Both satisfy the same three-method
// capability set (W, gradient, h-derivative) so the rest of the core treats
// "which kernel" as a tagged variant rather than a virtual dispatch.
package kernel

import (
	"math"

	"github.com/pthm-cable/hvccsph/vecmath"
)

// Kernel is the capability set every smoothing function implements.
// Support returns the compact-support radius in the kernel's own
// dimensionless radius: r/h for Wendland C4, r/(h/2) for the cubic spline.
// Both kernels vanish for r >= h.
type Kernel interface {
	W(rij vecmath.Vec, r, h float64, effDim int) float64
	DW(rij vecmath.Vec, r, h float64, effDim int) vecmath.Vec
	DHW(r, h float64, effDim int) float64
	Support() float64
}

// EffectiveDim returns 2 when the simulation runs in 2.5-D mode, otherwise
// the true spatial dimension. The kernel is always evaluated at this
// dimension regardless of how many position components are nonzero.
func EffectiveDim(dim int, twoAndHalf bool) int {
	if twoAndHalf {
		return 2
	}
	return dim
}

// sigma returns the dimension-dependent normalization constant for a
// kernel family identified by its three per-dimension values.
func sigma(effDim int, s1, s2, s3 float64) float64 {
	switch effDim {
	case 1:
		return s1
	case 2:
		return s2
	default:
		return s3
	}
}

// CubicSpline is the classic M4 cubic spline kernel, evaluated with the
// half-smoothing-length convention (h' = h/2) so that compact support ends
// at q = r/h' = 2, i.e. at r = h.
type CubicSpline struct{}

func (CubicSpline) Support() float64 { return 2.0 }

func cubicSigma(effDim int) float64 {
	return sigma(effDim, 2.0/3.0, 10.0/(7.0*math.Pi), 1.0/math.Pi)
}

// cubicShape evaluates the dimensionless shape function and its
// q-derivative at q = r/h' for the half-length convention.
func cubicShape(q float64) (w, dwdq float64) {
	switch {
	case q < 1.0:
		w = 0.25 * (math.Pow(2.0-q, 3) - 4.0*math.Pow(1.0-q, 3))
		dwdq = 0.25 * (-3.0*math.Pow(2.0-q, 2) + 12.0*math.Pow(1.0-q, 2))
	case q < 2.0:
		w = 0.25 * math.Pow(2.0-q, 3)
		dwdq = 0.25 * -3.0 * math.Pow(2.0-q, 2)
	default:
		w, dwdq = 0, 0
	}
	return
}

func (CubicSpline) W(rij vecmath.Vec, r, h float64, effDim int) float64 {
	hHalf := 0.5 * h
	q := r / hHalf
	if q >= 2.0 {
		return 0
	}
	shape, _ := cubicShape(q)
	sig := cubicSigma(effDim)
	return sig * shape / math.Pow(hHalf, float64(effDim))
}

func (CubicSpline) DW(rij vecmath.Vec, r, h float64, effDim int) vecmath.Vec {
	if r <= 0 {
		return vecmath.Vec{}
	}
	hHalf := 0.5 * h
	q := r / hHalf
	if q >= 2.0 {
		return vecmath.Vec{}
	}
	_, dwdq := cubicShape(q)
	sig := cubicSigma(effDim)
	// dW/dr = sig * dwdq/h' / h'^effDim; gradient = (dW/dr / r) * rij
	dwdr := sig * dwdq / math.Pow(hHalf, float64(effDim)+1)
	return vecmath.Scale(rij, dwdr/r)
}

func (CubicSpline) DHW(r, h float64, effDim int) float64 {
	return cubicDHWAnalytic(r, h, effDim)
}

// cubicDHWAnalytic computes the analytic ∂W/∂h for the cubic spline: since
// W = sig/h'^d * shape(q), q = r/h', h' = h/2, differentiating w.r.t. h
// gives a term from the explicit h'^-d and a term from q's dependence on h'.
func cubicDHWAnalytic(r, h float64, effDim int) float64 {
	hHalf := 0.5 * h
	q := r / hHalf
	if q >= 2.0 {
		return 0
	}
	shape, dwdq := cubicShape(q)
	sig := cubicSigma(effDim)
	d := float64(effDim)
	// dW/dh' = sig/h'^d * ( -d/h' * shape + dwdq * (-q/h') )
	dWdhHalf := sig / math.Pow(hHalf, d) * (-d/hHalf*shape - dwdq*q/hHalf)
	// h' = h/2 => dW/dh = dW/dh' * dh'/dh = dW/dh' * 0.5
	return dWdhHalf * 0.5
}

// WendlandC4 is the Wendland C4 kernel with full support at q = r/h = 1.
type WendlandC4 struct{}

func (WendlandC4) Support() float64 { return 1.0 }

func wendlandSigma(effDim int) float64 {
	return sigma(effDim, 27.0/16.0, 9.0/math.Pi, 495.0/(32.0*math.Pi))
}

// wendlandShape evaluates the C4 shape function (1-q)^6 * (1 + 6q + 35/3 q^2)
// and its q-derivative.
func wendlandShape(q float64) (w, dwdq float64) {
	if q >= 1.0 {
		return 0, 0
	}
	omq := 1.0 - q
	poly := 1.0 + 6.0*q + (35.0/3.0)*q*q
	w = math.Pow(omq, 6) * poly
	dpoly := 6.0 + (70.0/3.0)*q
	dwdq = -6.0*math.Pow(omq, 5)*poly + math.Pow(omq, 6)*dpoly
	return
}

func (WendlandC4) W(rij vecmath.Vec, r, h float64, effDim int) float64 {
	q := r / h
	if q >= 1.0 {
		return 0
	}
	shape, _ := wendlandShape(q)
	sig := wendlandSigma(effDim)
	return sig * shape / math.Pow(h, float64(effDim))
}

func (WendlandC4) DW(rij vecmath.Vec, r, h float64, effDim int) vecmath.Vec {
	if r <= 0 {
		return vecmath.Vec{}
	}
	q := r / h
	if q >= 1.0 {
		return vecmath.Vec{}
	}
	_, dwdq := wendlandShape(q)
	sig := wendlandSigma(effDim)
	dwdr := sig * dwdq / math.Pow(h, float64(effDim)+1)
	return vecmath.Scale(rij, dwdr/r)
}

func (WendlandC4) DHW(r, h float64, effDim int) float64 {
	q := r / h
	if q >= 1.0 {
		return 0
	}
	shape, dwdq := wendlandShape(q)
	sig := wendlandSigma(effDim)
	d := float64(effDim)
	// dW/dh = sig/h^d * ( -d/h * shape + dwdq * (-q/h) )
	return sig / math.Pow(h, d) * (-d/h*shape - dwdq*q/h)
}

// ByName resolves a kernel by the config-level name, used at simulation
// initialization time.
func ByName(name string) Kernel {
	switch name {
	case "wendland":
		return WendlandC4{}
	default:
		return CubicSpline{}
	}
}
