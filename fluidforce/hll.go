package fluidforce

import "math"

// RiemannState is the one-dimensional state projected onto the unit
// separation vector e_ij for an HLL solve: normal velocity, density,
// pressure, and sound speed.
type RiemannState struct {
	V     float64
	Dens  float64
	Pres  float64
	Sound float64
}

// HLLResult is the interface pressure and normal velocity returned by the
// approximate Riemann solve.
type HLLResult struct {
	PStar float64
	VStar float64
}

// Limiter is the van Leer (1979) slope limiter used by the second-order
// MUSCL-style reconstruction feeding left/right states into SolveHLL.
func Limiter(dq1, dq2 float64) float64 {
	if dq1*dq2 <= 0 {
		return 0
	}
	return 2 * dq1 * dq2 / (dq1 + dq2)
}

// SolveHLL solves the one-dimensional Riemann problem between left and
// right states using Roe-averaged wave-speed estimates, then derives the
// interface pressure and velocity from the acoustic-impedance relations
// with those wave speeds in place of the left/right sound speeds, the
// standard way of turning HLL's two signal speeds into a single star
// state for a Lagrangian (SPH) scheme.
func SolveHLL(left, right RiemannState) HLLResult {
	sqrtL := math.Sqrt(left.Dens)
	sqrtR := math.Sqrt(right.Dens)
	wSum := sqrtL + sqrtR
	if wSum <= 0 {
		return HLLResult{PStar: 0.5 * (left.Pres + right.Pres), VStar: 0.5 * (left.V + right.V)}
	}
	uTilde := (sqrtL*left.V + sqrtR*right.V) / wSum
	cTilde := (sqrtL*left.Sound + sqrtR*right.Sound) / wSum

	sL := math.Min(left.V-left.Sound, uTilde-cTilde)
	sR := math.Max(right.V+right.Sound, uTilde+cTilde)

	cL := left.Dens * (left.V - sL)
	cR := right.Dens * (sR - right.V)
	if cL < 0 {
		cL = 0
	}
	if cR < 0 {
		cR = 0
	}
	denom := cL + cR
	if denom <= 0 {
		return HLLResult{PStar: 0.5 * (left.Pres + right.Pres), VStar: 0.5 * (left.V + right.V)}
	}

	pStar := (cR*left.Pres + cL*right.Pres + cL*cR*(left.V-right.V)) / denom
	vStar := (cL*left.V + cR*right.V + left.Pres - right.Pres) / denom
	return HLLResult{PStar: pStar, VStar: vStar}
}
