package kernel

import (
	"math"
	"testing"

	"github.com/pthm-cable/hvccsph/vecmath"
	"gonum.org/v1/gonum/diff/fd"
)

func allKernels() map[string]Kernel {
	return map[string]Kernel{
		"cubic_spline": CubicSpline{},
		"wendland":     WendlandC4{},
	}
}

func TestCompactSupport(t *testing.T) {
	for name, k := range allKernels() {
		h := 1.0
		r := (k.Support() + 0.5) * h
		rij := vecmath.Vec{r, 0, 0}
		if w := k.W(rij, r, h, 3); w != 0 {
			t.Errorf("%s: W beyond support = %g, want 0", name, w)
		}
		if g := k.DW(rij, r, h, 3); g != (vecmath.Vec{}) {
			t.Errorf("%s: DW beyond support = %v, want zero vector", name, g)
		}
	}
}

func TestDerivativeMatchesFiniteDifference(t *testing.T) {
	for name, k := range allKernels() {
		for _, effDim := range []int{1, 2, 3} {
			h := 1.0
			support := k.Support()
			for _, frac := range []float64{0.05, 0.2, 0.4, 0.6, 0.8, 0.95} {
				r := frac * support * h
				analytic := k.DHW(r, h, effDim)
				numeric := fd.Derivative(func(hh float64) float64 {
					return k.W(vecmath.Vec{}, r, hh, effDim)
				}, h, &fd.Settings{Formula: fd.Central, Step: 1e-4})
				if diff := math.Abs(analytic - numeric); diff > 1e-3 {
					t.Errorf("%s dim=%d r=%g: dhw analytic=%g numeric=%g diff=%g", name, effDim, r, analytic, numeric, diff)
				}
			}
		}
	}
}

func TestSymmetry(t *testing.T) {
	for name, k := range allKernels() {
		h := 1.0
		r := 0.3 * k.Support() * h
		rij := vecmath.Vec{r, 0.1, -0.1}
		rNegij := vecmath.Scale(rij, -1)
		rn := vecmath.Norm(rij)

		w1 := k.W(rij, rn, h, 3)
		w2 := k.W(rNegij, rn, h, 3)
		if math.Abs(w1-w2) > 1e-12 {
			t.Errorf("%s: W(r) != W(-r): %g vs %g", name, w1, w2)
		}

		g1 := k.DW(rij, rn, h, 3)
		g2 := k.DW(rNegij, rn, h, 3)
		for d := 0; d < 3; d++ {
			if math.Abs(g1[d]+g2[d]) > 1e-12 {
				t.Errorf("%s: DW(-r) != -DW(r) at component %d: %v vs %v", name, d, g1, g2)
			}
		}
	}
}

func TestNormalization1D(t *testing.T) {
	for name, k := range allKernels() {
		h := 1.0
		const n = 20000
		support := k.Support() * h
		dr := 2 * support / n
		sum := 0.0
		for i := 0; i < n; i++ {
			r := -support + (float64(i)+0.5)*dr
			rij := vecmath.Vec{r, 0, 0}
			sum += k.W(rij, math.Abs(r), h, 1) * dr
		}
		if math.Abs(sum-1.0) > 1e-2 {
			t.Errorf("%s: 1D normalization integral = %g, want ~1", name, sum)
		}
	}
}
