package fluidforce

import (
	"math"
	"testing"
)

func TestSolveHLLEqualStatesReturnsSharedState(t *testing.T) {
	s := RiemannState{V: 0.3, Dens: 1.0, Pres: 1.0, Sound: 1.2}
	res := SolveHLL(s, s)
	if math.Abs(res.PStar-s.Pres) > 1e-10 {
		t.Errorf("PStar = %g, want %g for identical left/right states", res.PStar, s.Pres)
	}
	if math.Abs(res.VStar-s.V) > 1e-10 {
		t.Errorf("VStar = %g, want %g for identical left/right states", res.VStar, s.V)
	}
}

func TestSolveHLLPressureJumpDrivesFlowFromHighToLow(t *testing.T) {
	left := RiemannState{V: 0, Dens: 1.0, Pres: 1.0, Sound: 1.18}
	right := RiemannState{V: 0, Dens: 0.125, Pres: 0.1, Sound: 1.05}
	res := SolveHLL(left, right)

	if res.PStar <= right.Pres || res.PStar >= left.Pres {
		t.Errorf("PStar = %g, want between right.Pres=%g and left.Pres=%g", res.PStar, right.Pres, left.Pres)
	}
	if res.VStar <= 0 {
		t.Errorf("VStar = %g, want > 0 (flow from high to low pressure)", res.VStar)
	}
}

func TestLimiterZeroesOnSignDisagreement(t *testing.T) {
	if got := Limiter(1.0, -1.0); got != 0 {
		t.Errorf("Limiter(1,-1) = %g, want 0", got)
	}
	if got := Limiter(0, 2.0); got != 0 {
		t.Errorf("Limiter(0,2) = %g, want 0", got)
	}
}

func TestLimiterHarmonicMeanOnAgreement(t *testing.T) {
	got := Limiter(2.0, 2.0)
	if math.Abs(got-2.0) > 1e-12 {
		t.Errorf("Limiter(2,2) = %g, want 2 (harmonic mean of equal slopes is itself)", got)
	}
}
