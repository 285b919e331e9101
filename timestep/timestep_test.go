package timestep

import (
	"math"
	"testing"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/particle"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.CFL.Sound = 0.3
	cfg.CFL.Force = 0.3
	cfg.CFL.Ene = 0.3
	cfg.Time.Start = 0
	cfg.Time.End = 1
	return cfg
}

func TestCalculationBoundedBySoundCrossing(t *testing.T) {
	ps := []particle.Particle{
		{Sml: 0.1, Sound: 2.0},
		{Sml: 0.2, Sound: 1.0},
	}
	sim := simulation.New(ps, nil, nil, nil)
	ts := New(baseConfig())
	dt := ts.Calculation(sim)

	// particle 0: 0.3*0.1/2.0 = 0.015; particle 1: 0.3*0.2/1.0 = 0.06.
	want := 0.3 * 0.1 / 2.0
	if math.Abs(dt-want) > 1e-12 {
		t.Errorf("Calculation() = %g, want %g (tightest sound-crossing bound)", dt, want)
	}
}

func TestCalculationBoundedByForce(t *testing.T) {
	ps := []particle.Particle{
		{Sml: 1.0, Acc: vecmath.Vec{4, 0, 0}},
	}
	sim := simulation.New(ps, nil, nil, nil)
	ts := New(baseConfig())
	dt := ts.Calculation(sim)

	want := 0.3 * math.Sqrt(1.0/4.0)
	if math.Abs(dt-want) > 1e-12 {
		t.Errorf("Calculation() = %g, want %g (force bound)", dt, want)
	}
}

func TestCalculationFallsBackToTimeSpanWhenNoParticles(t *testing.T) {
	sim := simulation.New(nil, nil, nil, nil)
	ts := New(baseConfig())
	dt := ts.Calculation(sim)
	if dt != 1.0 {
		t.Errorf("Calculation() with no particles = %g, want time.end-time.start = 1.0", dt)
	}
}

func TestCalculationSkipsNonIntegrableParticles(t *testing.T) {
	ps := []particle.Particle{
		{IsWall: true, Sml: 0.001, Sound: 100}, // would dominate if not skipped
		{Sml: 1.0, Sound: 1.0},
	}
	sim := simulation.New(ps, nil, nil, nil)
	ts := New(baseConfig())
	dt := ts.Calculation(sim)

	want := 0.3 * 1.0 / 1.0
	if math.Abs(dt-want) > 1e-12 {
		t.Errorf("Calculation() = %g, want %g (wall particle should not set the bound)", dt, want)
	}
}

func TestCalculationBoundedByHPerVSigMin(t *testing.T) {
	ps := []particle.Particle{
		{Sml: 1.0, Sound: 0.01}, // sound bound alone would be huge
	}
	sim := simulation.New(ps, nil, nil, nil)
	sim.HPerVSigMin = 0.05
	ts := New(baseConfig())
	dt := ts.Calculation(sim)

	want := 0.3 * 0.05
	if math.Abs(dt-want) > 1e-12 {
		t.Errorf("Calculation() = %g, want %g (bounded by HPerVSigMin)", dt, want)
	}
}
