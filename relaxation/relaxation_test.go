package relaxation

import (
	"math"
	"testing"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/particle"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

func TestLoadTableEmbeddedDefault(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatalf("LoadTable(\"\"): %v", err)
	}
	if len(table.xi) < 2 {
		t.Fatalf("embedded table has %d rows, want at least 2", len(table.xi))
	}
	if table.xi[0] != 0 {
		t.Errorf("table should start at xi=0, got %g", table.xi[0])
	}
	if got := table.Theta(0); math.Abs(got-1.0) > 1e-3 {
		t.Errorf("Theta(0) = %g, want ~1 (central value)", got)
	}
}

func TestTableThetaDecreasesToFirstZero(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatal(err)
	}
	last := table.xi[len(table.xi)-1]
	// the n=1.5 Lane-Emden solution's first zero is near xi ~= 3.65375.
	if last < 3.0 || last > 4.2 {
		t.Errorf("tabulated range ends at xi=%g, want near the n=1.5 first zero (~3.65)", last)
	}
	if got := table.Theta(last); math.Abs(got) > 0.05 {
		t.Errorf("Theta at table edge = %g, want near 0", got)
	}
}

func TestTableDThetaNegativeInInterior(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatal(err)
	}
	if got := table.DTheta(1.0); got >= 0 {
		t.Errorf("DTheta(1.0) = %g, want < 0 (theta is monotonically decreasing)", got)
	}
}

func buildRelaxationSim(n int) *simulation.Simulation {
	ps := make([]particle.Particle, n)
	for i := range ps {
		r := 0.5 + float64(i)*0.2
		ps[i] = particle.Particle{
			Pos: vecmath.Vec{r, 0, 0},
			Vel: vecmath.Vec{0.1, 0, 0},
		}
	}
	return simulation.New(ps, nil, nil, nil)
}

func TestRelaxationDampsVelocityAndAppliesRadialForce(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatal(err)
	}
	sim := buildRelaxationSim(4)
	cfg := &config.Config{}
	cfg.DensityRelaxation.IsValid = true
	cfg.DensityRelaxation.DampingFactor = 0.1
	cfg.DensityRelaxation.AlphaScaling = 1.0
	cfg.DensityRelaxation.VelocityThreshold = 1e-6

	r := New(cfg, table, nil)
	r.Calculation(sim)

	for i := range sim.Particles {
		p := sim.Particles[i]
		if vecmath.Norm(p.Vel) >= 0.1 {
			t.Errorf("particle %d speed %g, want damped below initial 0.1", i, vecmath.Norm(p.Vel))
		}
		if p.Acc[0] >= 0 || p.Acc[1] != 0 || p.Acc[2] != 0 {
			t.Errorf("particle %d acc %v, want a radial force toward the origin (negative x only)", i, p.Acc)
		}
	}
	if r.Converged() {
		t.Error("Converged() = true, want false: damped speed 0.09 still exceeds the 1e-6 threshold")
	}
}

func TestRelaxationDisabledIsNoOp(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatal(err)
	}
	sim := buildRelaxationSim(4)
	wantVel := sim.Particles[0].Vel
	cfg := &config.Config{}
	cfg.DensityRelaxation.IsValid = false

	r := New(cfg, table, nil)
	r.Calculation(sim)

	if sim.Particles[0].Vel != wantVel {
		t.Errorf("Vel changed with density_relaxation.is_valid=false: got %+v want %+v", sim.Particles[0].Vel, wantVel)
	}
}

func TestRelaxationConvergesWhenVelocityBelowThreshold(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatal(err)
	}
	sim := buildRelaxationSim(4)
	for i := range sim.Particles {
		sim.Particles[i].Vel = vecmath.Vec{1e-9, 0, 0}
	}
	cfg := &config.Config{}
	cfg.DensityRelaxation.IsValid = true
	cfg.DensityRelaxation.DampingFactor = 0.1
	cfg.DensityRelaxation.AlphaScaling = 1.0
	cfg.DensityRelaxation.VelocityThreshold = 1e-6

	r := New(cfg, table, nil)
	r.Calculation(sim)

	if !r.Converged() {
		t.Error("Converged() = false, want true: damped speed is far below threshold")
	}
}
