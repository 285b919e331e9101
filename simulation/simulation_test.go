package simulation

import (
	"testing"

	"github.com/pthm-cable/hvccsph/bhtree"
	"github.com/pthm-cable/hvccsph/kernel"
	"github.com/pthm-cable/hvccsph/particle"
	"github.com/pthm-cable/hvccsph/vecmath"
)

func TestVecScratchAllocatesOnFirstUseAndIsStable(t *testing.T) {
	ps := make([]particle.Particle, 5)
	sim := New(ps, kernel.CubicSpline{}, nil, nil)

	a := sim.VecScratch("grad_density")
	if len(a) != 5 {
		t.Fatalf("len(VecScratch) = %d, want 5", len(a))
	}
	a[2] = vecmath.Vec{1, 2, 3}

	b := sim.VecScratch("grad_density")
	if b[2] != (vecmath.Vec{1, 2, 3}) {
		t.Errorf("second VecScratch call returned a fresh array instead of the cached one: %+v", b[2])
	}
}

func TestVecScratchReallocatesWhenParticleCountChanges(t *testing.T) {
	ps := make([]particle.Particle, 3)
	sim := New(ps, kernel.CubicSpline{}, nil, nil)
	a := sim.VecScratch("grad_velocity_0")
	a[0] = vecmath.Vec{9, 9, 9}

	sim.Particles = make([]particle.Particle, 7)
	b := sim.VecScratch("grad_velocity_0")
	if len(b) != 7 {
		t.Fatalf("len(VecScratch) after resize = %d, want 7", len(b))
	}
	if b[0] != (vecmath.Vec{}) {
		t.Errorf("VecScratch did not reset after particle count changed: %+v", b[0])
	}
}

func TestNumScratchIndependentByName(t *testing.T) {
	ps := make([]particle.Particle, 4)
	sim := New(ps, kernel.CubicSpline{}, nil, nil)
	x := sim.NumScratch("x")
	y := sim.NumScratch("y")
	x[0] = 1.0
	if y[0] != 0 {
		t.Errorf("NumScratch(\"y\") was affected by writes to NumScratch(\"x\")")
	}
}

func TestSnapshotCapturesCurrentState(t *testing.T) {
	ps := []particle.Particle{{ID: 1}, {ID: 2}}
	sim := New(ps, kernel.CubicSpline{}, nil, nil)
	sim.Time = 1.5
	sim.Dt = 0.01
	sim.Step = 42

	snap := sim.Snapshot()
	if snap.Time != 1.5 || snap.Dt != 0.01 || snap.Step != 42 {
		t.Fatalf("Snapshot header mismatch: %+v", snap)
	}
	if len(snap.Particles) != 2 {
		t.Fatalf("Snapshot particle count = %d, want 2", len(snap.Particles))
	}
}

func TestMakeTreeBuildsFromCurrentPositions(t *testing.T) {
	ps := []particle.Particle{
		{Pos: vecmath.Vec{0, 0, 0}, Mass: 1},
		{Pos: vecmath.Vec{0.5, 0, 0}, Mass: 1},
	}
	tree := bhtree.New(3, 20, 1)
	tree.Resize(16)
	sim := New(ps, kernel.CubicSpline{}, nil, tree)

	if err := sim.MakeTree(); err != nil {
		t.Fatalf("MakeTree: %v", err)
	}
	if tree.State() != bhtree.Built {
		t.Errorf("tree state after MakeTree = %v, want Built", tree.State())
	}
}
