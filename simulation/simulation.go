// Package simulation owns the particle array and the shared state every
// component reads and writes: the kernel, the periodic domain, the
// Barnes-Hut tree, and named scratch fields used by the second-order
// Godunov variants.
package simulation

import (
	"github.com/pthm-cable/hvccsph/bhtree"
	"github.com/pthm-cable/hvccsph/kernel"
	"github.com/pthm-cable/hvccsph/particle"
	"github.com/pthm-cable/hvccsph/periodic"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// Simulation is the shared mutable state threaded through every component's
// calculation step.
type Simulation struct {
	Particles []particle.Particle
	Kernel    kernel.Kernel
	Periodic  *periodic.Periodic
	Tree      *bhtree.Tree

	Time float64
	Dt   float64
	Step int64

	// HPerVSigMin is the global minimum h/v_sig reduced across particles in
	// PreInteraction, consumed by TimeStep.
	HPerVSigMin float64

	// scratch holds lazily-populated named fields (grad_density,
	// grad_pressure, grad_velocity_{0,1,2}) used by GSPH/GDISPH.
	scratchVec map[string][]vecmath.Vec
	scratchNum map[string][]float64
}

// New creates a Simulation over particles with the given kernel, periodic
// domain, and tree. The tree is not yet built; call MakeTree before the
// first PreInteraction pass.
func New(particles []particle.Particle, k kernel.Kernel, per *periodic.Periodic, tree *bhtree.Tree) *Simulation {
	return &Simulation{
		Particles:  particles,
		Kernel:     k,
		Periodic:   per,
		Tree:       tree,
		scratchVec: make(map[string][]vecmath.Vec),
		scratchNum: make(map[string][]float64),
	}
}

// MakeTree rebuilds the tree from current particle positions.
func (s *Simulation) MakeTree() error {
	return s.Tree.Make(s.Particles)
}

// VecScratch returns the named vector scratch array, sized to len(Particles)
// and allocated on first use.
func (s *Simulation) VecScratch(name string) []vecmath.Vec {
	arr, ok := s.scratchVec[name]
	if !ok || len(arr) != len(s.Particles) {
		arr = make([]vecmath.Vec, len(s.Particles))
		s.scratchVec[name] = arr
	}
	return arr
}

// NumScratch returns the named scalar scratch array, sized to
// len(Particles) and allocated on first use.
func (s *Simulation) NumScratch(name string) []float64 {
	arr, ok := s.scratchNum[name]
	if !ok || len(arr) != len(s.Particles) {
		arr = make([]float64, len(s.Particles))
		s.scratchNum[name] = arr
	}
	return arr
}

// Snapshot is the read-only view handed to output writers between steps.
type Snapshot struct {
	Time      float64
	Dt        float64
	Step      int64
	Particles []particle.Particle
}

// Snapshot captures the current state. Valid only until the next integrator
// step mutates Particles.
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{Time: s.Time, Dt: s.Dt, Step: s.Step, Particles: s.Particles}
}

// Modifier is the initial-conditions hook invoked exactly once after a
// checkpoint load, before the first integration step.
type Modifier interface {
	Modify(sim *Simulation)
}
