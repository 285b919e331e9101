// Package particle defines the per-parcel state the rest of the core reads
// and writes. Particles are stored as a contiguous indexed slice owned by
// the simulation; the slice index is the particle's handle for neighbor
// lists and tree leaf linked lists.
package particle

import (
	"math"

	"github.com/pthm-cable/hvccsph/vecmath"
)

// EnergyFloor is the minimum specific internal energy permitted; values
// below it are silently clamped (the EnergyFloored condition).
const EnergyFloor = 1e-10

// NoNext is the sentinel "no further particle" value for the tree's
// per-leaf singly-linked list, stored in Particle.Next.
const NoNext = -1

// Particle is one fluid parcel, or a wall/point-mass marker participating
// only in selected phases.
type Particle struct {
	Pos  vecmath.Vec
	Vel  vecmath.Vec
	VelP vecmath.Vec // half-step (predicted) velocity
	Acc  vecmath.Vec

	Mass    float64
	Dens    float64
	Pres    float64
	Ene     float64
	EneP    float64 // half-step (predicted) specific energy
	DEneDt  float64
	Sml     float64 // smoothing length h
	Sound   float64 // sound speed c
	Balsara float64 // Balsara switch beta in [0,1]
	Alpha   float64 // artificial viscosity coefficient
	GradH   float64 // grad-h correction f_h
	Phi     float64 // gravitational potential
	Volume  float64 // m/rho, authoritative for DISPH/GDISPH

	ID       int32
	Neighbor int32

	ShockSensor  float64
	ShockMode    int32
	OldShockMode int32

	IsWall      bool
	IsPointMass bool

	EnergyFloored bool // diagnostic: true if Ene was clamped this step

	// Next is the index of the next particle in the same tree leaf's
	// linked list, or NoNext. Rebuilt every tree construction.
	Next int32
}

// Integrable reports whether the particle participates in the integrator's
// predict/correct steps (fluid parcels only).
func (p *Particle) Integrable() bool {
	return !p.IsWall && !p.IsPointMass
}

// ApplyEnergyFloor clamps Ene to EnergyFloor and records whether it fired.
func (p *Particle) ApplyEnergyFloor() {
	if p.Ene < EnergyFloor {
		p.Ene = EnergyFloor
		p.EnergyFloored = true
	} else {
		p.EnergyFloored = false
	}
}

// RecomputeSoundSpeed sets Sound = sqrt(gamma*(gamma-1)*Ene).
func (p *Particle) RecomputeSoundSpeed(gamma float64) {
	v := gamma * (gamma - 1) * p.Ene
	if v < 0 {
		v = 0
	}
	p.Sound = math.Sqrt(v)
}
