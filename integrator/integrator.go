// Package integrator drives the kick-drift-kick (velocity Verlet) time
// integration loop: predict at the half step, recompute forces at the
// predicted state, then correct.
package integrator

import (
	"log/slog"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/fluidforce"
	"github.com/pthm-cable/hvccsph/gravity"
	"github.com/pthm-cable/hvccsph/heatingcooling"
	"github.com/pthm-cable/hvccsph/preinteraction"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/timestep"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// Hook is a side-effecting pass run once per step, used for the optional
// Lane-Emden relaxation force and shock-detection diagnostic.
type Hook interface {
	Calculation(sim *simulation.Simulation)
}

// Integrator owns the components a full force evaluation needs and advances
// the simulation one kick-drift-kick cycle at a time.
type Integrator struct {
	Cfg    *config.Config
	Logger *slog.Logger

	Pre     *preinteraction.PreInteraction
	Fluid   fluidforce.FluidForce
	Gravity *gravity.GravityForce
	Heating *heatingcooling.HeatingCooling
	TS      *timestep.TimeStep

	// Relaxation and Shock are optional hooks; nil disables them.
	// Relaxation runs at the end of every force evaluation; Shock runs
	// once per Step, after the force re-evaluation and before the
	// correcting half kick.
	Relaxation Hook
	Shock      Hook

	primed bool
}

// New wires the standard component set for the configured SPH variant.
func New(cfg *config.Config, logger *slog.Logger, pre *preinteraction.PreInteraction, fluid fluidforce.FluidForce, grav *gravity.GravityForce, heat *heatingcooling.HeatingCooling, ts *timestep.TimeStep) *Integrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Integrator{Cfg: cfg, Logger: logger, Pre: pre, Fluid: fluid, Gravity: grav, Heating: heat, TS: ts}
}

// evaluateForces rebuilds the tree from current positions and runs the
// pre-interaction, fluid-force, gravity and heating/cooling passes in
// sequence, leaving Acc and DEneDt populated for every fluid particle.
func (it *Integrator) evaluateForces(sim *simulation.Simulation) error {
	if err := sim.MakeTree(); err != nil {
		return err
	}
	it.Pre.Calculation(sim)
	for i := range sim.Particles {
		sim.Particles[i].Acc = vecmath.Zero()
		sim.Particles[i].DEneDt = 0
	}
	it.Fluid.Calculation(sim)
	it.Gravity.Calculation(sim)
	it.Heating.Calculation(sim)
	if it.Relaxation != nil {
		it.Relaxation.Calculation(sim)
	}
	return nil
}

// Prime runs the first force evaluation against the simulation's initial
// state. Must be called once before the first call to Step.
func (it *Integrator) Prime(sim *simulation.Simulation) error {
	if err := it.evaluateForces(sim); err != nil {
		return err
	}
	it.primed = true
	return nil
}

// Step advances sim by one kick-drift-kick cycle: a half kick to predicted
// velocity and energy, a drift of position by the predicted velocity, a
// force re-evaluation at the drifted state, and a correcting half kick. It
// returns the dt actually taken.
func (it *Integrator) Step(sim *simulation.Simulation) (float64, error) {
	if !it.primed {
		if err := it.Prime(sim); err != nil {
			return 0, err
		}
	}

	dt := it.TS.Calculation(sim)
	sim.Dt = dt
	half := 0.5 * dt

	for i := range sim.Particles {
		p := &sim.Particles[i]
		if !p.Integrable() {
			continue
		}
		p.VelP = vecmath.AddScaled(p.Vel, p.Acc, half)
		p.EneP = p.Ene + half*p.DEneDt
		if p.EneP < 0 {
			p.EneP = 0
		}
	}

	for i := range sim.Particles {
		p := &sim.Particles[i]
		if !p.Integrable() {
			continue
		}
		p.Pos = vecmath.AddScaled(p.Pos, p.VelP, dt)
		if it.Cfg.TwoAndHalfSim {
			p.Pos.ZeroComponent(2)
		}
		if sim.Periodic != nil && sim.Periodic.Enabled {
			p.Pos = sim.Periodic.Wrap(p.Pos)
		}
	}
	sim.Tree.MarkStale()

	if err := it.evaluateForces(sim); err != nil {
		return dt, err
	}
	if it.Shock != nil {
		it.Shock.Calculation(sim)
	}

	for i := range sim.Particles {
		p := &sim.Particles[i]
		if !p.Integrable() {
			continue
		}
		p.Vel = vecmath.AddScaled(p.VelP, p.Acc, half)
		p.Ene = p.EneP + half*p.DEneDt
		p.ApplyEnergyFloor()
		if p.EnergyFloored {
			it.Logger.Warn("energy floor applied", "particle", p.ID, "time", sim.Time)
		}
		p.RecomputeSoundSpeed(it.Cfg.Physics.Gamma)
	}

	sim.Time += dt
	sim.Step++
	return dt, nil
}
