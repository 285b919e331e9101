package relaxation

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

const (
	polytropicN     = 1.5
	polytropicGamma = 5.0 / 3.0
	centralDensity  = 1.0
	polytropicK     = 1.0
)

// Relaxation subtracts a radial Lane-Emden restoring force from each fluid
// particle's acceleration and damps velocity, settling the distribution
// onto the n=1.5 polytropic profile.
type Relaxation struct {
	Cfg    *config.Config
	Table  *Table
	Logger *slog.Logger

	lastMaxDisplacement float64
	converged           bool
}

// New constructs a Relaxation hook bound to a loaded Lane-Emden table.
func New(cfg *config.Config, table *Table, logger *slog.Logger) *Relaxation {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relaxation{Cfg: cfg, Table: table, Logger: logger}
}

// Converged reports whether the last Calculation observed every particle's
// damped speed fall under density_relaxation.velocity_threshold.
func (r *Relaxation) Converged() bool { return r.converged }

// Calculation applies the relaxation force and damping to every fluid
// particle, and updates the convergence flag from the peak velocity
// observed this step.
func (r *Relaxation) Calculation(sim *simulation.Simulation) {
	cfg := r.Cfg.DensityRelaxation
	if !cfg.IsValid {
		return
	}
	alpha := cfg.AlphaScaling
	if alpha == 0 {
		alpha = 1.0
	}
	nGamma := polytropicN * polytropicGamma
	prefactor := polytropicK * nGamma * math.Pow(centralDensity, polytropicGamma-1) / alpha

	damping := cfg.DampingFactor
	if damping <= 0 {
		damping = 1.0 // matches the source's unconditional velocity reset
	}

	maxSpeed := 0.0
	for i := range sim.Particles {
		p := &sim.Particles[i]
		if p.IsWall || p.IsPointMass {
			continue
		}

		rPhys := vecmath.Norm(p.Pos)
		if rPhys < 1e-12 {
			continue
		}
		xi := rPhys / alpha
		theta := r.Table.Theta(xi)
		if theta < 1e-12 {
			continue
		}
		dTheta := r.Table.DTheta(xi)
		aR := -prefactor * dTheta

		eR := vecmath.Scale(p.Pos, 1/rPhys)
		relaxAcc := vecmath.Scale(eR, aR)
		p.Acc = vecmath.Sub(p.Acc, relaxAcc)

		p.Vel = vecmath.Scale(p.Vel, 1-damping)
		speed := vecmath.Norm(p.Vel)
		if speed > maxSpeed {
			maxSpeed = speed
		}
	}

	r.lastMaxDisplacement = maxSpeed
	r.converged = maxSpeed < cfg.VelocityThreshold
}
