package fluidforce

import (
	"log/slog"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// SSPH is the standard SPH formulation: pressure-gradient force from the
// kernel-derived density, plus the symmetric Monaghan artificial viscosity.
type SSPH struct {
	Cfg    *config.Config
	Logger *slog.Logger

	scratch []workerScratch
}

// NewSSPH constructs an SSPH fluid-force component.
func NewSSPH(cfg *config.Config, logger *slog.Logger) *SSPH {
	if logger == nil {
		logger = slog.Default()
	}
	return &SSPH{Cfg: cfg, Logger: logger, scratch: newScratch()}
}

func (f *SSPH) Calculation(sim *simulation.Simulation) {
	effDim := effectiveDim(f.Cfg)
	forEachParticle(sim, f.scratch, func(s *workerScratch, i int) {
		f.computeOne(sim, i, effDim, s)
	})
}

func (f *SSPH) computeOne(sim *simulation.Simulation, i, effDim int, s *workerScratch) {
	pi := &sim.Particles[i]
	neighbors := symmetricNeighbors(sim, i, s, f.Logger)

	var acc vecmath.Vec
	dEne := 0.0
	rho2i := pi.Dens * pi.Dens
	if rho2i <= 0 {
		return
	}
	piTerm := pi.Pres * pi.GradH / rho2i

	for _, jIdx := range neighbors {
		j := int(jIdx)
		pj := &sim.Particles[j]
		if pj.IsPointMass {
			continue
		}
		rij := separation(sim, pi.Pos, pj.Pos)
		r := vecmath.Norm(rij)
		if r <= 0 {
			continue
		}
		vij := vecmath.Sub(pi.Vel, pj.Vel)

		dwi := sim.Kernel.DW(rij, r, pi.Sml, effDim)
		dwj := sim.Kernel.DW(rij, r, pj.Sml, effDim)
		dwAvg := vecmath.Scale(vecmath.Add(dwi, dwj), 0.5)

		rho2j := pj.Dens * pj.Dens
		pjTerm := 0.0
		if rho2j > 0 {
			pjTerm = pj.Pres * pj.GradH / rho2j
		}

		pi_ij := monaghanAV(pi, pj, rij, vij, f.Cfg.AV)

		accTerm := vecmath.AddScaled(vecmath.Scale(dwi, piTerm), dwj, pjTerm)
		accTerm = vecmath.Add(accTerm, vecmath.Scale(dwAvg, pi_ij))
		acc = vecmath.AddScaled(acc, accTerm, -pj.Mass)

		dEne += pj.Mass * (piTerm*vecmath.Dot(vij, dwi) + 0.5*pi_ij*vecmath.Dot(vij, dwAvg))

		if f.Cfg.AC.IsValid {
			dEne += pj.Mass / pj.Dens * artificialConductivity(pi, pj, rij, r, f.Cfg.AC)
		}
	}

	pi.Acc = acc
	pi.DEneDt = dEne
}
