package fluidforce

import (
	"log/slog"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// DISPH is the density-independent SPH formulation: pressure is a direct
// kernel sum (computed in PreInteraction), and momentum/energy are paired
// through q = P/(gamma-1) rather than density.
type DISPH struct {
	Cfg    *config.Config
	Logger *slog.Logger

	scratch []workerScratch
}

// NewDISPH constructs a DISPH fluid-force component.
func NewDISPH(cfg *config.Config, logger *slog.Logger) *DISPH {
	if logger == nil {
		logger = slog.Default()
	}
	return &DISPH{Cfg: cfg, Logger: logger, scratch: newScratch()}
}

func (f *DISPH) Calculation(sim *simulation.Simulation) {
	effDim := effectiveDim(f.Cfg)
	gamma := f.Cfg.Physics.Gamma
	forEachParticle(sim, f.scratch, func(s *workerScratch, i int) {
		f.computeOne(sim, i, effDim, gamma, s)
	})
}

func (f *DISPH) computeOne(sim *simulation.Simulation, i, effDim int, gamma float64, s *workerScratch) {
	pi := &sim.Particles[i]
	neighbors := symmetricNeighbors(sim, i, s, f.Logger)

	qi := pi.Pres / (gamma - 1)
	if qi <= 0 || pi.Mass <= 0 {
		return
	}
	Ui := pi.Mass * pi.Ene

	var acc vecmath.Vec
	dEneMain := 0.0
	dEneVisc := 0.0

	for _, jIdx := range neighbors {
		j := int(jIdx)
		pj := &sim.Particles[j]
		if pj.IsPointMass {
			continue
		}
		qj := pj.Pres / (gamma - 1)
		if qj <= 0 {
			continue
		}
		Uj := pj.Mass * pj.Ene

		rij := separation(sim, pi.Pos, pj.Pos)
		r := vecmath.Norm(rij)
		if r <= 0 {
			continue
		}
		vij := vecmath.Sub(pi.Vel, pj.Vel)

		dwi := sim.Kernel.DW(rij, r, pi.Sml, effDim)
		dwj := sim.Kernel.DW(rij, r, pj.Sml, effDim)
		dwAvg := vecmath.Scale(vecmath.Add(dwi, dwj), 0.5)

		coef := (gamma - 1) * pi.Ene * Uj
		term := vecmath.AddScaled(vecmath.Scale(dwi, pi.GradH/qi), dwj, pj.GradH/qj)
		acc = vecmath.AddScaled(acc, term, -coef)

		pi_ij := monaghanAV(pi, pj, rij, vij, f.Cfg.AV)
		acc = vecmath.AddScaled(acc, dwAvg, -pj.Mass*pi_ij)

		dEneMain += (Ui * Uj / qi) * vecmath.Dot(vij, dwi)
		dEneVisc += 0.5 * pj.Mass * pi_ij * vecmath.Dot(vij, dwAvg)

		if f.Cfg.AC.IsValid {
			dEneVisc += pj.Mass / pj.Dens * artificialConductivity(pi, pj, rij, r, f.Cfg.AC)
		}
	}

	pi.Acc = acc
	if pi.Mass > 0 {
		pi.DEneDt = (gamma-1)*pi.GradH*dEneMain/pi.Mass + dEneVisc
	}
}
