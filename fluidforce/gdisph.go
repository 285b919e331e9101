package fluidforce

import (
	"log/slog"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// GDISPH combines DISPH's q = P/(gamma-1) volume pairing with a Godunov
// viscous correction: the plain DISPH force is supplemented by the HLL
// star-pressure's departure from the particle's own pressure, applied
// through that particle's own kernel gradient.
type GDISPH struct {
	Cfg    *config.Config
	Logger *slog.Logger

	scratch []workerScratch
}

// NewGDISPH constructs a GDISPH fluid-force component.
func NewGDISPH(cfg *config.Config, logger *slog.Logger) *GDISPH {
	if logger == nil {
		logger = slog.Default()
	}
	return &GDISPH{Cfg: cfg, Logger: logger, scratch: newScratch()}
}

func (f *GDISPH) Calculation(sim *simulation.Simulation) {
	effDim := effectiveDim(f.Cfg)
	gamma := f.Cfg.Physics.Gamma
	forEachParticle(sim, f.scratch, func(s *workerScratch, i int) {
		f.computeOne(sim, i, effDim, gamma, s)
	})
}

func (f *GDISPH) computeOne(sim *simulation.Simulation, i, effDim int, gamma float64, s *workerScratch) {
	pi := &sim.Particles[i]
	neighbors := symmetricNeighbors(sim, i, s, f.Logger)

	qi := pi.Pres / (gamma - 1)
	if qi <= 0 || pi.Mass <= 0 {
		return
	}
	Ui := pi.Mass * pi.Ene
	rho2i := pi.Dens * pi.Dens

	var acc vecmath.Vec
	dEneMain := 0.0
	dEneDirect := 0.0

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
		e := vecmath.Scale(rij, 1/r)
		vij := vecmath.Sub(pi.Vel, pj.Vel)
		vei := vecmath.Dot(pi.Vel, e)
		vej := vecmath.Dot(pj.Vel, e)

		dwi := sim.Kernel.DW(rij, r, pi.Sml, effDim)
		dwj := sim.Kernel.DW(rij, r, pj.Sml, effDim)

		// DISPH base momentum. Unlike GSPH, GDISPH always uses the HLL
		// solver for viscous stress (below), so there is no fallback
		// Monaghan AV term here.
		coef := (gamma - 1) * pi.Ene * Uj
		term := vecmath.AddScaled(vecmath.Scale(dwi, pi.GradH/qi), dwj, pj.GradH/qj)
		acc = vecmath.AddScaled(acc, term, -coef)

		dEneMain += (Ui * Uj / qi) * vecmath.Dot(vij, dwi)

		// Godunov viscous-stress correction: the HLL star pressure's
		// departure from this particle's own pressure, applied through
		// this particle's own kernel gradient. pj's own pass over i
		// contributes the symmetric half.
		if rho2i > 0 {
			left := RiemannState{V: vei, Dens: pi.Dens, Pres: pi.Pres, Sound: pi.Sound}
			right := RiemannState{V: vej, Dens: pj.Dens, Pres: pj.Pres, Sound: pj.Sound}
			res := SolveHLL(left, right)
			dP := res.PStar - pi.Pres
			acc = vecmath.AddScaled(acc, dwi, -pj.Mass*dP/rho2i)
			dEneDirect += pj.Mass * dP * (res.VStar - vei) * vecmath.Dot(e, dwi) / rho2i
		}

		if f.Cfg.AC.IsValid {
			dEneDirect += pj.Mass / pj.Dens * artificialConductivity(pi, pj, rij, r, f.Cfg.AC)
		}
	}

	pi.Acc = acc
	if pi.Mass > 0 {
		pi.DEneDt = (gamma-1)*pi.GradH*dEneMain/pi.Mass + dEneDirect
	}
}
