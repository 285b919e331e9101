package fluidforce

import (
	"log/slog"
	"sync"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// GSPH is the Godunov SPH formulation: the pairwise pressure force is
// replaced by the (P*, v*) solution of a one-dimensional HLL Riemann
// problem along the interparticle axis, blended with a plain
// pressure-average term by the pair's Balsara weight.
type GSPH struct {
	Cfg    *config.Config
	Logger *slog.Logger

	scratch  []workerScratch
	warnOnce sync.Once
}

// NewGSPH constructs a GSPH fluid-force component.
func NewGSPH(cfg *config.Config, logger *slog.Logger) *GSPH {
	if logger == nil {
		logger = slog.Default()
	}
	return &GSPH{Cfg: cfg, Logger: logger, scratch: newScratch()}
}

func (f *GSPH) Calculation(sim *simulation.Simulation) {
	effDim := effectiveDim(f.Cfg)
	// Looked up once here: VecScratch may insert into the simulation's
	// scratch map, which the workers below must not do concurrently.
	gradDens := sim.VecScratch("grad_density")
	gradPres := sim.VecScratch("grad_pressure")
	forEachParticle(sim, f.scratch, func(s *workerScratch, i int) {
		f.computeOne(sim, i, effDim, s, gradDens, gradPres)
	})
}

func (f *GSPH) computeOne(sim *simulation.Simulation, i, effDim int, s *workerScratch, gradDens, gradPres []vecmath.Vec) {
	pi := &sim.Particles[i]
	neighbors := symmetricNeighbors(sim, i, s, f.Logger)

	var acc vecmath.Vec
	dEne := 0.0
	rho2i := pi.Dens * pi.Dens
	if rho2i <= 0 {
		return
	}

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
		e := vecmath.Scale(rij, 1/r)
		vij := vecmath.Sub(pi.Vel, pj.Vel)

		vei := vecmath.Dot(pi.Vel, e)
		vej := vecmath.Dot(pj.Vel, e)
		presI, presJ, densI, densJ := pi.Pres, pj.Pres, pi.Dens, pj.Dens

		if f.Cfg.GSPHOpts.Is2ndOrder && i < len(gradPres) && j < len(gradPres) {
			delta := 0.5 * (1 - 0.5*(pi.Sound+pj.Sound)*sim.Dt/r)
			slopeP := Limiter(vecmath.Dot(gradPres[i], e), vecmath.Dot(gradPres[j], e))
			slopeRho := Limiter(vecmath.Dot(gradDens[i], e), vecmath.Dot(gradDens[j], e))
			presI += delta * r * slopeP
			presJ -= delta * r * slopeP
			densI += delta * r * slopeRho
			densJ -= delta * r * slopeRho
		}

		left := RiemannState{V: vei, Dens: densI, Pres: presI, Sound: pi.Sound}
		right := RiemannState{V: vej, Dens: densJ, Pres: presJ, Sound: pj.Sound}

		avgSound := 0.5 * (pi.Sound + pj.Sound)
		dynThreshold := 0.1 * avgSound
		rv := vecmath.Dot(vij, e)

		var riemannP, riemannV float64
		if rv < -dynThreshold {
			res := SolveHLL(left, right)
			riemannP, riemannV = res.PStar, res.VStar
		} else {
			// Not strongly converging: the heuristic (of uncertain
			// provenance in the source) falls back to the plain pressure
			// average instead of a full Riemann solve.
			f.warnOnce.Do(func() {
				f.Logger.Info("gsph: using SPH-mode pressure fallback instead of HLL for weakly-converging pairs (heuristic switch)")
			})
			riemannP = 0.5 * (presI + presJ)
			riemannV = 0.5 * (vei + vej)
		}

		pureP := 0.5 * (presI + presJ)
		pureV := 0.5 * (vei + vej)

		dwi := sim.Kernel.DW(rij, r, pi.Sml, effDim)
		dwj := sim.Kernel.DW(rij, r, pj.Sml, effDim)
		dwAvg := vecmath.Scale(vecmath.Add(dwi, dwj), 0.5)

		balsara := 0.5 * (pi.Balsara + pj.Balsara)

		rho2j := pj.Dens * pj.Dens
		invRhoSum := 1 / rho2i
		if rho2j > 0 {
			invRhoSum += 1 / rho2j
		}

		riemannAccTerm := vecmath.Scale(dwAvg, riemannP*invRhoSum)
		sphAccTerm := vecmath.Scale(dwAvg, pureP*invRhoSum)
		if !(rv < -dynThreshold) {
			// SPH-mode branch supplements the plain pressure force with
			// explicit viscosity, the way SSPH/DISPH do.
			piIJ := monaghanAV(pi, pj, rij, vij, f.Cfg.AV)
			sphAccTerm = vecmath.Add(sphAccTerm, vecmath.Scale(dwAvg, piIJ))
		}
		blendedAcc := vecmath.AddScaled(vecmath.Scale(riemannAccTerm, balsara), sphAccTerm, 1-balsara)
		acc = vecmath.AddScaled(acc, blendedAcc, -pj.Mass)

		riemannEneTerm := riemannP * (riemannV - vei) / rho2i * vecmath.Dot(e, dwi)
		sphEneTerm := pureP * (pureV - vei) / rho2i * vecmath.Dot(e, dwi)
		dEne += pj.Mass * (balsara*riemannEneTerm + (1-balsara)*sphEneTerm)

		if f.Cfg.AC.IsValid {
			dEne += pj.Mass / pj.Dens * artificialConductivity(pi, pj, rij, r, f.Cfg.AC)
		}
	}

	pi.Acc = acc
	pi.DEneDt = dEne
}
