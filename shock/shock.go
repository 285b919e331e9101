// Package shock implements a post-step diagnostic: estimate a Mach number
// at each fluid particle from the local pressure jump across the SPH
// pressure-gradient direction, recorded for output only (it feeds no force).
package shock

import (
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

const neighborCapacity = 512

// Detector estimates a shock Mach number for every fluid particle.
type Detector struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	HFactor float64 // multiplier on sml, default 1.0

	scratch []workerScratch
}

type workerScratch struct {
	neighbors []int32
}

// New constructs a shock Detector. hFactor of 0 defaults to 1.0.
func New(cfg *config.Config, logger *slog.Logger, hFactor float64) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if hFactor == 0 {
		hFactor = 1.0
	}
	workers := runtime.GOMAXPROCS(0)
	scratch := make([]workerScratch, workers)
	for i := range scratch {
		scratch[i].neighbors = make([]int32, 0, neighborCapacity)
	}
	return &Detector{Cfg: cfg, Logger: logger, HFactor: hFactor, scratch: scratch}
}

// w1DWendland is the 1D Wendland-like weight along the shock normal.
func w1DWendland(x, h float64) float64 {
	q := math.Abs(x) / h
	if q >= 1 {
		return 0
	}
	return math.Pow(1-q, 4) * (1 + 4*q) / h
}

// w2DWendland is the Wendland C4 (sigma=9/pi) weight across the normal.
func w2DWendland(r, h float64) float64 {
	q := r / h
	if q >= 1 {
		return 0
	}
	const sigma = 9.0 / math.Pi
	return sigma * math.Pow(1-q, 6) * (1 + 6*q + (35.0/3.0)*q*q) / (h * h)
}

// Calculation writes ShockSensor (an estimated Mach number) for every fluid
// particle, copies ShockMode into OldShockMode and sets the new ShockMode
// latch; no other particle field is touched.
func (d *Detector) Calculation(sim *simulation.Simulation) {
	gamma := d.Cfg.Physics.Gamma
	n := len(sim.Particles)
	workers := len(d.scratch)
	if workers > n {
		workers = 1
	}
	if workers == 0 {
		return
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		i0 := w * chunk
		i1 := i0 + chunk
		if i1 > n {
			i1 = n
		}
		if i0 >= i1 {
			continue
		}
		wg.Add(1)
		go func(workerID, i0, i1 int) {
			defer wg.Done()
			s := &d.scratch[workerID]
			for i := i0; i < i1; i++ {
				d.computeOne(sim, i, gamma, s)
			}
		}(w, i0, i1)
	}
	wg.Wait()
}

func (d *Detector) computeOne(sim *simulation.Simulation, i int, gamma float64, s *workerScratch) {
	pi := &sim.Particles[i]
	if pi.IsWall || pi.IsPointMass {
		return
	}
	hi := pi.Sml * d.HFactor

	neighbors, err := sim.Tree.NeighborSearch(sim.Particles, i, s.neighbors[:0], false, sim.Periodic)
	if err != nil {
		d.Logger.Warn("shock detector neighbor overflow", "particle", pi.ID)
	}

	var gradP vecmath.Vec
	for _, jIdx := range neighbors {
		j := int(jIdx)
		if j == i {
			continue
		}
		pj := &sim.Particles[j]
		rij := separation(sim, pi.Pos, pj.Pos)
		r := vecmath.Norm(rij)
		dw := sim.Kernel.DW(rij, r, hi, effectiveDim(d.Cfg))
		gradP = vecmath.AddScaled(gradP, dw, (pj.Pres-pi.Pres)*pj.Mass)
	}
	if pi.Dens > 0 {
		gradP = vecmath.Scale(gradP, 1/pi.Dens)
	}
	gradPMag := vecmath.Norm(gradP)
	if gradPMag < 1e-6 {
		pi.ShockSensor = 0
		return
	}
	nHat := vecmath.Scale(gradP, 1/gradPMag)

	var sumWUp, sumWDown, pUp, pDown, densUp, densDown, vUp, vDown float64
	for _, jIdx := range neighbors {
		j := int(jIdx)
		if j == i {
			continue
		}
		pj := &sim.Particles[j]
		rij := separation(sim, pi.Pos, pj.Pos)
		sij := vecmath.Dot(rij, nHat)
		rParallel := vecmath.Scale(nHat, sij)
		rPerp := vecmath.Sub(rij, rParallel)
		dPerp := vecmath.Norm(rPerp)

		switch {
		case sij < 0:
			weight := w1DWendland(-sij, hi) * w2DWendland(dPerp, hi)
			sumWUp += weight
			pUp += weight * pj.Pres
			densUp += weight * pj.Dens
			vUp += weight * vecmath.Dot(pj.Vel, nHat)
		case sij > 0:
			weight := w1DWendland(sij, hi) * w2DWendland(dPerp, hi)
			sumWDown += weight
			pDown += weight * pj.Pres
			densDown += weight * pj.Dens
			vDown += weight * vecmath.Dot(pj.Vel, nHat)
		}
	}
	if sumWUp > 0 {
		pUp /= sumWUp
		densUp /= sumWUp
		vUp /= sumWUp
	}
	if sumWDown > 0 {
		pDown /= sumWDown
		densDown /= sumWDown
		vDown /= sumWDown
	}
	mach := 0.0
	if pUp > 0 && pDown > 0 {
		ratio := pDown / pUp
		arg := 1.0 + ((ratio-1.0)*(gamma+1.0))/(2.0*gamma)
		if arg > 0 {
			mach = math.Sqrt(arg)
		}
	}
	pi.OldShockMode = pi.ShockMode
	if mach > 1 {
		pi.ShockMode = 1
	} else {
		pi.ShockMode = 0
	}
	pi.ShockSensor = mach
}

func separation(sim *simulation.Simulation, a, b vecmath.Vec) vecmath.Vec {
	if sim.Periodic != nil {
		return sim.Periodic.Separation(a, b)
	}
	return vecmath.Sub(a, b)
}

func effectiveDim(cfg *config.Config) int {
	if cfg.TwoAndHalfSim {
		return 2
	}
	return cfg.Dimension
}
