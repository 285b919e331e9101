// Package preinteraction finds, for every fluid particle, the smoothing
// length that reproduces the target neighbor count, then accumulates
// density, pressure, the artificial-viscosity switches, and (for the
// Godunov variants) the gradients used by second-order reconstruction.
package preinteraction

import (
	"errors"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/pthm-cable/hvccsph/bhtree"
	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/kernel"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

const (
	maxNewtonIterations = 10
	newtonEpsilon       = 1e-4
	neighborCapacity    = 512
)

// PreInteraction computes smoothing length, density, pressure, and the AV
// switches for one configured SPH variant.
type PreInteraction struct {
	Cfg    *config.Config
	Kernel kernel.Kernel
	Logger *slog.Logger

	// per-worker scratch, one slot per goroutine, reused across steps.
	scratch []workerScratch
}

type workerScratch struct {
	neighbors []int32
}

// New creates a PreInteraction bound to cfg and kernel k.
func New(cfg *config.Config, k kernel.Kernel, logger *slog.Logger) *PreInteraction {
	if logger == nil {
		logger = slog.Default()
	}
	workers := runtime.GOMAXPROCS(0)
	scratch := make([]workerScratch, workers)
	for i := range scratch {
		scratch[i].neighbors = make([]int32, 0, neighborCapacity)
	}
	return &PreInteraction{Cfg: cfg, Kernel: k, Logger: logger, scratch: scratch}
}

// Calculation performs the full pre-interaction pass over every fluid
// particle in sim, in parallel, and reduces the global minimum h/v_sig into
// sim.HPerVSigMin.
func (pi *PreInteraction) Calculation(sim *simulation.Simulation) {
	n := len(sim.Particles)
	if n == 0 {
		sim.HPerVSigMin = math.Inf(1)
		return
	}
	workers := len(pi.scratch)
	if workers > n {
		workers = 1
	}
	chunk := (n + workers - 1) / workers

	hPerVSigMin := make([]float64, workers)
	for w := range hPerVSigMin {
		hPerVSigMin[w] = math.Inf(1)
	}

	effDim := kernel.EffectiveDim(pi.Cfg.Dimension, pi.Cfg.TwoAndHalfSim)
	needGradients := pi.Cfg.SPHType == config.GSPH || pi.Cfg.SPHType == config.GDISPH

	var gradDens, gradPres []vecmath.Vec
	var gradVel [3][]vecmath.Vec
	if needGradients {
		gradDens = sim.VecScratch("grad_density")
		gradPres = sim.VecScratch("grad_pressure")
		for d := 0; d < 3; d++ {
			gradVel[d] = sim.VecScratch(gradVelName(d))
		}
	}

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
			s := &pi.scratch[workerID]
			for i := i0; i < i1; i++ {
				p := &sim.Particles[i]
				if p.IsWall || p.IsPointMass {
					continue
				}
				vSigLocal := pi.computeOne(sim, i, effDim, s, needGradients, gradDens, gradPres, gradVel)
				if vSigLocal < hPerVSigMin[workerID] {
					hPerVSigMin[workerID] = vSigLocal
				}
			}
		}(w, i0, i1)
	}
	wg.Wait()

	global := math.Inf(1)
	for _, v := range hPerVSigMin {
		if v < global {
			global = v
		}
	}
	sim.HPerVSigMin = global
}

func gradVelName(component int) string {
	switch component {
	case 0:
		return "grad_velocity_0"
	case 1:
		return "grad_velocity_1"
	default:
		return "grad_velocity_2"
	}
}

// computeOne runs Newton-Raphson smoothing-length convergence, density,
// pressure, the AV switches, and (if needed) the gradient scratch arrays
// for a single particle. Returns h/v_sig for this particle, used by the
// caller's reduction.
func (pi *PreInteraction) computeOne(sim *simulation.Simulation, i, effDim int, s *workerScratch, needGradients bool, gradDens, gradPres []vecmath.Vec, gradVel [3][]vecmath.Vec) float64 {
	p := &sim.Particles[i]
	cfg := pi.Cfg

	hPrev := p.Sml
	h, dens, neighbors, converged := pi.newtonRaphson(sim, i, effDim, s)
	if !converged {
		if hPrev > 0 {
			p.Sml = hPrev
		}
		pi.Logger.Warn("smoothing length did not converge, retaining previous value", "particle", p.ID, "h", p.Sml)
		h = p.Sml
		// recompute neighbor list and density consistently with the
		// retained h before continuing.
		var err error
		neighbors, err = sim.Tree.NeighborSearch(sim.Particles, i, s.neighbors[:0], false, sim.Periodic)
		if err != nil {
			neighbors = nil
		}
		dens = pi.densityAt(sim, i, h, effDim, neighbors)
	}
	p.Sml = h
	p.Dens = dens
	p.Neighbor = int32(len(neighbors))

	gamma := cfg.Physics.Gamma

	switch cfg.SPHType {
	case config.DISPH, config.GDISPH:
		pi.computeDISPHPressure(sim, i, h, effDim, neighbors, gamma)
	default:
		p.Pres = (gamma - 1) * p.Dens * p.Ene
		p.GradH = gradHSSPH(sim, i, h, effDim, neighbors, cfg.Physics.NeighborNumber, cfg.Derived.NeighborArea)
	}
	p.Volume = p.Mass / p.Dens

	divV, curlMag := pi.divCurl(sim, i, h, effDim, neighbors)
	pi.updateAVSwitch(sim, i, effDim, divV, curlMag)

	if needGradients {
		pi.populateGradients(sim, i, h, effDim, neighbors, gamma, gradDens, gradPres, gradVel)
	}

	vSig := p.Sound + 1.2*cfg.AV.Alpha*p.Sound
	if vSig <= 0 {
		return math.Inf(1)
	}
	return p.Sml / vSig
}

// newtonRaphson finds h such that dens(h)*h^effDim == m*N_nb/A_d.
func (pi *PreInteraction) newtonRaphson(sim *simulation.Simulation, i, effDim int, s *workerScratch) (h, dens float64, neighbors []int32, converged bool) {
	cfg := pi.Cfg
	p := &sim.Particles[i]
	A := cfg.Derived.NeighborArea
	Nnb := cfg.Physics.NeighborNumber
	b := p.Mass * Nnb / A

	h = p.Sml
	if h <= 0 {
		rho0 := p.Dens
		if rho0 <= 0 {
			rho0 = 1.0
		}
		h = math.Pow(Nnb*p.Mass/rho0/A, 1.0/float64(effDim))
	}

	if !cfg.Physics.IterativeSML {
		p.Sml = h
		var err error
		neighbors, err = sim.Tree.NeighborSearch(sim.Particles, i, s.neighbors[:0], false, sim.Periodic)
		if err != nil {
			neighbors = nil
		}
		dens = pi.densityAt(sim, i, h, effDim, neighbors)
		return h, dens, neighbors, true
	}

	deff := float64(effDim)
	for iter := 0; iter < maxNewtonIterations; iter++ {
		p.Sml = h
		var err error
		neighbors, err = sim.Tree.NeighborSearch(sim.Particles, i, s.neighbors[:0], false, sim.Periodic)
		if errors.Is(err, bhtree.ErrNeighborOverflow) {
			// fall back to whatever fit, still attempt convergence with it
			neighbors = s.neighbors[:cap(s.neighbors)]
		} else if err != nil {
			neighbors = nil
		}

		d, dd := 0.0, 0.0
		for _, jIdx := range neighbors {
			j := int(jIdx)
			pj := &sim.Particles[j]
			rij := separation(sim, p.Pos, pj.Pos)
			r := vecmath.Norm(rij)
			d += pj.Mass * sim.Kernel.W(rij, r, h, effDim)
			dd += pj.Mass * sim.Kernel.DHW(r, h, effDim)
		}

		f := d*math.Pow(h, deff) - b
		df := dd*math.Pow(h, deff) + deff*d*math.Pow(h, deff-1)
		if df == 0 {
			return h, d, neighbors, false
		}
		hNew := h - f/df
		if hNew <= 0 {
			hNew = h * 0.5
		}
		if math.Abs(hNew-h) < newtonEpsilon*(hNew+h) {
			return hNew, d, neighbors, true
		}
		h = hNew
	}
	return h, dens, neighbors, false
}

func (pi *PreInteraction) densityAt(sim *simulation.Simulation, i int, h float64, effDim int, neighbors []int32) float64 {
	p := &sim.Particles[i]
	d := 0.0
	for _, jIdx := range neighbors {
		j := int(jIdx)
		pj := &sim.Particles[j]
		rij := separation(sim, p.Pos, pj.Pos)
		r := vecmath.Norm(rij)
		d += pj.Mass * sim.Kernel.W(rij, r, h, effDim)
	}
	return d
}

func separation(sim *simulation.Simulation, a, b vecmath.Vec) vecmath.Vec {
	if sim.Periodic != nil {
		return sim.Periodic.Separation(a, b)
	}
	return vecmath.Sub(a, b)
}

// gradHSSPH computes the SSPH/GSPH grad-h correction
// f_h = 1 / (1 + h/(d*rho) * drho/dh).
func gradHSSPH(sim *simulation.Simulation, i int, h float64, effDim int, neighbors []int32, nnb, area float64) float64 {
	p := &sim.Particles[i]
	dRhoDh := 0.0
	for _, jIdx := range neighbors {
		j := int(jIdx)
		pj := &sim.Particles[j]
		rij := separation(sim, p.Pos, pj.Pos)
		r := vecmath.Norm(rij)
		dRhoDh += pj.Mass * sim.Kernel.DHW(r, h, effDim)
	}
	if p.Dens <= 0 {
		return 1.0
	}
	denom := 1.0 + (h/(float64(effDim)*p.Dens))*dRhoDh
	if denom == 0 {
		return 1.0
	}
	return 1.0 / denom
}

// computeDISPHPressure implements the DISPH/GDISPH pressure-as-kernel-sum
// formulation: P_i = (gamma-1) * sum_j m_j u_j W_ij(h_i), with its own
// grad-h correction from d(m u W)/dh and dW/dh.
func (pi *PreInteraction) computeDISPHPressure(sim *simulation.Simulation, i int, h float64, effDim int, neighbors []int32, gamma float64) {
	p := &sim.Particles[i]
	presSum := 0.0
	dPresSum := 0.0
	for _, jIdx := range neighbors {
		j := int(jIdx)
		pj := &sim.Particles[j]
		rij := separation(sim, p.Pos, pj.Pos)
		r := vecmath.Norm(rij)
		w := sim.Kernel.W(rij, r, h, effDim)
		dhw := sim.Kernel.DHW(r, h, effDim)
		presSum += pj.Mass * pj.Ene * w
		dPresSum += pj.Mass * pj.Ene * dhw
	}
	p.Pres = (gamma - 1) * presSum
	if presSum <= 0 {
		p.GradH = 1.0
		return
	}
	denom := 1.0 + (h/(float64(effDim)*presSum))*dPresSum
	if denom == 0 {
		denom = 1.0
	}
	p.GradH = 1.0 / denom
}

// divCurl computes the SPH estimate of div(v) and |curl(v)| at particle i,
// used by the Balsara switch.
func (pi *PreInteraction) divCurl(sim *simulation.Simulation, i int, h float64, effDim int, neighbors []int32) (divV, curlMag float64) {
	p := &sim.Particles[i]
	if p.Dens <= 0 {
		return 0, 0
	}
	var curl vecmath.Vec
	for _, jIdx := range neighbors {
		j := int(jIdx)
		pj := &sim.Particles[j]
		rij := separation(sim, p.Pos, pj.Pos)
		r := vecmath.Norm(rij)
		dw := sim.Kernel.DW(rij, r, h, effDim)
		vij := vecmath.Sub(pj.Vel, p.Vel)
		divV += pj.Mass * vecmath.Dot(vij, dw)
		curl = vecmath.Add(curl, vecmath.Scale(cross(vij, dw), pj.Mass))
	}
	divV /= p.Dens
	curl = vecmath.Scale(curl, 1/p.Dens)
	curlMag = vecmath.Norm(curl)
	return divV, curlMag
}

func cross(a, b vecmath.Vec) vecmath.Vec {
	return vecmath.Vec{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// updateAVSwitch sets the Balsara switch beta and evolves the
// time-dependent alpha per the configured artificial viscosity options.
func (pi *PreInteraction) updateAVSwitch(sim *simulation.Simulation, i, effDim int, divV, curlMag float64) {
	cfg := pi.Cfg
	p := &sim.Particles[i]

	if cfg.AV.UseBalsaraSwitch && effDim > 1 {
		eps := cfg.AV.Epsilon
		denom := math.Abs(divV) + curlMag + eps*p.Sound/p.Sml
		if denom > 0 {
			p.Balsara = math.Abs(divV) / denom
		} else {
			p.Balsara = 0
		}
	} else {
		p.Balsara = 1.0
	}

	if cfg.AV.UseTimeDependentAV {
		if p.Alpha == 0 {
			p.Alpha = cfg.AV.Alpha
		}
		tau := p.Sml / (cfg.AV.Epsilon * p.Sound)
		dAlpha := -(p.Alpha-cfg.AV.AlphaMin)/tau + math.Max(-divV, 0)*(cfg.AV.AlphaMax-cfg.AV.AlphaMin)
		p.Alpha += dAlpha * sim.Dt
		if p.Alpha < cfg.AV.AlphaMin {
			p.Alpha = cfg.AV.AlphaMin
		}
		if p.Alpha > cfg.AV.AlphaMax {
			p.Alpha = cfg.AV.AlphaMax
		}
	} else {
		p.Alpha = cfg.AV.Alpha
	}
}

// populateGradients computes grad(rho), grad(P), grad(v) by SPH
// differencing, consumed by GSPH/GDISPH's second-order reconstruction.
func (pi *PreInteraction) populateGradients(sim *simulation.Simulation, i int, h float64, effDim int, neighbors []int32, gamma float64, gradDens, gradPres []vecmath.Vec, gradVel [3][]vecmath.Vec) {
	p := &sim.Particles[i]
	var gRho, gP vecmath.Vec
	var gVelComponents [3]vecmath.Vec

	for _, jIdx := range neighbors {
		j := int(jIdx)
		pj := &sim.Particles[j]
		rij := separation(sim, p.Pos, pj.Pos)
		r := vecmath.Norm(rij)
		dw := sim.Kernel.DW(rij, r, h, effDim)

		gRho = vecmath.AddScaled(gRho, dw, pj.Mass)
		gP = vecmath.AddScaled(gP, dw, (gamma-1)*pj.Mass*pj.Ene)

		vij := vecmath.Sub(pj.Vel, p.Vel)
		for d := 0; d < 3; d++ {
			gVelComponents[d] = vecmath.AddScaled(gVelComponents[d], dw, pj.Mass*vij[d])
		}
	}
	gradDens[i] = gRho
	gradPres[i] = gP
	if p.Dens > 0 {
		for d := 0; d < 3; d++ {
			gradVel[d][i] = vecmath.Scale(gVelComponents[d], 1/p.Dens)
		}
	}
}
