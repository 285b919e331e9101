// Package timestep computes the single global time step shared by every
// particle in the kick-drift-kick integrator, bounded by the CFL condition
// on sound crossing, the local force, and the energy change rate.
package timestep

import (
	"math"
	"runtime"
	"sync"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// TimeStep reduces a single global dt across all fluid particles.
type TimeStep struct {
	Cfg *config.Config
}

// New constructs a TimeStep component.
func New(cfg *config.Config) *TimeStep {
	return &TimeStep{Cfg: cfg}
}

// Calculation returns the minimum allowed dt across every fluid particle,
// further bounded by the signal-velocity estimate accumulated into
// sim.HPerVSigMin during PreInteraction.
func (t *TimeStep) Calculation(sim *simulation.Simulation) float64 {
	n := len(sim.Particles)
	if n == 0 {
		return t.Cfg.Time.End - t.Cfg.Time.Start
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = 1
	}
	if workers == 0 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers

	partial := make([]float64, workers)
	for w := range partial {
		partial[w] = math.Inf(1)
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
		go func(w, i0, i1 int) {
			defer wg.Done()
			local := math.Inf(1)
			for i := i0; i < i1; i++ {
				p := &sim.Particles[i]
				if !p.Integrable() {
					continue
				}

				if p.Sound > 0 {
					local = math.Min(local, t.Cfg.CFL.Sound*p.Sml/p.Sound)
				}

				accMag := vecmath.Norm(p.Acc)
				if accMag > 0 && p.Sml > 0 {
					local = math.Min(local, t.Cfg.CFL.Force*math.Sqrt(p.Sml/accMag))
				}

				if p.DEneDt != 0 && p.Ene > 0 {
					local = math.Min(local, t.Cfg.CFL.Ene*math.Abs(p.Ene/p.DEneDt))
				}
			}
			partial[w] = local
		}(w, i0, i1)
	}
	wg.Wait()

	dt := math.Inf(1)
	for _, v := range partial {
		dt = math.Min(dt, v)
	}

	if sim.HPerVSigMin > 0 && !math.IsInf(sim.HPerVSigMin, 1) {
		dt = math.Min(dt, t.Cfg.CFL.Sound*sim.HPerVSigMin)
	}

	if math.IsInf(dt, 1) {
		dt = t.Cfg.Time.End - t.Cfg.Time.Start
	}
	return dt
}
