package fluidforce

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/pthm-cable/hvccsph/bhtree"
	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/kernel"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

const neighborCapacity = 512

// FluidForce is the common contract every variant implements: write a_i and
// du_i/dt for each fluid particle, skipping is_point_mass and is_wall.
type FluidForce interface {
	Calculation(sim *simulation.Simulation)
}

// workerScratch is the per-goroutine reusable buffer set, following the
// snapshot/parallel-chunk/no-shared-write pattern used throughout this core.
type workerScratch struct {
	neighbors []int32
}

// forEachParticle runs fn(s, i) for every fluid particle index in
// parallel, using a fixed worker pool; s is the calling worker's scratch.
func forEachParticle(sim *simulation.Simulation, scratch []workerScratch, fn func(s *workerScratch, i int)) {
	n := len(sim.Particles)
	workers := len(scratch)
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
			s := &scratch[workerID]
			for i := i0; i < i1; i++ {
				p := &sim.Particles[i]
				if p.IsWall || p.IsPointMass {
					continue
				}
				fn(s, i)
			}
		}(w, i0, i1)
	}
	wg.Wait()
}

func newScratch() []workerScratch {
	workers := runtime.GOMAXPROCS(0)
	s := make([]workerScratch, workers)
	for i := range s {
		s[i].neighbors = make([]int32, 0, neighborCapacity)
	}
	return s
}

func separation(sim *simulation.Simulation, a, b vecmath.Vec) vecmath.Vec {
	if sim.Periodic != nil {
		return sim.Periodic.Separation(a, b)
	}
	return vecmath.Sub(a, b)
}

// symmetricNeighbors finds neighbors of particle i using the symmetric
// cutoff max(h_i, h_j), logging and skipping the pair on overflow (the AV
// and pressure sums simply omit particles beyond the buffer, matching the
// spec's caller-recovers contract at a coarser granularity appropriate for
// a per-step force pass).
func symmetricNeighbors(sim *simulation.Simulation, i int, s *workerScratch, logger *slog.Logger) []int32 {
	neighbors, err := sim.Tree.NeighborSearch(sim.Particles, i, s.neighbors[:0], true, sim.Periodic)
	if err != nil {
		logger.Warn("neighbor overflow in fluid force pass, truncating", "particle", sim.Particles[i].ID)
		if errors.Is(err, bhtree.ErrNeighborOverflow) {
			return s.neighbors[:cap(s.neighbors)]
		}
		return nil
	}
	return neighbors
}

func effectiveDim(cfg *config.Config) int {
	return kernel.EffectiveDim(cfg.Dimension, cfg.TwoAndHalfSim)
}
