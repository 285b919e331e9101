// Package gravity applies self-gravity (via the shared Barnes-Hut tree) and
// direct point-mass gravity to every fluid particle.
package gravity

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/pthm-cable/hvccsph/bhtree"
	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/simulation"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// GravityForce writes a_i and phi_i for every fluid particle: a tree-walked
// self-gravity term plus a direct sum over particles flagged IsPointMass.
// The point-mass sum adds to a_i only; phi_i is the tree potential alone.
type GravityForce struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// New constructs a GravityForce component.
func New(cfg *config.Config, logger *slog.Logger) *GravityForce {
	if logger == nil {
		logger = slog.Default()
	}
	return &GravityForce{Cfg: cfg, Logger: logger}
}

// Calculation adds self-gravity and point-mass gravity into each fluid
// particle's Acc, and records the tree self-gravity potential in Phi (point
// masses contribute no potential term). It does
// not reset Acc: callers run this after the fluid-force pass so the
// pressure/viscosity acceleration already written by FluidForce is
// preserved.
func (f *GravityForce) Calculation(sim *simulation.Simulation) {
	if !f.Cfg.Gravity.IsValid {
		return
	}
	g := f.Cfg.Gravity.Constant
	theta := f.Cfg.Gravity.Theta

	pointMasses := make([]int, 0)
	for i := range sim.Particles {
		if sim.Particles[i].IsPointMass {
			pointMasses = append(pointMasses, i)
		}
	}

	n := len(sim.Particles)
	workers := runtime.GOMAXPROCS(0)
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
		go func(i0, i1 int) {
			defer wg.Done()
			for i := i0; i < i1; i++ {
				p := &sim.Particles[i]
				if p.IsWall {
					continue
				}

				treeAcc, phi := sim.Tree.TreeForce(sim.Particles, i, theta, g)
				acc := treeAcc
				if !p.IsPointMass {
					for _, jIdx := range pointMasses {
						if jIdx == i {
							continue
						}
						pj := &sim.Particles[jIdx]
						pm := vecmath.Scale(bhtree.PointMassGravity(p.Pos, pj.Pos, p.Sml, pj.Sml, pj.Mass), g)
						acc = vecmath.Add(acc, pm)
					}
				}

				p.Acc = vecmath.Add(p.Acc, acc)
				p.Phi = phi
			}
		}(i0, i1)
	}
	wg.Wait()
}
