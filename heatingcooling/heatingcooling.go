// Package heatingcooling applies a constant linear source/sink term to
// specific internal energy, representing an externally imposed heating or
// radiative cooling rate.
package heatingcooling

import (
	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/simulation"
)

// HeatingCooling adds a constant rate to du/dt for every fluid particle.
type HeatingCooling struct {
	Cfg *config.Config
}

// New constructs a HeatingCooling component.
func New(cfg *config.Config) *HeatingCooling {
	return &HeatingCooling{Cfg: cfg}
}

// Calculation adds (heating_rate - cooling_rate) into each fluid particle's
// DEneDt. A no-op unless heating_cooling.is_valid is set.
func (h *HeatingCooling) Calculation(sim *simulation.Simulation) {
	if !h.Cfg.HeatingCooling.IsValid {
		return
	}
	rate := h.Cfg.HeatingCooling.HeatingRate - h.Cfg.HeatingCooling.CoolingRate
	for i := range sim.Particles {
		p := &sim.Particles[i]
		if !p.Integrable() {
			continue
		}
		p.DEneDt += rate
	}
}
