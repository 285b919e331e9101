// Package periodic implements minimum-image distance and position wrap for
// an optionally periodic rectangular domain.
package periodic

import "github.com/pthm-cable/hvccsph/vecmath"

// Periodic holds the domain bounds used for minimum-image distance and
// wraparound. A zero-value Periodic with Enabled=false passes positions and
// separations through unchanged.
type Periodic struct {
	Enabled bool
	Min     vecmath.Vec
	Max     vecmath.Vec
	dim     int
}

// New builds a Periodic for the given spatial dimension. Only the first dim
// components of min/max participate in wrap and minimum-image folding.
func New(enabled bool, min, max vecmath.Vec, dim int) *Periodic {
	return &Periodic{Enabled: enabled, Min: min, Max: max, dim: dim}
}

// Separation returns r_i - r_j, folded to the minimum image under periodic
// wrap if enabled.
func (p *Periodic) Separation(ri, rj vecmath.Vec) vecmath.Vec {
	d := vecmath.Sub(ri, rj)
	if p == nil || !p.Enabled {
		return d
	}
	for k := 0; k < p.dim; k++ {
		length := p.Max[k] - p.Min[k]
		if length <= 0 {
			continue
		}
		for d[k] > 0.5*length {
			d[k] -= length
		}
		for d[k] < -0.5*length {
			d[k] += length
		}
	}
	return d
}

// Wrap folds a position back into [Min, Max) along each periodic axis.
func (p *Periodic) Wrap(pos vecmath.Vec) vecmath.Vec {
	if p == nil || !p.Enabled {
		return pos
	}
	out := pos
	for k := 0; k < p.dim; k++ {
		length := p.Max[k] - p.Min[k]
		if length <= 0 {
			continue
		}
		for out[k] < p.Min[k] {
			out[k] += length
		}
		for out[k] >= p.Max[k] {
			out[k] -= length
		}
	}
	return out
}
