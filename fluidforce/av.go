// Package fluidforce implements the four interchangeable SPH formulations
// (SSPH, DISPH, GSPH, GDISPH) and the HLL Riemann solver and Monaghan
// artificial-viscosity term they share.
package fluidforce

import (
	"math"

	"github.com/pthm-cable/hvccsph/config"
	"github.com/pthm-cable/hvccsph/particle"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// monaghanAV returns the symmetric Monaghan artificial-viscosity pressure
// term Pi_ij for the pair (pi, pj) separated by rij = pi.Pos - pj.Pos,
// evaluated against an averaged smoothing length h_ij, with alpha averaged
// from the particles' Alpha fields and beta fixed at 2*alpha (av is not
// read). Returns 0 unless the pair is approaching (r.v < 0).
func monaghanAV(pi, pj *particle.Particle, rij, vij vecmath.Vec, av config.AVConfig) float64 {
	rv := vecmath.Dot(rij, vij)
	if rv >= 0 {
		return 0
	}
	hij := 0.5 * (pi.Sml + pj.Sml)
	r2 := vecmath.Dot(rij, rij)
	eta2 := 0.01 * hij * hij
	mu := hij * rv / (r2 + eta2)

	alphaIJ := 0.5 * (pi.Alpha + pj.Alpha)
	cIJ := 0.5 * (pi.Sound + pj.Sound)
	rhoIJ := 0.5 * (pi.Dens + pj.Dens)
	betaAV := 2 * alphaIJ

	if rhoIJ <= 0 {
		return 0
	}
	return (-alphaIJ*cIJ*mu + betaAV*mu*mu) / rhoIJ
}

// artificialConductivity returns the Price (2008) style conductivity term
// used by every variant's energy equation when ac.IsValid; otherwise 0.
func artificialConductivity(pi, pj *particle.Particle, rij vecmath.Vec, r float64, ac config.ACConfig) float64 {
	if !ac.IsValid || r <= 0 {
		return 0
	}
	vSig := math.Sqrt(math.Abs(pi.Pres-pj.Pres) / (0.5 * (pi.Dens + pj.Dens)))
	return ac.Alpha * vSig * (pi.Ene - pj.Ene)
}
