package bhtree

import (
	"github.com/pthm-cable/hvccsph/particle"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// softF is the potential-softening function (Newtonian limit 1/r), a
// piecewise spline in u = r/(h/2), the standard Springel et al. construction.
func softF(r, h float64) float64 {
	e := h * 0.5
	u := r / e
	switch {
	case u < 1.0:
		return (-2.0*u*u*(1.0/3.0-3.0/20.0*u*u+u*u*u/20.0) + 1.4) / e
	case u < 2.0:
		return -1.0/(15*r) + (-u*u*(4.0/3.0-u+0.3*u*u-u*u*u/30.0)+1.6)/e
	default:
		return 1 / r
	}
}

// softG is the force-softening function (Newtonian limit 1/r^3).
func softG(r, h float64) float64 {
	e := h * 0.5
	u := r / e
	switch {
	case u < 1.0:
		return (4.0/3.0 - 1.2*u*u + 0.5*u*u*u) / (e * e * e)
	case u < 2.0:
		return (-1.0/15.0 + 8.0/3.0*u*u*u - 3*u*u*u*u + 1.2*u*u*u*u*u - u*u*u*u*u*u/6.0) / (r * r * r)
	default:
		return 1 / (r * r * r)
	}
}

// PointMassGravity returns the symmetrized softened force contribution of a
// point mass at pj (mass mj, smoothing length hj) on a particle at pi with
// smoothing length hi, and the scaling factor G is applied by the caller.
func PointMassGravity(piPos, pjPos vecmath.Vec, hi, hj, mj float64) vecmath.Vec {
	rij := vecmath.Sub(piPos, pjPos)
	r := vecmath.Norm(rij)
	if r < 1e-12 {
		return vecmath.Vec{}
	}
	factor := mj * (softG(r, hi) + softG(r, hj)) * 0.5
	return vecmath.Scale(rij, -factor)
}

// TreeForce accumulates the self-gravity acceleration and potential on
// particle i by traversing the tree from the root, opening nodes whose
// opening angle edge/distance >= theta and applying unopened nodes (or
// leaves) as a single softened mass using the particle's own smoothing
// length as the softening scale.
func (t *Tree) TreeForce(particles []particle.Particle, i int, theta, g float64) (acc vecmath.Vec, phi float64) {
	pi := &particles[i]
	t.treeForceNode(0, particles, i, pi, theta, g, &acc, &phi)
	return acc, phi
}

func (t *Tree) treeForceNode(nodeIdx int32, particles []particle.Particle, i int, pi *particle.Particle, theta, g float64, acc *vecmath.Vec, phi *float64) {
	n := &t.nodes[nodeIdx]
	if n.Mass == 0 {
		return
	}

	rij := vecmath.Sub(pi.Pos, n.MCenter)
	r := vecmath.Norm(rij)

	if n.IsLeaf {
		for cur := n.Head; cur != particle.NoNext; cur = particles[cur].Next {
			j := int(cur)
			if j == i {
				continue
			}
			pj := &particles[j]
			rijp := vecmath.Sub(pi.Pos, pj.Pos)
			r2 := vecmath.Norm(rijp)
			if r2 < 1e-12 {
				continue
			}
			*acc = vecmath.Sub(*acc, vecmath.Scale(rijp, g*pj.Mass*softG(r2, pi.Sml)))
			*phi -= g * pj.Mass * softF(r2, pi.Sml)
		}
		return
	}

	if r < 1e-12 || (2*n.Edge)/r >= theta {
		for _, child := range n.Child {
			if child == noChild {
				continue
			}
			t.treeForceNode(child, particles, i, pi, theta, g, acc, phi)
		}
		return
	}

	*acc = vecmath.Sub(*acc, vecmath.Scale(rij, g*n.Mass*softG(r, pi.Sml)))
	*phi -= g * n.Mass * softF(r, pi.Sml)
}
