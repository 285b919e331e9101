// Package bhtree implements the Barnes-Hut octree used for neighbor search
// and gravity. Nodes are allocated from a single monotonically-growing
// arena; arena indices, not pointers, are the portable handle for "child"
// and "next" links, matching the arena+indices idiom used in place of the
// source's raw pointer tree.
package bhtree

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/hvccsph/particle"
	"github.com/pthm-cable/hvccsph/periodic"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// ErrNeighborOverflow is returned by NeighborSearch when the caller-supplied
// buffer is too small to hold every neighbor within cutoff.
var ErrNeighborOverflow = errors.New("bhtree: neighbor list exceeds caller capacity")

// noChild is the sentinel "no child allocated" arena index.
const noChild = -1

// State is the tree's lifecycle state.
type State int

const (
	Empty State = iota
	Built
	Stale
)

func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Built:
		return "Built"
	case Stale:
		return "Stale"
	default:
		return "Unknown"
	}
}

type node struct {
	Mass       float64
	MCenter    vecmath.Vec // mass-weighted center
	Center     vecmath.Vec // geometric center
	Edge       float64     // half-edge length
	Level      int
	KernelSize float64 // max child h + geometric extent; prunes neighbor queries
	IsLeaf     bool
	Child      [8]int32 // arena indices, noChild if absent
	Head       int32    // head of leaf's linked particle list, particle.NoNext if empty
}

// Tree is the arena-backed Barnes-Hut octree.
type Tree struct {
	Dim             int
	NChild          int
	MaxLevel        int
	LeafParticleNum int

	nodes []node
	used  int
	state State

	isPeriodic bool
	rangeMin   vecmath.Vec
	rangeMax   vecmath.Vec
}

// New creates a tree for the given spatial dimension (1, 2, or 3).
func New(dim, maxLevel, leafParticleNum int) *Tree {
	return &Tree{
		Dim:             dim,
		NChild:          1 << uint(dim),
		MaxLevel:        maxLevel,
		LeafParticleNum: leafParticleNum,
		state:           Empty,
	}
}

// State reports the tree's current lifecycle state.
func (t *Tree) State() State { return t.state }

// SetPeriodic fixes the root bounding box to the periodic domain instead of
// one computed from the particle extent.
func (t *Tree) SetPeriodic(enabled bool, min, max vecmath.Vec) {
	t.isPeriodic = enabled
	t.rangeMin = min
	t.rangeMax = max
}

// Resize pre-sizes the arena to hold at least capacity nodes. Transitions
// Empty -> Empty with the arena allocated; growth beyond this during Make
// is handled transparently (TreeArenaExhausted is recovered, not fatal).
func (t *Tree) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	t.nodes = make([]node, capacity)
	t.used = 0
}

func (t *Tree) allocNode() int32 {
	if t.used >= len(t.nodes) {
		// TreeArenaExhausted: grow geometrically and continue, transparent
		// to the caller.
		newCap := len(t.nodes) * 2
		if newCap == 0 {
			newCap = 64
		}
		grown := make([]node, newCap)
		copy(grown, t.nodes)
		t.nodes = grown
	}
	idx := int32(t.used)
	t.nodes[idx] = node{Head: particle.NoNext, Child: [8]int32{noChild, noChild, noChild, noChild, noChild, noChild, noChild, noChild}}
	t.used++
	return idx
}

// Make builds the tree from the current particle positions, transitioning
// any state to Built.
func (t *Tree) Make(particles []particle.Particle) error {
	if len(t.nodes) == 0 {
		t.Resize(4 * (len(particles) + 1))
	}
	t.used = 0

	center, edge := t.rootBounds(particles)
	root := t.allocNode()
	t.nodes[root].Center = center
	t.nodes[root].Edge = edge
	t.nodes[root].Level = 0
	t.nodes[root].IsLeaf = true

	for i := range particles {
		particles[i].Next = particle.NoNext
	}
	for i := range particles {
		// Point masses are handled by PointMassGravity's exact direct sum,
		// not the tree's monopole approximation, so they are excluded here.
		if particles[i].IsPointMass {
			continue
		}
		if err := t.insert(int32(i), particles, root); err != nil {
			return err
		}
	}

	t.computeMoments(root, particles)
	t.state = Built
	return nil
}

// MarkStale transitions Built -> Stale at drift completion.
func (t *Tree) MarkStale() {
	if t.state == Built {
		t.state = Stale
	}
}

func (t *Tree) rootBounds(particles []particle.Particle) (vecmath.Vec, float64) {
	if t.isPeriodic {
		center := vecmath.Scale(vecmath.Add(t.rangeMin, t.rangeMax), 0.5)
		edge := 0.0
		for d := 0; d < t.Dim; d++ {
			half := 0.5 * (t.rangeMax[d] - t.rangeMin[d])
			if half > edge {
				edge = half
			}
		}
		return center, edge * 1.0000001
	}
	if len(particles) == 0 {
		return vecmath.Vec{}, 1.0
	}
	min := particles[0].Pos
	max := particles[0].Pos
	for i := range particles {
		p := particles[i].Pos
		for d := 0; d < t.Dim; d++ {
			if p[d] < min[d] {
				min[d] = p[d]
			}
			if p[d] > max[d] {
				max[d] = p[d]
			}
		}
	}
	center := vecmath.Scale(vecmath.Add(min, max), 0.5)
	edge := 0.0
	for d := 0; d < t.Dim; d++ {
		half := 0.5 * (max[d] - min[d])
		if half > edge {
			edge = half
		}
	}
	if edge <= 0 {
		edge = 1.0
	}
	return center, edge * 1.001
}

// octant returns the child index [0, NChild) that pos falls into relative
// to center; childCenter computes that child's center.
func (t *Tree) octant(pos, center vecmath.Vec) int {
	idx := 0
	for d := 0; d < t.Dim; d++ {
		if pos[d] >= center[d] {
			idx |= 1 << uint(d)
		}
	}
	return idx
}

func (t *Tree) childCenter(center vecmath.Vec, quarterEdge float64, childIdx int) vecmath.Vec {
	c := center
	for d := 0; d < t.Dim; d++ {
		if childIdx&(1<<uint(d)) != 0 {
			c[d] += quarterEdge
		} else {
			c[d] -= quarterEdge
		}
	}
	return c
}

func (t *Tree) insert(pIdx int32, particles []particle.Particle, nodeIdx int32) error {
	n := &t.nodes[nodeIdx]
	if !n.IsLeaf {
		childIdx := t.octant(particles[pIdx].Pos, n.Center)
		child := n.Child[childIdx]
		if child == noChild {
			childCenter := t.childCenter(n.Center, n.Edge*0.5, childIdx)
			newIdx := t.allocNode()
			t.nodes[newIdx].Center = childCenter
			t.nodes[newIdx].Edge = n.Edge * 0.5
			t.nodes[newIdx].Level = n.Level + 1
			t.nodes[newIdx].IsLeaf = true
			n = &t.nodes[nodeIdx]
			n.Child[childIdx] = newIdx
			child = newIdx
		}
		return t.insert(pIdx, particles, child)
	}

	count := 0
	for cur := n.Head; cur != particle.NoNext; cur = particles[cur].Next {
		count++
	}
	if count < t.LeafParticleNum || n.Level >= t.MaxLevel {
		particles[pIdx].Next = n.Head
		n.Head = pIdx
		return nil
	}

	existing := make([]int32, 0, count)
	for cur := n.Head; cur != particle.NoNext; cur = particles[cur].Next {
		existing = append(existing, cur)
	}
	n.Head = particle.NoNext
	n.IsLeaf = false
	for i := range n.Child {
		n.Child[i] = noChild
	}
	for _, idx := range existing {
		if err := t.insert(idx, particles, nodeIdx); err != nil {
			return err
		}
	}
	return t.insert(pIdx, particles, nodeIdx)
}

// computeMoments performs the post-order pass computing mass, mass-center,
// and kernel_size (max child h plus geometric extent) for every node.
func (t *Tree) computeMoments(nodeIdx int32, particles []particle.Particle) {
	n := &t.nodes[nodeIdx]
	if n.IsLeaf {
		mass := 0.0
		mcenter := vecmath.Vec{}
		maxH := 0.0
		for cur := n.Head; cur != particle.NoNext; cur = particles[cur].Next {
			p := &particles[cur]
			mass += p.Mass
			mcenter = vecmath.AddScaled(mcenter, p.Pos, p.Mass)
			if p.Sml > maxH {
				maxH = p.Sml
			}
		}
		if mass > 0 {
			mcenter = vecmath.Scale(mcenter, 1/mass)
		} else {
			mcenter = n.Center
		}
		n.Mass = mass
		n.MCenter = mcenter
		n.KernelSize = maxH + n.Edge*math.Sqrt(float64(t.Dim))
		return
	}

	mass := 0.0
	mcenter := vecmath.Vec{}
	maxKernel := 0.0
	for _, child := range n.Child {
		if child == noChild {
			continue
		}
		t.computeMoments(child, particles)
		c := &t.nodes[child]
		mass += c.Mass
		mcenter = vecmath.AddScaled(mcenter, c.MCenter, c.Mass)
		if c.KernelSize > maxKernel {
			maxKernel = c.KernelSize
		}
	}
	if mass > 0 {
		mcenter = vecmath.Scale(mcenter, 1/mass)
	} else {
		mcenter = n.Center
	}
	n.Mass = mass
	n.MCenter = mcenter
	n.KernelSize = maxKernel
}

// NeighborSearch writes into dst's backing array, starting at dst[:0] so any
// existing elements are overwritten, the indices of every particle within
// cutoff of particles[i], using minimum-image distance when per is
// periodic. symmetric selects the cutoff max(h_i, h_j) vs. the asymmetric
// h_i. Returns ErrNeighborOverflow if the result would exceed cap(dst); the
// returned slice then has length 0 and dst's backing array holds the first
// cap(dst) neighbors found, so the caller can use that truncated set or
// retry with a larger buffer.
func (t *Tree) NeighborSearch(particles []particle.Particle, i int, dst []int32, symmetric bool, per *periodic.Periodic) ([]int32, error) {
	if t.state != Built {
		return nil, fmt.Errorf("bhtree: NeighborSearch called in state %s, want Built", t.state)
	}
	pi := &particles[i]
	out := dst[:0]
	var overflow bool
	t.searchNode(0, particles, i, pi, symmetric, per, &out, &overflow)
	if overflow {
		return dst[:0], ErrNeighborOverflow
	}
	return out, nil
}

func (t *Tree) searchNode(nodeIdx int32, particles []particle.Particle, i int, pi *particle.Particle, symmetric bool, per *periodic.Periodic, out *[]int32, overflow *bool) {
	if *overflow {
		return
	}
	n := &t.nodes[nodeIdx]
	cutoff := pi.Sml
	if symmetric && n.KernelSize > cutoff {
		cutoff = n.KernelSize
	}

	d := minDistanceToBox(pi.Pos, n.Center, n.Edge, t.Dim, per)
	if d > cutoff {
		return
	}

	if n.IsLeaf {
		for cur := n.Head; cur != particle.NoNext; cur = particles[cur].Next {
			j := int(cur)
			if j == i {
				continue
			}
			pj := &particles[j]
			r := vecmath.Norm(separation(pi.Pos, pj.Pos, per))
			c := pi.Sml
			if symmetric {
				if pj.Sml > c {
					c = pj.Sml
				}
			}
			if r < c {
				if len(*out) == cap(*out) {
					*overflow = true
					return
				}
				*out = append(*out, cur)
			}
		}
		return
	}

	for _, child := range n.Child {
		if child == noChild {
			continue
		}
		t.searchNode(child, particles, i, pi, symmetric, per, out, overflow)
		if *overflow {
			return
		}
	}
}

func separation(a, b vecmath.Vec, per *periodic.Periodic) vecmath.Vec {
	if per != nil {
		return per.Separation(a, b)
	}
	return vecmath.Sub(a, b)
}

// minDistanceToBox returns the minimum distance from pos to the cubic box
// centered at center with half-edge edge, accounting for periodic wrap on
// the first dim components.
func minDistanceToBox(pos, center vecmath.Vec, edge float64, dim int, per *periodic.Periodic) float64 {
	d := separation(pos, center, per)
	sum := 0.0
	for k := 0; k < dim; k++ {
		diff := math.Abs(d[k]) - edge
		if diff > 0 {
			sum += diff * diff
		}
	}
	return math.Sqrt(sum)
}
