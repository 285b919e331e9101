package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pthm-cable/hvccsph/particle"
	"github.com/pthm-cable/hvccsph/vecmath"
)

// particleRecordSize is sizeof(Particle) for format version 1: four Vec
// fields (24 bytes each), twelve float64 scalars, two int32 counters, two
// u8 flags, padded to 8-byte alignment. This is the size the file_size
// invariant in the format spec is computed against; it intentionally does
// not include runtime-only diagnostics (Volume, ShockSensor, ShockMode,
// Next) that are recomputed after load rather than round-tripped.
const particleRecordSize = 4*24 + 12*8 + 2*4 + 2*1 + 6

// encodeParticle writes one version-1 particle record field by field. The
// format is specified explicitly rather than derived from Go's in-memory
// struct layout, which is free to reorder or pad fields differently across
// compilers and architectures.
func encodeParticle(buf *bytes.Buffer, p *particle.Particle) {
	putVec(buf, p.Pos)
	putVec(buf, p.Vel)
	putVec(buf, p.VelP)
	putVec(buf, p.Acc)
	putF64(buf, p.Mass)
	putF64(buf, p.Dens)
	putF64(buf, p.Pres)
	putF64(buf, p.Ene)
	putF64(buf, p.EneP)
	putF64(buf, p.DEneDt)
	putF64(buf, p.Sml)
	putF64(buf, p.Sound)
	putF64(buf, p.Balsara)
	putF64(buf, p.Alpha)
	putF64(buf, p.GradH)
	putF64(buf, p.Phi)
	putI32(buf, p.ID)
	putI32(buf, p.Neighbor)
	putBool(buf, p.IsWall)
	putBool(buf, p.IsPointMass)
	buf.Write(make([]byte, 6)) // pad to 8-byte alignment
}

// decodeParticle reads one version-1 particle record from raw at offset,
// returning the populated particle and the offset of the next record.
func decodeParticle(raw []byte, offset int) (particle.Particle, int, error) {
	if offset+particleRecordSize > len(raw) {
		return particle.Particle{}, offset, fmt.Errorf("checkpoint: truncated particle record at offset %d", offset)
	}
	var p particle.Particle
	o := offset
	p.Pos, o = getVec(raw, o)
	p.Vel, o = getVec(raw, o)
	p.VelP, o = getVec(raw, o)
	p.Acc, o = getVec(raw, o)
	p.Mass, o = getF64(raw, o)
	p.Dens, o = getF64(raw, o)
	p.Pres, o = getF64(raw, o)
	p.Ene, o = getF64(raw, o)
	p.EneP, o = getF64(raw, o)
	p.DEneDt, o = getF64(raw, o)
	p.Sml, o = getF64(raw, o)
	p.Sound, o = getF64(raw, o)
	p.Balsara, o = getF64(raw, o)
	p.Alpha, o = getF64(raw, o)
	p.GradH, o = getF64(raw, o)
	p.Phi, o = getF64(raw, o)
	p.ID, o = getI32(raw, o)
	p.Neighbor, o = getI32(raw, o)
	p.IsWall, o = getBool(raw, o)
	p.IsPointMass, o = getBool(raw, o)
	o += 6 // alignment pad
	p.Next = particle.NoNext
	p.Volume = p.Mass / p.Dens
	return p, o, nil
}

func putVec(buf *bytes.Buffer, v vecmath.Vec) {
	putF64(buf, v[0])
	putF64(buf, v[1])
	putF64(buf, v[2])
}

func getVec(raw []byte, offset int) (vecmath.Vec, int) {
	var v vecmath.Vec
	v[0], offset = getF64(raw, offset)
	v[1], offset = getF64(raw, offset)
	v[2], offset = getF64(raw, offset)
	return v, offset
}

func putF64(buf *bytes.Buffer, f float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	buf.Write(b[:])
}

func getF64(raw []byte, offset int) (float64, int) {
	return math.Float64frombits(binary.LittleEndian.Uint64(raw[offset : offset+8])), offset + 8
}

func putI32(buf *bytes.Buffer, i int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(i))
	buf.Write(b[:])
}

func getI32(raw []byte, offset int) (int32, int) {
	return int32(binary.LittleEndian.Uint32(raw[offset : offset+4])), offset + 4
}

func putBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func getBool(raw []byte, offset int) (bool, int) {
	return raw[offset] != 0, offset + 1
}
