package interp

import (
	"fmt"
)

var _ = fmt.Print

// Integer paths over 16 bit grids. Positions are 16.16 fixed point, the
// arithmetic matches the classic lcms integer interpolators bit for bit.

// ToFixedDomain maps a in [0, 0xffff*d] onto 16.16 fixed point in [0, d].
func ToFixedDomain(a int) int {
	return a + ((a + 0x7fff) / 0xffff)
}

func round_fixed_to_int(x int64) int {
	return int((x + 0x8000) >> 16)
}

// lerp16 is l + (h-l)*a with a a 16 bit fraction, rounded.
func lerp16(a, l, h int) int {
	return l + round_fixed_to_int(int64(h-l)*int64(a))
}

func split16(v uint16, domain, stride int) (off0, off1, r int) {
	fx := ToFixedDomain(int(v) * domain)
	x0 := fx >> 16
	r = fx & 0xffff
	off0 = x0 * stride
	off1 = off0
	if v != 0xffff {
		off1 += stride
	}
	return
}

func clip16(x int) uint16 {
	return uint16(max(0, min(x, 0xffff)))
}

func linear16(p *Params, table []uint16, base, axis int, in, out []uint16) {
	X0, X1, rx := split16(in[0], p.Domain[axis], p.Strides[axis])
	X0 += base
	X1 += base
	for o := range p.NumOutputs {
		out[o] = clip16(lerp16(rx, int(table[X0+o]), int(table[X1+o])))
	}
}

func bilinear16(p *Params, table []uint16, base, axis int, in, out []uint16) {
	X0, X1, rx := split16(in[0], p.Domain[axis], p.Strides[axis])
	Y0, Y1, ry := split16(in[1], p.Domain[axis+1], p.Strides[axis+1])
	X0 += base
	X1 += base
	for o := range p.NumOutputs {
		d00 := int(table[X0+Y0+o])
		d01 := int(table[X0+Y1+o])
		d10 := int(table[X1+Y0+o])
		d11 := int(table[X1+Y1+o])
		dx0 := lerp16(rx, d00, d10)
		dx1 := lerp16(rx, d01, d11)
		out[o] = clip16(lerp16(ry, dx0, dx1))
	}
}

func trilinear16(p *Params, table []uint16, base, axis int, in, out []uint16) {
	X0, X1, rx := split16(in[0], p.Domain[axis], p.Strides[axis])
	Y0, Y1, ry := split16(in[1], p.Domain[axis+1], p.Strides[axis+1])
	Z0, Z1, rz := split16(in[2], p.Domain[axis+2], p.Strides[axis+2])
	X0 += base
	X1 += base
	d := func(x, y, z int) int { return int(table[x+y+z]) }
	for o := range p.NumOutputs {
		dx00 := lerp16(rx, d(X0, Y0, Z0+o), d(X1, Y0, Z0+o))
		dx01 := lerp16(rx, d(X0, Y0, Z1+o), d(X1, Y0, Z1+o))
		dx10 := lerp16(rx, d(X0, Y1, Z0+o), d(X1, Y1, Z0+o))
		dx11 := lerp16(rx, d(X0, Y1, Z1+o), d(X1, Y1, Z1+o))
		dxy0 := lerp16(ry, dx00, dx10)
		dxy1 := lerp16(ry, dx01, dx11)
		out[o] = clip16(lerp16(rz, dxy0, dxy1))
	}
}

func tetrahedral16(p *Params, table []uint16, base, axis int, in, out []uint16) {
	X0, X1, rx := split16(in[0], p.Domain[axis], p.Strides[axis])
	Y0, Y1, ry := split16(in[1], p.Domain[axis+1], p.Strides[axis+1])
	Z0, Z1, rz := split16(in[2], p.Domain[axis+2], p.Strides[axis+2])
	X0 += base
	X1 += base
	d := func(x, y, z int) int { return int(table[x+y+z]) }
	var c0, c1, c2, c3 int
	for o := range p.NumOutputs {
		c0 = d(X0, Y0, Z0+o)
		switch {
		case rx >= ry && ry >= rz:
			c1 = d(X1, Y0, Z0+o) - c0
			c2 = d(X1, Y1, Z0+o) - d(X1, Y0, Z0+o)
			c3 = d(X1, Y1, Z1+o) - d(X1, Y1, Z0+o)
		case rx >= rz && rz >= ry:
			c1 = d(X1, Y0, Z0+o) - c0
			c2 = d(X1, Y1, Z1+o) - d(X1, Y0, Z1+o)
			c3 = d(X1, Y0, Z1+o) - d(X1, Y0, Z0+o)
		case rz >= rx && rx >= ry:
			c1 = d(X1, Y0, Z1+o) - d(X0, Y0, Z1+o)
			c2 = d(X1, Y1, Z1+o) - d(X1, Y0, Z1+o)
			c3 = d(X0, Y0, Z1+o) - c0
		case ry >= rx && rx >= rz:
			c1 = d(X1, Y1, Z0+o) - d(X0, Y1, Z0+o)
			c2 = d(X0, Y1, Z0+o) - c0
			c3 = d(X1, Y1, Z1+o) - d(X1, Y1, Z0+o)
		case ry >= rz && rz >= rx:
			c1 = d(X1, Y1, Z1+o) - d(X0, Y1, Z1+o)
			c2 = d(X0, Y1, Z0+o) - c0
			c3 = d(X0, Y1, Z1+o) - d(X0, Y1, Z0+o)
		case rz >= ry && ry >= rx:
			c1 = d(X1, Y1, Z1+o) - d(X0, Y1, Z1+o)
			c2 = d(X0, Y1, Z1+o) - d(X0, Y0, Z1+o)
			c3 = d(X0, Y0, Z1+o) - c0
		default:
			c1, c2, c3 = 0, 0, 0
		}
		rest := int64(c1)*int64(rx) + int64(c2)*int64(ry) + int64(c3)*int64(rz)
		out[o] = clip16(c0 + round_fixed_to_int(rest))
	}
}

func outer16(p *Params, table []uint16, base, axis int, in, out []uint16, trilinear bool) {
	if p.NumInputs-axis == 3 {
		if trilinear {
			trilinear16(p, table, base, axis, in, out)
		} else {
			tetrahedral16(p, table, base, axis, in, out)
		}
		return
	}
	K0, K1, rk := split16(in[0], p.Domain[axis], p.Strides[axis])
	var t1, t2 [MaxOutputChannels]uint16
	outer16(p, table, base+K0, axis+1, in[1:], t1[:], trilinear)
	if K1 == K0 {
		copy(out[:p.NumOutputs], t1[:p.NumOutputs])
		return
	}
	outer16(p, table, base+K1, axis+1, in[1:], t2[:], trilinear)
	for o := range p.NumOutputs {
		out[o] = clip16(lerp16(rk, int(t1[o]), int(t2[o])))
	}
}

func evaluator16(p *Params, trilinear bool) (name string, f func(in, out []uint16)) {
	t := p.Table16
	switch p.NumInputs {
	case 1:
		return "Linear1D16", func(in, out []uint16) { linear16(p, t, 0, 0, in, out) }
	case 2:
		return "Bilinear16", func(in, out []uint16) { bilinear16(p, t, 0, 0, in, out) }
	case 3:
		if trilinear {
			return "Trilinear16", func(in, out []uint16) { trilinear16(p, t, 0, 0, in, out) }
		}
		return "Tetrahedral16", func(in, out []uint16) { tetrahedral16(p, t, 0, 0, in, out) }
	default:
		return fmt.Sprintf("Outer%dD16", p.NumInputs), func(in, out []uint16) { outer16(p, t, 0, 0, in, out, trilinear) }
	}
}
