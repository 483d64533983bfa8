package interp

import (
	"fmt"
)

var _ = fmt.Print

type sample interface{ ~float32 | ~uint16 }

// fclamp clamps to [0,1], tiny values and NaN become 0.
func fclamp(v float32) float32 {
	if !(v >= 1e-9) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// split_float locates v on an axis. Inputs at or past 1 get no "+1"
// neighbour so the last node is never overrun.
func split_float(v float32, domain, stride int) (off0, off1 int, r float32) {
	v = fclamp(v)
	px := v * float32(domain)
	x0 := int(px)
	if x0 >= domain {
		return domain * stride, domain * stride, 0
	}
	r = px - float32(x0)
	off0 = x0 * stride
	off1 = off0
	if v < 1 {
		off1 += stride
	}
	return
}

// Evaluates the 3 axes starting at axis with the cube decomposed into
// six tetrahedra.
func tetrahedral_float[T sample](p *Params, table []T, scale float32, base, axis int, in, out []float32) {
	X0, X1, rx := split_float(in[0], p.Domain[axis], p.Strides[axis])
	Y0, Y1, ry := split_float(in[1], p.Domain[axis+1], p.Strides[axis+1])
	Z0, Z1, rz := split_float(in[2], p.Domain[axis+2], p.Strides[axis+2])
	X0 += base
	X1 += base
	d := func(x, y, z int) float32 { return float32(table[x+y+z]) * scale }
	var c0, c1, c2, c3 float32
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
			// no ordering holds, snap to the lower corner
			c1, c2, c3 = 0, 0, 0
		}
		out[o] = c0 + c1*rx + c2*ry + c3*rz
	}
}

// Performs an n-linear interpolation over n axes starting at axis by
// summing the weighted 2^n corners of the enclosing cell.
func multilinear_float[T sample](p *Params, table []T, scale float32, base, axis, n int, in, out []float32) {
	var lo, hi [MaxInputDimensions]int
	var r [MaxInputDimensions]float32
	var acc [MaxOutputChannels]float32
	for k := range n {
		lo[k], hi[k], r[k] = split_float(in[k], p.Domain[axis+k], p.Strides[axis+k])
	}
	for corner := range 1 << n {
		w := float32(1)
		off := base
		for k := range n {
			if corner&(1<<k) != 0 {
				w *= r[k]
				off += hi[k]
			} else {
				w *= 1 - r[k]
				off += lo[k]
			}
		}
		if w == 0 {
			continue
		}
		for o, v := range table[off : off+p.NumOutputs] {
			acc[o] += w * float32(v) * scale
		}
	}
	copy(out[:p.NumOutputs], acc[:p.NumOutputs])
}

// Evaluates grids of 4 or more inputs by treating the first input as an
// outer linear axis over two evaluations of the remaining inputs,
// bottoming out at a 3 input evaluation.
func outer_float[T sample](p *Params, table []T, scale float32, base, axis int, in, out []float32, trilinear bool) {
	if p.NumInputs-axis == 3 {
		if trilinear {
			multilinear_float(p, table, scale, base, axis, 3, in, out)
		} else {
			tetrahedral_float(p, table, scale, base, axis, in, out)
		}
		return
	}
	K0, K1, rk := split_float(in[0], p.Domain[axis], p.Strides[axis])
	var t1, t2 [MaxOutputChannels]float32
	outer_float(p, table, scale, base+K0, axis+1, in[1:], t1[:], trilinear)
	if K1 == K0 {
		copy(out[:p.NumOutputs], t1[:p.NumOutputs])
		return
	}
	outer_float(p, table, scale, base+K1, axis+1, in[1:], t2[:], trilinear)
	for o := range p.NumOutputs {
		out[o] = t1[o] + (t2[o]-t1[o])*rk
	}
}

func float_evaluator[T sample](p *Params, table []T, scale float32, trilinear bool) (name string, f func(in, out []float32)) {
	switch n := p.NumInputs; {
	case n < 3:
		return fmt.Sprintf("Linear%dD", n), func(in, out []float32) { multilinear_float(p, table, scale, 0, 0, n, in, out) }
	case n == 3 && trilinear:
		return "Trilinear", func(in, out []float32) { multilinear_float(p, table, scale, 0, 0, 3, in, out) }
	case n == 3:
		return "Tetrahedral", func(in, out []float32) { tetrahedral_float(p, table, scale, 0, 0, in, out) }
	default:
		return fmt.Sprintf("Outer%dD", n), func(in, out []float32) { outer_float(p, table, scale, 0, 0, in, out, trilinear) }
	}
}

// Multilinear returns a plain 2^N corner evaluator for the grid regardless
// of its dimensionality.
func Multilinear(p *Params) func(in, out []float32) {
	if p.Table != nil {
		return func(in, out []float32) { multilinear_float(p, p.Table, 1, 0, 0, p.NumInputs, in, out) }
	}
	return func(in, out []float32) { multilinear_float(p, p.Table16, 1.0/0xffff, 0, 0, p.NumInputs, in, out) }
}
