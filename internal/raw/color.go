package raw

import (
	"github.com/gogpu/codec/internal/color"
)

// matrix3 is a row-major 3x3 matrix.
type matrix3 [9]float64

var identity3 = matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}

// d50 is the PCS white point.
var d50 = [3]float64{0.96422, 1, 0.82521}

// xyzD50ToSRGB maps D50 XYZ to linear sRGB with Bradford adaptation.
var xyzD50ToSRGB = matrix3{
	3.1338561, -1.6168667, -0.4906146,
	-0.9787684, 1.9161415, 0.0334540,
	0.0719453, -0.2289914, 1.4052427,
}

func (m matrix3) mul(o matrix3) matrix3 {
	var r matrix3
	for i := range 3 {
		for j := range 3 {
			for k := range 3 {
				r[i*3+j] += m[i*3+k] * o[k*3+j]
			}
		}
	}
	return r
}

func (m matrix3) vec(v [3]float64) [3]float64 {
	return [3]float64{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

func (m matrix3) apply(r, g, b float32) [3]float64 {
	return m.vec([3]float64{float64(r), float64(g), float64(b)})
}

func (m matrix3) inverse() (matrix3, bool) {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	g, h, i := m[6], m[7], m[8]
	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if det > -1e-12 && det < 1e-12 {
		return matrix3{}, false
	}
	inv := matrix3{
		e*i - f*h, c*h - b*i, b*f - c*e,
		f*g - d*i, a*i - c*g, c*d - a*f,
		d*h - e*g, b*g - a*h, a*e - b*d,
	}
	for k := range inv {
		inv[k] /= det
	}
	return inv, true
}

// cameraToSRGB builds the camera RGB to linear sRGB transform. With a color
// matrix the as-shot neutral maps to D50 white before the sRGB conversion;
// without one the channels are only white balanced. Either way the neutral
// renders as gray.
func cameraToSRGB(n *Negative) matrix3 {
	if !n.IsMosaic() && n.Samples == 1 {
		return identity3
	}
	if len(n.colorMatrix) == 9 {
		var cm matrix3
		copy(cm[:], n.colorMatrix)
		if inv, ok := cm.inverse(); ok {
			w := inv.vec(n.neutral)
			if w[0] > 0 && w[1] > 0 && w[2] > 0 {
				adapt := matrix3{d50[0] / w[0], 0, 0, 0, d50[1] / w[1], 0, 0, 0, d50[2] / w[2]}
				return xyzD50ToSRGB.mul(adapt.mul(inv))
			}
		}
	}
	top := max(n.neutral[0], n.neutral[1], n.neutral[2])
	return matrix3{
		top / n.neutral[0], 0, 0,
		0, top / n.neutral[1], 0,
		0, 0, top / n.neutral[2],
	}
}

func encodeSRGB(dst []byte, rgb [3]float64) {
	for c := range 3 {
		dst[c] = color.LinearToSRGB(float32(rgb[c]))
	}
}
