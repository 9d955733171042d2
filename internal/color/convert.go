package color

import "math"

// srgbToLinear maps an sRGB byte to a linear value in [0,1].
var srgbToLinear [256]float32

// linearToSRGB maps a linear value quantized to 12 bits to an sRGB byte.
var linearToSRGB [4096]uint8

func init() {
	for i := range srgbToLinear {
		srgbToLinear[i] = float32(decodeSRGB(float64(i) / 255))
	}
	for i := range linearToSRGB {
		s := encodeSRGB(float64(i)/4095)*255 + 0.5
		linearToSRGB[i] = uint8(math.Max(0, math.Min(255, s)))
	}
}

func decodeSRGB(s float64) float64 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

func encodeSRGB(l float64) float64 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*math.Pow(l, 1.0/2.4) - 0.055
}

// SRGBToLinear converts an sRGB byte to linear light.
func SRGBToLinear(s uint8) float32 {
	return srgbToLinear[s]
}

// LinearToSRGB converts linear light to an sRGB byte. The input is
// clamped to [0,1].
func LinearToSRGB(l float32) uint8 {
	if !(l > 0) {
		return 0
	}
	if l >= 1 {
		return 255
	}
	return linearToSRGB[int(l*4095+0.5)]
}

// HalfFromFloat32 converts f to an IEEE 754 binary16 value, rounding to
// nearest even. Values outside the half range saturate to infinity.
func HalfFromFloat32(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xFF) - 127 + 15
	mant := bits & 0x7FFFFF

	switch {
	case bits&0x7FFFFFFF == 0:
		return sign
	case int32(bits>>23&0xFF) == 0xFF:
		if mant != 0 {
			return sign | 0x7E00
		}
		return sign | 0x7C00
	case exp >= 0x1F:
		return sign | 0x7C00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(mant >> shift)
		rem := mant & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 == 1) {
			half++
		}
		return sign | half
	}
	half := sign | uint16(exp)<<10 | uint16(mant>>13)
	rem := mant & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && half&1 == 1) {
		half++
	}
	return half
}

// Float32FromHalf converts an IEEE 754 binary16 value to float32.
func Float32FromHalf(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h & 0x3FF)
	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		f := float32(mant) / 1024 / 16384
		if sign != 0 {
			return -f
		}
		return f
	case 0x1F:
		return math.Float32frombits(sign | 0x7F800000 | mant<<13)
	}
	return math.Float32frombits(sign | (exp+127-15)<<23 | mant<<13)
}
