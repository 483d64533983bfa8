package colorconv

import (
	"fmt"
	"math"
)

// This package has the profile connection space math used when building
// pipelines: CIE L*a*b* <-> XYZ relative to an arbitrary white point,
// Bradford chromatic adaptation, RGB primaries to XYZ matrices and the
// normalized encodings of Lab and XYZ that pipelines work in.
//
// Notes:
// - L is in [0,100], a and b are roughly in [-128,127].
// - XYZ is relative to a white with Y = 1.
// - Normalized Lab and XYZ values map the ICC v4 16 bit encodings onto [0,1].

type Vec3 [3]float64
type Mat3 [3][3]float64

// Determinant lower than that are assumed zero (used on matrix invert)
const MATRIX_DET_TOLERANCE = 0.0001

// Standard reference whites (CIE XYZ) normalized so Y = 1.0
// Note that WhiteD50 uses Z value from ICC spec rather that CIE spec.
var (
	WhiteD50 = Vec3{0.9642, 1.00000, 0.8249}
	WhiteD65 = Vec3{0.95047, 1.00000, 1.08883}
)

// Largest XYZ component representable in the 1.15 fixed encoding
const MaxEncodeableXYZ = 1.0 + 32767.0/32768.0

// Bradford transform matrices (forward and inverse)
var (
	bradford = Mat3{
		{0.8951, 0.2664, -0.1614},
		{-0.7502, 1.7135, 0.0367},
		{0.0389, -0.0685, 1.0296},
	}
	invBradford = Mat3{
		{0.9869929, -0.1470543, 0.1599627},
		{0.4323053, 0.5183603, 0.0492912},
		{-0.0085287, 0.0400428, 0.9684867},
	}
)

func IdentityMat3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func (m Mat3) IsIdentity() bool {
	return m == IdentityMat3()
}

func (m Mat3) String() string {
	return fmt.Sprintf("Mat3{%v %v %v}", m[0], m[1], m[2])
}

// Multiply returns m * o
func (m Mat3) Multiply(o Mat3) Mat3 {
	var out Mat3
	for i := range 3 {
		for j := range 3 {
			sum := 0.0
			for k := range 3 {
				sum += m[i][k] * o[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func (mat Mat3) Determinant() float64 {
	return mat[0][0]*(mat[1][1]*mat[2][2]-mat[1][2]*mat[2][1]) -
		mat[0][1]*(mat[1][0]*mat[2][2]-mat[1][2]*mat[2][0]) +
		mat[0][2]*(mat[1][0]*mat[2][1]-mat[1][1]*mat[2][0])
}

func (mat Mat3) Inverted() (ans Mat3, err error) {
	det := mat.Determinant()
	if math.Abs(det) < MATRIX_DET_TOLERANCE {
		return ans, fmt.Errorf("matrix is singular and cannot be inverted")
	}
	invDet := 1 / det
	adj := Mat3{
		{
			(mat[1][1]*mat[2][2] - mat[1][2]*mat[2][1]),
			(mat[0][2]*mat[2][1] - mat[0][1]*mat[2][2]),
			(mat[0][1]*mat[1][2] - mat[0][2]*mat[1][1]),
		},
		{
			(mat[1][2]*mat[2][0] - mat[1][0]*mat[2][2]),
			(mat[0][0]*mat[2][2] - mat[0][2]*mat[2][0]),
			(mat[0][2]*mat[1][0] - mat[0][0]*mat[1][2]),
		},
		{
			(mat[1][0]*mat[2][1] - mat[1][1]*mat[2][0]),
			(mat[0][1]*mat[2][0] - mat[0][0]*mat[2][1]),
			(mat[0][0]*mat[1][1] - mat[0][1]*mat[1][0]),
		},
	}
	for i := range 3 {
		for j := range 3 {
			ans[i][j] = invDet * adj[i][j]
		}
	}
	return
}

// ChromaticAdaptationMatrix constructs a 3x3 matrix that adapts XYZ values
// from sourceWhite to targetWhite using the Bradford method.
func ChromaticAdaptationMatrix(sourceWhite, targetWhite Vec3) Mat3 {
	src := bradford.Apply(sourceWhite)
	tgt := bradford.Apply(targetWhite)
	diag := Mat3{
		{tgt[0] / src[0], 0, 0},
		{0, tgt[1] / src[1], 0},
		{0, 0, tgt[2] / src[2]},
	}
	// adapt = invBradford * diag * bradford
	return invBradford.Multiply(diag.Multiply(bradford))
}

func finv(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta {
		return t * t * t
	}
	// when t <= delta: 3*delta^2*(t - 4/29)
	return 3 * delta * delta * (t - 4.0/29.0)
}

func ff(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	// t <= delta^3
	return t/(3*delta*delta) + 4.0/29.0
}

// LabToXYZ converts Lab relative to white into XYZ (white has Y=1).
func LabToXYZ(white Vec3, L, a, b float64) (X, Y, Z float64) {
	fy := (L + 16.0) / 116.0
	fx := fy + (a / 500.0)
	fz := fy - (b / 200.0)
	return finv(fx) * white[0], finv(fy) * white[1], finv(fz) * white[2]
}

// XYZToLab converts XYZ (white has Y=1) into Lab relative to white.
func XYZToLab(white Vec3, X, Y, Z float64) (L, a, b float64) {
	fx := ff(X / white[0])
	fy := ff(Y / white[1])
	fz := ff(Z / white[2])
	return 116.0*fy - 16.0, 500.0 * (fx - fy), 200.0 * (fy - fz)
}

func LabToXYZ_D50(L, a, b float64) (X, Y, Z float64) { return LabToXYZ(WhiteD50, L, a, b) }
func XYZToLab_D50(X, Y, Z float64) (L, a, b float64) { return XYZToLab(WhiteD50, X, Y, Z) }

// NormalizeLab maps Lab onto [0,1] using the ICC v4 encoding.
func NormalizeLab(L, a, b float64) (float64, float64, float64) {
	return L / 100, (a + 128) / 255, (b + 128) / 255
}

func DenormalizeLab(l, a, b float64) (float64, float64, float64) {
	return l * 100, a*255 - 128, b*255 - 128
}

// NormalizeXYZ maps XYZ onto [0,1] using the 1.15 fixed encoding range.
func NormalizeXYZ(X, Y, Z float64) (float64, float64, float64) {
	return X / MaxEncodeableXYZ, Y / MaxEncodeableXYZ, Z / MaxEncodeableXYZ
}

func DenormalizeXYZ(x, y, z float64) (float64, float64, float64) {
	return x * MaxEncodeableXYZ, y * MaxEncodeableXYZ, z * MaxEncodeableXYZ
}

// XYYToXYZ converts a chromaticity with luminance into XYZ.
func XYYToXYZ(x, y, Y float64) Vec3 {
	if y == 0 {
		return Vec3{}
	}
	return Vec3{x / y * Y, Y, (1 - x - y) / y * Y}
}

// Chromaticity of a primary or white point
type XYChromaticity struct{ X, Y float64 }

type Primaries struct {
	Red, Green, Blue, White XYChromaticity
}

var SRGBPrimaries = Primaries{
	Red:   XYChromaticity{0.6400, 0.3300},
	Green: XYChromaticity{0.3000, 0.6000},
	Blue:  XYChromaticity{0.1500, 0.0600},
	White: XYChromaticity{0.3127, 0.3290},
}

// RGBToXYZMatrix returns the matrix converting linear RGB with the given
// primaries into XYZ adapted to D50.
func RGBToXYZMatrix(p Primaries) (Mat3, error) {
	r := XYYToXYZ(p.Red.X, p.Red.Y, 1)
	g := XYYToXYZ(p.Green.X, p.Green.Y, 1)
	b := XYYToXYZ(p.Blue.X, p.Blue.Y, 1)
	prim := Mat3{
		{r[0], g[0], b[0]},
		{r[1], g[1], b[1]},
		{r[2], g[2], b[2]},
	}
	inv, err := prim.Inverted()
	if err != nil {
		return Mat3{}, fmt.Errorf("primaries are collinear: %w", err)
	}
	white := XYYToXYZ(p.White.X, p.White.Y, 1)
	s := inv.Apply(white)
	m := Mat3{}
	for i := range 3 {
		for j := range 3 {
			m[i][j] = prim[i][j] * s[j]
		}
	}
	return ChromaticAdaptationMatrix(white, WhiteD50).Multiply(m), nil
}

// LinearToSRGB applies the sRGB (gamma) companding function to a linear component.
func LinearToSRGB(c float64) float64 {
	if c <= 0 {
		return 0.0
	}
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math.Pow(c, 1.0/2.4) - 0.055
}

func SRGBToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}
