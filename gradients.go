package glprog

import (
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/glprog/glbuild"
)

// radial2DegenerateThreshold is the |a| below which the two point radial
// quadratic is solved as a linear equation.
const radial2DegenerateThreshold = 1.0 / (1 << 15)

// Radial2Gradient describes a two point conical gradient in the space produced
// by the stage texture matrix: the end circle is centered on (Center1X,0) with
// unit radius and the start circle is centered on the origin with radius Radius0.
type Radial2Gradient struct {
	Center1X float32
	Radius0  float32
	// PosRoot selects the larger root of the quadratic.
	PosRoot bool
}

func (g Radial2Gradient) a() float32 { return g.Center1X*g.Center1X - 1 }

// Degenerate reports whether the quadratic coefficient vanishes.
func (g Radial2Gradient) Degenerate() bool {
	return math32.Abs(g.a()) < radial2DegenerateThreshold
}

// Params packs the gradient into the stage radial2 uniform array:
// a, 1/(2a), center1.x, radius0, radius0^2 and the root sign.
func (g Radial2Gradient) Params() (p [glbuild.Radial2ParamCount]float32) {
	a := g.a()
	p[0] = a
	if !g.Degenerate() {
		p[1] = 1 / (2 * a)
	}
	p[2] = g.Center1X
	p[3] = g.Radius0
	p[4] = g.Radius0 * g.Radius0
	p[5] = -1
	if g.PosRoot {
		p[5] = 1
	}
	return p
}

// T evaluates the gradient parameter at (x,y) the same way generated shaders do.
func (g Radial2Gradient) T(x, y float32) float32 {
	p := g.Params()
	b := 2 * (p[2]*x - p[3])
	c := x*x + y*y - p[4]
	if g.Degenerate() {
		return -c / b
	}
	root := math32.Sqrt(math32.Abs(b*b - 4*p[0]*c))
	return (-b + p[5]*root) * p[1]
}

// GaussianKernel fills dst with normalized gaussian weights centered on the
// middle tap. len(dst) is the kernel width and must be odd and at most [glbuild.MaxKernelWidth].
func GaussianKernel(dst []float32, sigma float32) []float32 {
	width := len(dst)
	if width%2 == 0 || width > glbuild.MaxKernelWidth {
		panic("glprog: gaussian kernel width must be odd and at most MaxKernelWidth")
	}
	sigma = ms1.Clamp(sigma, 1e-3, float32(width))
	radius := width / 2
	denom := 1 / (2 * sigma * sigma)
	var sum float32
	for i := range dst {
		x := float32(i - radius)
		dst[i] = math32.Exp(-x * x * denom)
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
	return dst
}
