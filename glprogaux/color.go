package glprogaux

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/glprog"
)

// PremulColor converts c to a premultiplied draw color.
func PremulColor(c color.Color) glprog.Color {
	r, g, b, a := c.RGBA()
	return glprog.Color{float32(r) / 0xffff, float32(g) / 0xffff, float32(b) / 0xffff, float32(a) / 0xffff}
}

// HexColor parses a "#rgb" or "#rrggbb" string into an opaque draw color.
func HexColor(s string) (glprog.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return glprog.Color{}, err
	}
	return glprog.Color{float32(c.R), float32(c.G), float32(c.B), 1}, nil
}

// Space selects the color space gradients interpolate in.
type Space uint8

const (
	SpaceHCL Space = iota
	SpaceHSV
	SpaceRGB
)

// GradientRamp returns a width x 1 unpremultiplied texture interpolating from
// c0 to c1. Radial, two point radial and sweep mapped stages read it at (t, 0.5).
// Alpha is interpolated linearly.
func GradientRamp(width int, c0, c1 color.Color, space Space) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, 1))
	f0, a0 := unpremul(c0)
	f1, a1 := unpremul(c1)
	for x := 0; x < width; x++ {
		var t float64
		if width > 1 {
			t = float64(x) / float64(width-1)
		}
		var c colorful.Color
		switch space {
		case SpaceHSV:
			c = f0.BlendHsv(f1, t)
		case SpaceRGB:
			c = f0.BlendRgb(f1, t)
		default:
			c = f0.BlendHcl(f1, t)
		}
		r, g, b := c.Clamped().RGB255()
		alpha := ms1.Interp(a0, a1, float32(t))
		img.SetNRGBA(x, 0, color.NRGBA{R: r, G: g, B: b, A: uint8(alpha*255 + 0.5)})
	}
	return img
}

func unpremul(c color.Color) (colorful.Color, float32) {
	_, _, _, a := c.RGBA()
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return colorful.Color{}, 0
	}
	return cf, float32(a) / 0xffff
}
