package glbuild

import "github.com/chewxy/math32"

// Premultiply converts an unpremultiplied RGBA8 pixel to premultiplied with the
// same float arithmetic generated shaders use for [InMulRGBByAlphaRoundUp] and
// [InMulRGBByAlphaRoundDown].
func Premultiply(px [4]uint8, roundUp bool) [4]uint8 {
	a := float32(px[3]) / 255
	round := math32.Floor
	if roundUp {
		round = math32.Ceil
	}
	for i := 0; i < 3; i++ {
		px[i] = to8(round(float32(px[i])/255*a*255) / 255)
	}
	return px
}

// Unpremultiply converts a premultiplied RGBA8 pixel to unpremultiplied with the same
// arithmetic as the unpremultiplied output configurations. Zero alpha yields transparent black.
func Unpremultiply(px [4]uint8, roundUp bool) [4]uint8 {
	if px[3] == 0 {
		return [4]uint8{}
	}
	a := float32(px[3]) / 255
	round := math32.Floor
	if roundUp {
		round = math32.Ceil
	}
	for i := 0; i < 3; i++ {
		px[i] = to8(round(float32(px[i])/255/a*255) / 255)
	}
	return px
}

// to8 maps a normalized float to 8 bits like a UNORM render target does.
func to8(v float32) uint8 {
	v = math32.Max(0, math32.Min(1, v))
	return uint8(math32.Floor(v*255 + 0.5))
}
