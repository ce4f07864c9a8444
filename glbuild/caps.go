package glbuild

import "strconv"

// UnpremulConversion is the rounding convention used when converting between
// premultiplied and unpremultiplied 8 bit pixels. Writes and reads round in opposite
// directions so a round trip reproduces the original value.
type UnpremulConversion uint8

const (
	// UnpremulUpOnWriteDownOnRead rounds up when unpremultiplying and down when premultiplying.
	UnpremulUpOnWriteDownOnRead UnpremulConversion = iota
	// UnpremulDownOnWriteUpOnRead rounds down when unpremultiplying and up when premultiplying.
	UnpremulDownOnWriteUpOnRead
)

// Caps lists context capabilities that gate descriptor fields.
type Caps struct {
	DualSourceBlend   bool
	ShaderDerivatives bool
	GeometryShader    bool
	// TextureSwizzle is set when the driver can swizzle texture channels natively.
	TextureSwizzle bool
	// TextureRed is set when single channel textures are stored in the red channel.
	TextureRed       bool
	MaxVertexAttribs int
	Unpremul         UnpremulConversion
	GLSL             Version
}

// Version is a GLSL language version.
type Version struct {
	Number int // 330, 410, 460...
	ES     bool
}

// DefaultVersion is GLSL 3.30 core, the lowest version with explicit attribute locations and dual source outputs.
var DefaultVersion = Version{Number: 330}

func (v Version) appendHeader(b []byte) []byte {
	b = append(b, "#version "...)
	b = strconv.AppendInt(b, int64(v.Number), 10)
	if v.ES {
		b = append(b, " es\nprecision highp float;\n"...)
	} else {
		b = append(b, " core\n"...)
	}
	return b
}

func (v Version) valid() bool {
	if v.ES {
		return v.Number >= 300
	}
	return v.Number >= 330
}
