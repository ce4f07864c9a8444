package glbuild

import "strconv"

const (
	fragOutColor   = "oColor"
	fragOutDualSrc = "oDualSrc"
)

func (p *Programmer) appendCoverageAndOutput(d *Descriptor) {
	dual := d.DualSrc != DualSrcNone
	if dual {
		p.fsDecl = append(p.fsDecl, "layout(location = 0, index = 0) out vec4 "+fragOutColor+";\n"...)
		p.fsDecl = append(p.fsDecl, "layout(location = 0, index = 1) out vec4 "+fragOutDualSrc+";\n"...)
	} else {
		p.fsDecl = append(p.fsDecl, "layout(location = 0) out vec4 "+fragOutColor+";\n"...)
	}
	if d.CoverageInput == InputTransBlack {
		// Nothing covered, the color computation above is dead code the compiler strips.
		p.fsMain = appendLine(p.fsMain, fragOutColor, " = vec4(0.0);")
		if dual {
			p.fsMain = appendLine(p.fsMain, fragOutDualSrc, " = vec4(0.0);")
		}
		return
	}

	cov, covOne := p.appendInput(d.CoverageInput, AttribCoverage, AttribNameCoverage, "Coverage", UniformCoverage)
	p.fsMain = appendLine(p.fsMain, "vec4 coverage = ", cov, ";")
	if d.EdgeCount > 0 || d.VertexLayout&LayoutEdge != 0 {
		p.fsMain = appendLine(p.fsMain, "float edgeAlpha = 1.0;")
		if d.EdgeCount > 0 {
			p.appendUniformEdges(int(d.EdgeCount), d.EdgeConcave)
		}
		if d.VertexLayout&LayoutEdge != 0 {
			p.appendVertexEdge(d.VertexEdge)
		}
		p.fsMain = appendLine(p.fsMain, "coverage *= edgeAlpha;")
		covOne = false
	}
	for s := int(d.FirstCoverageStage); s < MaxStages; s++ {
		if d.Stages[s].Enabled {
			p.appendStage(d, s, "coverage", covOne)
			covOne = false
		}
	}

	switch d.DualSrc {
	case DualSrcCoverage:
		p.fsMain = appendLine(p.fsMain, fragOutDualSrc, " = coverage;")
	case DualSrcCoverageISA:
		p.fsMain = appendLine(p.fsMain, fragOutDualSrc, " = (1.0 - color.a) * coverage;")
	case DualSrcCoverageISC:
		p.fsMain = appendLine(p.fsMain, fragOutDualSrc, " = (vec4(1.0) - color) * coverage;")
	}
	if !covOne {
		p.fsMain = appendLine(p.fsMain, "color *= coverage;")
	}
	switch d.Output {
	case OutputPremultiplied:
		p.fsMain = appendLine(p.fsMain, fragOutColor, " = color;")
	case OutputUnpremultipliedRoundUp:
		p.fsMain = appendLine(p.fsMain, fragOutColor, " = color.a <= 0.0 ? vec4(0.0) : vec4(ceil(color.rgb / color.a * 255.0) / 255.0, color.a);")
	case OutputUnpremultipliedRoundDown:
		p.fsMain = appendLine(p.fsMain, fragOutColor, " = color.a <= 0.0 ? vec4(0.0) : vec4(floor(color.rgb / color.a * 255.0) / 255.0, color.a);")
	}
}

// appendUniformEdges clips against n half planes in window coordinates.
// Convex polygons keep the minimum distance, concave ones multiply.
func (p *Programmer) appendUniformEdges(n int, concave bool) {
	p.addUniform(fragmentStage, "vec3", UniformEdges, n)
	b := p.fsMain
	for i := 0; i < n; i++ {
		e := UniformEdges + "[" + strconv.Itoa(i) + "]"
		dist := "clamp(dot(" + e + ", vec3(gl_FragCoord.xy, 1.0)), 0.0, 1.0)"
		if concave {
			b = appendLine(b, "edgeAlpha *= ", dist, ";")
		} else {
			b = appendLine(b, "edgeAlpha = min(edgeAlpha, ", dist, ");")
		}
	}
	p.fsMain = b
}

func (p *Programmer) appendVertexEdge(et EdgeType) {
	p.addAttrib(AttribEdge, "vec4", AttribNameEdge)
	e := p.addVarying("vec4", "Edge")
	p.vsMain = appendLine(p.vsMain, "vEdge = ", AttribNameEdge, ";")
	b := p.fsMain
	switch et {
	case EdgeHairLine:
		b = appendLine(b, "float lineDist = abs(dot(vec3(gl_FragCoord.xy, 1.0), ", e, ".xyz));")
		b = appendLine(b, "edgeAlpha *= max(1.0 - lineDist, 0.0);")
	case EdgeQuad, EdgeHairQuad:
		b = appendLine(b, "vec2 duvdx = dFdx(", e, ".xy);")
		b = appendLine(b, "vec2 duvdy = dFdy(", e, ".xy);")
		b = appendLine(b, "vec2 gF = vec2(2.0 * ", e, ".x * duvdx.x - duvdx.y, 2.0 * ", e, ".x * duvdy.x - duvdy.y);")
		b = appendLine(b, "float quadDist = ", e, ".x * ", e, ".x - ", e, ".y;")
		if et == EdgeQuad {
			// zw hold distances to the hull edges, inside both the curve does not matter.
			b = appendLine(b, "if (", e, ".z > 0.0 && ", e, ".w > 0.0) {")
			b = appendLine(b, "\tedgeAlpha *= min(min(", e, ".z, ", e, ".w) + 0.5, 1.0);")
			b = appendLine(b, "} else {")
			b = appendLine(b, "\tedgeAlpha *= clamp(0.5 - quadDist / length(gF), 0.0, 1.0);")
			b = appendLine(b, "}")
		} else {
			b = appendLine(b, "quadDist = sqrt(quadDist * quadDist / dot(gF, gF));")
			b = appendLine(b, "edgeAlpha *= max(1.0 - quadDist, 0.0);")
		}
	case EdgeCircle:
		// xy center, z outer radius, w inner radius or zero for a disc.
		b = appendLine(b, "float circleDist = distance(gl_FragCoord.xy, ", e, ".xy);")
		b = appendLine(b, "edgeAlpha *= clamp(", e, ".z - circleDist, 0.0, 1.0);")
		b = appendLine(b, "if (", e, ".w > 0.0) {")
		b = appendLine(b, "\tedgeAlpha *= clamp(circleDist - ", e, ".w, 0.0, 1.0);")
		b = appendLine(b, "}")
	}
	p.fsMain = b
}

// blendCoeff is a Porter-Duff coefficient as a GLSL expression factory.
type blendCoeff uint8

const (
	coeffZero blendCoeff = iota
	coeffOne
	coeffSC
	coeffISC
	coeffDC
	coeffIDC
	coeffSA
	coeffISA
	coeffDA
	coeffIDA
)

// colorFilterCoeffs maps each filter mode to its (src, dst) coefficients.
var colorFilterCoeffs = [numColorFilterModes][2]blendCoeff{
	ColorFilterDst:      {coeffZero, coeffOne},
	ColorFilterClear:    {coeffZero, coeffZero},
	ColorFilterSrc:      {coeffOne, coeffZero},
	ColorFilterSrcOver:  {coeffOne, coeffISA},
	ColorFilterDstOver:  {coeffIDA, coeffOne},
	ColorFilterSrcIn:    {coeffDA, coeffZero},
	ColorFilterDstIn:    {coeffZero, coeffSA},
	ColorFilterSrcOut:   {coeffIDA, coeffZero},
	ColorFilterDstOut:   {coeffZero, coeffISA},
	ColorFilterSrcATop:  {coeffDA, coeffISA},
	ColorFilterDstATop:  {coeffIDA, coeffSA},
	ColorFilterXor:      {coeffIDA, coeffISA},
	ColorFilterPlus:     {coeffOne, coeffOne},
	ColorFilterModulate: {coeffZero, coeffSC},
	ColorFilterScreen:   {coeffOne, coeffISC},
}

func (c blendCoeff) expr(src, dst string) string {
	switch c {
	case coeffSC:
		return src
	case coeffISC:
		return "(vec4(1.0) - " + src + ")"
	case coeffDC:
		return dst
	case coeffIDC:
		return "(vec4(1.0) - " + dst + ")"
	case coeffSA:
		return src + ".a"
	case coeffISA:
		return "(1.0 - " + src + ".a)"
	case coeffDA:
		return dst + ".a"
	case coeffIDA:
		return "(1.0 - " + dst + ".a)"
	}
	panic("no expression for constant coefficient")
}

func appendBlendTerm(b []byte, v string, c blendCoeff, src, dst string) []byte {
	b = append(b, v...)
	if c != coeffOne {
		b = append(b, " * "...)
		b = append(b, c.expr(src, dst)...)
	}
	return b
}

// appendColorFilter blends the filter color src over dst in place.
func appendColorFilter(b []byte, mode ColorFilterMode, src, dst string) []byte {
	coeffs := colorFilterCoeffs[mode]
	b = append(b, '\t')
	b = append(b, dst...)
	b = append(b, " = "...)
	switch {
	case coeffs[0] == coeffZero && coeffs[1] == coeffZero:
		b = append(b, "vec4(0.0)"...)
	case coeffs[0] == coeffZero:
		b = appendBlendTerm(b, dst, coeffs[1], src, dst)
	case coeffs[1] == coeffZero:
		b = appendBlendTerm(b, src, coeffs[0], src, dst)
	default:
		b = appendBlendTerm(b, src, coeffs[0], src, dst)
		b = append(b, " + "...)
		b = appendBlendTerm(b, dst, coeffs[1], src, dst)
	}
	b = append(b, ";\n"...)
	if mode == ColorFilterPlus {
		b = appendLine(b, dst, " = min(", dst, ", vec4(1.0));")
	}
	return b
}

// appendColorMatrix applies the color matrix on unpremultiplied color.
func appendColorMatrix(b []byte, color string) []byte {
	b = appendLine(b, "float nonZeroAlpha = max(", color, ".a, 0.00001);")
	b = appendLine(b, color, " = ", UniformColorMatrix, " * vec4(", color, ".rgb / nonZeroAlpha, nonZeroAlpha) + ", UniformColorMatrixVec, ";")
	b = appendLine(b, color, ".a = clamp(", color, ".a, 0.0, 1.0);")
	b = appendLine(b, color, ".rgb *= ", color, ".a;")
	return b
}
