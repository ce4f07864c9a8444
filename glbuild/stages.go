package glbuild

import "strconv"

// appendStage emits the code of texture stage s. The stage samples its
// texture and modulates inOut by the result, or overwrites it when inOut is known to be vec4(1).
func (p *Programmer) appendStage(d *Descriptor, s int, inOut string, inIsOne bool) {
	st := &d.Stages[s]
	sfx := strconv.Itoa(s)
	coord := "coord" + sfx
	tex := "tex" + sfx
	sampler := StageSampler.Name(s)
	incr := StageImageIncrement.Name(s)
	kernelOffset := float32(st.KernelWidth-1) * 0.5

	// Vertex side: transform the source coordinate by the texture matrix.
	src := AttribNamePosition
	if d.VertexLayout&LayoutStageTexCoord(s) != 0 {
		src = attribTexCoordName(s)
		p.addAttrib(AttribTexCoord(s), "vec2", src)
	}
	perspective := st.OptFlags&StageNoPerspective == 0
	texM := StageTexMatrix.Name(s)
	if st.OptFlags&StageIdentityMatrix == 0 {
		if d.VertexLayout&LayoutStageMatrixAttrib(s) != 0 {
			p.addAttrib(AttribStageMatrix(s), "mat3", attribTexMatrixName(s))
			p.src.AttribUniforms = append(p.src.AttribUniforms, AttribBinding{Name: texM, Slot: AttribStageMatrix(s)})
			texM = attribTexMatrixName(s)
		} else {
			p.addUniform(vertexStage, "mat3", texM, 0)
		}
	}
	vname := "TexCoord" + sfx
	var fsCoord string
	switch {
	case st.OptFlags&StageIdentityMatrix != 0:
		fsCoord = p.addVarying("vec2", vname)
		p.vsMain = appendLine(p.vsMain, "v", vname, " = ", src, ";")
	case !perspective:
		fsCoord = p.addVarying("vec2", vname)
		p.vsMain = appendLine(p.vsMain, "v", vname, " = (", texM, " * vec3(", src, ", 1.0)).xy;")
	default:
		fsCoord = p.addVarying("vec3", vname)
		p.vsMain = appendLine(p.vsMain, "v", vname, " = ", texM, " * vec3(", src, ", 1.0);")
		fsCoord += ".xy / " + fsCoord + ".z"
	}
	// Kernel fetches start half a kernel before the center texel. The shift is
	// linear in the coordinate so it is done per vertex when nothing nonlinear follows.
	kernelInVS := st.Fetch.UsesKernel() && !perspective && st.Mapping == MapIdentity
	if st.Fetch.UsesKernel() {
		// The fragment loop always steps by the increment.
		p.addUniform(fragmentStage, "vec2", incr, 0)
		if kernelInVS {
			p.addUniform(vertexStage, "vec2", incr, 0)
			p.vsMain = append(p.vsMain, "\tv"...)
			p.vsMain = append(p.vsMain, vname...)
			p.vsMain = append(p.vsMain, " -= "...)
			p.vsMain = AppendFloat(p.vsMain, '-', '.', kernelOffset)
			p.vsMain = append(p.vsMain, " * "...)
			p.vsMain = append(p.vsMain, incr...)
			p.vsMain = append(p.vsMain, ";\n"...)
		}
	}

	// Fragment side.
	b := p.fsMain
	b = append(b, "\t// Stage "...)
	b = append(b, sfx...)
	b = append(b, ".\n"...)
	b = appendLine(b, "vec2 ", coord, " = ", fsCoord, ";")
	b = p.appendMapping(b, st.Mapping, s, coord)
	if st.Fetch.UsesKernel() && !kernelInVS {
		b = append(b, '\t')
		b = append(b, coord...)
		b = append(b, " -= "...)
		b = AppendFloat(b, '-', '.', kernelOffset)
		b = append(b, " * "...)
		b = append(b, incr...)
		b = append(b, ";\n"...)
	}
	if st.OptFlags&StageCustomTextureDomain != 0 {
		dom := StageTexDomain.Name(s)
		p.addUniform(fragmentStage, "vec4", dom, 0)
		b = appendLine(b, coord, " = clamp(", coord, ", ", dom, ".xy, ", dom, ".zw);")
	}

	p.addUniform(fragmentStage, "sampler2D", sampler, 0)
	p.src.Samplers = append(p.src.Samplers, SamplerBinding{Name: sampler, Unit: int32(s)})
	sample := "texture(" + sampler + ", "
	switch st.Fetch {
	case FetchSingle:
		b = appendLine(b, "vec4 ", tex, " = ", sample, coord, ");")
	case FetchBox2x2:
		texel := StageTexelSize.Name(s)
		p.addUniform(fragmentStage, "vec2", texel, 0)
		b = appendLine(b, "vec4 ", tex, " = ", sample, coord, " + vec2(-0.5, -0.5) * ", texel, ");")
		b = appendLine(b, tex, " += ", sample, coord, " + vec2(0.5, -0.5) * ", texel, ");")
		b = appendLine(b, tex, " += ", sample, coord, " + vec2(-0.5, 0.5) * ", texel, ");")
		b = appendLine(b, tex, " += ", sample, coord, " + vec2(0.5, 0.5) * ", texel, ");")
		b = appendLine(b, tex, " *= 0.25;")
	case FetchConvolution, FetchDilate, FetchErode:
		kw := strconv.Itoa(int(st.KernelWidth))
		var init, accum string
		switch st.Fetch {
		case FetchConvolution:
			kernel := StageKernel.Name(s)
			p.addUniform(fragmentStage, "float", kernel, int(st.KernelWidth))
			init = "vec4(0.0)"
			accum = tex + " += " + sample + coord + ") * " + kernel + "[i];"
		case FetchDilate:
			init = "vec4(0.0)"
			accum = tex + " = max(" + tex + ", " + sample + coord + "));"
		case FetchErode:
			init = "vec4(1.0)"
			accum = tex + " = min(" + tex + ", " + sample + coord + "));"
		}
		b = appendLine(b, "vec4 ", tex, " = ", init, ";")
		b = appendLine(b, "for (int i = 0; i < ", kw, "; i++) {")
		b = appendLine(b, "\t", accum)
		b = appendLine(b, "\t", coord, " += ", incr, ";")
		b = appendLine(b, "}")
	}
	b = appendInConfig(b, st.InConfig, tex)
	if inIsOne {
		b = appendLine(b, inOut, " = ", tex, ";")
	} else {
		b = appendLine(b, inOut, " = ", tex, " * ", inOut, ";")
	}
	p.fsMain = b
}

func (p *Programmer) appendMapping(b []byte, mapping CoordMapping, s int, coord string) []byte {
	switch mapping {
	case MapRadial:
		b = appendLine(b, coord, " = vec2(length(", coord, "), 0.5);")
	case MapSweep:
		b = appendLine(b, coord, " = vec2(atan(-", coord, ".y, -", coord, ".x) * 0.1591549430918 + 0.5, 0.5);")
	case MapRadial2, MapRadial2Degenerate:
		// Params: a, 1/(2a), center1.x, radius0, radius0^2, root sign.
		prm := StageRadial2Params.Name(s)
		p.addUniform(fragmentStage, "float", prm, Radial2ParamCount)
		sfx := strconv.Itoa(s)
		bv, cv := "r2b"+sfx, "r2c"+sfx
		b = appendLine(b, "float ", bv, " = 2.0 * (", prm, "[2] * ", coord, ".x - ", prm, "[3]);")
		b = appendLine(b, "float ", cv, " = dot(", coord, ", ", coord, ") - ", prm, "[4];")
		if mapping == MapRadial2Degenerate {
			b = appendLine(b, coord, " = vec2(-", cv, " / ", bv, ", 0.5);")
		} else {
			root := "r2root" + sfx
			b = appendLine(b, "float ", root, " = sqrt(abs(", bv, " * ", bv, " - 4.0 * ", prm, "[0] * ", cv, "));")
			b = appendLine(b, coord, " = vec2((-", bv, " + ", prm, "[5] * ", root, ") * ", prm, "[1], 0.5);")
		}
	}
	return b
}

// appendInConfig emits channel fixups applied to the aggregated stage sample.
func appendInConfig(b []byte, flags InConfigFlags, tex string) []byte {
	if flags&InSwapRAndB != 0 {
		b = appendLine(b, tex, " = ", tex, ".bgra;")
	}
	if flags&InSmearAlpha != 0 {
		b = appendLine(b, tex, " = ", tex, ".aaaa;")
	}
	if flags&InSmearRed != 0 {
		b = appendLine(b, tex, " = ", tex, ".rrrr;")
	}
	switch {
	case flags&InMulRGBByAlphaRoundUp != 0:
		b = appendLine(b, tex, " = vec4(ceil(", tex, ".rgb * ", tex, ".a * 255.0) / 255.0, ", tex, ".a);")
	case flags&InMulRGBByAlphaRoundDown != 0:
		b = appendLine(b, tex, " = vec4(floor(", tex, ".rgb * ", tex, ".a * 255.0) / 255.0, ", tex, ".a);")
	}
	return b
}
