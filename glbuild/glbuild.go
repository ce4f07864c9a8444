package glbuild

import (
	"errors"
	"fmt"
	"slices"
)

// Sources holds the generated GLSL of one program and what the generator
// knows about its interface.
type Sources struct {
	Vertex   string
	Geometry string // Empty when no geometry stage is present.
	Fragment string
	// Uniforms lists the semantic uniform names declared across all shader stages, samplers included.
	Uniforms []string
	// Samplers maps each declared sampler uniform to its texture unit.
	Samplers []SamplerBinding
	// Attribs lists the vertex inputs with their fixed slot.
	Attribs []AttribBinding
	// AttribUniforms lists semantic uniforms supplied as constant vertex
	// attributes. Slot is the first slot, matrices span three.
	AttribUniforms []AttribBinding
}

// SamplerBinding ties a sampler uniform to a texture unit.
type SamplerBinding struct {
	Name string
	Unit int32
}

// Declares reports whether the uniform name is declared by the sources.
func (src *Sources) Declares(name string) bool {
	return slices.Contains(src.Uniforms, name)
}

// AttribUniform returns the attribute slot supplying the named uniform.
func (src *Sources) AttribUniform(name string) (slot uint32, ok bool) {
	for _, ab := range src.AttribUniforms {
		if ab.Name == name {
			return ab.Slot, true
		}
	}
	return 0, false
}

type shaderStage uint8

const (
	vertexStage shaderStage = iota
	fragmentStage
)

type varying struct {
	typename string
	name     string
}

// Programmer generates GLSL sources from program descriptors. It reuses
// internal scratch buffers so it is not safe for concurrent use.
type Programmer struct {
	version Version
	vsDecl  []byte
	vsMain  []byte
	fsDecl  []byte
	fsMain  []byte
	gs      []byte
	// varyings are written by the vertex stage as v<name> and read by the fragment stage as varyingPrefix<name>.
	varyings      []varying
	varyingPrefix string
	src           Sources
}

// NewDefaultProgrammer returns a Programmer targeting [DefaultVersion].
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		version: DefaultVersion,
		vsDecl:  make([]byte, 0, 512),
		vsMain:  make([]byte, 0, 512),
		fsDecl:  make([]byte, 0, 1024),
		fsMain:  make([]byte, 0, 4096),
	}
}

// SetVersion sets the GLSL version of generated sources.
func (p *Programmer) SetVersion(v Version) error {
	if !v.valid() {
		return fmt.Errorf("unsupported GLSL version %d (es=%v)", v.Number, v.ES)
	}
	p.version = v
	return nil
}

// Version returns the GLSL version of generated sources.
func (p *Programmer) Version() Version { return p.version }

// Generate returns the GLSL sources implementing desc. The descriptor is
// canonicalized before use so fields irrelevant to code generation never reach the output.
// Generation is deterministic: equal canonical descriptors yield byte-identical sources.
func (p *Programmer) Generate(desc *Descriptor) (Sources, error) {
	d := *desc
	d.Canonicalize()
	err := d.Validate()
	if err != nil {
		return Sources{}, err
	}
	if p.version.ES && (d.GeometryPassthrough || d.DualSrc != DualSrcNone) {
		return Sources{}, fmt.Errorf("%w: geometry and dual source outputs in GLSL ES", ErrUnsupported)
	}
	p.reset(d.GeometryPassthrough)

	p.appendVertexPosition(&d)
	color, colorOne := p.appendInput(d.ColorInput, AttribColor, AttribNameColor, "Color", UniformColor)
	p.fsMain = appendLine(p.fsMain, "vec4 color = ", color, ";")
	fcs := int(d.FirstCoverageStage)
	for s := 0; s < fcs && s < MaxStages; s++ {
		if d.Stages[s].Enabled {
			p.appendStage(&d, s, "color", colorOne)
			colorOne = false
		}
	}
	if d.ColorFilter != ColorFilterDst {
		p.addUniform(fragmentStage, "vec4", UniformColorFilter, 0)
		p.fsMain = appendColorFilter(p.fsMain, d.ColorFilter, UniformColorFilter, "color")
	}
	if d.ColorMatrix {
		p.addUniform(fragmentStage, "mat4", UniformColorMatrix, 0)
		p.addUniform(fragmentStage, "vec4", UniformColorMatrixVec, 0)
		p.fsMain = appendColorMatrix(p.fsMain, "color")
	}
	p.appendCoverageAndOutput(&d)

	if d.GeometryPassthrough {
		p.appendGeometryShader()
	}
	return p.finish(), nil
}

func (p *Programmer) reset(geometry bool) {
	p.vsDecl = p.version.appendHeader(p.vsDecl[:0])
	p.fsDecl = p.version.appendHeader(p.fsDecl[:0])
	p.vsMain = p.vsMain[:0]
	p.fsMain = p.fsMain[:0]
	p.gs = p.gs[:0]
	p.varyings = p.varyings[:0]
	p.varyingPrefix = "v"
	if geometry {
		p.varyingPrefix = "g"
	}
	// Sources escape to the caller, never reuse their slices.
	p.src = Sources{}
}

func (p *Programmer) finish() Sources {
	vs := append(p.vsDecl, "\nvoid main() {\n"...)
	vs = append(vs, p.vsMain...)
	vs = append(vs, "}\n"...)
	fs := append(p.fsDecl, "\nvoid main() {\n"...)
	fs = append(fs, p.fsMain...)
	fs = append(fs, "}\n"...)
	p.vsDecl, p.fsDecl = vs[:0], fs[:0]
	src := p.src
	src.Vertex = string(vs)
	src.Fragment = string(fs)
	if len(p.gs) > 0 {
		src.Geometry = string(p.gs)
	}
	return src
}

func (p *Programmer) addUniform(stage shaderStage, typename, name string, arrayLen int) {
	if stage == vertexStage {
		p.vsDecl = appendUniformDecl(p.vsDecl, typename, name, arrayLen)
	} else {
		p.fsDecl = appendUniformDecl(p.fsDecl, typename, name, arrayLen)
	}
	if !slices.Contains(p.src.Uniforms, name) {
		p.src.Uniforms = append(p.src.Uniforms, name)
	}
}

func (p *Programmer) addAttrib(slot uint32, typename, name string) {
	p.vsDecl = appendAttribDecl(p.vsDecl, slot, typename, name)
	p.src.Attribs = append(p.src.Attribs, AttribBinding{Name: name, Slot: slot})
}

// addVarying declares a vertex to fragment varying and returns the fragment side name.
func (p *Programmer) addVarying(typename, name string) string {
	p.vsDecl = appendInOutDecl(p.vsDecl, "out", typename, "v", name, "")
	p.fsDecl = appendInOutDecl(p.fsDecl, "in", typename, p.varyingPrefix, name, "")
	p.varyings = append(p.varyings, varying{typename: typename, name: name})
	return p.varyingPrefix + name
}

func (p *Programmer) appendVertexPosition(d *Descriptor) {
	viewM := UniformViewMatrix
	if d.VertexLayout&LayoutViewMatrixAttrib != 0 {
		viewM = attribViewMatrixName
		p.addAttrib(AttribViewMatrix, "mat3", viewM)
		p.src.AttribUniforms = append(p.src.AttribUniforms, AttribBinding{Name: UniformViewMatrix, Slot: AttribViewMatrix})
	} else {
		p.addUniform(vertexStage, "mat3", UniformViewMatrix, 0)
	}
	p.addAttrib(AttribPosition, "vec2", AttribNamePosition)
	p.vsMain = appendLine(p.vsMain, "vec3 pos3 = ", viewM, " * vec3(", AttribNamePosition, ", 1.0);")
	p.vsMain = appendLine(p.vsMain, "gl_Position = vec4(pos3.xy, 0.0, pos3.z);")
	if d.VertexLayout&LayoutPointSize != 0 {
		p.vsMain = appendLine(p.vsMain, "gl_PointSize = 1.0;")
	}
}

// appendInput returns the fragment expression for a color or coverage input
// and whether it is the constant vec4(1).
func (p *Programmer) appendInput(mode InputMode, slot uint32, attribName, varyingName, uniformName string) (expr string, one bool) {
	switch mode {
	case InputAttribute:
		p.addAttrib(slot, "vec4", attribName)
		expr = p.addVarying("vec4", varyingName)
		p.vsMain = appendLine(p.vsMain, "v", varyingName, " = ", attribName, ";")
		return expr, false
	case InputUniform:
		p.addUniform(fragmentStage, "vec4", uniformName, 0)
		return uniformName, false
	case InputSolidWhite:
		return "vec4(1.0)", true
	case InputTransBlack:
		return "vec4(0.0)", false
	}
	panic("unreachable")
}

func (p *Programmer) appendGeometryShader() {
	b := p.version.appendHeader(p.gs[:0])
	b = append(b, "layout(triangles) in;\nlayout(triangle_strip, max_vertices = 3) out;\n"...)
	for _, v := range p.varyings {
		b = appendInOutDecl(b, "in", v.typename, "v", v.name, "[]")
		b = appendInOutDecl(b, "out", v.typename, "g", v.name, "")
	}
	b = append(b, "\nvoid main() {\n\tfor (int i = 0; i < 3; i++) {\n\t\tgl_Position = gl_in[i].gl_Position;\n"...)
	for _, v := range p.varyings {
		b = append(b, "\t\tg"...)
		b = append(b, v.name...)
		b = append(b, " = v"...)
		b = append(b, v.name...)
		b = append(b, "[i];\n"...)
	}
	b = append(b, "\t\tEmitVertex();\n\t}\n\tEndPrimitive();\n}\n"...)
	p.gs = b
}

var errNilDescriptor = errors.New("nil descriptor")

// GenerateAll is a convenience for one-off generation with a default Programmer.
func GenerateAll(desc *Descriptor) (Sources, error) {
	if desc == nil {
		return Sources{}, errNilDescriptor
	}
	return NewDefaultProgrammer().Generate(desc)
}
