package glprog

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glprog/glbuild"
	"github.com/soypat/glprog/glgpu"
)

// StageUniforms holds the per stage values flushed to a program.
type StageUniforms struct {
	TextureMatrix  Matrix
	TexelSize      ms2.Vec
	Kernel         []float32
	ImageIncrement ms2.Vec
	Radial2        [glbuild.Radial2ParamCount]float32
	// Domain is the texture domain as minX, minY, maxX, maxY.
	Domain [4]float32
}

// UniformValues holds every value a program may consume for a draw. Values the
// entry's program does not use are ignored.
type UniformValues struct {
	// ViewMatrix maps draw coordinates to pixels. The NDC scale is applied on upload.
	ViewMatrix                Matrix
	TargetWidth, TargetHeight int
	Color, Coverage           Color
	ColorFilter               Color
	Edges                     []Edge
	ColorMatrix               ColorMatrix
	Stages                    [MaxStages]StageUniforms
}

// shadowed is the last value uploaded for a uniform. The zero value is unset.
type shadowed[T comparable] struct {
	v     T
	valid bool
}

// update stores v and reports whether it differs from the stored value.
func (s *shadowed[T]) update(v T) bool {
	if s.valid && s.v == v {
		return false
	}
	s.v = v
	s.valid = true
	return true
}

func (s *shadowed[T]) invalidate() { s.valid = false }

type kernelWeights [glbuild.MaxKernelWidth]float32

type stageShadow struct {
	texMatrix      shadowed[Matrix]
	texelSize      shadowed[ms2.Vec]
	radial2        shadowed[[glbuild.Radial2ParamCount]float32]
	kernel         shadowed[kernelWeights]
	imageIncrement shadowed[ms2.Vec]
	domain         shadowed[[4]float32]
}

// viewState is what the uploaded view matrix was derived from.
type viewState struct {
	m             Matrix
	width, height int
}

type uniformShadow struct {
	viewMatrix  shadowed[viewState]
	color       shadowed[Color]
	coverage    shadowed[Color]
	colorFilter shadowed[Color]
	edges       shadowed[[glbuild.MaxEdges]Edge]
	colorMatrix shadowed[ColorMatrix]
	stages      [MaxStages]stageShadow
}

type stageBindings struct {
	texMatrix, texelSize, radial2, kernel, imageIncrement, domain glgpu.Binding
}

// entryBindings is the bindings table resolved into fields so flushing does no map lookups.
type entryBindings struct {
	viewMatrix, color, coverage, colorFilter, edges glgpu.Binding
	colorMatrix, colorMatrixVec                     glgpu.Binding
	stages                                          [MaxStages]stageBindings
}

func resolveBindings(b glgpu.Bindings) (eb entryBindings) {
	eb.viewMatrix = b.Lookup(glbuild.UniformViewMatrix)
	eb.color = b.Lookup(glbuild.UniformColor)
	eb.coverage = b.Lookup(glbuild.UniformCoverage)
	eb.colorFilter = b.Lookup(glbuild.UniformColorFilter)
	eb.edges = b.Lookup(glbuild.UniformEdges)
	eb.colorMatrix = b.Lookup(glbuild.UniformColorMatrix)
	eb.colorMatrixVec = b.Lookup(glbuild.UniformColorMatrixVec)
	for s := range eb.stages {
		sb := &eb.stages[s]
		sb.texMatrix = b.Lookup(glbuild.StageTexMatrix.Name(s))
		sb.texelSize = b.Lookup(glbuild.StageTexelSize.Name(s))
		sb.radial2 = b.Lookup(glbuild.StageRadial2Params.Name(s))
		sb.kernel = b.Lookup(glbuild.StageKernel.Name(s))
		sb.imageIncrement = b.Lookup(glbuild.StageImageIncrement.Name(s))
		sb.domain = b.Lookup(glbuild.StageTexDomain.Name(s))
	}
	return eb
}

func used(b glgpu.Binding) bool { return b.Kind != glgpu.Unused }

// invalidateAttributes forgets values supplied as constant vertex attributes.
// Those live in context state shared by all programs, not in the program.
func (e *Entry) invalidateAttributes() {
	if e.binds.viewMatrix.Kind == glgpu.Attribute {
		e.shadow.viewMatrix.invalidate()
	}
	for s := range e.binds.stages {
		if e.binds.stages[s].texMatrix.Kind == glgpu.Attribute {
			e.shadow.stages[s].texMatrix.invalidate()
		}
	}
}

// Flush uploads the values of v that differ from what was last uploaded to
// this entry's program and returns how many uniforms were uploaded. The entry
// is bound first if it is not already.
func (e *Entry) Flush(v *UniformValues) (uploads int, err error) {
	if e.state == EntryEvicted {
		return 0, ErrEvicted
	}
	if e.state != EntryBound {
		if err = e.cache.Use(e); err != nil {
			return 0, err
		}
	}
	dev := e.cache.dev
	sh := &e.shadow
	eb := &e.binds

	if used(eb.viewMatrix) && sh.viewMatrix.update(viewState{m: v.ViewMatrix, width: v.TargetWidth, height: v.TargetHeight}) {
		if v.TargetWidth <= 0 || v.TargetHeight <= 0 {
			sh.viewMatrix.invalidate()
			return uploads, fmt.Errorf("%w: render target size %dx%d", ErrInvalidState, v.TargetWidth, v.TargetHeight)
		}
		m := ndcMatrix(v.TargetWidth, v.TargetHeight).Mul(v.ViewMatrix)
		uploadMatrix(dev, eb.viewMatrix, &m)
		uploads++
	}
	if used(eb.color) && sh.color.update(v.Color) {
		dev.Uniform4f(eb.color.Location, v.Color[0], v.Color[1], v.Color[2], v.Color[3])
		uploads++
	}
	if used(eb.coverage) && sh.coverage.update(v.Coverage) {
		dev.Uniform4f(eb.coverage.Location, v.Coverage[0], v.Coverage[1], v.Coverage[2], v.Coverage[3])
		uploads++
	}
	if used(eb.colorFilter) && sh.colorFilter.update(v.ColorFilter) {
		c := v.ColorFilter
		dev.Uniform4f(eb.colorFilter.Location, c[0], c[1], c[2], c[3])
		uploads++
	}
	if used(eb.edges) {
		n := min(int(e.desc.EdgeCount), len(v.Edges))
		var edges [glbuild.MaxEdges]Edge
		copy(edges[:n], v.Edges)
		if sh.edges.update(edges) {
			flat := make([]float32, 0, 3*glbuild.MaxEdges)
			for i := 0; i < int(e.desc.EdgeCount); i++ {
				flat = append(flat, edges[i][:]...)
			}
			dev.Uniform3fv(eb.edges.Location, flat)
			uploads++
		}
	}
	if (used(eb.colorMatrix) || used(eb.colorMatrixVec)) && sh.colorMatrix.update(v.ColorMatrix) {
		if used(eb.colorMatrix) {
			dev.UniformMatrix4(eb.colorMatrix.Location, &v.ColorMatrix.M)
		}
		if used(eb.colorMatrixVec) {
			vec := v.ColorMatrix.Vec
			dev.Uniform4f(eb.colorMatrixVec.Location, vec[0], vec[1], vec[2], vec[3])
		}
		uploads++
	}
	for s := range eb.stages {
		uploads += e.flushStage(s, &v.Stages[s])
	}
	if err = dev.Err(); err != nil {
		return uploads, fmt.Errorf("flushing uniforms: %w", err)
	}
	return uploads, nil
}

func (e *Entry) flushStage(s int, v *StageUniforms) (uploads int) {
	dev := e.cache.dev
	sb := &e.binds.stages[s]
	sh := &e.shadow.stages[s]
	if used(sb.texMatrix) && sh.texMatrix.update(v.TextureMatrix) {
		uploadMatrix(dev, sb.texMatrix, &v.TextureMatrix)
		uploads++
	}
	if used(sb.texelSize) && sh.texelSize.update(v.TexelSize) {
		dev.Uniform2f(sb.texelSize.Location, v.TexelSize.X, v.TexelSize.Y)
		uploads++
	}
	if used(sb.radial2) && sh.radial2.update(v.Radial2) {
		dev.Uniform1fv(sb.radial2.Location, v.Radial2[:])
		uploads++
	}
	if used(sb.kernel) {
		width := int(e.desc.Stages[s].KernelWidth)
		var k kernelWeights
		copy(k[:width], v.Kernel)
		if sh.kernel.update(k) {
			dev.Uniform1fv(sb.kernel.Location, k[:width])
			uploads++
		}
	}
	if used(sb.imageIncrement) && sh.imageIncrement.update(v.ImageIncrement) {
		dev.Uniform2f(sb.imageIncrement.Location, v.ImageIncrement.X, v.ImageIncrement.Y)
		uploads++
	}
	if used(sb.domain) && sh.domain.update(v.Domain) {
		d := v.Domain
		dev.Uniform4f(sb.domain.Location, d[0], d[1], d[2], d[3])
		uploads++
	}
	return uploads
}

// uploadMatrix uploads m as a mat3 uniform or as three constant column attributes.
func uploadMatrix(dev glgpu.Device, b glgpu.Binding, m *Matrix) {
	if b.Kind == glgpu.Attribute {
		for col := uint32(0); col < 3; col++ {
			dev.VertexAttrib3f(b.Slot+col, m[col], m[3+col], m[6+col])
		}
		return
	}
	dev.UniformMatrix3(b.Location, (*[9]float32)(m))
}
