package glprog

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glprog/glbuild"
)

// MaxStages is the number of texture stages of a draw.
const MaxStages = glbuild.MaxStages

// Color is a premultiplied RGBA color with components in [0,1].
type Color [4]float32

var opaqueWhite = Color{1, 1, 1, 1}

// Edge is a half plane a*x + b*y + c >= 0 in window coordinates, scaled so
// the value is the signed distance in pixels.
type Edge [3]float32

// ColorMatrix transforms unpremultiplied color as M*c + Vec. M is row major.
type ColorMatrix struct {
	M   [16]float32
	Vec [4]float32
}

// Filter selects how a stage reads its texture.
type Filter uint8

const (
	FilterNearest Filter = iota
	FilterBilinear
	// FilterBox2x2 averages a 2x2 texel box around the sample.
	FilterBox2x2
	FilterConvolution
	FilterDilate
	FilterErode
)

func (f Filter) fetch() glbuild.FetchMode {
	switch f {
	case FilterBox2x2:
		return glbuild.FetchBox2x2
	case FilterConvolution:
		return glbuild.FetchConvolution
	case FilterDilate:
		return glbuild.FetchDilate
	case FilterErode:
		return glbuild.FetchErode
	}
	return glbuild.FetchSingle
}

// Mapping is the sampler coordinate mapping.
type Mapping uint8

const (
	MappingIdentity Mapping = iota
	MappingRadial
	MappingRadial2
	MappingSweep
)

// TextureInfo holds the texture properties descriptor construction needs.
type TextureInfo struct {
	Width, Height int
	// AlphaOnly textures hold a single channel.
	AlphaOnly bool
	// BGRA textures store red and blue swapped.
	BGRA bool
	// Unpremultiplied textures store color not multiplied by alpha.
	Unpremultiplied bool
	// Opaque textures have alpha one everywhere.
	Opaque bool
}

// StageState is the state of one texture stage of a draw.
type StageState struct {
	Enabled bool
	Texture TextureInfo
	Filter  Filter
	Mapping Mapping
	Radial2 Radial2Gradient
	// Kernel holds the convolution weights. Its length is the kernel width for
	// convolution, dilate and erode filters.
	Kernel []float32
	// ImageIncrement is the step between kernel samples in texture coordinates.
	ImageIncrement ms2.Vec
	// Domain, if set, clamps texture coordinates to the box.
	Domain        *ms2.Box
	TextureMatrix Matrix
	// MatrixAsAttrib requests the texture matrix as a constant vertex attribute.
	MatrixAsAttrib bool
}

// RenderTarget is the surface drawn to.
type RenderTarget struct {
	Width, Height   int
	Unpremultiplied bool
}

// DrawState is the read only snapshot of everything a draw needs from a program.
type DrawState struct {
	// VertexLayout holds glbuild layout bits. Unlike descriptors, draw state
	// may carry [glbuild.LayoutColor] and [glbuild.LayoutCoverage].
	VertexLayout uint32
	Stages       [MaxStages]StageState
	// FirstCoverageStage splits stages into color stages before it and coverage stages after.
	FirstCoverageStage int
	Color              Color
	Coverage           Color
	ColorFilter        glbuild.ColorFilterMode
	ColorFilterColor   Color
	ColorMatrix        *ColorMatrix
	SrcBlend, DstBlend BlendCoeff
	StencilWrites      bool
	ColorWritesOff     bool
	Edges              []Edge
	EdgeConcave        bool
	VertexEdge         glbuild.EdgeType
	Target             RenderTarget
	ViewMatrix         Matrix
	Points             bool
	// ViewMatrixAsAttrib requests the view matrix as a constant vertex attribute.
	ViewMatrixAsAttrib  bool
	GeometryPassthrough bool
}

// NewDrawState returns a draw state with opaque white color, full coverage,
// identity matrices, source over blending and the given target.
func NewDrawState(target RenderTarget) DrawState {
	ds := DrawState{
		FirstCoverageStage: MaxStages,
		Color:              opaqueWhite,
		Coverage:           opaqueWhite,
		SrcBlend:           BlendOne,
		DstBlend:           BlendISA,
		Target:             target,
		ViewMatrix:         IdentityMatrix(),
	}
	for s := range ds.Stages {
		ds.Stages[s].TextureMatrix = IdentityMatrix()
	}
	return ds
}

func (ds *DrawState) validate() error {
	switch {
	case ds.FirstCoverageStage < 0 || ds.FirstCoverageStage > MaxStages:
		return fmt.Errorf("%w: first coverage stage %d", ErrInvalidState, ds.FirstCoverageStage)
	case len(ds.Edges) > glbuild.MaxEdges:
		return fmt.Errorf("%w: %d edges exceeds maximum %d", ErrInvalidState, len(ds.Edges), glbuild.MaxEdges)
	case ds.Target.Width <= 0 || ds.Target.Height <= 0:
		return fmt.Errorf("%w: render target size %dx%d", ErrInvalidState, ds.Target.Width, ds.Target.Height)
	}
	for s := range ds.Stages {
		st := &ds.Stages[s]
		if !st.Enabled {
			continue
		}
		if st.Filter.fetch().UsesKernel() && (len(st.Kernel) == 0 || len(st.Kernel) > glbuild.MaxKernelWidth) {
			return fmt.Errorf("%w: stage %d kernel width %d out of range [1,%d]", ErrInvalidState, s, len(st.Kernel), glbuild.MaxKernelWidth)
		}
		if st.Texture.Width <= 0 || st.Texture.Height <= 0 {
			return fmt.Errorf("%w: stage %d texture size %dx%d", ErrInvalidState, s, st.Texture.Width, st.Texture.Height)
		}
	}
	return nil
}

// colorOpaque reports whether the color computed before coverage is known to have alpha one.
func (ds *DrawState) colorOpaque() bool {
	if ds.VertexLayout&glbuild.LayoutColor != 0 || ds.Color[3] != 1 {
		return false
	}
	if ds.ColorFilter != glbuild.ColorFilterDst || ds.ColorMatrix != nil {
		return false
	}
	for s := 0; s < ds.FirstCoverageStage; s++ {
		if ds.Stages[s].Enabled && !ds.Stages[s].Texture.Opaque {
			return false
		}
	}
	return true
}

// hasCoverage reports whether any input can make coverage less than one.
func (ds *DrawState) hasCoverage() bool {
	if ds.Coverage != opaqueWhite || len(ds.Edges) > 0 {
		return true
	}
	if ds.VertexLayout&(glbuild.LayoutCoverage|glbuild.LayoutEdge) != 0 {
		return true
	}
	for s := ds.FirstCoverageStage; s < MaxStages; s++ {
		if ds.Stages[s].Enabled {
			return true
		}
	}
	return false
}

// UniformValues extracts the values a program entry flushes for this draw.
func (ds *DrawState) UniformValues() UniformValues {
	v := UniformValues{
		ViewMatrix:   ds.ViewMatrix,
		TargetWidth:  ds.Target.Width,
		TargetHeight: ds.Target.Height,
		Color:        ds.Color,
		Coverage:     ds.Coverage,
		ColorFilter:  ds.ColorFilterColor,
		Edges:        ds.Edges,
	}
	if ds.ColorMatrix != nil {
		v.ColorMatrix = *ds.ColorMatrix
	}
	for s := range ds.Stages {
		st := &ds.Stages[s]
		if !st.Enabled {
			continue
		}
		su := &v.Stages[s]
		su.TextureMatrix = st.TextureMatrix
		su.TexelSize = ms2.Vec{X: 1 / float32(st.Texture.Width), Y: 1 / float32(st.Texture.Height)}
		su.Kernel = st.Kernel
		su.ImageIncrement = st.ImageIncrement
		if st.Mapping == MappingRadial2 {
			su.Radial2 = st.Radial2.Params()
		}
		if st.Domain != nil {
			su.Domain = [4]float32{st.Domain.Min.X, st.Domain.Min.Y, st.Domain.Max.X, st.Domain.Max.Y}
		}
	}
	return v
}
