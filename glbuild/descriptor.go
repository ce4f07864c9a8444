package glbuild

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MaxStages is the number of texture stages a program can sample from.
	MaxStages = 3
	// MaxEdges is the maximum number of uniform half-plane edge equations.
	MaxEdges = 8
	// MaxKernelWidth is the largest convolution or morphology kernel supported.
	MaxKernelWidth = 25
)

// InputMode specifies how a program receives its color or coverage input.
type InputMode uint8

const (
	// InputAttribute reads the value from a per-vertex attribute.
	InputAttribute InputMode = iota
	// InputUniform reads a constant value from a uniform.
	InputUniform
	// InputSolidWhite hardcodes vec4(1) in the generated source.
	InputSolidWhite
	// InputTransBlack hardcodes vec4(0) in the generated source.
	InputTransBlack
	numInputModes
)

// ColorFilterMode is a Porter-Duff coefficient mode applied between a uniform filter
// color (src) and the color computed by the color stages (dst).
// The zero value ColorFilterDst leaves the color untouched and disables filtering.
type ColorFilterMode uint8

const (
	ColorFilterDst ColorFilterMode = iota
	ColorFilterClear
	ColorFilterSrc
	ColorFilterSrcOver
	ColorFilterDstOver
	ColorFilterSrcIn
	ColorFilterDstIn
	ColorFilterSrcOut
	ColorFilterDstOut
	ColorFilterSrcATop
	ColorFilterDstATop
	ColorFilterXor
	ColorFilterPlus
	ColorFilterModulate
	ColorFilterScreen
	numColorFilterModes
)

// EdgeType selects how per-vertex edge attributes are turned into coverage.
type EdgeType uint8

const (
	// EdgeHairLine is a one pixel wide line given as a line equation. Sentinel value.
	EdgeHairLine EdgeType = iota
	// EdgeQuad is a filled quadratic curve in canonical (u,v) space. Needs derivatives.
	EdgeQuad
	// EdgeHairQuad is a hairline quadratic curve. Needs derivatives.
	EdgeHairQuad
	// EdgeCircle is an annulus given as center, inner and outer radius.
	EdgeCircle
	numEdgeTypes
)

// NeedsDerivatives reports whether the edge type uses dFdx/dFdy.
func (et EdgeType) NeedsDerivatives() bool { return et == EdgeQuad || et == EdgeHairQuad }

// OutputConfig describes the pixel format convention of the render target.
type OutputConfig uint8

const (
	OutputPremultiplied OutputConfig = iota
	OutputUnpremultipliedRoundUp
	OutputUnpremultipliedRoundDown
	numOutputConfigs
)

// DualSrcOutput selects what is written to the secondary fragment output
// when dual-source blending is in use.
type DualSrcOutput uint8

const (
	DualSrcNone DualSrcOutput = iota
	// DualSrcCoverage writes raw coverage.
	DualSrcCoverage
	// DualSrcCoverageISA writes coverage * (1 - src alpha).
	DualSrcCoverageISA
	// DualSrcCoverageISC writes coverage * (1 - src color).
	DualSrcCoverageISC
	numDualSrcOutputs
)

// FetchMode selects how a stage reads its texture.
type FetchMode uint8

const (
	FetchSingle FetchMode = iota
	// FetchBox2x2 averages four samples. Used to minify without mipmaps.
	FetchBox2x2
	// FetchConvolution takes KernelWidth weighted samples along one axis.
	FetchConvolution
	// FetchDilate takes the maximum of KernelWidth samples.
	FetchDilate
	// FetchErode takes the minimum of KernelWidth samples.
	FetchErode
	numFetchModes
)

// UsesKernel reports whether the fetch mode reads KernelWidth samples.
func (fm FetchMode) UsesKernel() bool {
	return fm == FetchConvolution || fm == FetchDilate || fm == FetchErode
}

// CoordMapping transforms the interpolated texture coordinate before sampling.
type CoordMapping uint8

const (
	MapIdentity CoordMapping = iota
	MapRadial
	MapRadial2
	// MapRadial2Degenerate is the two point radial gradient whose quadratic
	// coefficient vanishes, solved as a linear equation.
	MapRadial2Degenerate
	MapSweep
	numCoordMappings
)

// StageOptFlags are optimizations the generator may apply to a stage.
type StageOptFlags uint8

const (
	StageNoPerspective StageOptFlags = 1 << iota
	StageIdentityMatrix
	StageCustomTextureDomain
	stageOptMask = StageNoPerspective | StageIdentityMatrix | StageCustomTextureDomain
)

// InConfigFlags describe post-sample fixups emulating texture formats the driver lacks.
type InConfigFlags uint8

const (
	InSwapRAndB InConfigFlags = 1 << iota
	InSmearAlpha
	InSmearRed
	InMulRGBByAlphaRoundUp
	InMulRGBByAlphaRoundDown
	inConfigMask = InSwapRAndB | InSmearAlpha | InSmearRed | InMulRGBByAlphaRoundUp | InMulRGBByAlphaRoundDown
	inMulMask    = InMulRGBByAlphaRoundUp | InMulRGBByAlphaRoundDown
)

// StageDesc is the per-stage part of a [Descriptor].
type StageDesc struct {
	Enabled     bool
	OptFlags    StageOptFlags
	InConfig    InConfigFlags
	Fetch       FetchMode
	Mapping     CoordMapping
	KernelWidth uint8
}

// Descriptor captures every draw-state fact that affects generated shader code.
// It is a plain value: two descriptors describe the same program iff their [Key]s are equal.
// All fields are one byte wide except VertexLayout so there is no padding.
type Descriptor struct {
	VertexLayout        uint32
	ColorInput          InputMode
	CoverageInput       InputMode
	ColorFilter         ColorFilterMode
	ColorMatrix         bool
	EdgeCount           uint8
	EdgeConcave         bool
	VertexEdge          EdgeType
	Output              OutputConfig
	DualSrc             DualSrcOutput
	FirstCoverageStage  uint8
	GeometryPassthrough bool
	Stages              [MaxStages]StageDesc
}

const (
	stageKeySize = 6
	// KeySize is the length in bytes of a descriptor [Key].
	KeySize = 4 + 11 + MaxStages*stageKeySize
)

// Key is the canonical byte serialization of a [Descriptor].
type Key [KeySize]byte

// Hash returns a 64 bit hash of the key, useful for logging.
func (k Key) Hash() uint64 { return hash(k[:], 0) }

// Key serializes the descriptor field by field in declaration order.
func (d *Descriptor) Key() (k Key) {
	b := binary.LittleEndian.AppendUint32(k[:0], d.VertexLayout)
	b = append(b,
		byte(d.ColorInput),
		byte(d.CoverageInput),
		byte(d.ColorFilter),
		b2u8(d.ColorMatrix),
		d.EdgeCount,
		b2u8(d.EdgeConcave),
		byte(d.VertexEdge),
		byte(d.Output),
		byte(d.DualSrc),
		d.FirstCoverageStage,
		b2u8(d.GeometryPassthrough),
	)
	for i := range d.Stages {
		st := &d.Stages[i]
		b = append(b, b2u8(st.Enabled), byte(st.OptFlags), byte(st.InConfig), byte(st.Fetch), byte(st.Mapping), st.KernelWidth)
	}
	if len(b) != KeySize {
		panic("glbuild: descriptor key size mismatch")
	}
	return k
}

// Canonicalize resets fields that cannot affect generated code to their
// sentinel values. Descriptors that only differ in such fields compare equal
// after canonicalization.
func (d *Descriptor) Canonicalize() {
	if d.EdgeCount == 0 {
		d.EdgeConcave = false
	}
	if d.VertexLayout&LayoutEdge == 0 {
		d.VertexEdge = EdgeHairLine
	}
	for s := range d.Stages {
		st := &d.Stages[s]
		if !st.Enabled {
			*st = StageDesc{}
			d.VertexLayout &^= LayoutStageTexCoord(s) | LayoutStageMatrixAttrib(s)
			continue
		}
		if !st.Fetch.UsesKernel() {
			st.KernelWidth = 0
		}
		if st.OptFlags&StageIdentityMatrix != 0 {
			// An identity matrix is never a perspective matrix nor uploaded as attribute.
			st.OptFlags |= StageNoPerspective
			d.VertexLayout &^= LayoutStageMatrixAttrib(s)
		}
	}
}

// Canonical reports whether Canonicalize would leave the descriptor unchanged.
func (d *Descriptor) Canonical() bool {
	c := *d
	c.Canonicalize()
	return c == *d
}

var (
	// ErrInvalidDescriptor is returned when a descriptor holds out of range values.
	ErrInvalidDescriptor = errors.New("invalid program descriptor")
	// ErrUnsupported is returned when a descriptor needs a capability the context lacks.
	ErrUnsupported = errors.New("descriptor requires unsupported capability")
)

// Validate checks ranges of every field. It does not check capabilities, see [Descriptor.Supported].
func (d *Descriptor) Validate() error {
	switch {
	case d.ColorInput >= numInputModes:
		return fmt.Errorf("%w: color input %d", ErrInvalidDescriptor, d.ColorInput)
	case d.CoverageInput >= numInputModes:
		return fmt.Errorf("%w: coverage input %d", ErrInvalidDescriptor, d.CoverageInput)
	case d.ColorFilter >= numColorFilterModes:
		return fmt.Errorf("%w: color filter %d", ErrInvalidDescriptor, d.ColorFilter)
	case d.EdgeCount > MaxEdges:
		return fmt.Errorf("%w: %d edges exceeds maximum %d", ErrInvalidDescriptor, d.EdgeCount, MaxEdges)
	case d.VertexEdge >= numEdgeTypes:
		return fmt.Errorf("%w: vertex edge type %d", ErrInvalidDescriptor, d.VertexEdge)
	case d.Output >= numOutputConfigs:
		return fmt.Errorf("%w: output config %d", ErrInvalidDescriptor, d.Output)
	case d.DualSrc >= numDualSrcOutputs:
		return fmt.Errorf("%w: dual source output %d", ErrInvalidDescriptor, d.DualSrc)
	case int(d.FirstCoverageStage) > MaxStages:
		return fmt.Errorf("%w: first coverage stage %d", ErrInvalidDescriptor, d.FirstCoverageStage)
	case d.VertexLayout&^layoutMask != 0:
		return fmt.Errorf("%w: unknown vertex layout bits %#x", ErrInvalidDescriptor, d.VertexLayout&^layoutMask)
	case d.VertexLayout&(LayoutColor|LayoutCoverage) != 0:
		return fmt.Errorf("%w: per-vertex color and coverage are expressed as input modes", ErrInvalidDescriptor)
	}
	for s := range d.Stages {
		st := &d.Stages[s]
		switch {
		case st.Fetch >= numFetchModes:
			return fmt.Errorf("%w: stage %d fetch mode %d", ErrInvalidDescriptor, s, st.Fetch)
		case st.Mapping >= numCoordMappings:
			return fmt.Errorf("%w: stage %d coord mapping %d", ErrInvalidDescriptor, s, st.Mapping)
		case st.OptFlags&^stageOptMask != 0:
			return fmt.Errorf("%w: stage %d opt flags %#x", ErrInvalidDescriptor, s, st.OptFlags)
		case st.InConfig&^inConfigMask != 0:
			return fmt.Errorf("%w: stage %d input config %#x", ErrInvalidDescriptor, s, st.InConfig)
		case st.InConfig&inMulMask == inMulMask:
			return fmt.Errorf("%w: stage %d requests both premultiply rounding directions", ErrInvalidDescriptor, s)
		case st.Fetch.UsesKernel() && (st.KernelWidth == 0 || st.KernelWidth > MaxKernelWidth):
			return fmt.Errorf("%w: stage %d kernel width %d out of range [1,%d]", ErrInvalidDescriptor, s, st.KernelWidth, MaxKernelWidth)
		}
	}
	return nil
}

// Supported returns a non-nil error wrapping [ErrUnsupported] if the
// descriptor needs a capability caps does not advertise.
func (d *Descriptor) Supported(caps *Caps) error {
	if d.DualSrc != DualSrcNone && (!caps.DualSourceBlend || caps.GLSL.ES) {
		return fmt.Errorf("%w: dual source blending", ErrUnsupported)
	}
	if d.VertexLayout&LayoutEdge != 0 && d.VertexEdge.NeedsDerivatives() && !caps.ShaderDerivatives {
		return fmt.Errorf("%w: shader derivatives for edge type %d", ErrUnsupported, d.VertexEdge)
	}
	if d.GeometryPassthrough && (!caps.GeometryShader || caps.GLSL.ES) {
		return fmt.Errorf("%w: geometry shaders", ErrUnsupported)
	}
	if d.VertexLayout&layoutMatrixAttribMask != 0 && caps.MaxVertexAttribs < NumAttribSlots {
		return fmt.Errorf("%w: %d vertex attributes, need %d for matrix attributes", ErrUnsupported, caps.MaxVertexAttribs, NumAttribSlots)
	}
	return nil
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
