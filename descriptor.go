package glprog

import (
	"fmt"

	"github.com/soypat/glprog/glbuild"
)

// NewDescriptor builds the canonical program descriptor of a draw. Optional
// features are only requested when caps advertises them, so the returned
// descriptor always passes [glbuild.Descriptor.Supported] for caps.
// When the returned Blend has [BlendSkipDraw] set the draw can be dropped and the descriptor is zero.
func NewDescriptor(ds *DrawState, caps *glbuild.Caps) (d glbuild.Descriptor, blend Blend, err error) {
	if err = ds.validate(); err != nil {
		return d, blend, err
	}
	src, dst := ds.SrcBlend, ds.DstBlend
	if ds.ColorWritesOff {
		src, dst = BlendZero, BlendOne
	}
	blend = OptimizeBlend(src, dst, ds.colorOpaque(), ds.hasCoverage(), ds.StencilWrites)
	if blend.Opts&BlendSkipDraw != 0 {
		return glbuild.Descriptor{}, blend, nil
	}
	skipCoverage := blend.Opts&BlendEmitTransBlack != 0
	skipColor := blend.Opts&(BlendEmitTransBlack|BlendEmitCoverage) != 0

	layout := ds.VertexLayout
	attribColor := !skipColor && layout&glbuild.LayoutColor != 0
	attribCoverage := !skipCoverage && layout&glbuild.LayoutCoverage != 0
	layout &^= glbuild.LayoutColor | glbuild.LayoutCoverage | glbuild.LayoutViewMatrixAttrib | glbuild.LayoutPointSize
	if skipCoverage {
		layout &^= glbuild.LayoutEdge
	}
	matrixAttribs := caps.MaxVertexAttribs >= glbuild.NumAttribSlots

	switch {
	case blend.Opts&BlendEmitTransBlack != 0:
		d.ColorInput = glbuild.InputTransBlack
	case blend.Opts&BlendEmitCoverage != 0, ds.Color == opaqueWhite && !attribColor:
		d.ColorInput = glbuild.InputSolidWhite
	case attribColor:
		d.ColorInput = glbuild.InputAttribute
	default:
		d.ColorInput = glbuild.InputUniform
	}
	switch {
	case skipCoverage:
		d.CoverageInput = glbuild.InputTransBlack
	case ds.Coverage == opaqueWhite && !attribCoverage:
		d.CoverageInput = glbuild.InputSolidWhite
	case attribCoverage:
		d.CoverageInput = glbuild.InputAttribute
	default:
		d.CoverageInput = glbuild.InputUniform
	}
	if !skipColor {
		d.ColorFilter = ds.ColorFilter
		d.ColorMatrix = ds.ColorMatrix != nil
	}
	if !skipCoverage {
		d.EdgeCount = uint8(len(ds.Edges))
		d.EdgeConcave = ds.EdgeConcave
	}
	if layout&glbuild.LayoutEdge != 0 {
		d.VertexEdge = ds.VertexEdge
		if d.VertexEdge.NeedsDerivatives() && !caps.ShaderDerivatives {
			return d, blend, fmt.Errorf("%w: edge type %d needs shader derivatives", ErrCapabilityMismatch, d.VertexEdge)
		}
	}

	fcs := ds.FirstCoverageStage
	lastEnabled := -1
	for s := range ds.Stages {
		st := &ds.Stages[s]
		skip := !st.Enabled || (s < fcs && skipColor) || (s >= fcs && skipCoverage)
		if skip {
			layout &^= glbuild.LayoutStageTexCoord(s)
			continue
		}
		lastEnabled = s
		d.Stages[s] = stageDesc(st, caps)
		if st.MatrixAsAttrib && matrixAttribs {
			layout |= glbuild.LayoutStageMatrixAttrib(s)
		}
	}

	if ds.Target.Unpremultiplied {
		d.Output = glbuild.OutputUnpremultipliedRoundDown
		if caps.Unpremul == glbuild.UnpremulUpOnWriteDownOnRead {
			d.Output = glbuild.OutputUnpremultipliedRoundUp
		}
	}

	// Coverage stages only need to be kept apart from color stages when something
	// sits between them. Otherwise color*coverage is the same as modulating color.
	d.FirstCoverageStage = MaxStages
	hasCoverage := fcs <= lastEnabled
	firstCoverage := MaxStages
	if hasCoverage {
		firstCoverage = fcs
	} else {
		hasCoverage = d.EdgeCount > 0 || attribCoverage || layout&glbuild.LayoutEdge != 0
	}
	if hasCoverage {
		if d.ColorFilter != glbuild.ColorFilterDst || d.ColorMatrix {
			d.FirstCoverageStage = uint8(firstCoverage)
		}
		if caps.DualSourceBlend && !caps.GLSL.ES && blend.Opts&(BlendEmitCoverage|BlendCoverageAsAlpha) == 0 {
			switch blend.Dst {
			case BlendZero:
				d.DualSrc = glbuild.DualSrcCoverage
			case BlendSA:
				d.DualSrc = glbuild.DualSrcCoverageISA
			case BlendSC:
				d.DualSrc = glbuild.DualSrcCoverageISC
			}
			if d.DualSrc != glbuild.DualSrcNone {
				d.FirstCoverageStage = uint8(firstCoverage)
			}
		}
	}

	if ds.ViewMatrixAsAttrib && matrixAttribs {
		layout |= glbuild.LayoutViewMatrixAttrib
	}
	if ds.Points {
		layout |= glbuild.LayoutPointSize
	}
	d.GeometryPassthrough = ds.GeometryPassthrough && caps.GeometryShader && !caps.GLSL.ES
	d.VertexLayout = layout
	d.Canonicalize()
	if err = d.Validate(); err != nil {
		return d, blend, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if err = d.Supported(caps); err != nil {
		return d, blend, fmt.Errorf("%w: %w", ErrCapabilityMismatch, err)
	}
	return d, blend, nil
}

func stageDesc(st *StageState, caps *glbuild.Caps) glbuild.StageDesc {
	sd := glbuild.StageDesc{
		Enabled: true,
		Fetch:   st.Filter.fetch(),
	}
	switch {
	case st.TextureMatrix.IsIdentity():
		sd.OptFlags |= glbuild.StageIdentityMatrix | glbuild.StageNoPerspective
	case !st.TextureMatrix.HasPerspective():
		sd.OptFlags |= glbuild.StageNoPerspective
	}
	if st.Domain != nil {
		sd.OptFlags |= glbuild.StageCustomTextureDomain
	}
	switch st.Mapping {
	case MappingRadial:
		sd.Mapping = glbuild.MapRadial
	case MappingSweep:
		sd.Mapping = glbuild.MapSweep
	case MappingRadial2:
		sd.Mapping = glbuild.MapRadial2
		if st.Radial2.Degenerate() {
			sd.Mapping = glbuild.MapRadial2Degenerate
		}
	}
	if sd.Fetch.UsesKernel() {
		sd.KernelWidth = uint8(len(st.Kernel))
	}
	if !caps.TextureSwizzle {
		switch {
		case st.Texture.AlphaOnly && caps.TextureRed:
			sd.InConfig |= glbuild.InSmearRed
		case st.Texture.AlphaOnly:
			sd.InConfig |= glbuild.InSmearAlpha
		case st.Texture.BGRA:
			sd.InConfig |= glbuild.InSwapRAndB
		}
	}
	if st.Texture.Unpremultiplied {
		// Reads round opposite to the upload conversion.
		if caps.Unpremul == glbuild.UnpremulUpOnWriteDownOnRead {
			sd.InConfig |= glbuild.InMulRGBByAlphaRoundDown
		} else {
			sd.InConfig |= glbuild.InMulRGBByAlphaRoundUp
		}
	}
	return sd
}
