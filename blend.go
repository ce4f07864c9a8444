package glprog

// BlendCoeff is a fixed function blend coefficient.
type BlendCoeff uint8

const (
	BlendZero BlendCoeff = iota
	BlendOne
	BlendSC  // Source color.
	BlendISC // One minus source color.
	BlendDC  // Destination color.
	BlendIDC // One minus destination color.
	BlendSA  // Source alpha.
	BlendISA // One minus source alpha.
	BlendDA  // Destination alpha.
	BlendIDA // One minus destination alpha.
)

// BlendOptFlags are shortcuts blend optimization found for a draw.
type BlendOptFlags uint8

const (
	// BlendSkipDraw means the draw leaves the destination unchanged.
	BlendSkipDraw BlendOptFlags = 1 << iota
	// BlendDisable means the destination need not be read.
	BlendDisable
	// BlendCoverageAsAlpha means coverage may be folded into the source color.
	BlendCoverageAsAlpha
	// BlendEmitCoverage means the color computation is irrelevant and coverage is emitted as color.
	BlendEmitCoverage
	// BlendEmitTransBlack means transparent black is emitted and coverage is irrelevant.
	BlendEmitTransBlack
)

// Blend is the outcome of blend optimization: the flags found and the
// coefficients the caller should configure fixed function blending with.
type Blend struct {
	Opts     BlendOptFlags
	Src, Dst BlendCoeff
}

// OptimizeBlend looks for blend shortcuts given the coefficients and what is known
// about the source color and coverage. stencilWrites keeps draws with no color
// effect alive since they still update the stencil buffer.
func OptimizeBlend(src, dst BlendCoeff, colorOpaque, hasCoverage, stencilWrites bool) Blend {
	// With source alpha one, SA weighs the destination by one and ISA by zero.
	dstIsOne := dst == BlendOne || (dst == BlendSA && colorOpaque)
	dstIsZero := dst == BlendZero || (dst == BlendISA && colorOpaque)
	if src == BlendZero && dstIsOne {
		if stencilWrites {
			// Blending stays on so the destination color is kept.
			return Blend{Opts: BlendEmitTransBlack, Src: BlendZero, Dst: BlendOne}
		}
		return Blend{Opts: BlendSkipDraw, Src: src, Dst: dst}
	}
	if !hasCoverage {
		if dstIsZero {
			switch src {
			case BlendOne:
				return Blend{Opts: BlendDisable, Src: BlendOne, Dst: BlendZero}
			case BlendZero:
				return Blend{Opts: BlendDisable | BlendEmitTransBlack, Src: BlendOne, Dst: BlendZero}
			}
		}
		return Blend{Src: src, Dst: dst}
	}
	// With coverage c the blend is c*(src*S + dst*D) + (1-c)*D.
	if dst == BlendOne || dst == BlendISA || dst == BlendISC {
		return Blend{Opts: BlendCoverageAsAlpha, Src: src, Dst: dst}
	}
	if dstIsZero {
		switch {
		case src == BlendZero:
			// (1-c)*D.
			return Blend{Opts: BlendEmitCoverage, Src: BlendZero, Dst: BlendISC}
		case colorOpaque:
			// c*src*S + (1-c)*D, with Sa one: c*src*S + (1-c*Sa)*D.
			return Blend{Opts: BlendCoverageAsAlpha, Src: src, Dst: BlendISA}
		}
	}
	return Blend{Src: src, Dst: dst}
}
