package glprog_test

import (
	"testing"

	"github.com/soypat/glprog"
)

func TestOptimizeBlend(t *testing.T) {
	const (
		zero = glprog.BlendZero
		one  = glprog.BlendOne
		sa   = glprog.BlendSA
		isa  = glprog.BlendISA
		isc  = glprog.BlendISC
		dc   = glprog.BlendDC
	)
	tests := []struct {
		name                      string
		src, dst                  glprog.BlendCoeff
		opaque, coverage, stencil bool
		want                      glprog.Blend
	}{
		{name: "no effect", src: zero, dst: one, want: glprog.Blend{Opts: glprog.BlendSkipDraw, Src: zero, Dst: one}},
		{name: "no effect opaque src alpha", src: zero, dst: sa, opaque: true, coverage: true, want: glprog.Blend{Opts: glprog.BlendSkipDraw, Src: zero, Dst: sa}},
		{name: "opaque erase keeps draw", src: zero, dst: isa, opaque: true, want: glprog.Blend{Opts: glprog.BlendDisable | glprog.BlendEmitTransBlack, Src: one, Dst: zero}},
		{name: "transparent erase", src: zero, dst: isa, want: glprog.Blend{Src: zero, Dst: isa}},
		{name: "no effect with stencil", src: zero, dst: one, stencil: true, want: glprog.Blend{Opts: glprog.BlendEmitTransBlack, Src: zero, Dst: one}},
		{name: "copy", src: one, dst: zero, want: glprog.Blend{Opts: glprog.BlendDisable, Src: one, Dst: zero}},
		{name: "opaque srcover", src: one, dst: isa, opaque: true, want: glprog.Blend{Opts: glprog.BlendDisable, Src: one, Dst: zero}},
		{name: "transparent srcover", src: one, dst: isa, want: glprog.Blend{Src: one, Dst: isa}},
		{name: "opaque src alpha", src: one, dst: sa, opaque: true, want: glprog.Blend{Src: one, Dst: sa}},
		{name: "opaque srcover coverage", src: one, dst: isa, opaque: true, coverage: true, want: glprog.Blend{Opts: glprog.BlendCoverageAsAlpha, Src: one, Dst: isa}},
		{name: "clear", src: zero, dst: zero, want: glprog.Blend{Opts: glprog.BlendDisable | glprog.BlendEmitTransBlack, Src: one, Dst: zero}},
		{name: "srcover coverage", src: one, dst: isa, coverage: true, want: glprog.Blend{Opts: glprog.BlendCoverageAsAlpha, Src: one, Dst: isa}},
		{name: "additive coverage", src: one, dst: one, coverage: true, want: glprog.Blend{Opts: glprog.BlendCoverageAsAlpha, Src: one, Dst: one}},
		{name: "clear coverage", src: zero, dst: zero, coverage: true, want: glprog.Blend{Opts: glprog.BlendEmitCoverage, Src: zero, Dst: isc}},
		{name: "opaque copy coverage", src: one, dst: zero, opaque: true, coverage: true, want: glprog.Blend{Opts: glprog.BlendCoverageAsAlpha, Src: one, Dst: isa}},
		{name: "copy coverage", src: one, dst: zero, coverage: true, want: glprog.Blend{Src: one, Dst: zero}},
		{name: "modulate", src: zero, dst: dc, coverage: true, want: glprog.Blend{Src: zero, Dst: dc}},
	}
	for _, test := range tests {
		got := glprog.OptimizeBlend(test.src, test.dst, test.opaque, test.coverage, test.stencil)
		if got != test.want {
			t.Errorf("%s: want %+v, got %+v", test.name, test.want, got)
		}
	}
}
