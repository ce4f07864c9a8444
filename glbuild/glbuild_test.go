package glbuild_test

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/soypat/glprog/glbuild"
)

// convolutionDesc samples stage 0 directly and blurs stage 1 with a 5 tap kernel.
func convolutionDesc() glbuild.Descriptor {
	var d glbuild.Descriptor
	d.ColorInput = glbuild.InputUniform
	d.CoverageInput = glbuild.InputSolidWhite
	d.FirstCoverageStage = glbuild.MaxStages
	d.Stages[0] = glbuild.StageDesc{Enabled: true, OptFlags: glbuild.StageIdentityMatrix | glbuild.StageNoPerspective}
	d.Stages[1] = glbuild.StageDesc{Enabled: true, OptFlags: glbuild.StageNoPerspective, Fetch: glbuild.FetchConvolution, KernelWidth: 5}
	return d
}

func TestGenerateDeterministic(t *testing.T) {
	descs := []glbuild.Descriptor{convolutionDesc()}
	d := convolutionDesc()
	d.EdgeCount = 3
	d.EdgeConcave = true
	d.ColorFilter = glbuild.ColorFilterSrcATop
	d.ColorMatrix = true
	d.Output = glbuild.OutputUnpremultipliedRoundUp
	descs = append(descs, d)
	d = convolutionDesc()
	d.VertexLayout = glbuild.LayoutEdge | glbuild.LayoutStageTexCoord(1) | glbuild.LayoutPointSize
	d.VertexEdge = glbuild.EdgeQuad
	d.Stages[2] = glbuild.StageDesc{Enabled: true, Mapping: glbuild.MapRadial2, Fetch: glbuild.FetchBox2x2, OptFlags: glbuild.StageCustomTextureDomain}
	d.FirstCoverageStage = 2
	d.DualSrc = glbuild.DualSrcCoverageISA
	d.GeometryPassthrough = true
	descs = append(descs, d)

	for i := range descs {
		p1 := glbuild.NewDefaultProgrammer()
		p2 := glbuild.NewDefaultProgrammer()
		src1, err := p1.Generate(&descs[i])
		if err != nil {
			t.Fatal(i, err)
		}
		// Generate something else in between to dirty scratch buffers.
		other := glbuild.Descriptor{ColorInput: glbuild.InputAttribute}
		_, err = p2.Generate(&other)
		if err != nil {
			t.Fatal(err)
		}
		src2, err := p2.Generate(&descs[i])
		if err != nil {
			t.Fatal(i, err)
		}
		if src1.Vertex != src2.Vertex || src1.Fragment != src2.Fragment || src1.Geometry != src2.Geometry {
			t.Errorf("desc %d: sources differ between generations:\n%s\n%s", i, src1.Fragment, src2.Fragment)
		}
		if strings.Join(src1.Uniforms, ",") != strings.Join(src2.Uniforms, ",") {
			t.Errorf("desc %d: uniform lists differ %v != %v", i, src1.Uniforms, src2.Uniforms)
		}
	}
}

func TestSentinelEquivalence(t *testing.T) {
	base := convolutionDesc()
	tests := []struct {
		name   string
		mutate func(d *glbuild.Descriptor)
	}{
		{"concave without edges", func(d *glbuild.Descriptor) { d.EdgeConcave = true }},
		{"vertex edge without edge attribute", func(d *glbuild.Descriptor) { d.VertexEdge = glbuild.EdgeCircle }},
		{"disabled stage contents", func(d *glbuild.Descriptor) {
			d.Stages[2] = glbuild.StageDesc{Fetch: glbuild.FetchErode, KernelWidth: 9, Mapping: glbuild.MapSweep, InConfig: glbuild.InSmearRed}
		}},
		{"disabled stage layout bits", func(d *glbuild.Descriptor) {
			d.VertexLayout |= glbuild.LayoutStageTexCoord(2) | glbuild.LayoutStageMatrixAttrib(2)
		}},
		{"kernel width on single fetch", func(d *glbuild.Descriptor) { d.Stages[0].KernelWidth = 7 }},
		{"identity matrix as attribute", func(d *glbuild.Descriptor) { d.VertexLayout |= glbuild.LayoutStageMatrixAttrib(0) }},
		{"identity matrix implies no perspective", func(d *glbuild.Descriptor) { d.Stages[0].OptFlags &^= glbuild.StageNoPerspective }},
	}
	p := glbuild.NewDefaultProgrammer()
	want, err := p.Generate(&base)
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range tests {
		d := base
		test.mutate(&d)
		if d.Key() == base.Key() {
			t.Fatalf("%s: mutation did not change raw key", test.name)
		}
		if d.Canonical() {
			t.Errorf("%s: mutated descriptor reported canonical", test.name)
		}
		got, err := p.Generate(&d)
		if err != nil {
			t.Fatalf("%s: %s", test.name, err)
		}
		if got.Vertex != want.Vertex || got.Fragment != want.Fragment {
			t.Errorf("%s: sources differ from sentinel descriptor", test.name)
		}
		d.Canonicalize()
		if d.Key() != base.Key() {
			t.Errorf("%s: canonical keys differ", test.name)
		}
	}
}

func TestKeyDistinguishesRelevantFields(t *testing.T) {
	base := convolutionDesc()
	base.Canonicalize()
	mutations := []func(d *glbuild.Descriptor){
		func(d *glbuild.Descriptor) { d.ColorInput = glbuild.InputAttribute },
		func(d *glbuild.Descriptor) { d.CoverageInput = glbuild.InputUniform },
		func(d *glbuild.Descriptor) { d.Stages[1].KernelWidth = 7 },
		func(d *glbuild.Descriptor) { d.Stages[1].Fetch = glbuild.FetchDilate },
		func(d *glbuild.Descriptor) { d.Stages[0].InConfig = glbuild.InSwapRAndB },
		func(d *glbuild.Descriptor) { d.Output = glbuild.OutputUnpremultipliedRoundDown },
		func(d *glbuild.Descriptor) { d.FirstCoverageStage = 1 },
		func(d *glbuild.Descriptor) { d.EdgeCount = 1 },
	}
	seen := map[glbuild.Key]int{base.Key(): -1}
	for i, mutate := range mutations {
		d := base
		mutate(&d)
		d.Canonicalize()
		k := d.Key()
		if j, ok := seen[k]; ok {
			t.Errorf("mutation %d aliases key of %d", i, j)
		}
		seen[k] = i
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *glbuild.Descriptor)
	}{
		{"too many edges", func(d *glbuild.Descriptor) { d.EdgeCount = glbuild.MaxEdges + 1 }},
		{"bad color input", func(d *glbuild.Descriptor) { d.ColorInput = 200 }},
		{"bad filter", func(d *glbuild.Descriptor) { d.ColorFilter = 200 }},
		{"kernel too wide", func(d *glbuild.Descriptor) { d.Stages[1].KernelWidth = glbuild.MaxKernelWidth + 1 }},
		{"zero kernel", func(d *glbuild.Descriptor) { d.Stages[1].KernelWidth = 0 }},
		{"both rounding directions", func(d *glbuild.Descriptor) {
			d.Stages[0].InConfig = glbuild.InMulRGBByAlphaRoundUp | glbuild.InMulRGBByAlphaRoundDown
		}},
		{"per-vertex color bit", func(d *glbuild.Descriptor) { d.VertexLayout |= glbuild.LayoutColor }},
		{"unknown layout bit", func(d *glbuild.Descriptor) { d.VertexLayout |= 1 << 31 }},
		{"first coverage stage", func(d *glbuild.Descriptor) { d.FirstCoverageStage = glbuild.MaxStages + 1 }},
	}
	base := convolutionDesc()
	if err := base.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, test := range tests {
		d := base
		test.mutate(&d)
		err := d.Validate()
		if !errors.Is(err, glbuild.ErrInvalidDescriptor) {
			t.Errorf("%s: want ErrInvalidDescriptor, got %v", test.name, err)
		}
		_, err = glbuild.NewDefaultProgrammer().Generate(&d)
		if err == nil {
			t.Errorf("%s: generated invalid descriptor", test.name)
		}
	}
}

func TestSupported(t *testing.T) {
	full := glbuild.Caps{DualSourceBlend: true, ShaderDerivatives: true, GeometryShader: true, MaxVertexAttribs: glbuild.NumAttribSlots}
	tests := []struct {
		name   string
		mutate func(d *glbuild.Descriptor)
		clear  func(c *glbuild.Caps)
	}{
		{"dual source", func(d *glbuild.Descriptor) { d.DualSrc = glbuild.DualSrcCoverage }, func(c *glbuild.Caps) { c.DualSourceBlend = false }},
		{"derivatives", func(d *glbuild.Descriptor) {
			d.VertexLayout |= glbuild.LayoutEdge
			d.VertexEdge = glbuild.EdgeHairQuad
		}, func(c *glbuild.Caps) { c.ShaderDerivatives = false }},
		{"geometry", func(d *glbuild.Descriptor) { d.GeometryPassthrough = true }, func(c *glbuild.Caps) { c.GeometryShader = false }},
		{"matrix attributes", func(d *glbuild.Descriptor) { d.VertexLayout |= glbuild.LayoutViewMatrixAttrib }, func(c *glbuild.Caps) { c.MaxVertexAttribs = 16 }},
	}
	for _, test := range tests {
		d := convolutionDesc()
		test.mutate(&d)
		caps := full
		if err := d.Supported(&caps); err != nil {
			t.Errorf("%s: unexpected error with full caps: %s", test.name, err)
		}
		test.clear(&caps)
		if err := d.Supported(&caps); !errors.Is(err, glbuild.ErrUnsupported) {
			t.Errorf("%s: want ErrUnsupported, got %v", test.name, err)
		}
	}
}

func TestConvolutionUniforms(t *testing.T) {
	d := convolutionDesc()
	src, err := glbuild.NewDefaultProgrammer().Generate(&d)
	if err != nil {
		t.Fatal(err)
	}
	declared := []string{
		glbuild.UniformViewMatrix, glbuild.UniformColor,
		glbuild.StageSampler.Name(0), glbuild.StageSampler.Name(1),
		glbuild.StageKernel.Name(1), glbuild.StageImageIncrement.Name(1), glbuild.StageTexMatrix.Name(1),
	}
	for _, name := range declared {
		if !src.Declares(name) {
			t.Errorf("%s not declared: %v", name, src.Uniforms)
		}
	}
	undeclared := []string{
		glbuild.UniformCoverage, glbuild.UniformEdges, glbuild.UniformColorFilter,
		glbuild.StageKernel.Name(0), glbuild.StageTexMatrix.Name(0), glbuild.StageSampler.Name(2),
	}
	for _, name := range undeclared {
		if src.Declares(name) {
			t.Errorf("%s unexpectedly declared", name)
		}
	}
	if !strings.Contains(src.Fragment, "uniform float uKernel1[5];") {
		t.Errorf("kernel array missing from fragment source:\n%s", src.Fragment)
	}
	// Identity mapping without perspective shifts the coordinate per vertex.
	if !strings.Contains(src.Vertex, "vTexCoord1 -= 2.0 * uImageIncrement1;") {
		t.Errorf("kernel offset missing from vertex source:\n%s", src.Vertex)
	}
	// The fragment loop steps by the increment too.
	if !strings.Contains(src.Fragment, "uniform vec2 uImageIncrement1;") {
		t.Errorf("image increment missing from fragment source:\n%s", src.Fragment)
	}
	if len(src.Samplers) != 2 || src.Samplers[1].Unit != 1 {
		t.Errorf("unexpected samplers %v", src.Samplers)
	}
	for _, name := range src.Uniforms {
		found := false
		for _, canonical := range glbuild.UniformNames() {
			found = found || canonical == name
		}
		if !found {
			t.Errorf("declared uniform %q missing from UniformNames", name)
		}
	}
}

func TestMatrixAttributes(t *testing.T) {
	d := convolutionDesc()
	d.VertexLayout = glbuild.LayoutViewMatrixAttrib | glbuild.LayoutStageMatrixAttrib(1)
	src, err := glbuild.NewDefaultProgrammer().Generate(&d)
	if err != nil {
		t.Fatal(err)
	}
	if src.Declares(glbuild.UniformViewMatrix) || src.Declares(glbuild.StageTexMatrix.Name(1)) {
		t.Error("matrix supplied as attribute must not be declared as uniform")
	}
	slot, ok := src.AttribUniform(glbuild.UniformViewMatrix)
	if !ok || slot != glbuild.AttribViewMatrix {
		t.Errorf("view matrix attribute slot: got %d,%v", slot, ok)
	}
	slot, ok = src.AttribUniform(glbuild.StageTexMatrix.Name(1))
	if !ok || slot != glbuild.AttribStageMatrix(1) {
		t.Errorf("stage matrix attribute slot: got %d,%v", slot, ok)
	}
	if !strings.Contains(src.Vertex, "layout(location = 7) in mat3 aViewM;") {
		t.Errorf("view matrix attribute not at fixed slot:\n%s", src.Vertex)
	}
}

func TestAttribSlots(t *testing.T) {
	if glbuild.AttribPosition != 0 || glbuild.AttribTexCoord(0) != 1 {
		t.Fatal("position and texcoords must lead the slot convention")
	}
	if glbuild.AttribColor != 1+glbuild.MaxStages || glbuild.AttribEdge != glbuild.AttribCoverage+1 {
		t.Error("color, coverage and edge slots out of order")
	}
	if glbuild.AttribStageMatrix(glbuild.MaxStages-1)+3 != glbuild.NumAttribSlots {
		t.Errorf("last stage matrix must end the convention, NumAttribSlots=%d", glbuild.NumAttribSlots)
	}
}

func TestGeometryPassthrough(t *testing.T) {
	d := convolutionDesc()
	d.ColorInput = glbuild.InputAttribute
	d.GeometryPassthrough = true
	src, err := glbuild.NewDefaultProgrammer().Generate(&d)
	if err != nil {
		t.Fatal(err)
	}
	if src.Geometry == "" {
		t.Fatal("missing geometry source")
	}
	for _, name := range []string{"gColor = vColor[i];", "gTexCoord1 = vTexCoord1[i];"} {
		if !strings.Contains(src.Geometry, name) {
			t.Errorf("geometry stage does not forward %q:\n%s", name, src.Geometry)
		}
	}
	if !strings.Contains(src.Fragment, "in vec4 gColor;") {
		t.Errorf("fragment stage does not read geometry outputs:\n%s", src.Fragment)
	}

	p := glbuild.NewDefaultProgrammer()
	err = p.SetVersion(glbuild.Version{Number: 300, ES: true})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Generate(&d)
	if !errors.Is(err, glbuild.ErrUnsupported) {
		t.Errorf("want ErrUnsupported for ES geometry, got %v", err)
	}
}

func TestColorFilterAndOutput(t *testing.T) {
	d := convolutionDesc()
	d.ColorFilter = glbuild.ColorFilterSrcOver
	d.DualSrc = glbuild.DualSrcCoverage
	d.CoverageInput = glbuild.InputAttribute
	d.Output = glbuild.OutputUnpremultipliedRoundDown
	src, err := glbuild.NewDefaultProgrammer().Generate(&d)
	if err != nil {
		t.Fatal(err)
	}
	wantLines := []string{
		"color = uColorFilter + color * (1.0 - uColorFilter.a);",
		"oDualSrc = coverage;",
		"color *= coverage;",
		"floor(color.rgb / color.a * 255.0)",
		"layout(location = 0, index = 1) out vec4 oDualSrc;",
	}
	for _, line := range wantLines {
		if !strings.Contains(src.Fragment, line) {
			t.Errorf("missing %q in fragment source:\n%s", line, src.Fragment)
		}
	}
}

func TestPremultiplyRoundTrip(t *testing.T) {
	for _, conv := range []struct {
		name             string
		unpremulRoundsUp bool
	}{
		{"up on write, down on read", true},
		{"down on write, up on read", false},
	} {
		for a := 1; a < 256; a++ {
			for c := 0; c <= a; c++ {
				p := [4]uint8{uint8(c), uint8(c / 2), 0, uint8(a)}
				u := glbuild.Unpremultiply(p, conv.unpremulRoundsUp)
				got := glbuild.Premultiply(u, !conv.unpremulRoundsUp)
				for i := range got {
					diff := int(got[i]) - int(p[i])
					if diff < -1 || diff > 1 {
						t.Fatalf("%s: round trip of %v through %v gave %v", conv.name, p, u, got)
					}
				}
			}
		}
	}
}

func TestAppendFloat(t *testing.T) {
	tests := []struct {
		v    float32
		want string
	}{
		{2, "2.0"},
		{0.5, "0.5"},
		{-1.25, "-1.25"},
		{0, "0.0"},
	}
	for _, test := range tests {
		got := string(glbuild.AppendFloat(nil, '-', '.', test.v))
		if got != test.want {
			t.Errorf("AppendFloat(%v) = %q, want %q", test.v, got, test.want)
		}
	}
}

var uniformRef = regexp.MustCompile(`\bu[A-Z]\w*`)

// undeclared returns the uniforms referenced by a shader source without a declaration in it.
func undeclared(src string) (names []string) {
	declared := make(map[string]bool)
	for _, line := range strings.Split(src, "\n") {
		if !strings.HasPrefix(line, "uniform ") {
			continue
		}
		fields := strings.Fields(strings.TrimSuffix(line, ";"))
		name, _, _ := strings.Cut(fields[len(fields)-1], "[")
		declared[name] = true
	}
	for _, ref := range uniformRef.FindAllString(src, -1) {
		if !declared[ref] {
			names = append(names, ref)
		}
	}
	return names
}

func TestStagesDeclareReferencedUniforms(t *testing.T) {
	fetches := []glbuild.FetchMode{glbuild.FetchSingle, glbuild.FetchBox2x2, glbuild.FetchConvolution, glbuild.FetchDilate, glbuild.FetchErode}
	mappings := []glbuild.CoordMapping{glbuild.MapIdentity, glbuild.MapRadial, glbuild.MapRadial2, glbuild.MapRadial2Degenerate, glbuild.MapSweep}
	optFlags := []glbuild.StageOptFlags{
		glbuild.StageIdentityMatrix | glbuild.StageNoPerspective,
		glbuild.StageNoPerspective,
		0,
		glbuild.StageNoPerspective | glbuild.StageCustomTextureDomain,
	}
	layouts := []uint32{0, glbuild.LayoutViewMatrixAttrib | glbuild.LayoutStageMatrixAttrib(1) | glbuild.LayoutStageTexCoord(1)}
	p := glbuild.NewDefaultProgrammer()
	for _, fetch := range fetches {
		for _, mapping := range mappings {
			for _, opt := range optFlags {
				for _, layout := range layouts {
					d := convolutionDesc()
					d.VertexLayout = layout
					d.EdgeCount = 2
					d.ColorMatrix = true
					d.ColorFilter = glbuild.ColorFilterModulate
					d.Stages[1] = glbuild.StageDesc{Enabled: true, OptFlags: opt, Fetch: fetch, Mapping: mapping, KernelWidth: 3}
					d.Stages[2] = d.Stages[1]
					d.FirstCoverageStage = 2
					d.GeometryPassthrough = layout != 0
					src, err := p.Generate(&d)
					if err != nil {
						t.Fatal(err)
					}
					for stage, code := range map[string]string{"vertex": src.Vertex, "geometry": src.Geometry, "fragment": src.Fragment} {
						if names := undeclared(code); len(names) > 0 {
							t.Errorf("fetch=%d mapping=%d opt=%#x layout=%#x: %s shader references undeclared %v", fetch, mapping, opt, layout, stage, names)
						}
					}
				}
			}
		}
	}
}
