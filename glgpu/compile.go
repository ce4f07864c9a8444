package glgpu

import (
	"fmt"

	"github.com/soypat/glprog/glbuild"
)

// BindingKind tells how a semantic uniform reaches a program.
type BindingKind uint8

const (
	// Unused uniforms are not referenced by the program and are never uploaded.
	Unused BindingKind = iota
	// Uniform bindings have a valid uniform location.
	Uniform
	// Attribute bindings are supplied as constant vertex attributes starting at Slot.
	Attribute
)

func (k BindingKind) String() string {
	switch k {
	case Unused:
		return "unused"
	case Uniform:
		return "uniform"
	case Attribute:
		return "attribute"
	}
	return "unknown"
}

// Binding is the resolved location of one semantic uniform.
type Binding struct {
	Kind     BindingKind
	Location int32  // Valid for Uniform.
	Slot     uint32 // Valid for Attribute.
}

// Bindings maps semantic uniform names to their resolved binding.
type Bindings map[string]Binding

// Lookup returns the binding of name. Names missing from the table are Unused.
func (b Bindings) Lookup(name string) Binding {
	return b[name]
}

// Program is a linked GPU program and the shaders it was linked from.
type Program struct {
	ID       uint32
	Shaders  []uint32
	Bindings Bindings
}

// Release deletes the program and its shaders. The program must not be used afterwards.
func (p *Program) Release(dev Device) {
	if p.ID != 0 {
		dev.DeleteProgram(p.ID)
	}
	for _, sh := range p.Shaders {
		dev.DeleteShader(sh)
	}
	p.ID = 0
	p.Shaders = p.Shaders[:0]
}

// CompileProgram compiles and links src and resolves every name in
// [glbuild.UniformNames] exactly once. Samplers are assigned their texture units.
// On failure every handle created is deleted and a nil Program is returned.
func CompileProgram(dev Device, src *glbuild.Sources) (*Program, error) {
	stages := [...]struct {
		stage ShaderStage
		code  string
	}{
		{StageVertex, src.Vertex},
		{StageGeometry, src.Geometry},
		{StageFragment, src.Fragment},
	}
	prog := &Program{Shaders: make([]uint32, 0, len(stages))}
	for _, st := range stages {
		if st.code == "" {
			continue
		}
		sh, log, ok := dev.CompileShader(st.stage, st.code)
		if sh != 0 {
			prog.Shaders = append(prog.Shaders, sh)
		}
		if !ok {
			prog.Release(dev)
			return nil, &CompileError{Stage: st.stage, InfoLog: log, Source: st.code}
		}
	}
	id, log, ok := dev.LinkProgram(prog.Shaders, src.Attribs)
	prog.ID = id
	if !ok {
		prog.Release(dev)
		return nil, &LinkError{InfoLog: log}
	}

	names := glbuild.UniformNames()
	prog.Bindings = make(Bindings, len(names))
	for _, name := range names {
		var b Binding
		if slot, ok := src.AttribUniform(name); ok {
			b = Binding{Kind: Attribute, Slot: slot}
		} else if src.Declares(name) {
			// Declared uniforms the compiler optimized away resolve to Unused.
			loc := dev.UniformLocation(id, name)
			if loc >= 0 {
				b = Binding{Kind: Uniform, Location: loc}
			}
		}
		prog.Bindings[name] = b
	}
	for _, sampler := range src.Samplers {
		b := prog.Bindings.Lookup(sampler.Name)
		if b.Kind == Uniform {
			dev.ProgramUniform1i(id, b.Location, sampler.Unit)
		}
	}
	if err := dev.Err(); err != nil {
		prog.Release(dev)
		return nil, fmt.Errorf("resolving program interface: %w", err)
	}
	return prog, nil
}
