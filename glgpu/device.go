// Package glgpu compiles generated sources into linked GPU programs and
// resolves their uniform interface. GPU access goes through [Device] so the
// compilation and upload logic runs the same against a real context and test recorders.
package glgpu

import "github.com/soypat/glprog/glbuild"

// ShaderStage identifies a programmable pipeline stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageGeometry
	StageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageGeometry:
		return "geometry"
	case StageFragment:
		return "fragment"
	}
	return "unknown"
}

// Device is the subset of the GL API used to build programs and upload their inputs.
// All methods must be called from the goroutine owning the context.
type Device interface {
	// CompileShader creates and compiles a shader. The returned handle is
	// non-zero even on failure when a shader object was created and must be deleted.
	CompileShader(stage ShaderStage, source string) (shader uint32, infoLog string, ok bool)
	// LinkProgram creates a program from compiled shaders, binding attribs to
	// their slots before linking. As with CompileShader a failed link may return a handle to delete.
	LinkProgram(shaders []uint32, attribs []glbuild.AttribBinding) (program uint32, infoLog string, ok bool)
	DeleteShader(shader uint32)
	DeleteProgram(program uint32)
	// UniformLocation returns -1 for names that are not active uniforms.
	UniformLocation(program uint32, name string) int32
	UseProgram(program uint32)
	ProgramUniform1i(program uint32, loc, v int32)
	Uniform2f(loc int32, x, y float32)
	Uniform4f(loc int32, x, y, z, w float32)
	Uniform1fv(loc int32, v []float32)
	Uniform3fv(loc int32, v []float32)
	// UniformMatrix3 uploads a row major 3x3 matrix.
	UniformMatrix3(loc int32, m *[9]float32)
	// UniformMatrix4 uploads a row major 4x4 matrix.
	UniformMatrix4(loc int32, m *[16]float32)
	VertexAttrib3f(slot uint32, x, y, z float32)
	// Err returns accumulated GL errors since the last call.
	Err() error
}
