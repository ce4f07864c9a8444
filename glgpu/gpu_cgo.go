//go:build !tinygo && cgo

package glgpu

import (
	"strings"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/glprog/glbuild"
)

// Init1x1GLFW starts a 1x1 sized GLFW window with a current GL 4.6 context.
// It returns a termination function that should be called when user is done using the GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "glprog",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

var shaderTypes = [...]uint32{
	StageVertex:   gl.VERTEX_SHADER,
	StageGeometry: gl.GEOMETRY_SHADER,
	StageFragment: gl.FRAGMENT_SHADER,
}

// GLDevice implements [Device] on the GL context current on the calling thread.
type GLDevice struct {
	scratch []byte
}

var _ Device = (*GLDevice)(nil) // Interface implementation compile-time check.

// NewGLDevice returns a device for the current context. The context must
// already be current, see [Init1x1GLFW].
func NewGLDevice() (*GLDevice, error) {
	if err := gl.Init(); err != nil {
		return nil, err
	}
	return &GLDevice{}, nil
}

// Caps queries the capabilities of the current context.
func (dev *GLDevice) Caps() glbuild.Caps {
	var maxAttribs, maxDualSrc int32
	gl.GetIntegerv(gl.MAX_VERTEX_ATTRIBS, &maxAttribs)
	gl.GetIntegerv(gl.MAX_DUAL_SOURCE_DRAW_BUFFERS, &maxDualSrc)
	return glbuild.Caps{
		DualSourceBlend:   maxDualSrc > 0,
		ShaderDerivatives: true,
		GeometryShader:    true,
		TextureSwizzle:    true,
		TextureRed:        true,
		MaxVertexAttribs:  int(maxAttribs),
		GLSL:              glbuild.Version{Number: 460},
	}
}

// cstr returns a null terminated copy of s backed by the device scratch buffer.
func (dev *GLDevice) cstr(s string) *uint8 {
	dev.scratch = append(dev.scratch[:0], s...)
	dev.scratch = append(dev.scratch, 0)
	return &dev.scratch[0]
}

func (dev *GLDevice) CompileShader(stage ShaderStage, source string) (uint32, string, bool) {
	shader := gl.CreateShader(shaderTypes[stage])
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		return shader, strings.TrimRight(logText, "\x00"), false
	}
	return shader, "", true
}

func (dev *GLDevice) LinkProgram(shaders []uint32, attribs []glbuild.AttribBinding) (uint32, string, bool) {
	program := gl.CreateProgram()
	for _, sh := range shaders {
		gl.AttachShader(program, sh)
	}
	for _, attr := range attribs {
		gl.BindAttribLocation(program, attr.Slot, dev.cstr(attr.Name))
	}
	gl.LinkProgram(program)
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logText))
		return program, strings.TrimRight(logText, "\x00"), false
	}
	return program, "", true
}

func (dev *GLDevice) DeleteShader(shader uint32)   { gl.DeleteShader(shader) }
func (dev *GLDevice) DeleteProgram(program uint32) { gl.DeleteProgram(program) }
func (dev *GLDevice) UseProgram(program uint32)    { gl.UseProgram(program) }

func (dev *GLDevice) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, dev.cstr(name))
}

func (dev *GLDevice) ProgramUniform1i(program uint32, loc, v int32) {
	gl.ProgramUniform1i(program, loc, v)
}

func (dev *GLDevice) Uniform2f(loc int32, x, y float32)       { gl.Uniform2f(loc, x, y) }
func (dev *GLDevice) Uniform4f(loc int32, x, y, z, w float32) { gl.Uniform4f(loc, x, y, z, w) }

func (dev *GLDevice) Uniform1fv(loc int32, v []float32) {
	if len(v) > 0 {
		gl.Uniform1fv(loc, int32(len(v)), &v[0])
	}
}

func (dev *GLDevice) Uniform3fv(loc int32, v []float32) {
	if len(v) >= 3 {
		gl.Uniform3fv(loc, int32(len(v)/3), &v[0])
	}
}

func (dev *GLDevice) UniformMatrix3(loc int32, m *[9]float32) {
	gl.UniformMatrix3fv(loc, 1, true, &m[0])
}

func (dev *GLDevice) UniformMatrix4(loc int32, m *[16]float32) {
	gl.UniformMatrix4fv(loc, 1, true, &m[0])
}

func (dev *GLDevice) VertexAttrib3f(slot uint32, x, y, z float32) {
	gl.VertexAttrib3f(slot, x, y, z)
}

func (dev *GLDevice) Err() error { return glgl.Err() }
