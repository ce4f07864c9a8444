package glgpu

import (
	"errors"
	"strings"
)

var (
	// ErrShaderCompile is wrapped by every [*CompileError].
	ErrShaderCompile = errors.New("shader compilation failed")
	// ErrLink is wrapped by every [*LinkError].
	ErrLink = errors.New("program link failed")
)

// CompileError is returned when the driver rejects a shader.
type CompileError struct {
	Stage   ShaderStage
	InfoLog string
	Source  string
}

func (e *CompileError) Error() string {
	return e.Stage.String() + " " + ErrShaderCompile.Error() + ": " + strings.TrimSpace(e.InfoLog)
}

func (e *CompileError) Unwrap() error { return ErrShaderCompile }

// LinkError is returned when compiled shaders fail to link into a program.
type LinkError struct {
	InfoLog string
}

func (e *LinkError) Error() string {
	return ErrLink.Error() + ": " + strings.TrimSpace(e.InfoLog)
}

func (e *LinkError) Unwrap() error { return ErrLink }
