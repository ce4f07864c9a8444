//go:build tinygo || !cgo

package glgpu

import (
	"errors"

	"github.com/soypat/glprog/glbuild"
)

var errNoCGO = errors.New("GPU programs require CGo and are not supported on TinyGo")

// Init1x1GLFW is not supported without CGo.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

// GLDevice is not supported without CGo. Use a custom [Device] instead.
type GLDevice struct{}

// NewGLDevice is not supported without CGo.
func NewGLDevice() (*GLDevice, error) {
	return nil, errNoCGO
}

// Caps returns no capabilities.
func (dev *GLDevice) Caps() glbuild.Caps { return glbuild.Caps{} }
