//go:build tinygo || !cgo

package glprogaux

import (
	"errors"
	"image"

	"github.com/soypat/glprog"
)

func ui(ds glprog.DrawState, textures [glprog.MaxStages]image.Image, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
