// Package glprogaux has helpers to feed draw state from images, fonts and polygons
// and a minimal viewer to look at a single draw on screen.
package glprogaux

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"

	"github.com/soypat/glprog"
)

// TextureInfo describes img the way descriptor construction needs it.
// Alpha images are alpha only and NRGBA images are unpremultiplied.
func TextureInfo(img image.Image) glprog.TextureInfo {
	bounds := img.Bounds()
	info := glprog.TextureInfo{Width: bounds.Dx(), Height: bounds.Dy()}
	switch img.(type) {
	case *image.Alpha, *image.Alpha16:
		info.AlphaOnly = true
	case *image.NRGBA, *image.NRGBA64:
		info.Unpremultiplied = true
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && !info.AlphaOnly {
		info.Opaque = o.Opaque()
	}
	return info
}

// SavePNG encodes img into a new file at filename.
func SavePNG(filename string, img image.Image) error {
	if img == nil {
		return errors.New("nil image")
	}
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	err = png.Encode(fp, img)
	if err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

// UIConfig configures [ShowDraw].
type UIConfig struct {
	Width, Height int
	Title         string
	// Vertices holds x,y pairs of triangles in window pixel coordinates.
	// If nil a quad covering the window is drawn.
	Vertices []float32
	// Context cancels the window loop when done.
	Context context.Context
}

// ShowDraw opens a window and draws ds every frame until the window is closed.
// Each enabled stage samples the image at the same index of textures; the
// stage texture info is derived from the image. Must be called from the main thread.
func ShowDraw(ds glprog.DrawState, textures [glprog.MaxStages]image.Image, cfg UIConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("window dimensions must be positive")
	}
	return ui(ds, textures, cfg)
}
