package glprogaux

import (
	"errors"
	"fmt"
	"image"
	"unicode"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	firstBasic = '!'
	lastBasic  = '~'
)

// FontConfig configures glyph rasterization.
type FontConfig struct {
	// Size is the font size in pixels per em. If zero 32 is used.
	Size float64
	// Hinting snaps outlines to the pixel grid.
	Hinting bool
}

// Font rasterizes glyph coverage masks. Masks are alpha only images meant to be
// sampled by a coverage stage.
type Font struct {
	ttf  *truetype.Font
	face font.Face
	// basicMasks optimized array access for common ASCII glyphs.
	basicMasks [lastBasic - firstBasic + 1]*image.Alpha
	otherMasks map[rune]*image.Alpha
}

// LoadTTFBytes parses a TTF file blob into f.
func (f *Font) LoadTTFBytes(ttf []byte, cfg FontConfig) error {
	if cfg.Size < 0 {
		return errors.New("negative font size")
	} else if cfg.Size == 0 {
		cfg.Size = 32
	}
	parsed, err := truetype.Parse(ttf)
	if err != nil {
		return err
	}
	hinting := font.HintingNone
	if cfg.Hinting {
		hinting = font.HintingFull
	}
	f.ttf = parsed
	f.face = truetype.NewFace(parsed, &truetype.Options{Size: cfg.Size, Hinting: hinting})
	f.reset()
	return nil
}

func (f *Font) reset() {
	for i := range f.basicMasks {
		f.basicMasks[i] = nil
	}
	if f.otherMasks == nil {
		f.otherMasks = make(map[rune]*image.Alpha)
	} else {
		clear(f.otherMasks)
	}
}

// GlyphMask returns the coverage mask of c. The returned image is cached and must not be modified.
func (f *Font) GlyphMask(c rune) (*image.Alpha, error) {
	if f.face == nil {
		return nil, errors.New("font not loaded")
	}
	if c >= firstBasic && c <= lastBasic {
		mask := f.basicMasks[c-firstBasic]
		if mask == nil {
			var err error
			mask, err = f.makeMask(c)
			if err != nil {
				return nil, err
			}
			f.basicMasks[c-firstBasic] = mask
		}
		return mask, nil
	}
	mask, ok := f.otherMasks[c]
	if !ok {
		var err error
		mask, err = f.makeMask(c)
		if err != nil {
			return nil, err
		}
		f.otherMasks[c] = mask
	}
	return mask, nil
}

func (f *Font) makeMask(c rune) (*image.Alpha, error) {
	if !unicode.IsGraphic(c) || unicode.IsSpace(c) {
		return nil, fmt.Errorf("char %q has no outline", c)
	}
	if f.ttf.Index(c) == 0 {
		return nil, fmt.Errorf("char %q not in font", c)
	}
	dr, mask, maskp, _, ok := f.face.Glyph(fixed.Point26_6{}, c)
	if !ok || dr.Empty() {
		return nil, fmt.Errorf("char %q: empty glyph", c)
	}
	// The face reuses its mask buffer between calls.
	dst := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	draw.Draw(dst, dst.Bounds(), mask, maskp, draw.Src)
	return dst, nil
}

// TextMask rasterizes a single line of text, taking kerning into account. The
// baseline sits at the font ascent from the top of the image.
func (f *Font) TextMask(s string) (*image.Alpha, error) {
	if f.face == nil {
		return nil, errors.New("font not loaded")
	}
	for _, c := range s {
		if !unicode.IsGraphic(c) {
			return nil, fmt.Errorf("char %q not graphic", c)
		}
	}
	d := font.Drawer{Face: f.face}
	width := d.MeasureString(s).Ceil()
	if width == 0 {
		return nil, errors.New("no text provided")
	}
	metrics := f.face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	dst := image.NewAlpha(image.Rect(0, 0, width, height))
	d.Dst = dst
	d.Src = image.Opaque
	d.Dot = fixed.Point26_6{Y: metrics.Ascent}
	d.DrawString(s)
	return dst, nil
}
