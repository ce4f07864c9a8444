//go:build !tinygo && cgo

package glprogaux

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/glprog"
	"github.com/soypat/glprog/glbuild"
	"github.com/soypat/glprog/glgpu"
	"golang.org/x/image/draw"
)

var blendFactors = [...]uint32{
	glprog.BlendZero: gl.ZERO,
	glprog.BlendOne:  gl.ONE,
	glprog.BlendSC:   gl.SRC_COLOR,
	glprog.BlendISC:  gl.ONE_MINUS_SRC_COLOR,
	glprog.BlendDC:   gl.DST_COLOR,
	glprog.BlendIDC:  gl.ONE_MINUS_DST_COLOR,
	glprog.BlendSA:   gl.SRC_ALPHA,
	glprog.BlendISA:  gl.ONE_MINUS_SRC_ALPHA,
	glprog.BlendDA:   gl.DST_ALPHA,
	glprog.BlendIDA:  gl.ONE_MINUS_DST_ALPHA,
}

func ui(ds glprog.DrawState, textures [glprog.MaxStages]image.Image, cfg UIConfig) error {
	window, term, err := startGLFW(cfg.Width, cfg.Height, cfg.Title)
	if err != nil {
		return err
	}
	defer term()
	dev, err := glgpu.NewGLDevice()
	if err != nil {
		return err
	}
	caps := dev.Caps()
	cache, err := glprog.NewProgramCache(dev, glprog.Config{Capacity: 4, Caps: &caps})
	if err != nil {
		return err
	}
	defer cache.Release()

	var texIDs [glprog.MaxStages]uint32
	for s := range ds.Stages {
		if !ds.Stages[s].Enabled {
			continue
		}
		if textures[s] == nil {
			return fmt.Errorf("stage %d enabled without texture", s)
		}
		ds.Stages[s].Texture = TextureInfo(textures[s])
		texIDs[s] = uploadTexture(uint32(s), textures[s], ds.Stages[s].Filter == glprog.FilterBilinear)
	}
	defer gl.DeleteTextures(int32(len(texIDs)), &texIDs[0])

	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	defer gl.DeleteBuffers(1, &vbo)
	defer gl.DeleteVertexArrays(1, &vao)
	gl.EnableVertexAttribArray(glbuild.AttribPosition)
	gl.VertexAttribPointer(glbuild.AttribPosition, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	if err := glgl.Err(); err != nil {
		return fmt.Errorf("setting up buffers: %w", err)
	}

	ctx := cfg.Context
	var width, height int
	var vertices []float32
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		w, h := window.GetFramebufferSize()
		if w != width || h != height {
			width, height = w, h
			gl.Viewport(0, 0, int32(w), int32(h))
			ds.Target.Width, ds.Target.Height = w, h
			vertices = cfg.Vertices
			if vertices == nil {
				fw, fh := float32(w), float32(h)
				vertices = []float32{0, 0, fw, 0, 0, fh, 0, fh, fw, 0, fw, fh}
			}
			gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
		}
		gl.ClearColor(0, 0, 0, 0)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		if err := drawOnce(cache, &ds, len(vertices)/2); err != nil {
			return err
		}
		window.SwapBuffers()
		time.Sleep(time.Second / 60)
		glfw.PollEvents()
	}
	return nil
}

func drawOnce(cache *glprog.ProgramCache, ds *glprog.DrawState, count int) error {
	desc, blend, err := glprog.NewDescriptor(ds, cache.Caps())
	if err != nil {
		return err
	} else if blend.Opts&glprog.BlendSkipDraw != 0 {
		return nil
	}
	entry, err := cache.Get(desc)
	if err != nil {
		return err
	}
	values := ds.UniformValues()
	if _, err = entry.Flush(&values); err != nil {
		return err
	}
	if blend.Opts&glprog.BlendDisable != 0 {
		gl.Disable(gl.BLEND)
	} else {
		gl.Enable(gl.BLEND)
		dst := blendFactors[blend.Dst]
		if desc.DualSrc != glbuild.DualSrcNone {
			dst = gl.ONE_MINUS_SRC1_COLOR
		}
		gl.BlendFunc(blendFactors[blend.Src], dst)
	}
	gl.DrawArrays(gl.TRIANGLES, 0, int32(count))
	return glgl.Err()
}

// uploadTexture creates a texture from img bound to the given texture unit.
func uploadTexture(unit uint32, img image.Image, linear bool) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	filter := int32(gl.NEAREST)
	if linear {
		filter = gl.LINEAR
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	b := img.Bounds()
	switch img := img.(type) {
	case *image.Alpha:
		// Coverage masks are premultiplied, smear alpha into every channel.
		swizzle := [4]int32{gl.RED, gl.RED, gl.RED, gl.RED}
		gl.TexParameteriv(gl.TEXTURE_2D, gl.TEXTURE_SWIZZLE_RGBA, &swizzle[0])
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R8, int32(b.Dx()), int32(b.Dy()), 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	case *image.NRGBA:
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	default:
		rgba, ok := img.(*image.RGBA)
		if !ok {
			rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
			draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		}
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	}
	return tex
}

func startGLFW(width, height int, title string) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	if title == "" {
		title = "glprog"
	}
	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, errors.Join(errors.New("initializing OpenGL"), err)
	}
	return window, glfw.Terminate, nil
}
