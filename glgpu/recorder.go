package glgpu

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/soypat/glprog/glbuild"
)

// Recorder is a headless [Device] that records every call. Compiling fails
// when a shader references a uniform it does not declare or FailCompile says
// so. Uniform locations are handed out for every uniform declared in the linked sources. It is useful to
// inspect program generation and upload traffic without a GPU.
type Recorder struct {
	// FailCompile, if set, makes CompileShader fail when it returns a non-empty info log.
	FailCompile func(stage ShaderStage, source string) (infoLog string)
	// FailLink, if set, makes LinkProgram fail when it returns a non-empty info log.
	FailLink func(shaders []uint32) (infoLog string)

	Counts  RecorderCounts
	Uploads []Upload

	nextHandle uint32
	nextLoc    int32
	shaders    map[uint32]string
	programs   map[uint32]map[string]int32
	locNames   map[int32]string
	bound      uint32
	err        error
}

// RecorderCounts counts calls by kind.
type RecorderCounts struct {
	CompileShader int
	LinkProgram   int
	DeleteShader  int
	DeleteProgram int
	UseProgram    int
}

// Upload is a recorded uniform or constant attribute upload.
type Upload struct {
	Program uint32 // Bound program at upload time.
	Name    string // Uniform name, empty for attribute uploads.
	Slot    uint32 // Attribute slot, only for attribute uploads.
	Values  []float32
}

var _ Device = (*Recorder)(nil) // Interface implementation compile-time check.

// NewRecorder returns a ready to use Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		shaders:  make(map[uint32]string),
		programs: make(map[uint32]map[string]int32),
		locNames: make(map[int32]string),
	}
}

// Live returns the number of shader and program handles not yet deleted.
func (r *Recorder) Live() (shaders, programs int) {
	return len(r.shaders), len(r.programs)
}

// Bound returns the program last passed to UseProgram.
func (r *Recorder) Bound() uint32 { return r.bound }

// UploadCount returns how many uploads targeted the uniform name.
func (r *Recorder) UploadCount(name string) (n int) {
	for _, u := range r.Uploads {
		if u.Name == name {
			n++
		}
	}
	return n
}

// AttribUploadCount returns how many uploads targeted the attribute slot.
func (r *Recorder) AttribUploadCount(slot uint32) (n int) {
	for _, u := range r.Uploads {
		if u.Name == "" && u.Slot == slot {
			n++
		}
	}
	return n
}

// ResetUploads clears the upload log.
func (r *Recorder) ResetUploads() { r.Uploads = r.Uploads[:0] }

func (r *Recorder) handle() uint32 {
	r.nextHandle++
	return r.nextHandle
}

func (r *Recorder) CompileShader(stage ShaderStage, source string) (uint32, string, bool) {
	r.Counts.CompileShader++
	sh := r.handle()
	r.shaders[sh] = source
	if name, ok := undeclaredUniform(source); ok {
		return sh, fmt.Sprintf("0:0: '%s' : undeclared identifier", name), false
	}
	if r.FailCompile != nil {
		if log := r.FailCompile(stage, source); log != "" {
			return sh, log, false
		}
	}
	return sh, "", true
}

func (r *Recorder) LinkProgram(shaders []uint32, attribs []glbuild.AttribBinding) (uint32, string, bool) {
	r.Counts.LinkProgram++
	prog := r.handle()
	locs := make(map[string]int32)
	r.programs[prog] = locs
	if r.FailLink != nil {
		if log := r.FailLink(shaders); log != "" {
			return prog, log, false
		}
	}
	for _, sh := range shaders {
		src, ok := r.shaders[sh]
		if !ok {
			r.err = errors.New("link of deleted or unknown shader")
			continue
		}
		for _, name := range declaredUniforms(src) {
			if _, dup := locs[name]; !dup {
				locs[name] = r.nextLoc
				r.locNames[r.nextLoc] = name
				r.nextLoc++
			}
		}
	}
	return prog, "", true
}

// uniformRef matches identifiers following the uniform naming convention, i.e. uColor.
var uniformRef = regexp.MustCompile(`\bu[A-Z]\w*`)

// undeclaredUniform returns the first uniform referenced by src without a declaration in src.
func undeclaredUniform(src string) (name string, found bool) {
	declared := declaredUniforms(src)
	for _, ref := range uniformRef.FindAllString(src, -1) {
		if !slices.Contains(declared, ref) {
			return ref, true
		}
	}
	return "", false
}

// declaredUniforms scans GLSL for "uniform type name;" declarations.
func declaredUniforms(src string) (names []string) {
	for _, line := range strings.Split(src, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "uniform" {
			continue
		}
		name := strings.TrimSuffix(fields[2], ";")
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		names = append(names, name)
	}
	return names
}

func (r *Recorder) DeleteShader(shader uint32) {
	r.Counts.DeleteShader++
	if _, ok := r.shaders[shader]; !ok {
		r.err = errors.New("double delete of shader")
	}
	delete(r.shaders, shader)
}

func (r *Recorder) DeleteProgram(program uint32) {
	r.Counts.DeleteProgram++
	if _, ok := r.programs[program]; !ok {
		r.err = errors.New("double delete of program")
	}
	delete(r.programs, program)
	if r.bound == program {
		r.bound = 0
	}
}

func (r *Recorder) UniformLocation(program uint32, name string) int32 {
	loc, ok := r.programs[program][name]
	if !ok {
		return -1
	}
	return loc
}

func (r *Recorder) UseProgram(program uint32) {
	r.Counts.UseProgram++
	r.bound = program
}

func (r *Recorder) upload(loc int32, v ...float32) {
	name, ok := r.locNames[loc]
	boundLoc, bound := r.programs[r.bound][name]
	if !ok || !bound || boundLoc != loc {
		r.err = errors.New("upload to location of unbound program")
	}
	r.Uploads = append(r.Uploads, Upload{Program: r.bound, Name: name, Values: append([]float32(nil), v...)})
}

func (r *Recorder) ProgramUniform1i(program uint32, loc, v int32) {
	if _, ok := r.programs[program]; !ok {
		r.err = errors.New("uniform set on unknown program")
	}
}

func (r *Recorder) Uniform2f(loc int32, x, y float32)       { r.upload(loc, x, y) }
func (r *Recorder) Uniform4f(loc int32, x, y, z, w float32) { r.upload(loc, x, y, z, w) }
func (r *Recorder) Uniform1fv(loc int32, v []float32)       { r.upload(loc, v...) }
func (r *Recorder) Uniform3fv(loc int32, v []float32)       { r.upload(loc, v...) }
func (r *Recorder) UniformMatrix3(loc int32, m *[9]float32) { r.upload(loc, m[:]...) }

func (r *Recorder) UniformMatrix4(loc int32, m *[16]float32) { r.upload(loc, m[:]...) }

func (r *Recorder) VertexAttrib3f(slot uint32, x, y, z float32) {
	r.Uploads = append(r.Uploads, Upload{Program: r.bound, Slot: slot, Values: []float32{x, y, z}})
}

func (r *Recorder) Err() error {
	err := r.err
	r.err = nil
	return err
}
