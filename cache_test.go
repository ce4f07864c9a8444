package glprog

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/glprog/glbuild"
	"github.com/soypat/glprog/glgpu"
)

// testDesc returns distinct descriptors for i in [0,135).
func testDesc(i int) glbuild.Descriptor {
	return glbuild.Descriptor{
		ColorInput:         glbuild.InputUniform,
		CoverageInput:      glbuild.InputSolidWhite,
		FirstCoverageStage: MaxStages,
		EdgeCount:          uint8(i % (glbuild.MaxEdges + 1)),
		ColorFilter:        glbuild.ColorFilterMode(i / (glbuild.MaxEdges + 1)),
	}
}

func testValues() UniformValues {
	return UniformValues{
		ViewMatrix:   IdentityMatrix(),
		TargetWidth:  64,
		TargetHeight: 32,
		Color:        Color{1, 0, 0, 1},
		Coverage:     opaqueWhite,
	}
}

func newTestCache(t *testing.T, capacity int) (*ProgramCache, *glgpu.Recorder) {
	t.Helper()
	dev := glgpu.NewRecorder()
	c, err := NewProgramCache(dev, Config{Capacity: capacity})
	if err != nil {
		t.Fatal(err)
	}
	return c, dev
}

func mustGet(t *testing.T, c *ProgramCache, d glbuild.Descriptor) *Entry {
	t.Helper()
	e, err := c.Get(d)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestGetSameKeySameEntry(t *testing.T) {
	c, dev := newTestCache(t, 4)
	d := testDesc(0)
	e1 := mustGet(t, c, d)
	// Irrelevant field under zero edges, canonicalized away.
	d.EdgeConcave = true
	e2 := mustGet(t, c, d)
	if e1 != e2 {
		t.Fatal("equal keys must yield the same entry")
	}
	if dev.Counts.LinkProgram != 1 {
		t.Errorf("want one link, got %d", dev.Counts.LinkProgram)
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
	e3 := mustGet(t, c, testDesc(1))
	if e3 == e1 || e3.ProgramID() == e1.ProgramID() {
		t.Error("different keys must yield different entries")
	}
}

func TestCapacityBound(t *testing.T) {
	const capacity = 4
	c, dev := newTestCache(t, capacity)
	for i := 0; i < 3*capacity; i++ {
		mustGet(t, c, testDesc(i))
		if c.Len() > capacity {
			t.Fatalf("resident count %d exceeds capacity %d", c.Len(), capacity)
		}
	}
	if _, programs := dev.Live(); programs != capacity {
		t.Errorf("want %d live programs, got %d", capacity, programs)
	}
	if st := c.Stats(); st.Evictions != 2*capacity {
		t.Errorf("want %d evictions, got %d", 2*capacity, st.Evictions)
	}
	if err := dev.Err(); err != nil {
		t.Error(err)
	}
}

func TestLRUEviction(t *testing.T) {
	c, _ := newTestCache(t, 2)
	a := mustGet(t, c, testDesc(0))
	b := mustGet(t, c, testDesc(1))
	if mustGet(t, c, testDesc(0)) != a {
		t.Fatal("expected hit")
	}
	mustGet(t, c, testDesc(2))
	if b.State() != EntryEvicted {
		t.Error("least recently used entry must be evicted")
	}
	if a.State() == EntryEvicted {
		t.Error("recently used entry evicted")
	}
	if b.ProgramID() != 0 {
		t.Error("evicted entry must not expose its program")
	}
	if _, err := b.Flush(&UniformValues{}); !errors.Is(err, ErrEvicted) {
		t.Errorf("flush of evicted entry: want ErrEvicted, got %v", err)
	}
}

func TestStampWraparound(t *testing.T) {
	c, _ := newTestCache(t, 2)
	c.stamp = math.MaxUint32 - 1
	a := mustGet(t, c, testDesc(0))
	if a.stamp != math.MaxUint32 {
		t.Fatalf("want stamp at maximum, got %d", a.stamp)
	}
	b := mustGet(t, c, testDesc(1))
	if a.stamp != 0 || b.stamp != 1 {
		t.Fatalf("after wraparound want stamps 0 and 1, got %d and %d", a.stamp, b.stamp)
	}
	mustGet(t, c, testDesc(0))
	if a.stamp != 2 {
		t.Fatalf("want stamp 2 after hit, got %d", a.stamp)
	}
	mustGet(t, c, testDesc(2))
	if b.State() != EntryEvicted || a.State() == EntryEvicted {
		t.Error("recency after wraparound not preserved")
	}
}

func uploadsTo(dev *glgpu.Recorder, program uint32, name string) (n int) {
	for _, u := range dev.Uploads {
		if u.Program == program && u.Name == name {
			n++
		}
	}
	return n
}

func TestInvalidateViewMatrices(t *testing.T) {
	c, dev := newTestCache(t, 4)
	a := mustGet(t, c, testDesc(0))
	v := testValues()
	for i := 0; i < 2; i++ {
		if _, err := a.Flush(&v); err != nil {
			t.Fatal(err)
		}
	}
	if n := uploadsTo(dev, a.ProgramID(), glbuild.UniformViewMatrix); n != 1 {
		t.Fatalf("unchanged view matrix uploaded %d times", n)
	}
	c.InvalidateViewMatrices()
	b := mustGet(t, c, testDesc(1))
	if _, err := a.Flush(&v); err != nil {
		t.Fatal(err)
	}
	if n := uploadsTo(dev, a.ProgramID(), glbuild.UniformViewMatrix); n != 2 {
		t.Errorf("invalidated view matrix must be uploaded again, got %d uploads", n)
	}
	if n := uploadsTo(dev, a.ProgramID(), glbuild.UniformColor); n != 1 {
		t.Errorf("invalidation must only affect the view matrix, color uploaded %d times", n)
	}
	if _, err := b.Flush(&v); err != nil {
		t.Fatal(err)
	}
	if n := uploadsTo(dev, b.ProgramID(), glbuild.UniformViewMatrix); n != 1 {
		t.Errorf("new entry must upload its view matrix once, got %d", n)
	}
}

func TestAbandon(t *testing.T) {
	c, dev := newTestCache(t, 4)
	var entries []*Entry
	for i := 0; i < 3; i++ {
		entries = append(entries, mustGet(t, c, testDesc(i)))
	}
	before := dev.Counts
	c.Abandon()
	if dev.Counts.DeleteProgram != before.DeleteProgram || dev.Counts.DeleteShader != before.DeleteShader {
		t.Error("abandon must not release device resources")
	}
	if c.Len() != 0 {
		t.Errorf("want empty cache after abandon, got %d", c.Len())
	}
	for _, e := range entries {
		if e.State() != EntryEvicted {
			t.Error("abandoned entry not evicted")
		}
	}
	// The cache is usable again.
	mustGet(t, c, testDesc(0))
	if c.Len() != 1 {
		t.Error("cache not reusable after abandon")
	}
}

func TestEvictionReleasesOnce(t *testing.T) {
	c, dev := newTestCache(t, 1)
	mustGet(t, c, testDesc(0))
	mustGet(t, c, testDesc(1))
	if dev.Counts.DeleteProgram != 1 || dev.Counts.DeleteShader != 2 {
		t.Errorf("want one program and two shader releases, got %+v", dev.Counts)
	}
	c.Release()
	if shaders, programs := dev.Live(); shaders != 0 || programs != 0 {
		t.Errorf("release leaked %d shaders %d programs", shaders, programs)
	}
	if err := dev.Err(); err != nil {
		t.Error(err)
	}
}

func TestFlushDiffing(t *testing.T) {
	c, dev := newTestCache(t, 4)
	a := mustGet(t, c, testDesc(0))
	v := testValues()
	n, err := a.Flush(&v)
	if err != nil {
		t.Fatal(err)
	} else if n != 2 {
		t.Errorf("first flush: want view matrix and color uploads, got %d", n)
	}
	n, _ = a.Flush(&v)
	if n != 0 {
		t.Errorf("unchanged flush uploaded %d uniforms", n)
	}
	if got := uploadsTo(dev, a.ProgramID(), glbuild.UniformColor); got != 1 {
		t.Errorf("unchanged color uploaded %d times", got)
	}
	v.Color = Color{0, 1, 0, 1}
	n, _ = a.Flush(&v)
	if n != 1 || uploadsTo(dev, a.ProgramID(), glbuild.UniformColor) != 2 {
		t.Errorf("changed color: want one more upload, got %d", n)
	}
	// Coverage is hardcoded white in the program, never uploaded.
	v.Coverage = Color{0.5, 0.5, 0.5, 0.5}
	n, _ = a.Flush(&v)
	if n != 0 || dev.UploadCount(glbuild.UniformCoverage) != 0 {
		t.Error("unused uniform uploaded")
	}
	// Shadows are per program.
	b := mustGet(t, c, testDesc(1))
	if _, err := b.Flush(&v); err != nil {
		t.Fatal(err)
	}
	if uploadsTo(dev, b.ProgramID(), glbuild.UniformColor) != 1 {
		t.Error("value already uploaded to another program must still be uploaded")
	}
	if err := dev.Err(); err != nil {
		t.Error(err)
	}
}

func TestFlushEdges(t *testing.T) {
	c, dev := newTestCache(t, 4)
	e := mustGet(t, c, testDesc(2))
	v := testValues()
	v.Edges = []Edge{{1, 0, 0}, {0, 1, 0}}
	if _, err := e.Flush(&v); err != nil {
		t.Fatal(err)
	}
	v.Edges = []Edge{{1, 0, 0}, {0, 1, 0}}
	if n, _ := e.Flush(&v); n != 0 {
		t.Error("equal edges in a new slice must not be uploaded")
	}
	v.Edges[1][2] = -4
	if n, _ := e.Flush(&v); n != 1 {
		t.Errorf("changed edge: want one upload, got %d", n)
	}
	last := dev.Uploads[len(dev.Uploads)-1]
	if last.Name != glbuild.UniformEdges || len(last.Values) != 6 || last.Values[5] != -4 {
		t.Errorf("unexpected edge upload %+v", last)
	}
}

func TestCompileFailureNotCached(t *testing.T) {
	c, dev := newTestCache(t, 4)
	fail := true
	dev.FailCompile = func(stage glgpu.ShaderStage, source string) string {
		if fail && stage == glgpu.StageFragment {
			return "0:1(1): error: driver says no"
		}
		return ""
	}
	_, err := c.Get(testDesc(0))
	if !errors.Is(err, glgpu.ErrShaderCompile) {
		t.Fatalf("want ErrShaderCompile, got %v", err)
	}
	var cerr *glgpu.CompileError
	if !errors.As(err, &cerr) || cerr.Stage != glgpu.StageFragment {
		t.Errorf("want fragment compile error, got %v", err)
	}
	if c.Len() != 0 {
		t.Error("failed program cached")
	}
	if shaders, programs := dev.Live(); shaders != 0 || programs != 0 {
		t.Errorf("failure leaked %d shaders %d programs", shaders, programs)
	}
	fail = false
	compiles := dev.Counts.CompileShader
	mustGet(t, c, testDesc(0))
	if dev.Counts.CompileShader == compiles {
		t.Error("identical descriptor must be compiled again after a failure")
	}
	if st := c.Stats(); st.CompileFailures != 1 || st.Misses != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestUseBindsOnce(t *testing.T) {
	c, dev := newTestCache(t, 4)
	a := mustGet(t, c, testDesc(0))
	b := mustGet(t, c, testDesc(1))
	for i := 0; i < 3; i++ {
		if err := c.Use(a); err != nil {
			t.Fatal(err)
		}
	}
	if dev.Counts.UseProgram != 1 || a.State() != EntryBound {
		t.Errorf("want a single bind, got %d", dev.Counts.UseProgram)
	}
	c.Use(b)
	if a.State() != EntryLinked || b.State() != EntryBound || dev.Bound() != b.ProgramID() {
		t.Error("binding another program must unbind the previous one")
	}
}

func TestNewProgramCacheConfig(t *testing.T) {
	dev := glgpu.NewRecorder()
	if _, err := NewProgramCache(dev, Config{Capacity: -1}); err == nil {
		t.Error("negative capacity accepted")
	}
	if _, err := NewProgramCache(dev, Config{GLSL: glbuild.Version{Number: 120}}); err == nil {
		t.Error("unsupported GLSL version accepted")
	}
	c, err := NewProgramCache(dev, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if c.Capacity() != DefaultCapacity || c.Caps().GLSL != glbuild.DefaultVersion {
		t.Errorf("unexpected defaults: capacity %d version %+v", c.Capacity(), c.Caps().GLSL)
	}
	if _, err := c.Get(glbuild.Descriptor{DualSrc: glbuild.DualSrcCoverage}); !errors.Is(err, ErrCapabilityMismatch) {
		t.Errorf("want ErrCapabilityMismatch, got %v", err)
	}
}

func TestFlushTargetResize(t *testing.T) {
	c, dev := newTestCache(t, 4)
	a := mustGet(t, c, testDesc(0))
	v := testValues()
	if _, err := a.Flush(&v); err != nil {
		t.Fatal(err)
	}
	v.TargetWidth *= 2
	if _, err := a.Flush(&v); err != nil {
		t.Fatal(err)
	}
	if n := uploadsTo(dev, a.ProgramID(), glbuild.UniformViewMatrix); n != 2 {
		t.Fatalf("resized target must upload the view matrix again, got %d uploads", n)
	}
	last := dev.Uploads[len(dev.Uploads)-1]
	if last.Name != glbuild.UniformViewMatrix || last.Values[0] != 2.0/float32(v.TargetWidth) {
		t.Errorf("view matrix not rescaled for new width: %+v", last)
	}
}
