package glprog

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/soypat/glprog/glbuild"
	"github.com/soypat/glprog/glgpu"
)

// DefaultCapacity is the number of programs a cache keeps when [Config.Capacity] is zero.
const DefaultCapacity = 32

// Config configures a [ProgramCache].
type Config struct {
	// Capacity is the maximum number of resident programs. Zero selects [DefaultCapacity].
	Capacity int
	// GLSL is the shading language version generated. The zero value selects Caps.GLSL
	// or [glbuild.DefaultVersion] if that is also unset.
	GLSL glbuild.Version
	// Logger overrides the package logger set with [SetLogger].
	Logger *slog.Logger
	// Caps are the context capabilities descriptors are checked against.
	// If nil no optional capability is assumed.
	Caps *glbuild.Caps
}

// EntryState is the lifecycle state of an [Entry].
type EntryState uint8

const (
	// EntryLinked entries are resident and not bound.
	EntryLinked EntryState = iota
	// EntryBound is the single resident entry whose program is in use.
	EntryBound
	// EntryEvicted entries are no longer owned by the cache. Terminal.
	EntryEvicted
)

func (s EntryState) String() string {
	switch s {
	case EntryLinked:
		return "linked"
	case EntryBound:
		return "bound"
	case EntryEvicted:
		return "evicted"
	}
	return "unknown"
}

// Entry is a compiled program resident in a [ProgramCache].
type Entry struct {
	cache  *ProgramCache
	key    glbuild.Key
	desc   glbuild.Descriptor
	prog   *glgpu.Program
	stamp  uint32
	slot   int
	state  EntryState
	binds  entryBindings
	shadow uniformShadow
}

// Descriptor returns the canonical descriptor the entry was generated from.
func (e *Entry) Descriptor() glbuild.Descriptor { return e.desc }

// Binding returns how the semantic uniform name reaches the program.
func (e *Entry) Binding(name string) glgpu.Binding {
	if e.prog == nil {
		return glgpu.Binding{}
	}
	return e.prog.Bindings.Lookup(name)
}

// ProgramID returns the GPU program handle, or zero once evicted.
func (e *Entry) ProgramID() uint32 {
	if e.prog == nil {
		return 0
	}
	return e.prog.ID
}

// State returns the lifecycle state of the entry.
func (e *Entry) State() EntryState { return e.state }

// CacheStats are counters accumulated over the lifetime of a cache.
type CacheStats struct {
	Entries         int
	Capacity        int
	Hits            uint64
	Misses          uint64
	Evictions       uint64
	CompileFailures uint64
}

// ProgramCache is a bounded LRU cache of compiled programs keyed by descriptor.
// A cache belongs to one GPU context and must only be used from the goroutine owning it.
type ProgramCache struct {
	dev     glgpu.Device
	log     *slog.Logger
	caps    glbuild.Caps
	prog    *glbuild.Programmer
	entries []*Entry // Resident entries by slot, nil slots are free.
	index   map[glbuild.Key]int
	count   int
	stamp   uint32 // Last stamp handed out.
	bound   *Entry
	stats   CacheStats
}

// NewProgramCache returns an empty cache compiling programs on dev.
func NewProgramCache(dev glgpu.Device, cfg Config) (*ProgramCache, error) {
	if dev == nil {
		return nil, errors.New("nil device")
	}
	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("negative cache capacity %d", cfg.Capacity)
	} else if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	c := &ProgramCache{
		dev:     dev,
		log:     cfg.Logger,
		prog:    glbuild.NewDefaultProgrammer(),
		entries: make([]*Entry, cfg.Capacity),
		index:   make(map[glbuild.Key]int, cfg.Capacity),
	}
	if c.log == nil {
		c.log = Logger()
	}
	if cfg.Caps != nil {
		c.caps = *cfg.Caps
	}
	version := cfg.GLSL
	if version == (glbuild.Version{}) {
		version = c.caps.GLSL
	}
	if version == (glbuild.Version{}) {
		version = glbuild.DefaultVersion
	}
	if err := c.prog.SetVersion(version); err != nil {
		return nil, err
	}
	c.caps.GLSL = version
	return c, nil
}

// Caps returns the capabilities descriptors are checked against, with the GLSL version in use.
func (c *ProgramCache) Caps() *glbuild.Caps { return &c.caps }

// Get returns the resident entry for desc, generating and compiling its program
// on a miss. When the cache is full the least recently used entry is evicted
// and released. Failed compilations are not cached.
func (c *ProgramCache) Get(desc glbuild.Descriptor) (*Entry, error) {
	desc.Canonicalize()
	key := desc.Key()
	if slot, ok := c.index[key]; ok {
		e := c.entries[slot]
		e.stamp = c.nextStamp()
		c.stats.Hits++
		return e, nil
	}
	c.stats.Misses++
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if err := desc.Supported(&c.caps); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapabilityMismatch, err)
	}
	src, err := c.prog.Generate(&desc)
	if err != nil {
		return nil, fmt.Errorf("generating program %#x: %w", key.Hash(), err)
	}
	prog, err := glgpu.CompileProgram(c.dev, &src)
	if err != nil {
		c.stats.CompileFailures++
		var infoLog string
		var cerr *glgpu.CompileError
		var lerr *glgpu.LinkError
		if errors.As(err, &cerr) {
			infoLog = cerr.InfoLog
		} else if errors.As(err, &lerr) {
			infoLog = lerr.InfoLog
		}
		c.log.Warn("program build failed", slog.Uint64("key", key.Hash()), slog.String("err", err.Error()), slog.String("log", infoLog))
		return nil, fmt.Errorf("building program %#x: %w", key.Hash(), err)
	}

	slot := c.freeSlot()
	if slot < 0 {
		slot = c.evictLRU()
	}
	e := &Entry{
		cache: c,
		key:   key,
		desc:  desc,
		prog:  prog,
		slot:  slot,
		state: EntryLinked,
		binds: resolveBindings(prog.Bindings),
	}
	c.entries[slot] = e
	c.index[key] = slot
	c.count++
	e.stamp = c.nextStamp()
	c.log.Debug("program compiled", slog.Uint64("key", key.Hash()), slog.Uint64("program", uint64(prog.ID)), slog.Int("entries", c.count))
	return e, nil
}

func (c *ProgramCache) freeSlot() int {
	if c.count == len(c.entries) {
		return -1
	}
	for i, e := range c.entries {
		if e == nil {
			return i
		}
	}
	return -1
}

// evictLRU releases the entry with the lowest stamp and returns its free slot.
// Ties go to the lowest slot.
func (c *ProgramCache) evictLRU() int {
	victim := 0
	for i, e := range c.entries {
		if e.stamp < c.entries[victim].stamp {
			victim = i
		}
	}
	e := c.entries[victim]
	c.log.Debug("program evicted", slog.Uint64("key", e.key.Hash()), slog.Uint64("program", uint64(e.prog.ID)))
	c.remove(e, true)
	c.stats.Evictions++
	return victim
}

// remove takes e out of the cache, releasing its GPU resources if release is set.
func (c *ProgramCache) remove(e *Entry, release bool) {
	if c.bound == e {
		c.bound = nil
	}
	if release {
		e.prog.Release(c.dev)
	}
	delete(c.index, e.key)
	c.entries[e.slot] = nil
	c.count--
	e.prog = nil
	e.state = EntryEvicted
}

// nextStamp returns the next LRU stamp. On overflow every resident stamp is
// reset to zero and counting restarts at one.
func (c *ProgramCache) nextStamp() uint32 {
	if c.stamp == math.MaxUint32 {
		for _, e := range c.entries {
			if e != nil {
				e.stamp = 0
			}
		}
		c.stamp = 0
	}
	c.stamp++
	return c.stamp
}

// Use binds the entry's program unless it is already bound.
func (c *ProgramCache) Use(e *Entry) error {
	if e.state == EntryEvicted || e.cache != c {
		return ErrEvicted
	}
	if c.bound == e {
		return nil
	}
	if c.bound != nil {
		c.bound.state = EntryLinked
	}
	c.dev.UseProgram(e.prog.ID)
	// Another program may have overwritten the constant attributes.
	e.invalidateAttributes()
	e.state = EntryBound
	c.bound = e
	return nil
}

// InvalidateViewMatrices forces every resident entry to upload its view matrix
// on the next flush. Render target size changes are detected by Flush; call it
// when code outside the cache has modified program or attribute state.
func (c *ProgramCache) InvalidateViewMatrices() {
	for _, e := range c.entries {
		if e != nil {
			e.shadow.viewMatrix.invalidate()
		}
	}
}

// Abandon forgets every entry without issuing device calls. Use it when the
// context is lost and its handles are no longer valid.
func (c *ProgramCache) Abandon() {
	n := c.count
	for _, e := range c.entries {
		if e != nil {
			c.remove(e, false)
		}
	}
	c.log.Debug("program cache abandoned", slog.Int("entries", n))
}

// Release deletes every resident program. The cache remains usable.
func (c *ProgramCache) Release() {
	for _, e := range c.entries {
		if e != nil {
			c.remove(e, true)
		}
	}
}

// Len returns the number of resident entries.
func (c *ProgramCache) Len() int { return c.count }

// Capacity returns the maximum number of resident entries.
func (c *ProgramCache) Capacity() int { return len(c.entries) }

// Stats returns the cache counters.
func (c *ProgramCache) Stats() CacheStats {
	s := c.stats
	s.Entries = c.count
	s.Capacity = len(c.entries)
	return s
}
