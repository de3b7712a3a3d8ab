// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package graph is a small render graph: passes declare which textures they
// read and write, the graph derives dependencies from those sets, drops
// cullable passes nobody consumes, allocates each transient texture right
// before its first use and destroys it right after its last.
//
// A Graph is built, compiled, and executed once per frame, then discarded.
package graph

import (
	"errors"
	"fmt"

	"github.com/gogpu/vhs/render"
)

// Graph errors.
var (
	// ErrUnknownResource is returned for a ResourceID the graph did not issue.
	ErrUnknownResource = errors.New("graph: unknown resource")

	// ErrReadBeforeWrite is returned when a pass reads a transient texture
	// that no earlier pass writes.
	ErrReadBeforeWrite = errors.New("graph: transient read before any write")

	// ErrExecuted is returned when a graph is modified or run twice.
	ErrExecuted = errors.New("graph: already executed")
)

// Allocator creates and frees transient textures. render.Backend
// satisfies it.
type Allocator interface {
	CreateTexture(desc render.TextureDescriptor) (render.Texture, error)
	DestroyTexture(tex render.Texture)
}

// ResourceID names a texture within one graph.
type ResourceID int

// Invalid is the zero ResourceID. No resource has it.
const Invalid ResourceID = 0

type access uint8

const (
	accessRead access = 1 << iota
	accessWrite
)

type resource struct {
	name     string
	desc     render.TextureDescriptor
	tex      render.Texture
	imported bool
	exported bool

	first, last int // schedule indices of live passes; -1 when unused
}

func (r *resource) transient() bool { return !r.imported }

// ExecFunc records a pass. It runs during Execute with every declared
// texture allocated.
type ExecFunc func(ctx *Context) error

type pass struct {
	name     string
	index    int
	uses     map[ResourceID]access
	order    []ResourceID
	cullable bool
	exec     ExecFunc

	deps      []int
	producers []int // read-after-write subset of deps
	live      bool
}

// Stats describes one executed graph.
type Stats struct {
	Passes      int
	Culled      int
	Allocations int
	Releases    int
	PeakLive    int
}

// Graph is a per-frame render graph.
type Graph struct {
	alloc     Allocator
	resources []*resource // index 0 unused
	passes    []*pass
	schedule  []*pass
	compiled  bool
	executed  bool
	stats     Stats
}

// New returns an empty graph that allocates through alloc.
func New(alloc Allocator) *Graph {
	return &Graph{alloc: alloc, resources: []*resource{nil}}
}

func (g *Graph) add(r *resource) ResourceID {
	r.first, r.last = -1, -1
	g.resources = append(g.resources, r)
	return ResourceID(len(g.resources) - 1)
}

func (g *Graph) lookup(id ResourceID) (*resource, error) {
	if id <= Invalid || int(id) >= len(g.resources) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownResource, id)
	}
	return g.resources[id], nil
}

// Import registers an externally owned texture. The graph never allocates
// or destroys it and treats it as already written.
func (g *Graph) Import(name string, tex render.Texture) ResourceID {
	return g.add(&resource{name: name, tex: tex, imported: true})
}

// Create declares a transient texture. It is allocated before its first
// live use and destroyed after its last.
func (g *Graph) Create(name string, desc render.TextureDescriptor) ResourceID {
	if desc.Label == "" {
		desc.Label = name
	}
	return g.add(&resource{name: name, desc: desc})
}

// Export keeps a texture alive past Execute. The caller takes ownership of
// an exported transient and must destroy it. Passes that write an exported
// texture are never culled.
func (g *Graph) Export(id ResourceID) error {
	r, err := g.lookup(id)
	if err != nil {
		return err
	}
	r.exported = true
	return nil
}

// Name returns the resource's debug name.
func (g *Graph) Name(id ResourceID) string {
	if r, err := g.lookup(id); err == nil {
		return r.name
	}
	return ""
}

// Descriptor returns the descriptor a transient was created with. Imported
// textures report their live dimensions and format.
func (g *Graph) Descriptor(id ResourceID) (render.TextureDescriptor, error) {
	r, err := g.lookup(id)
	if err != nil {
		return render.TextureDescriptor{}, err
	}
	if r.imported && r.tex != nil {
		return render.TextureDescriptor{
			Label: r.name, Width: r.tex.Width(), Height: r.tex.Height(), Format: r.tex.Format(),
		}, nil
	}
	return r.desc, nil
}

// Builder declares a pass's resource usage.
type Builder struct {
	g   *Graph
	p   *pass
	err error
}

func (b *Builder) use(id ResourceID, a access) ResourceID {
	if _, err := b.g.lookup(id); err != nil {
		if b.err == nil {
			b.err = fmt.Errorf("pass %q: %w", b.p.name, err)
		}
		return id
	}
	if _, seen := b.p.uses[id]; !seen {
		b.p.order = append(b.p.order, id)
	}
	b.p.uses[id] |= a
	return id
}

// Read declares that the pass samples id.
func (b *Builder) Read(id ResourceID) ResourceID { return b.use(id, accessRead) }

// Write declares that the pass renders into id, replacing its contents.
func (b *Builder) Write(id ResourceID) ResourceID { return b.use(id, accessWrite) }

// ReadWrite declares that the pass both samples and renders into id, as a
// blend into an existing target does.
func (b *Builder) ReadWrite(id ResourceID) ResourceID {
	return b.use(id, accessRead|accessWrite)
}

// AllowCulling lets the compiler drop the pass when none of its writes is
// consumed. Passes are not cullable by default.
func (b *Builder) AllowCulling(v bool) { b.p.cullable = v }

// AddPass declares a pass. setup runs immediately and declares resource
// usage; exec runs during Execute.
func (g *Graph) AddPass(name string, setup func(*Builder), exec ExecFunc) error {
	if g.executed || g.compiled {
		return ErrExecuted
	}
	p := &pass{name: name, index: len(g.passes), uses: make(map[ResourceID]access), exec: exec}
	b := &Builder{g: g, p: p}
	if setup != nil {
		setup(b)
	}
	if b.err != nil {
		return b.err
	}
	g.passes = append(g.passes, p)
	return nil
}

// Compile derives dependencies, culls, and computes resource lifetimes.
// Execute calls it if needed.
func (g *Graph) Compile() error {
	if g.compiled {
		return nil
	}
	if err := g.link(); err != nil {
		return err
	}
	g.cull()

	g.schedule = g.schedule[:0]
	for _, p := range g.passes {
		if p.live {
			g.schedule = append(g.schedule, p)
		}
	}
	for i, p := range g.schedule {
		for _, id := range p.order {
			r := g.resources[id]
			if r.first < 0 {
				r.first = i
			}
			r.last = i
		}
	}
	g.stats.Passes = len(g.schedule)
	g.stats.Culled = len(g.passes) - len(g.schedule)
	g.compiled = true
	return nil
}

// link adds read-after-write, write-after-write, and write-after-read edges.
// Every edge points from an earlier declared pass to a later one, so
// declaration order is always a valid topological order.
func (g *Graph) link() error {
	lastWriter := make(map[ResourceID]int)
	readers := make(map[ResourceID][]int)

	for _, p := range g.passes {
		deps := make(map[int]struct{})
		raw := make(map[int]struct{})
		for _, id := range p.order {
			a := p.uses[id]
			r := g.resources[id]
			w, written := lastWriter[id]
			if a&accessRead != 0 {
				switch {
				case written:
					deps[w] = struct{}{}
					raw[w] = struct{}{}
				case r.transient():
					return fmt.Errorf("%w: pass %q reads %q", ErrReadBeforeWrite, p.name, r.name)
				}
			}
			if a&accessWrite != 0 {
				if written {
					deps[w] = struct{}{}
				}
				for _, rd := range readers[id] {
					if rd != p.index {
						deps[rd] = struct{}{}
					}
				}
			}
		}
		for _, id := range p.order {
			a := p.uses[id]
			if a&accessWrite != 0 {
				lastWriter[id] = p.index
				readers[id] = readers[id][:0]
			}
			if a&accessRead != 0 {
				readers[id] = append(readers[id], p.index)
			}
		}
		p.deps, p.producers = p.deps[:0], p.producers[:0]
		for d := range g.passes[:p.index] {
			if _, ok := deps[d]; ok {
				p.deps = append(p.deps, d)
			}
			if _, ok := raw[d]; ok {
				p.producers = append(p.producers, d)
			}
		}
	}
	return nil
}

// cull marks passes live, walking backwards from roots: non-cullable passes
// and passes that write an imported or exported texture. Liveness follows
// only read-after-write edges; ordering-only edges do not keep a pass.
func (g *Graph) cull() {
	needed := make(map[int]bool)
	for i := len(g.passes) - 1; i >= 0; i-- {
		p := g.passes[i]
		live := !p.cullable || needed[i]
		if !live {
			for id, a := range p.uses {
				r := g.resources[id]
				if a&accessWrite != 0 && (r.exported || r.imported) {
					live = true
					break
				}
			}
		}
		p.live = live
		if live {
			for _, d := range p.producers {
				needed[d] = true
			}
		}
	}
}

// Schedule returns the names of the passes that will run, in order.
func (g *Graph) Schedule() ([]string, error) {
	if err := g.Compile(); err != nil {
		return nil, err
	}
	names := make([]string, len(g.schedule))
	for i, p := range g.schedule {
		names[i] = p.name
	}
	return names, nil
}

// Dependencies returns the names of the passes name depends on.
func (g *Graph) Dependencies(name string) []string {
	if err := g.Compile(); err != nil {
		return nil
	}
	for _, p := range g.passes {
		if p.name == name {
			out := make([]string, len(p.deps))
			for i, d := range p.deps {
				out[i] = g.passes[d].name
			}
			return out
		}
	}
	return nil
}

// Execute runs the schedule. On error every texture the graph allocated,
// exported or not, is destroyed.
func (g *Graph) Execute() error {
	if g.executed {
		return ErrExecuted
	}
	if err := g.Compile(); err != nil {
		return err
	}
	g.executed = true

	live := 0
	for i, p := range g.schedule {
		for _, id := range p.order {
			r := g.resources[id]
			if r.transient() && r.first == i {
				tex, err := g.alloc.CreateTexture(r.desc)
				if err != nil {
					g.abort()
					return fmt.Errorf("graph: pass %q: create %q: %w", p.name, r.name, err)
				}
				r.tex = tex
				g.stats.Allocations++
				live++
				g.stats.PeakLive = max(g.stats.PeakLive, live)
			}
		}

		if p.exec != nil {
			if err := p.exec(&Context{g: g, p: p}); err != nil {
				g.abort()
				return fmt.Errorf("graph: pass %q: %w", p.name, err)
			}
		}

		for _, id := range p.order {
			r := g.resources[id]
			if r.transient() && !r.exported && r.last == i && r.tex != nil {
				g.alloc.DestroyTexture(r.tex)
				r.tex = nil
				g.stats.Releases++
				live--
			}
		}
	}
	return nil
}

func (g *Graph) abort() {
	for _, r := range g.resources[1:] {
		if r.transient() && r.tex != nil {
			g.alloc.DestroyTexture(r.tex)
			r.tex = nil
			g.stats.Releases++
		}
	}
}

// Texture returns the texture behind id after Execute. Only imported and
// exported textures are still alive then.
func (g *Graph) Texture(id ResourceID) render.Texture {
	r, err := g.lookup(id)
	if err != nil {
		return nil
	}
	return r.tex
}

// Stats returns execution counters.
func (g *Graph) Stats() Stats { return g.stats }

// Context gives a running pass access to the textures it declared.
type Context struct {
	g *Graph
	p *pass
}

// Pass returns the running pass's name.
func (c *Context) Pass() string { return c.p.name }

// Texture returns the texture for id, or nil if the pass did not declare id.
func (c *Context) Texture(id ResourceID) render.Texture {
	if _, ok := c.p.uses[id]; !ok {
		return nil
	}
	return c.g.resources[id].tex
}
