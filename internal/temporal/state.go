// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package temporal holds the per-camera state that survives between frames.
//
// The only state today is the horizontal-noise phase. It is stored in fixed
// point so that repeated advances are exact: 250 one-second steps at the
// nominal rate land on 0, not on 0.99999994.
package temporal

import (
	"math"
	"sync"
	"time"

	"github.com/gogpu/vhs/cache"
)

// PhaseRate is the phase advance per second of elapsed time.
const PhaseRate = 0.004

// JumpChance is the probability per advance of an extra random phase jump.
const JumpChance = 0.01

// phaseOne is the fixed-point representation of 1.0.
const phaseOne = 1_000_000_000

// CameraID identifies a camera. The host chooses the values; they only need
// to be stable for the camera's lifetime.
type CameraID uint64

// Rand returns uniform values in [0, 1).
type Rand func() float32

// State is the mutable state of one camera.
type State struct {
	mu    sync.Mutex
	phase uint64 // fixed point, [0, phaseOne)
	steps uint64
}

// Phase returns the noise phase in [0, 1).
func (s *State) Phase() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float32(float64(s.phase) / phaseOne)
}

// Steps returns how many times Advance has run.
func (s *State) Steps() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

// Advance moves the phase forward by dt*PhaseRate plus, with probability
// JumpChance, a random offset, wrapping into [0, 1). It returns the new
// phase. rand may be nil, which disables the jump.
func (s *State) Advance(dt time.Duration, rand Rand) float32 {
	inc := increment(dt, rand)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = (s.phase + inc) % phaseOne
	s.steps++
	return float32(float64(s.phase) / phaseOne)
}

// Next computes the advance Advance would make without applying it.
// The caller applies it with Step.Commit once the frame has been submitted,
// so a dropped frame leaves the state untouched.
func (s *State) Next(dt time.Duration, rand Rand) Step {
	inc := increment(dt, rand)

	s.mu.Lock()
	defer s.mu.Unlock()
	return Step{state: s, from: s.phase, to: (s.phase + inc) % phaseOne}
}

// Step is a pending phase advance. The zero Step commits nothing.
type Step struct {
	state    *State
	from, to uint64
}

// Phase returns the phase the step moves to.
func (st Step) Phase() float32 {
	return float32(float64(st.to) / phaseOne)
}

// Commit applies the step. It reports false, and changes nothing, when the
// state moved since Next was called or the step is zero.
func (st Step) Commit() bool {
	if st.state == nil {
		return false
	}
	s := st.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != st.from {
		return false
	}
	s.phase = st.to
	s.steps++
	return true
}

func increment(dt time.Duration, rand Rand) uint64 {
	inc := toFixed(dt.Seconds() * PhaseRate)
	if rand != nil && rand() < JumpChance {
		inc += toFixed(float64(rand()))
	}
	return inc
}

// toFixed converts a non-negative value to fixed point modulo 1.
// Negative durations do not move the phase backwards.
func toFixed(v float64) uint64 {
	if !(v > 0) || math.IsInf(v, 0) {
		return 0
	}
	v -= math.Floor(v)
	return uint64(math.Round(v*phaseOne)) % phaseOne
}

// Store maps cameras to their State. States are created on first use and
// live until Forget. Without Forget calls the store grows by one small entry
// per camera ever seen.
type Store struct {
	states *cache.Sharded[CameraID, *State]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		states: cache.NewSharded[CameraID, *State](func(id CameraID) uint64 {
			return cache.Uint64Hasher(uint64(id))
		}),
	}
}

// GetOrCreate returns the state for id, creating it with phase 0.
func (s *Store) GetOrCreate(id CameraID) *State {
	return s.states.GetOrCreate(id, func() *State { return new(State) })
}

// Get returns the state for id if the camera has been seen.
func (s *Store) Get(id CameraID) (*State, bool) {
	return s.states.Get(id)
}

// Forget drops the state for id. The host calls it when a camera is
// destroyed. Returns true if the camera had state.
func (s *Store) Forget(id CameraID) bool {
	return s.states.Delete(id)
}

// Len returns the number of cameras with state.
func (s *Store) Len() int {
	return s.states.Len()
}

// Range visits every camera until fn returns false.
func (s *Store) Range(fn func(CameraID, *State) bool) {
	s.states.Range(fn)
}
