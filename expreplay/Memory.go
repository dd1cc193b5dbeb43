// Package expreplay implements a fixed-capacity replay memory of
// transitions.
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/crowdnav/timestep"
	"github.com/samuelfneumann/crowdnav/utils/intutils"
	"golang.org/x/exp/rand"
)

// Memory is a ring buffer of transitions. Once the memory is full,
// each Push overwrites the oldest transition. The capacity of a Memory
// never changes.
//
// Memory is not safe for concurrent use.
type Memory struct {
	buffer []timestep.Transition
	head   int // index of the next write
	size   int

	rng *rand.Rand
}

// New returns a new Memory holding at most capacity transitions. The
// seed determines the order in which transitions are sampled.
func New(capacity int, seed uint64) (*Memory, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("new: capacity must be >= 1\n\twant(>=1)"+
			"\n\thave(%v)", capacity)
	}

	return &Memory{
		buffer: make([]timestep.Transition, capacity),
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

// Push adds a transition to the memory, evicting the oldest transition
// if the memory is full.
func (m *Memory) Push(t timestep.Transition) {
	m.buffer[m.head] = t
	m.head = (m.head + 1) % len(m.buffer)
	if m.size < len(m.buffer) {
		m.size++
	}
}

// Len returns the number of transitions currently stored
func (m *Memory) Len() int {
	return m.size
}

// Capacity returns the maximum number of transitions stored
func (m *Memory) Capacity() int {
	return len(m.buffer)
}

// Clear removes all transitions from the memory
func (m *Memory) Clear() {
	for i := range m.buffer {
		m.buffer[i] = timestep.Transition{}
	}
	m.head = 0
	m.size = 0
}

// oldest returns the buffer index of the oldest stored transition
func (m *Memory) oldest() int {
	if m.size < len(m.buffer) {
		return 0
	}
	return m.head
}

// At returns the i-th oldest transition in memory
func (m *Memory) At(i int) timestep.Transition {
	if i < 0 || i >= m.size {
		panic(fmt.Sprintf("at: index out of range [%v] with length %v", i,
			m.size))
	}
	return m.buffer[(m.oldest()+i)%len(m.buffer)]
}

// Transitions returns the stored transitions ordered from oldest to
// newest.
func (m *Memory) Transitions() []timestep.Transition {
	out := make([]timestep.Transition, m.size)
	for i := range out {
		out[i] = m.At(i)
	}
	return out
}

// Sample returns n distinct transitions drawn uniformly at random
// without replacement.
func (m *Memory) Sample(n int) ([]timestep.Transition, error) {
	if m.size == 0 {
		return nil, &ExpReplayError{Op: "sample", Err: ErrEmptyMemory}
	}
	if n < 1 || n > m.size {
		err := fmt.Errorf("%w\n\twant(1 <= n <= %v)\n\thave(%v)",
			ErrInsufficientData, m.size, n)
		return nil, &ExpReplayError{Op: "sample", Err: err}
	}

	indices := m.choose(n)
	out := make([]timestep.Transition, n)
	for i, index := range indices {
		out[i] = m.At(index)
	}
	return out, nil
}

// Shuffled returns every stored transition in a uniformly random
// order.
func (m *Memory) Shuffled() ([]timestep.Transition, error) {
	if m.size == 0 {
		return nil, &ExpReplayError{Op: "shuffled", Err: ErrEmptyMemory}
	}
	return m.Sample(m.size)
}

// choose selects n distinct indices in [0, Len()) using a partial
// Fisher-Yates shuffle.
func (m *Memory) choose(n int) []int {
	n = intutils.Min(n, m.size)
	indices := make([]int, m.size)
	for i := range indices {
		indices[i] = i
	}
	for i := 0; i < n; i++ {
		j := i + m.rng.Intn(m.size-i)
		indices[i], indices[j] = indices[j], indices[i]
	}
	return indices[:n]
}
