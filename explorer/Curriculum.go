package explorer

import "fmt"

// Curriculum decides when the robot is ready for a harder environment
// based on the outcomes of training episodes
type Curriculum interface {
	// Observe records whether a training episode reached the goal
	Observe(success bool)

	// Ready reports whether the next difficulty level should be started
	Ready() bool

	// Rate returns the success rate over the recorded episodes
	Rate() float64

	// Full reports whether enough episodes have been recorded
	Full() bool

	// Reset forgets all recorded episodes
	Reset()
}

// SuccessWindow is a Curriculum over the success flags of the most
// recent training episodes. It is ready once the window is full and
// the success rate in the window reaches a milestone.
type SuccessWindow struct {
	milestone float64
	flags     []bool
	next      int
	len       int
	successes int
}

// NewSuccessWindow returns a new SuccessWindow holding the outcomes of
// the last size episodes
func NewSuccessWindow(size int, milestone float64) (*SuccessWindow, error) {
	if size < 1 {
		return nil, fmt.Errorf("newSuccessWindow: window size must be "+
			"positive\n\twant(>0)\n\thave(%v)", size)
	}
	if milestone < 0 || milestone > 1 {
		return nil, fmt.Errorf("newSuccessWindow: milestone must be a "+
			"rate\n\twant(0 <= milestone <= 1)\n\thave(%v)", milestone)
	}
	return &SuccessWindow{milestone: milestone, flags: make([]bool, size)}, nil
}

// Observe pushes a success flag, evicting the oldest when full
func (s *SuccessWindow) Observe(success bool) {
	if s.len == len(s.flags) {
		if s.flags[s.next] {
			s.successes--
		}
	} else {
		s.len++
	}

	s.flags[s.next] = success
	if success {
		s.successes++
	}
	s.next = (s.next + 1) % len(s.flags)
}

// Ready returns whether the window is full and its success rate is at
// least the milestone
func (s *SuccessWindow) Ready() bool {
	return s.Full() && s.Rate() >= s.milestone
}

// Rate returns the fraction of successes in the window, or 0 if the
// window is empty
func (s *SuccessWindow) Rate() float64 {
	if s.len == 0 {
		return 0
	}
	return float64(s.successes) / float64(s.len)
}

// Full returns whether the window holds size outcomes
func (s *SuccessWindow) Full() bool {
	return s.len == len(s.flags)
}

// Len returns the number of outcomes in the window
func (s *SuccessWindow) Len() int {
	return s.len
}

// Reset empties the window
func (s *SuccessWindow) Reset() {
	s.next, s.len, s.successes = 0, 0, 0
}

// noCurriculum never advances the difficulty
type noCurriculum struct{}

// NoCurriculum returns a Curriculum that is never ready
func NoCurriculum() Curriculum {
	return noCurriculum{}
}

func (noCurriculum) Observe(bool) {}
func (noCurriculum) Ready() bool { return false }
func (noCurriculum) Rate() float64 { return 0 }
func (noCurriculum) Full() bool { return false }
func (noCurriculum) Reset() {}
