package experiment

// EpsilonSchedule linearly decays the exploration rate from Start to
// End over Decay episodes, after which it is held at End
type EpsilonSchedule struct {
	Start float64
	End   float64
	Decay int
}

// At returns epsilon at episode when the decay began at episode anchor
func (e EpsilonSchedule) At(episode, anchor int) float64 {
	elapsed := episode - anchor
	if elapsed < 0 {
		elapsed = 0
	}
	if e.Decay <= 0 || elapsed >= e.Decay {
		return e.End
	}
	return e.Start + (e.End-e.Start)/float64(e.Decay)*float64(elapsed)
}
