package checkpointer

// NStep schedules an event every n episodes
type NStep struct {
	interval int
}

// NewNStep returns an NStep that is due every n episodes. An interval
// below 1 is due every episode.
func NewNStep(n int) NStep {
	if n < 1 {
		n = 1
	}
	return NStep{interval: n}
}

// Due returns whether the event is due at episode
func (n NStep) Due(episode int) bool {
	return episode%n.interval == 0
}

