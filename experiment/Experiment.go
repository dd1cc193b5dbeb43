// Package experiment implements functionality for running a training
// run: its configuration, its checkpointed progress, and the loop that
// drives imitation and reinforcement learning.
package experiment

import "context"

// Experiment outlines structs that can run experiments. The Run()
// method runs the experiment until it finishes or the context is
// cancelled. The Save() function saves all data tracked during the
// experiment and is usually called after Run() returns, whether or not
// it finished.
type Experiment interface {
	Run(ctx context.Context) error
	Save() error
	Close() error
}

var _ Experiment = (*Loop)(nil)
