package experiment

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/samuelfneumann/crowdnav/agent"
	"github.com/samuelfneumann/crowdnav/agent/policy"
	"github.com/samuelfneumann/crowdnav/environment"
	"github.com/samuelfneumann/crowdnav/environment/crowdsim"
	"github.com/samuelfneumann/crowdnav/experiment/checkpointer"
	"github.com/samuelfneumann/crowdnav/experiment/tracker"
	"github.com/samuelfneumann/crowdnav/explorer"
	"github.com/samuelfneumann/crowdnav/expreplay"
	"github.com/samuelfneumann/crowdnav/network"
)

// WeightsFile returns the file of the named weights of a run: il, rl,
// resumed, or best
func WeightsFile(name string) (string, error) {
	switch name {
	case "il":
		return ILModelFile, nil
	case "rl":
		return RLModelFile, nil
	case "resumed":
		return ResumedModelFile, nil
	case "best":
		return BestModelFile, nil
	default:
		return "", fmt.Errorf("weightsFile: unknown weights %q", name)
	}
}

// Evaluate runs episodes greedy episodes in phase with the weights
// saved in file of the run in dir. If episodes is 0, every canonical
// scenario of the phase is run once. The environment starts at the
// curriculum level saved with the run.
func Evaluate(config Config, dir, file string, phase environment.Phase,
	episodes int, out io.Writer) (explorer.Summary, error) {
	if err := config.Validate(); err != nil {
		return explorer.Summary{}, err
	}

	path := filepath.Join(dir, file)
	decoded := &network.Model{}
	if err := checkpointer.Load(path, decoded); err != nil {
		return explorer.Summary{}, &ConfigError{Field: "weights", Err: err}
	}
	defer decoded.Close()

	env, err := crowdsim.New(config.Env, config.Seed)
	if err != nil {
		return explorer.Summary{}, &ConfigError{Field: "Env", Err: err}
	}
	numActions := env.ActionSpec().NumActions()

	var state State
	if statePath := filepath.Join(dir, StateFile); checkpointer.Exists(
		statePath) {
		if err := checkpointer.LoadJSON(statePath, &state); err != nil {
			return explorer.Summary{}, err
		}
		env.SetLevel(state.Level)
	}

	model, err := config.Model.Create(env.ObservationSpec().Size(),
		config.Method.Outputs(numActions))
	if err != nil {
		return explorer.Summary{}, &ConfigError{Field: "Model", Err: err}
	}
	defer model.Close()
	if err := model.Load(decoded); err != nil {
		return explorer.Summary{}, &ConfigError{Field: "weights", Err: err}
	}

	var p agent.Policy
	switch config.Method {
	case agent.DoubleQ:
		p, err = policy.NewDoubleQ(model, numActions, config.Seed)
	default:
		p, err = policy.NewValueLearning(env, model, config.Seed)
	}
	if err != nil {
		return explorer.Summary{}, fmt.Errorf("evaluate: %v", err)
	}

	logger, err := tracker.NewLogger(out, "", config.Debug)
	if err != nil {
		return explorer.Summary{}, err
	}

	// Evaluation never updates memory
	memory, err := expreplay.New(1, config.Seed)
	if err != nil {
		return explorer.Summary{}, err
	}

	exp := explorer.New(env, memory, p, config.Method, nil)
	exp.SetLogger(logger)
	exp.SetTracker(logger)

	if episodes <= 0 {
		episodes = env.CaseSize(phase)
	}
	logger.Infof("Evaluating %v on %d %v episodes", file, episodes, phase)
	return exp.RunEpisodes(episodes, phase, explorer.Options{
		Episode: state.Episode,
	})
}
