package experiment

import (
	"context"
	"fmt"
	"io"
	"os"
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
	"github.com/samuelfneumann/crowdnav/solver"
	"github.com/samuelfneumann/crowdnav/trainer"
	"github.com/samuelfneumann/crowdnav/utils/progressbar"
)

// Files written to the output directory of a run
const (
	ILModelFile      = "il_model.gob"
	RLModelFile      = "rl_model.gob"
	ResumedModelFile = "resumed_rl_model.gob"
	BestModelFile    = "best_rl_model.gob"
	StateFile        = "state.json"
	ConfigFile       = "config.json"
	LogFile          = "output.log"
	HistoryFile      = "history.gob"
)

// maxFillEpisodes bounds the episodes run to fill memory with a batch
// before training. Only episodes ending at the goal or in a collision
// add transitions.
const maxFillEpisodes = 10000

// Loop trains a policy with imitation learning followed by
// reinforcement learning. It is a state machine over the Stages
//
//	Imitation -> Warmup -> Training -> FinalTest -> Done
//
// whose progress is checkpointed in a State. A resumed Loop skips
// imitation learning, restores the State and RL weights, and refills
// memory before training continues.
//
// The learning method of the Config selects how regression targets are
// estimated, and its curriculum settings select whether the difficulty
// of the environment grows with the training success rate.
type Loop struct {
	config    Config
	dir       string
	resumed   bool
	optimizer solver.Type
	schedule  EpsilonSchedule

	env      *crowdsim.CrowdSim
	scripted *crowdsim.Scripted
	policy   agent.TrainablePolicy
	model    *network.Model
	memory   *expreplay.Memory
	explorer *explorer.Explorer
	trainer  *trainer.Trainer

	// Where RL weights are saved. Resumed runs save to a separate file
	// so the weights they started from are kept.
	weightsFile string

	targetUpdate checkpointer.NStep
	evaluation   checkpointer.NStep
	checkpoint   checkpointer.NStep

	state    State
	logger   *tracker.Logger
	history  *tracker.History
	progress *progressbar.Bar
}

// NewLoop returns a new Loop writing its files to dir and logging to
// out. If resume is true, the run saved in dir is continued: its RL
// weights must exist, or a *ConfigError is returned before any work is
// done.
func NewLoop(config Config, dir string, resume bool,
	out io.Writer) (*Loop, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	optimizer, _ := config.SolverType()

	state := NewState()
	if resume {
		var err error
		if state, err = resumeState(dir); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("newLoop: could not create output directory: "+
			"%v", err)
	}
	logger, err := tracker.NewLogger(out, filepath.Join(dir, LogFile),
		config.Debug)
	if err != nil {
		return nil, fmt.Errorf("newLoop: could not create logger: %v", err)
	}
	history, err := tracker.NewHistory(filepath.Join(dir, HistoryFile))
	if err != nil {
		return nil, fmt.Errorf("newLoop: %v", err)
	}

	env, err := crowdsim.New(config.Env, config.Seed)
	if err != nil {
		return nil, &ConfigError{Field: "Env", Err: err}
	}
	numActions := env.ActionSpec().NumActions()

	model, err := config.Model.Create(env.ObservationSpec().Size(),
		config.Method.Outputs(numActions))
	if err != nil {
		return nil, &ConfigError{Field: "Model", Err: err}
	}

	var p agent.TrainablePolicy
	switch config.Method {
	case agent.DoubleQ:
		p, err = policy.NewDoubleQ(model, numActions, config.Seed)
	default:
		p, err = policy.NewValueLearning(env, model, config.Seed)
	}
	if err != nil {
		return nil, fmt.Errorf("newLoop: %v", err)
	}

	memory, err := expreplay.New(config.Train.Capacity, config.Seed)
	if err != nil {
		return nil, &ConfigError{Field: "Train.Capacity", Err: err}
	}

	curriculum := explorer.NoCurriculum()
	if config.Curriculum.Enabled {
		curriculum, err = explorer.NewSuccessWindow(
			config.Curriculum.SuccessRateWindowSize,
			config.Curriculum.SuccessRateMilestone,
		)
		if err != nil {
			return nil, &ConfigError{Field: "Curriculum", Err: err}
		}
	}

	exp := explorer.New(env, memory, p, config.Method, curriculum)
	exp.SetLogger(logger)
	exp.SetTracker(tracker.Multi{logger, history})

	t, err := trainer.New(model, memory, config.Trainer.BatchSize,
		config.Method)
	if err != nil {
		return nil, fmt.Errorf("newLoop: %v", err)
	}
	t.SetLogger(logger.Info())

	l := &Loop{
		config:       config,
		dir:          dir,
		resumed:      resume,
		optimizer:    optimizer,
		schedule:     config.Schedule(),
		env:          env,
		scripted:     crowdsim.NewScripted(env),
		policy:       p,
		model:        model,
		memory:       memory,
		explorer:     exp,
		trainer:      t,
		weightsFile:  RLModelFile,
		targetUpdate: checkpointer.NewNStep(config.Train.TargetUpdateInterval),
		evaluation:   checkpointer.NewNStep(config.Train.EvaluationInterval),
		checkpoint:   checkpointer.NewNStep(config.Train.CheckpointInterval),
		state:        state,
		logger:       logger,
		history:      history,
	}
	if config.Debug {
		l.checkpoint = checkpointer.NewNStep(1)
	}

	if resume {
		if err := l.restore(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// resumeState returns the State of the run saved in dir, checking that
// its RL weights exist
func resumeState(dir string) (State, error) {
	state := NewState()
	state.Stage = Warmup

	path := filepath.Join(dir, StateFile)
	if checkpointer.Exists(path) {
		if err := checkpointer.LoadJSON(path, &state); err != nil {
			return State{}, &ConfigError{Field: "resume", Err: err}
		}
	}
	if state.Weights == "" {
		state.Weights = RLModelFile
	}

	weights := filepath.Join(dir, state.Weights)
	if !checkpointer.Exists(weights) {
		return State{}, &ConfigError{Field: "resume",
			Err: fmt.Errorf("%w: %v", ErrMissingWeights, weights)}
	}
	return state, nil
}

// restore loads the RL weights and curriculum level of a resumed run
func (l *Loop) restore() error {
	decoded := &network.Model{}
	path := l.path(l.state.Weights)
	if err := checkpointer.Load(path, decoded); err != nil {
		return &ConfigError{Field: "resume", Err: err}
	}
	if err := l.model.Load(decoded); err != nil {
		return &ConfigError{Field: "resume", Err: err}
	}
	decoded.Close()

	if !l.env.SetLevel(l.state.Level) {
		return configErrorf("resume", "level %v exceeds max level %v",
			l.state.Level, l.env.MaxLevel())
	}

	switch l.state.Stage {
	case FinalTest, Done:
	default:
		l.state.Stage = Warmup
	}
	l.weightsFile = ResumedModelFile

	l.logger.Infof("Resuming run %v at episode %d, level %d",
		l.state.RunID, l.state.Episode, l.state.Level)
	return nil
}

// SetProgress displays a progress bar of the training episodes on w
func (l *Loop) SetProgress(w io.Writer) {
	l.progress = progressbar.New(w, 40,
		l.config.Train.TrainEpisodes)
}

// State returns the progress of the run
func (l *Loop) State() State {
	return l.state
}

// Model returns the live model being trained
func (l *Loop) Model() *network.Model {
	return l.model
}

// Memory returns the replay memory of the run
func (l *Loop) Memory() *expreplay.Memory {
	return l.memory
}

// Run runs the loop until it is Done, the context is cancelled, or an
// error occurs. Progress is checkpointed so that a stopped run can be
// resumed.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Infof("Run %v started in %v", l.state.RunID, l.dir)
	if err := checkpointer.SaveJSON(l.path(ConfigFile), l.config); err != nil {
		return err
	}

	for l.state.Stage != Done {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := l.step(); err != nil {
			l.logger.Errorf("%v stage at episode %d failed: %v",
				l.state.Stage, l.state.Episode, err)
			return fmt.Errorf("run: %v: %w", l.state.Stage, err)
		}
	}
	return l.Save()
}

// step runs the work of the current stage. A Training step is a single
// training iteration.
func (l *Loop) step() error {
	switch l.state.Stage {
	case Imitation:
		return l.imitate()
	case Warmup:
		return l.warmup()
	case Training:
		return l.train()
	case FinalTest:
		return l.finalTest()
	default:
		return fmt.Errorf("unknown stage %v", l.state.Stage)
	}
}

// imitate runs imitation learning from the scripted policy, or loads
// the weights of an earlier imitation learning run
func (l *Loop) imitate() error {
	ilPath := l.path(ILModelFile)
	if checkpointer.Exists(ilPath) {
		decoded := &network.Model{}
		if err := checkpointer.Load(ilPath, decoded); err != nil {
			return err
		}
		defer decoded.Close()
		if err := l.model.Load(decoded); err != nil {
			return err
		}
		l.logger.Infof("Load imitation learning trained weights.")
		return l.advance(Warmup)
	}

	il := l.config.ImitationLearning
	episodes := il.ILEpisodes
	if l.config.Debug {
		episodes = 1
	}

	if err := l.trainer.SetLearningRate(il.ILLearningRate,
		l.optimizer); err != nil {
		return err
	}

	safetySpace := il.SafetySpace
	if l.env.RobotVisible() {
		safetySpace = 0
	}
	l.scripted.SetSafetySpace(safetySpace)
	l.explorer.SetPolicy(l.scripted)

	_, err := l.explorer.RunEpisodes(episodes, environment.Train,
		explorer.Options{UpdateMemory: true, Imitation: true})
	if err != nil {
		return err
	}

	if _, err := l.trainer.OptimizeEpoch(il.ILEpochs); err != nil {
		return err
	}

	if err := checkpointer.Save(ilPath, l.model); err != nil {
		return err
	}
	l.logger.Infof("Finish imitation learning. Weights saved.")
	l.logger.Infof("Experience set size: %d/%d", l.memory.Len(),
		l.memory.Capacity())

	return l.advance(Warmup)
}

// warmup switches to the trainable policy and fills memory with at
// least a batch of transitions
func (l *Loop) warmup() error {
	if err := l.updateTargets(true); err != nil {
		return err
	}

	l.explorer.SetPolicy(l.policy)
	if err := l.trainer.SetLearningRate(l.config.Train.RLLearningRate,
		l.optimizer); err != nil {
		return err
	}

	opts := explorer.Options{
		UpdateMemory: true,
		Episode:      l.state.Episode,
		Epsilon:      l.epsilon(l.state.Episode),
	}

	var episodes int
	switch {
	case l.resumed:
		episodes = l.config.Train.WarmupEpisodes
	case l.config.Method == agent.DoubleQ:
		episodes = l.config.Trainer.BatchSize
	}
	if _, err := l.explorer.RunEpisodes(episodes, environment.Train,
		opts); err != nil {
		return err
	}

	batchSize := l.trainer.BatchSize()
	for i := 0; l.memory.Len() < batchSize; i++ {
		if i >= maxFillEpisodes {
			return fmt.Errorf("warmup: memory holds %d of %d transitions "+
				"after %d episodes", l.memory.Len(), batchSize, i)
		}
		if _, err := l.explorer.RunEpisodes(1, environment.Train,
			opts); err != nil {
			return err
		}
	}

	if l.resumed {
		l.logger.Infof("Experience set size: %d/%d", l.memory.Len(),
			l.memory.Capacity())
	}
	return l.advance(Training)
}

// train runs a single training iteration
func (l *Loop) train() error {
	episode := l.state.Episode
	if episode >= l.config.Train.TrainEpisodes {
		l.state.Stage = FinalTest
		return l.saveWeights()
	}
	epsilon := l.epsilon(episode)

	if !l.config.Debug && l.evaluation.Due(episode) {
		if err := l.validate(episode); err != nil {
			return err
		}
	}

	summary, err := l.explorer.RunEpisodes(l.config.Train.SampleEpisodes,
		environment.Train, explorer.Options{
			UpdateMemory: true,
			Episode:      episode,
			Epsilon:      epsilon,
		})
	if err != nil {
		return err
	}

	if _, err := l.trainer.OptimizeBatch(l.config.Train.TrainBatches); err != nil {
		return err
	}

	episode++
	l.state.Episode = episode

	if l.targetUpdate.Due(episode) {
		if err := l.updateTargets(false); err != nil {
			return err
		}
	}

	levelUp := summary.LevelUpReady && l.explorer.IncreaseLevel()
	if levelUp {
		level := l.env.Level()
		l.state.LevelUp(level, episode)
		l.logger.Infof("Level %d starts at episode: %d Epsilon value: %f",
			level, episode, l.epsilon(episode))
	}

	// The State is only written with the weights it describes
	if checkpoint := l.checkpoint.Due(episode); checkpoint || levelUp {
		if checkpoint {
			if err := l.saveBest(); err != nil {
				return err
			}
		}
		if err := l.saveWeights(); err != nil {
			return err
		}
	}

	if l.progress != nil {
		l.progress.Set(episode)
		l.progress.Display()
	}
	return nil
}

// validate runs the validation episodes and records their success
// rate as the candidate for the best weights
func (l *Loop) validate(episode int) error {
	summary, err := l.explorer.RunEpisodes(l.env.CaseSize(environment.Val),
		environment.Val, explorer.Options{Episode: episode})
	if err != nil {
		return err
	}
	l.state.ValSuccessRate = summary.SuccessRate
	return nil
}

// saveBest keeps the live weights as the best weights for double
// Q-learning when the last validation beat the best success rate
func (l *Loop) saveBest() error {
	if l.config.Method != agent.DoubleQ ||
		l.state.ValSuccessRate <= l.state.BestSuccessRate {
		return nil
	}

	if err := checkpointer.Save(l.path(BestModelFile), l.model); err != nil {
		return err
	}
	l.state.BestSuccessRate = l.state.ValSuccessRate
	l.logger.Infof("Best weights saved with success rate: %.2f",
		l.state.BestSuccessRate)
	return nil
}

// finalTest runs the test episodes and reports the curriculum history
func (l *Loop) finalTest() error {
	if l.progress != nil {
		l.progress.Finish()
	}

	_, err := l.explorer.RunEpisodes(l.env.CaseSize(environment.Test),
		environment.Test, explorer.Options{Episode: l.state.Episode})
	if err != nil {
		return err
	}

	if err := l.saveWeights(); err != nil {
		return err
	}

	if l.config.Curriculum.Enabled {
		for _, level := range l.state.Levels() {
			l.logger.Infof("Level %d started at episode: %d", level,
				l.state.LevelStarts[level])
		}
	}
	return l.advance(Done)
}

// epsilon returns the exploration rate at episode. Resumed runs explore
// at the final rate, and with a curriculum the decay restarts at every
// level up.
func (l *Loop) epsilon(episode int) float64 {
	if l.resumed {
		return l.schedule.End
	}

	anchor := 0
	if l.config.Curriculum.Enabled {
		anchor = l.state.LastLevelUp
	}
	return l.schedule.At(episode, anchor)
}

// updateTargets copies the live weights into the target model of the
// learning method. If init is true, the target model is created.
func (l *Loop) updateTargets(init bool) error {
	switch l.config.Method {
	case agent.DoubleQ:
		if init {
			return l.trainer.InitTargetModel(l.model)
		}
		return l.trainer.UpdateTargetModel(l.model)
	default:
		return l.explorer.UpdateTargetModel(l.model)
	}
}

// advance moves the loop to stage and checkpoints the State
func (l *Loop) advance(stage Stage) error {
	l.state.Stage = stage
	return l.saveState()
}

// saveWeights checkpoints the RL weights and the State
func (l *Loop) saveWeights() error {
	if err := checkpointer.Save(l.path(l.weightsFile), l.model); err != nil {
		return err
	}
	l.state.Weights = l.weightsFile
	return l.saveState()
}

func (l *Loop) saveState() error {
	return checkpointer.SaveJSON(l.path(StateFile), l.state)
}

func (l *Loop) path(file string) string {
	return filepath.Join(l.dir, file)
}

// Save saves the history of the run and flushes the log
func (l *Loop) Save() error {
	return tracker.Multi{l.history, l.logger}.Save()
}

// Close releases the resources held by the Loop
func (l *Loop) Close() error {
	closers := []io.Closer{l.trainer, l.model, l.logger}
	if target := l.explorer.TargetModel(); target != nil {
		closers = append(closers, target)
	}

	var err error
	for _, c := range closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
