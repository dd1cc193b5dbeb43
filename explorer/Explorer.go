// Package explorer implements the rollout generator that runs episodes
// of a policy in an environment, fills replay memory, and reports the
// outcomes of each batch of episodes.
package explorer

import (
	"fmt"
	"io"

	"github.com/samuelfneumann/crowdnav/agent"
	"github.com/samuelfneumann/crowdnav/environment"
	"github.com/samuelfneumann/crowdnav/experiment/tracker"
	"github.com/samuelfneumann/crowdnav/expreplay"
	"github.com/samuelfneumann/crowdnav/network"
	ts "github.com/samuelfneumann/crowdnav/timestep"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Options determines how a batch of episodes is run
type Options struct {
	// UpdateMemory adds the transitions of episodes ending at the goal
	// or in a collision to replay memory
	UpdateMemory bool

	// Episode is the training episode index the batch is reported at
	Episode int

	// Epsilon is the exploration rate used in the training phase
	Epsilon float64

	// Imitation marks episodes of the demonstrator policy. Their
	// regression targets are discounted Monte-Carlo returns and they
	// are not observed by the curriculum.
	Imitation bool
}

// Outcome is the result of a single episode
type Outcome struct {
	End     ts.EndType
	Return  float64
	NavTime float64
	Steps   int
}

// Success returns whether the episode reached the goal
func (o Outcome) Success() bool {
	return o.End == ts.ReachedGoal
}

// Summary aggregates the Outcomes of a batch of episodes
type Summary struct {
	Phase    environment.Phase
	Episode  int
	Episodes int
	Epsilon  float64

	SuccessRate   float64
	CollisionRate float64
	TimeoutRate   float64

	// NavTime is the mean navigation time of successful episodes, or
	// the time limit if no episode succeeded
	NavTime float64

	// TotalReward is the mean discounted return
	TotalReward float64

	// DangerFrequency is the fraction of steps taken closer to a human
	// than the discomfort distance. MinSeparation is the mean
	// separation over those steps.
	DangerFrequency float64
	MinSeparation   float64

	// Indices of the episodes in the batch that collided or timed out
	CollisionCases []int
	TimeoutCases   []int

	// LevelUpReady is true when the curriculum is ready for the next
	// difficulty level. The caller decides whether to advance.
	LevelUpReady bool
}

// Record returns the log record of the Summary
func (s Summary) Record() tracker.Record {
	return tracker.Record{
		Phase:         s.Phase.Tag(),
		Episode:       s.Episode,
		SuccessRate:   s.SuccessRate,
		CollisionRate: s.CollisionRate,
		NavTime:       s.NavTime,
		TotalReward:   s.TotalReward,
		Epsilon:       s.Epsilon,
	}
}

// Explorer runs episodes of a policy in an environment. A single
// goroutine must drive an Explorer.
type Explorer struct {
	env        environment.Environment
	memory     *expreplay.Memory
	policy     agent.Policy
	method     agent.Method
	curriculum Curriculum

	// Frozen copy of the live model used to bootstrap value targets
	target *network.Model

	logger  *tracker.Logger
	tracker tracker.Tracker
}

// New returns a new Explorer. The curriculum may be nil, in which case
// the difficulty never advances.
func New(env environment.Environment, memory *expreplay.Memory,
	policy agent.Policy, method agent.Method,
	curriculum Curriculum) *Explorer {
	if curriculum == nil {
		curriculum = NoCurriculum()
	}
	logger, _ := tracker.NewLogger(io.Discard, "", false)

	return &Explorer{
		env:        env,
		memory:     memory,
		policy:     policy,
		method:     method,
		curriculum: curriculum,
		logger:     logger,
		tracker:    logger,
	}
}

// SetLogger sets the logger that danger statistics and failure cases
// are reported to
func (e *Explorer) SetLogger(logger *tracker.Logger) {
	e.logger = logger
}

// SetTracker sets the Tracker that the Record of each batch is sent to
func (e *Explorer) SetTracker(t tracker.Tracker) {
	e.tracker = t
}

// SetPolicy sets the policy that acts in the environment
func (e *Explorer) SetPolicy(p agent.Policy) {
	e.policy = p
}

// Policy returns the policy acting in the environment
func (e *Explorer) Policy() agent.Policy {
	return e.policy
}

// Curriculum returns the Curriculum observing training episodes
func (e *Explorer) Curriculum() Curriculum {
	return e.curriculum
}

// UpdateTargetModel replaces the target model's weights with those of
// model. Calling it twice with unchanged weights leaves the target
// unchanged.
func (e *Explorer) UpdateTargetModel(model *network.Model) error {
	if e.target == nil {
		target, err := model.Clone()
		if err != nil {
			return fmt.Errorf("updateTargetModel: %v", err)
		}
		e.target = target
		return nil
	}
	if err := e.target.Set(model); err != nil {
		return fmt.Errorf("updateTargetModel: %v", err)
	}
	return nil
}

// TargetModel returns the target model, or nil if it has not been set
func (e *Explorer) TargetModel() *network.Model {
	return e.target
}

// IncreaseLevel asks the environment to start the next difficulty
// level. If the environment accepts, the curriculum is reset so that it
// only reflects episodes at the new level.
func (e *Explorer) IncreaseLevel() bool {
	if !e.env.SetLevel(e.env.Level() + 1) {
		return false
	}
	e.curriculum.Reset()
	return true
}

// RunEpisodes runs k episodes in phase and returns their Summary. With
// k == 0 nothing is run or reported and a zero Summary is returned.
func (e *Explorer) RunEpisodes(k int, phase environment.Phase,
	opts Options) (Summary, error) {
	summary := Summary{Phase: phase, Episode: opts.Episode, Episodes: k}
	if k <= 0 {
		summary.Episodes = 0
		return summary, nil
	}

	epsilon := 0.0
	if phase == environment.Train {
		epsilon = opts.Epsilon
	}
	e.policy.SetEpsilon(epsilon)
	summary.Epsilon = epsilon

	var (
		successTimes  []float64
		returns       = make([]float64, 0, k)
		separations   []float64
		totalSteps    int
		dangerSteps   int
		successes     int
		collisions    int
		timeouts      int
		observeWindow = phase == environment.Train && !opts.Imitation
	)

	for i := 0; i < k; i++ {
		ep, err := e.runEpisode(phase)
		if err != nil {
			return Summary{}, fmt.Errorf("runEpisodes: episode %d: %w", i, err)
		}

		switch ep.outcome.End {
		case ts.ReachedGoal:
			successes++
			successTimes = append(successTimes, ep.outcome.NavTime)
		case ts.Collision:
			collisions++
			summary.CollisionCases = append(summary.CollisionCases, i)
		default:
			timeouts++
			summary.TimeoutCases = append(summary.TimeoutCases, i)
		}

		if opts.UpdateMemory && ep.outcome.End != ts.Timeout {
			if err := e.remember(ep, opts); err != nil {
				return Summary{}, fmt.Errorf("runEpisodes: %w", err)
			}
		}

		if observeWindow {
			e.curriculum.Observe(ep.outcome.Success())
		}

		returns = append(returns, ep.outcome.Return)
		totalSteps += ep.outcome.Steps
		dangerSteps += len(ep.separations)
		separations = append(separations, ep.separations...)
	}

	n := float64(k)
	summary.SuccessRate = float64(successes) / n
	summary.CollisionRate = float64(collisions) / n
	summary.TimeoutRate = float64(timeouts) / n
	summary.TotalReward = floats.Sum(returns) / n
	summary.NavTime = e.env.TimeLimit()
	if len(successTimes) > 0 {
		summary.NavTime = stat.Mean(successTimes, nil)
	}
	if totalSteps > 0 {
		summary.DangerFrequency = float64(dangerSteps) / float64(totalSteps)
	}
	if len(separations) > 0 {
		summary.MinSeparation = stat.Mean(separations, nil)
	}
	summary.LevelUpReady = e.curriculum.Ready()

	e.report(summary)
	return summary, nil
}

// report logs the Summary of a batch of episodes
func (e *Explorer) report(s Summary) {
	e.tracker.Track(s.Record())

	if s.Phase == environment.Val || s.Phase == environment.Test {
		e.logger.Infof("Frequency of being in danger: %.2f and average min "+
			"separate distance in danger: %.2f", s.DangerFrequency,
			s.MinSeparation)
	}
	if s.Phase == environment.Test {
		e.logger.Debugf("Collision cases: %v", s.CollisionCases)
		e.logger.Debugf("Timeout cases: %v", s.TimeoutCases)
	}
}

// episode holds the trajectory of a single episode
type episode struct {
	transitions []ts.Transition
	separations []float64
	outcome     Outcome
}

// runEpisode runs the policy for a single episode in phase
func (e *Explorer) runEpisode(phase environment.Phase) (episode, error) {
	step, err := e.env.Reset(phase)
	if err != nil {
		return episode{}, fmt.Errorf("could not reset environment: %w", err)
	}

	var ep episode
	var info environment.Info
	discount := 1.0
	for !step.Last() {
		action, err := e.policy.Act(step)
		if err != nil {
			return episode{}, fmt.Errorf("could not select action: %w", err)
		}

		next, stepInfo, err := e.env.Step(action)
		if err != nil {
			return episode{}, fmt.Errorf("could not step environment: %w",
				err)
		}
		info = stepInfo

		transition := ts.NewTransition(step, action, next)
		transition.Phase = phase.String()
		ep.transitions = append(ep.transitions, transition)

		ep.outcome.Return += discount * next.Reward
		discount *= next.Discount

		if info.Danger {
			ep.separations = append(ep.separations, info.MinSeparation)
		}
		step = next
	}

	ep.outcome.End = step.End()
	ep.outcome.NavTime = info.Time
	ep.outcome.Steps = len(ep.transitions)
	return ep, nil
}

// remember pushes the transitions of an episode to memory with the
// regression targets of the learning method
func (e *Explorer) remember(ep episode, opts Options) error {
	var targets []float64
	switch {
	case opts.Imitation:
		targets = monteCarlo(ep.transitions)

	case e.method == agent.ValueLearning:
		if e.target == nil {
			return fmt.Errorf("remember: target model not set")
		}
		targets = make([]float64, len(ep.transitions))
		for i, t := range ep.transitions {
			targets[i] = t.Reward
			if t.Done {
				continue
			}
			value, err := e.target.Predict(vecData(t.NextState))
			if err != nil {
				return fmt.Errorf("remember: %v", err)
			}
			targets[i] += t.Discount * value[0]
		}
	}

	for i, t := range ep.transitions {
		t.Episode = opts.Episode
		if targets != nil {
			t = t.WithTarget(targets[i])
		}
		e.memory.Push(t)
	}
	return nil
}

// monteCarlo returns the discounted return following each transition
func monteCarlo(transitions []ts.Transition) []float64 {
	returns := make([]float64, len(transitions))
	g := 0.0
	for i := len(transitions) - 1; i >= 0; i-- {
		if i < len(transitions)-1 {
			g *= transitions[i].Discount
		}
		g += transitions[i].Reward
		returns[i] = g
	}
	return returns
}

// vecData returns the elements of the vector v as a new slice
func vecData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}
