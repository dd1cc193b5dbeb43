// Package crowdsim implements a circle-crossing crowd simulation in
// which a holonomic robot must reach the far side of a circle while
// humans walk across it.
package crowdsim

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/crowdnav/environment"
	"github.com/samuelfneumann/crowdnav/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	robotFeatures = 5
	humanFeatures = 7

	// spawnAttempts bounds the rejection sampling of human positions
	spawnAttempts = 1000

	// trainCapacity is the number of distinct training scenarios
	trainCapacity = math.MaxInt32
)

// body is the kinematic state of the robot or a human
type body struct {
	pos, vel, goal r2.Vec
	radius, vPref  float64
}

// reachedGoal returns whether b is within its radius of its goal
func (b body) reachedGoal() bool {
	return norm(b.goal.Sub(b.pos)) < b.radius
}

// goalVelocity returns the velocity that moves b straight towards its
// goal at its preferred speed, or zero if it has arrived
func (b body) goalVelocity(dt float64) r2.Vec {
	toGoal := b.goal.Sub(b.pos)
	dist := norm(toGoal)
	if dist < b.radius || dist == 0 {
		return r2.Vec{}
	}
	speed := math.Min(b.vPref, dist/dt)
	return toGoal.Scale(speed / dist)
}

// CrowdSim is a circle-crossing crowd navigation environment. Humans
// walk at their preferred speed towards the point opposite their start
// and do not react to the robot.
//
// The episode ends when the robot reaches its goal, collides with a
// human, or runs out of time.
type CrowdSim struct {
	config Config

	actions []r2.Vec
	robot   body
	humans  []body

	time    float64
	steps   int
	running bool

	level        int
	phase        environment.Phase
	caseCounters [3]int
	seed         uint64

	obsSpec environment.Spec
	actSpec environment.Spec
}

// New returns a new CrowdSim. The seed determines the training
// scenarios; validation and test scenarios are fixed by their index.
func New(config Config, seed uint64) (*CrowdSim, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	actions := holonomicActions(config.SpeedSamples, config.RotationSamples,
		config.RobotVPref)

	features := robotFeatures + humanFeatures*config.HumanNum
	low := make([]float64, features)
	high := make([]float64, features)
	for i := range low {
		low[i] = math.Inf(-1)
		high[i] = math.Inf(1)
	}
	obsSpec := environment.NewSpec(
		environment.Observation,
		mat.NewVecDense(features, low),
		mat.NewVecDense(features, high),
		environment.Continuous,
	)

	return &CrowdSim{
		config:  config,
		actions: actions,
		seed:    seed,
		obsSpec: obsSpec,
		actSpec: environment.NewDiscreteActionSpec(len(actions)),
	}, nil
}

// holonomicActions returns the velocities of the discrete action set.
// Action 0 stops the robot. Action 1 + i*rotations + j moves at the
// i-th exponentially spaced speed in the j-th heading.
func holonomicActions(speeds, rotations int, vPref float64) []r2.Vec {
	actions := make([]r2.Vec, 1, 1+speeds*rotations)
	for i := 0; i < speeds; i++ {
		speed := (math.Exp(float64(i+1)/float64(speeds)) - 1) /
			(math.E - 1) * vPref
		for j := 0; j < rotations; j++ {
			theta := 2 * math.Pi * float64(j) / float64(rotations)
			actions = append(actions, r2.Vec{
				X: speed * math.Cos(theta),
				Y: speed * math.Sin(theta),
			})
		}
	}
	return actions
}

// Reset starts a new episode drawn from the scenarios of phase. Each
// call advances to the next scenario of the phase, wrapping around
// after CaseSize(phase) scenarios.
func (c *CrowdSim) Reset(phase environment.Phase) (timestep.TimeStep,
	error) {
	if phase < environment.Train || phase > environment.Test {
		return timestep.TimeStep{}, fmt.Errorf("reset: unknown phase %v",
			phase)
	}

	src := rand.NewSource(c.caseSeed(phase))
	c.caseCounters[phase] = (c.caseCounters[phase] + 1) % c.CaseSize(phase)

	R := c.config.CircleRadius
	c.robot = body{
		pos:    r2.Vec{X: 0, Y: -R},
		goal:   r2.Vec{X: 0, Y: R},
		radius: c.config.RobotRadius,
		vPref:  c.config.RobotVPref,
	}

	humans, err := c.spawnHumans(src)
	if err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	c.humans = humans

	c.time = 0
	c.steps = 0
	c.phase = phase
	c.running = true

	return timestep.New(timestep.First, 0, c.config.stepDiscount(),
		c.observe(c.robot, c.humans), 0), nil
}

// caseSeed returns the seed of the current scenario of a phase. The
// validation and test scenarios do not depend on the CrowdSim seed so
// that all runs are evaluated on the same cases.
func (c *CrowdSim) caseSeed(phase environment.Phase) uint64 {
	counter := uint64(c.caseCounters[phase])
	switch phase {
	case environment.Val:
		return counter
	case environment.Test:
		return uint64(c.config.ValSize) + counter
	default:
		return uint64(c.config.ValSize+c.config.TestSize) + c.seed*
			uint64(trainCapacity) + counter
	}
}

// spawnHumans places humans on the circle, each heading to the
// opposite point, such that no two agents start or finish too close
func (c *CrowdSim) spawnHumans(src rand.Source) ([]body, error) {
	angle := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: src}
	noise := distuv.Uniform{Min: -0.5, Max: 0.5, Src: src}

	radius := c.config.humanRadius(c.level)
	humans := make([]body, 0, c.config.HumanNum)
	for len(humans) < c.config.HumanNum {
		placed := false
		for attempt := 0; attempt < spawnAttempts; attempt++ {
			theta := angle.Rand()
			pos := r2.Vec{
				X: c.config.CircleRadius*math.Cos(theta) +
					noise.Rand()*c.config.HumanVPref,
				Y: c.config.CircleRadius*math.Sin(theta) +
					noise.Rand()*c.config.HumanVPref,
			}
			human := body{
				pos:    pos,
				goal:   pos.Scale(-1),
				radius: radius,
				vPref:  c.config.HumanVPref,
			}

			if c.canSpawn(human, humans) {
				humans = append(humans, human)
				placed = true
				break
			}
		}
		if !placed {
			return nil, fmt.Errorf("could not place human %v of %v",
				len(humans)+1, c.config.HumanNum)
		}
	}
	return humans, nil
}

// canSpawn returns whether human keeps the discomfort distance from the
// robot and the humans already placed, at both ends of its path
func (c *CrowdSim) canSpawn(human body, humans []body) bool {
	others := append([]body{c.robot}, humans...)
	for _, other := range others {
		minDist := human.radius + other.radius + c.config.DiscomfortDist
		if norm(human.pos.Sub(other.pos)) < minDist ||
			norm(human.goal.Sub(other.goal)) < minDist {
			return false
		}
	}
	return true
}

// outcome is the result of simulating a single step
type outcome struct {
	robot  body
	humans []body
	reward float64
	end    timestep.EndType
	info   environment.Info
}

// simulate computes the result of taking action from the current
// state without modifying the environment
func (c *CrowdSim) simulate(action int) (outcome, error) {
	if action < 0 || action >= len(c.actions) {
		return outcome{}, fmt.Errorf("invalid action\n\twant(0 <= action < "+
			"%v)\n\thave(%v)", len(c.actions), action)
	}
	dt := c.config.TimeStep

	robot := c.robot
	robot.vel = c.actions[action]

	// Closest approach between the robot and each human during the step
	collision := false
	dmin := math.Inf(1)
	humans := make([]body, len(c.humans))
	for i, human := range c.humans {
		human.vel = human.goalVelocity(dt)

		rel := human.pos.Sub(robot.pos)
		relVel := human.vel.Sub(robot.vel)
		gap := closestApproach(rel, relVel, dt) - human.radius - robot.radius
		if gap < 0 {
			collision = true
		}
		dmin = math.Min(dmin, gap)

		human.pos = human.pos.Add(human.vel.Scale(dt))
		humans[i] = human
	}
	robot.pos = robot.pos.Add(robot.vel.Scale(dt))

	out := outcome{
		robot:  robot,
		humans: humans,
		end:    timestep.None,
		info: environment.Info{
			Time:          c.time + dt,
			MinSeparation: dmin,
		},
	}

	switch {
	case c.time >= c.config.TimeLimit-1:
		out.end = timestep.Timeout
	case collision:
		out.reward = c.config.CollisionPenalty
		out.end = timestep.Collision
	case robot.reachedGoal():
		out.reward = c.config.SuccessReward
		out.end = timestep.ReachedGoal
	case dmin < c.config.DiscomfortDist:
		out.reward = (dmin - c.config.DiscomfortDist) *
			c.config.DiscomfortPenaltyFactor * dt
		out.info.Danger = true
	}

	return out, nil
}

// timeStep converts an outcome to the TimeStep it produces
func (c *CrowdSim) timeStep(out outcome) timestep.TimeStep {
	obs := c.observe(out.robot, out.humans)
	discount := c.config.stepDiscount()
	if out.end != timestep.None {
		return timestep.NewLast(out.end, out.reward, discount, obs,
			c.steps+1)
	}
	return timestep.New(timestep.Mid, out.reward, discount, obs, c.steps+1)
}

// Step takes an action in the environment
func (c *CrowdSim) Step(action int) (timestep.TimeStep, environment.Info,
	error) {
	if !c.running {
		return timestep.TimeStep{}, environment.Info{},
			fmt.Errorf("step: no episode running, Reset must be called first")
	}

	out, err := c.simulate(action)
	if err != nil {
		return timestep.TimeStep{}, environment.Info{},
			fmt.Errorf("step: %v", err)
	}
	step := c.timeStep(out)

	c.robot = out.robot
	c.humans = out.humans
	c.time = out.info.Time
	c.steps++
	c.running = out.end == timestep.None

	return step, out.info, nil
}

// Lookahead returns the TimeStep that Step(action) would return without
// changing the environment
func (c *CrowdSim) Lookahead(action int) (timestep.TimeStep, error) {
	if !c.running {
		return timestep.TimeStep{}, fmt.Errorf("lookahead: no episode " +
			"running")
	}
	out, err := c.simulate(action)
	if err != nil {
		return timestep.TimeStep{}, fmt.Errorf("lookahead: %v", err)
	}
	return c.timeStep(out), nil
}

// observe returns the joint state of the robot and humans in a frame
// centred on the robot with its x-axis pointing at the robot's goal
func (c *CrowdSim) observe(robot body, humans []body) mat.Vector {
	obs := make([]float64, 0, c.obsSpec.Size())

	toGoal := robot.goal.Sub(robot.pos)
	theta := math.Atan2(toGoal.Y, toGoal.X)
	vel := rotate(robot.vel, -theta)
	obs = append(obs, norm(toGoal), robot.vPref, vel.X, vel.Y, robot.radius)

	for _, human := range humans {
		rel := rotate(human.pos.Sub(robot.pos), -theta)
		hVel := rotate(human.vel, -theta)
		obs = append(obs, rel.X, rel.Y, hVel.X, hVel.Y, human.radius,
			norm(rel), human.radius+robot.radius)
	}

	return mat.NewVecDense(len(obs), obs)
}

// SetLevel sets the curriculum level, which determines the radius of
// humans in episodes started after the call
func (c *CrowdSim) SetLevel(level int) bool {
	if level < 0 || level > c.MaxLevel() {
		return false
	}
	c.level = level
	return true
}

// Level returns the current curriculum level
func (c *CrowdSim) Level() int {
	return c.level
}

// MaxLevel returns the highest curriculum level
func (c *CrowdSim) MaxLevel() int {
	return c.config.maxLevel()
}

// CaseSize returns the number of scenarios of a phase
func (c *CrowdSim) CaseSize(phase environment.Phase) int {
	switch phase {
	case environment.Val:
		return c.config.ValSize
	case environment.Test:
		return c.config.TestSize
	default:
		return trainCapacity
	}
}

// TimeLimit returns the simulated time after which episodes time out
func (c *CrowdSim) TimeLimit() float64 {
	return c.config.TimeLimit
}

// RobotVisible returns whether humans can see the robot
func (c *CrowdSim) RobotVisible() bool {
	return c.config.RobotVisible
}

// ObservationSpec returns the observation specification
func (c *CrowdSim) ObservationSpec() environment.Spec {
	return c.obsSpec
}

// ActionSpec returns the action specification
func (c *CrowdSim) ActionSpec() environment.Spec {
	return c.actSpec
}

// closestApproach returns the smallest distance between two points
// over [0, dt] when the second starts at offset rel from the first and
// moves with relative velocity relVel
func closestApproach(rel, relVel r2.Vec, dt float64) float64 {
	t := 0.0
	if speed2 := relVel.Dot(relVel); speed2 > 0 {
		t = math.Max(0, math.Min(dt, -rel.Dot(relVel)/speed2))
	}
	return norm(rel.Add(relVel.Scale(t)))
}

func norm(v r2.Vec) float64 {
	return math.Hypot(v.X, v.Y)
}

func rotate(v r2.Vec, theta float64) r2.Vec {
	sin, cos := math.Sincos(theta)
	return r2.Vec{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}
