package crowdsim

import (
	"fmt"
	"math"
)

// Config describes a circle-crossing crowd scenario
type Config struct {
	TimeLimit float64 // Seconds before an episode times out
	TimeStep  float64 // Seconds per environment step

	// Canonical scenario counts for the validation and test phases
	ValSize  int
	TestSize int

	// Scenario layout
	HumanNum     int
	CircleRadius float64
	RobotVisible bool

	RobotRadius float64
	RobotVPref  float64
	HumanRadius float64
	HumanVPref  float64

	// Rewards
	SuccessReward           float64
	CollisionPenalty        float64
	DiscomfortDist          float64
	DiscomfortPenaltyFactor float64

	// Per-second discount. A step of TimeStep seconds at the robot's
	// preferred speed is discounted by Gamma^(TimeStep * RobotVPref).
	Gamma float64

	// Discrete holonomic action set of SpeedSamples exponentially
	// spaced speeds times RotationSamples headings, plus stopping
	SpeedSamples    int
	RotationSamples int

	// Curriculum levels grow the human radius from RadiusStart by
	// RadiusIncrement per level, up to RadiusMax. A zero increment
	// disables levels.
	RadiusStart     float64
	RadiusIncrement float64
	RadiusMax       float64

	// Look-ahead in seconds used by the scripted policy to check for
	// collisions
	ScriptedHorizon float64
}

// DefaultConfig returns the default circle-crossing scenario
func DefaultConfig() Config {
	return Config{
		TimeLimit: 25,
		TimeStep:  0.25,
		ValSize:   100,
		TestSize:  500,

		HumanNum:     5,
		CircleRadius: 4,
		RobotVisible: false,

		RobotRadius: 0.3,
		RobotVPref:  1,
		HumanRadius: 0.3,
		HumanVPref:  1,

		SuccessReward:           1,
		CollisionPenalty:        -0.25,
		DiscomfortDist:          0.2,
		DiscomfortPenaltyFactor: 0.5,

		Gamma: 0.9,

		SpeedSamples:    5,
		RotationSamples: 16,

		RadiusStart:     0.3,
		RadiusIncrement: 0.05,
		RadiusMax:       0.5,

		ScriptedHorizon: 1.0,
	}
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.TimeStep <= 0 {
		return fmt.Errorf("validate: time step must be positive\n\twant(>0)"+
			"\n\thave(%v)", c.TimeStep)
	}
	if c.TimeLimit <= c.TimeStep {
		return fmt.Errorf("validate: time limit must exceed the time step"+
			"\n\twant(>%v)\n\thave(%v)", c.TimeStep, c.TimeLimit)
	}
	if c.ValSize < 1 || c.TestSize < 1 {
		return fmt.Errorf("validate: val and test sizes must be positive"+
			"\n\thave(%v, %v)", c.ValSize, c.TestSize)
	}
	if c.HumanNum < 0 {
		return fmt.Errorf("validate: human number must be non-negative"+
			"\n\thave(%v)", c.HumanNum)
	}
	if c.CircleRadius <= 0 || c.RobotRadius <= 0 || c.HumanRadius <= 0 {
		return fmt.Errorf("validate: radii must be positive")
	}
	if c.RobotVPref <= 0 || c.HumanVPref < 0 {
		return fmt.Errorf("validate: invalid preferred speeds (%v, %v)",
			c.RobotVPref, c.HumanVPref)
	}
	if c.Gamma <= 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in (0, 1]\n\thave(%v)",
			c.Gamma)
	}
	if c.SpeedSamples < 1 || c.RotationSamples < 1 {
		return fmt.Errorf("validate: speed and rotation samples must be "+
			"positive\n\thave(%v, %v)", c.SpeedSamples, c.RotationSamples)
	}
	if c.RadiusIncrement < 0 {
		return fmt.Errorf("validate: radius increment must be non-negative"+
			"\n\thave(%v)", c.RadiusIncrement)
	}
	if c.RadiusIncrement > 0 && (c.RadiusStart <= 0 ||
		c.RadiusMax < c.RadiusStart) {
		return fmt.Errorf("validate: invalid radius range [%v, %v]",
			c.RadiusStart, c.RadiusMax)
	}
	if c.ScriptedHorizon < 0 {
		return fmt.Errorf("validate: scripted horizon must be non-negative"+
			"\n\thave(%v)", c.ScriptedHorizon)
	}
	return nil
}

// maxLevel returns the highest curriculum level
func (c Config) maxLevel() int {
	if c.RadiusIncrement == 0 {
		return 0
	}
	return int(math.Floor((c.RadiusMax-c.RadiusStart)/c.RadiusIncrement +
		1e-9))
}

// humanRadius returns the radius of humans at a curriculum level
func (c Config) humanRadius(level int) float64 {
	if c.RadiusIncrement == 0 {
		return c.HumanRadius
	}
	return c.RadiusStart + float64(level)*c.RadiusIncrement
}

// stepDiscount returns the discount applied to each step
func (c Config) stepDiscount() float64 {
	return math.Pow(c.Gamma, c.TimeStep*c.RobotVPref)
}
