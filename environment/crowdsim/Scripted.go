package crowdsim

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/crowdnav/timestep"
)

// Scripted is a hand-crafted collision avoidance policy used as the
// demonstrator for imitation learning. Among the actions that keep
// every human at least the safety space away over the look-ahead
// horizon, it picks the one bringing the robot closest to its goal.
// If no action is safe, it picks the action with the largest
// separation.
//
// Scripted reads the true state of the CrowdSim it was created with
// and is deterministic.
type Scripted struct {
	sim         *CrowdSim
	safetySpace float64
}

// NewScripted returns a new scripted policy acting in sim
func NewScripted(sim *CrowdSim) *Scripted {
	return &Scripted{sim: sim}
}

// SetSafetySpace sets the extra clearance kept around each human
func (s *Scripted) SetSafetySpace(space float64) {
	s.safetySpace = space
}

// SafetySpace returns the extra clearance kept around each human
func (s *Scripted) SafetySpace() float64 {
	return s.safetySpace
}

// Act selects an action for the current state of the simulation. The
// TimeStep must be the latest one returned by the simulation.
func (s *Scripted) Act(t timestep.TimeStep) (int, error) {
	if !s.sim.running {
		return 0, fmt.Errorf("act: no episode running")
	}

	horizon := math.Max(s.sim.config.ScriptedHorizon, s.sim.config.TimeStep)
	robot := s.sim.robot
	dt := s.sim.config.TimeStep

	best, fallback := -1, 0
	bestDist := math.Inf(1)
	fallbackGap := math.Inf(-1)

	for action, vel := range s.sim.actions {
		gap := math.Inf(1)
		for _, human := range s.sim.humans {
			rel := human.pos.Sub(robot.pos)
			relVel := human.goalVelocity(dt).Sub(vel)
			d := closestApproach(rel, relVel, horizon) - human.radius -
				robot.radius - s.safetySpace
			gap = math.Min(gap, d)
		}

		dist := norm(robot.goal.Sub(robot.pos.Add(vel.Scale(dt))))
		if gap > 0 && dist < bestDist {
			best, bestDist = action, dist
		}
		if gap > fallbackGap {
			fallback, fallbackGap = action, gap
		}
	}

	if best < 0 {
		return fallback, nil
	}
	return best, nil
}

// SetEpsilon is a no-op: the scripted policy never explores
func (s *Scripted) SetEpsilon(float64) {}

// Epsilon returns 0
func (s *Scripted) Epsilon() float64 {
	return 0
}

// IsTrainable returns false
func (s *Scripted) IsTrainable() bool {
	return false
}
