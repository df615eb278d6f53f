// Package normalize turns ordered deliveries into cumulative pre-ball state.
package normalize

import (
	"github.com/okian/chase/internal/domain/model"
)

// SentinelRunRate stands in for the required run rate once no balls remain.
const SentinelRunRate = 999.0

const ballsPerOver = 6

// State is the running state of one innings. Fields describe the position
// before the next delivery is applied.
type State struct {
	Innings      int // 1-based
	OversLimit   int
	Score        int
	Wickets      int
	BallsElapsed int
	target       int
	hasTarget    bool
}

// NewState starts an innings. target <= 0 means no target (first innings).
func NewState(innings, oversLimit, target int) *State {
	if oversLimit <= 0 {
		oversLimit = model.DefaultOversLimit
	}
	return &State{
		Innings:    innings,
		OversLimit: oversLimit,
		target:     target,
		hasTarget:  target > 0,
	}
}

// Target returns the chase target and whether one is set.
func (s *State) Target() (int, bool) { return s.target, s.hasTarget }

// OversCompleted is floor(balls/6) + (balls mod 6)/6.
func OversCompleted(balls int) float64 {
	return float64(balls/ballsPerOver) + float64(balls%ballsPerOver)/ballsPerOver
}

// CurrentRunRate is runs per over so far, 0 before the first ball.
func (s *State) CurrentRunRate() float64 {
	if s.BallsElapsed <= 0 {
		return 0
	}
	return float64(s.Score) / (float64(s.BallsElapsed) / ballsPerOver)
}

// Chase holds the target-derived fields of a second-innings position.
type Chase struct {
	Target         int
	RunsRequired   int
	BallsRemaining int
	ReqRunRate     float64
}

// Chase derives runs required, balls remaining and required rate. ok is
// false when the innings has no target.
func (s *State) Chase() (Chase, bool) {
	if !s.hasTarget {
		return Chase{}, false
	}
	c := Chase{
		Target:         s.target,
		RunsRequired:   max(0, s.target-s.Score),
		BallsRemaining: max(0, s.OversLimit*ballsPerOver-s.BallsElapsed),
	}
	if c.BallsRemaining > 0 {
		c.ReqRunRate = float64(c.RunsRequired) / (float64(c.BallsRemaining) / ballsPerOver)
	} else {
		c.ReqRunRate = SentinelRunRate
	}
	return c, true
}

// Snapshot fills the state columns of a row for the next delivery.
func (s *State) Snapshot(r *model.Row) {
	r.Innings = s.Innings
	r.BallsElapsed = s.BallsElapsed
	r.OversCompleted = OversCompleted(s.BallsElapsed)
	r.ScoreBefore = s.Score
	r.WicketsBefore = s.Wickets
	r.CurrentRunRate = s.CurrentRunRate()
	r.Target, r.RunsRequired, r.BallsRemaining, r.ReqRunRate = nil, nil, nil, nil
	if c, ok := s.Chase(); ok {
		r.Target = &c.Target
		r.RunsRequired = &c.RunsRequired
		r.BallsRemaining = &c.BallsRemaining
		r.ReqRunRate = &c.ReqRunRate
	}
}

// Apply advances the state by one delivery.
func (s *State) Apply(d model.Delivery) {
	s.BallsElapsed++
	s.Score += d.Runs
	if d.Wicket {
		s.Wickets++
	}
}
