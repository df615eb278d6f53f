// Package features derives the fixed 15-value model input from match state.
package features

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/chase/internal/domain/model"
)

// Size is the length of every feature vector.
const Size = 15

// referenceBalls is a 20-over innings. frac_innings_complete always uses it,
// whatever the match's own overs limit.
const referenceBalls = 120.0

// Names lists features in model input order.
var Names = [Size]string{
	"score_before",
	"wickets_before",
	"overs_completed",
	"balls_remaining",
	"runs_required",
	"req_run_rate",
	"current_run_rate",
	"wickets_in_hand",
	"frac_innings_complete",
	"runs_required_norm",
	"rr_diff",
	"pressure",
	"over_int",
	"batsman_form",
	"bowler_form",
}

// Index positions, in Names order.
const (
	ScoreBefore = iota
	WicketsBefore
	OversCompleted
	BallsRemaining
	RunsRequired
	ReqRunRate
	CurrentRunRate
	WicketsInHand
	FracInningsComplete
	RunsRequiredNorm
	RRDiff
	Pressure
	OverInt
	BatsmanForm
	BowlerForm
)

// Vector is one model input. All values are finite.
type Vector [Size]float64

// Build derives the vector for a row. Absent target fields count as 0.
func Build(r model.Row, batsmanForm, bowlerForm float64) Vector {
	var target, runsRequired, ballsRemaining, reqRunRate float64
	if r.Target != nil {
		target = float64(*r.Target)
	}
	if r.RunsRequired != nil {
		runsRequired = float64(*r.RunsRequired)
	}
	if r.BallsRemaining != nil {
		ballsRemaining = float64(*r.BallsRemaining)
	}
	if r.ReqRunRate != nil {
		reqRunRate = *r.ReqRunRate
	}

	wicketsInHand := 10 - float64(r.WicketsBefore)
	runsRequiredNorm := 0.0
	if target != 0 {
		runsRequiredNorm = runsRequired / target
	}

	v := Vector{
		ScoreBefore:         float64(r.ScoreBefore),
		WicketsBefore:       float64(r.WicketsBefore),
		OversCompleted:      r.OversCompleted,
		BallsRemaining:      ballsRemaining,
		RunsRequired:        runsRequired,
		ReqRunRate:          reqRunRate,
		CurrentRunRate:      r.CurrentRunRate,
		WicketsInHand:       wicketsInHand,
		FracInningsComplete: float64(r.BallsElapsed) / referenceBalls,
		RunsRequiredNorm:    runsRequiredNorm,
		RRDiff:              r.CurrentRunRate - reqRunRate,
		Pressure:            (runsRequired / (ballsRemaining + 1)) * (1 / (wicketsInHand + 1)),
		OverInt:             float64(OverOf(r.OverBall)),
		BatsmanForm:         batsmanForm,
		BowlerForm:          bowlerForm,
	}
	return v.sanitized()
}

// OverOf returns the over number of an "over.ball" label, 0 if unparsable.
func OverOf(label string) int {
	head, _, _ := strings.Cut(strings.TrimSpace(label), ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}

func (v Vector) sanitized() Vector {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v[i] = 0
		}
	}
	return v
}

// Map returns name -> value.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, Size)
	for i, name := range Names {
		m[name] = v[i]
	}
	return m
}

// Slice returns the values as a slice, for models sized at load time.
func (v Vector) Slice() []float64 { return v[:] }

// FromMap builds a vector from named values. Missing names are 0. Numbers,
// numeric strings and booleans are accepted; anything else is rejected.
// Unknown names are ignored.
func FromMap(in map[string]any) (Vector, error) {
	var v Vector
	for i, name := range Names {
		raw, ok := in[name]
		if !ok {
			continue
		}
		x, err := toFloat(raw)
		if err != nil {
			return Vector{}, fmt.Errorf("%w: %s: %w", ErrBadFeature, name, err)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Vector{}, fmt.Errorf("%w: %s: not finite", ErrBadFeature, name)
		}
		v[i] = x
	}
	return v, nil
}

func toFloat(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}
