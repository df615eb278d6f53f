// Package types contains API shapes shared by the HTTP layer and its clients.
package types

import "github.com/okian/chase/internal/domain/scoring"

// PredictionResult is the /api/predict response body.
type PredictionResult = scoring.Result

// FormEntry is the /api/form response body.
type FormEntry struct {
	Player string  `json:"player"`
	Role   string  `json:"role"`
	Form   float64 `json:"form"`
	Known  bool    `json:"known"` // false when Form is the corpus median
}

// StateRequest is the /api/predict/state body: a live second-innings position.
// Overs ("o.b") is used when BallsElapsed is absent.
type StateRequest struct {
	Score        int      `json:"score"`
	Wickets      int      `json:"wickets"`
	BallsElapsed *int     `json:"balls_elapsed,omitempty"`
	Overs        string   `json:"overs,omitempty"`
	Target       int      `json:"target"`
	OversLimit   int      `json:"overs_limit,omitempty"`
	Batsman      string   `json:"batsman,omitempty"`
	Bowler       string   `json:"bowler,omitempty"`
	BatsmanForm  *float64 `json:"batsman_form,omitempty"`
	BowlerForm   *float64 `json:"bowler_form,omitempty"`
}

// StatePrediction is the /api/predict/state response body.
type StatePrediction struct {
	Features   map[string]float64 `json:"features"`
	Prediction PredictionResult   `json:"prediction"`
}

// Stats is the /stats response body.
type Stats struct {
	Models        map[string]bool    `json:"models"`
	BoostedKind   string             `json:"boosted_kind,omitempty"`
	FormPlayers   map[string]int     `json:"form_players"`
	FormMedians   map[string]float64 `json:"form_medians"`
	DefaultOvers  int                `json:"default_overs_limit"`
	UptimeSeconds float64            `json:"uptime_seconds"`
}
