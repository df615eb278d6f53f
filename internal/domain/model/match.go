// Package model contains domain models passed between layers.
package model

// Delivery is one bowled ball and its outcome. Immutable once recorded.
type Delivery struct {
	Label   string // "over.ball" as recorded, e.g. "14.3"
	Runs    int    // total runs off the ball, extras included
	Wicket  bool
	Batsman string // striker
	Bowler  string
}

// Innings is the ordered deliveries bowled to one batting side.
type Innings struct {
	Team       string
	Deliveries []Delivery
}

// Match is a historical match record as loaded from a match file.
type Match struct {
	ID         string
	Date       string // as recorded; may be empty
	Winner     string // may be empty (no result, tie)
	OversLimit int
	Innings    []Innings
}

// DefaultOversLimit applies when a record carries no overs limit.
const DefaultOversLimit = 20
