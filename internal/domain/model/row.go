package model

// Row is the pre-ball state of one delivery. Target-derived fields are nil
// outside the second innings.
type Row struct {
	MatchID        string
	Date           string
	Innings        int // 1-based
	Team           string
	OverBall       string
	OversCompleted float64
	BallsElapsed   int
	ScoreBefore    int
	WicketsBefore  int
	RunsInBall     int
	IsWicket       bool
	Target         *int
	RunsRequired   *int
	BallsRemaining *int
	ReqRunRate     *float64
	CurrentRunRate float64
	Batsman        string
	Bowler         string
	Winner         string
}

// HasTarget reports whether the row belongs to a chase.
func (r Row) HasTarget() bool { return r.Target != nil }

// Label is 1 when the batting side went on to win.
func (r Row) Label() int {
	if r.Winner != "" && r.Winner == r.Team {
		return 1
	}
	return 0
}

// Key orders rows by (date, match id, innings, ball).
type Key struct {
	Date    string
	MatchID string
	Innings int
	Ball    int
}

// SortKey returns the row's corpus ordering key.
func (r Row) SortKey() Key {
	return Key{Date: r.Date, MatchID: r.MatchID, Innings: r.Innings, Ball: r.BallsElapsed}
}

// Less orders keys lexicographically.
func (k Key) Less(o Key) bool {
	if k.Date != o.Date {
		return k.Date < o.Date
	}
	if k.MatchID != o.MatchID {
		return k.MatchID < o.MatchID
	}
	if k.Innings != o.Innings {
		return k.Innings < o.Innings
	}
	return k.Ball < o.Ball
}
