package normalize

import (
	"fmt"
	"strings"

	"github.com/okian/chase/internal/domain/model"
)

// Match emits one row per delivery, innings by innings, in recorded order.
// The second innings chases the first innings total plus one.
func Match(m model.Match) ([]model.Row, error) {
	if err := validate(m); err != nil {
		return nil, err
	}

	firstTotal := 0
	if len(m.Innings) > 0 {
		for _, d := range m.Innings[0].Deliveries {
			firstTotal += d.Runs
		}
	}

	n := 0
	for _, inn := range m.Innings {
		n += len(inn.Deliveries)
	}
	rows := make([]model.Row, 0, n)

	for idx, inn := range m.Innings {
		target := 0
		if idx == 1 {
			target = firstTotal + 1
		}
		st := NewState(idx+1, m.OversLimit, target)
		for _, d := range inn.Deliveries {
			r := model.Row{
				MatchID:    m.ID,
				Date:       m.Date,
				Team:       inn.Team,
				OverBall:   d.Label,
				RunsInBall: d.Runs,
				IsWicket:   d.Wicket,
				Batsman:    d.Batsman,
				Bowler:     d.Bowler,
				Winner:     m.Winner,
			}
			st.Snapshot(&r)
			rows = append(rows, r)
			st.Apply(d)
		}
	}
	return rows, nil
}

func validate(m model.Match) error {
	for i, inn := range m.Innings {
		for j, d := range inn.Deliveries {
			if strings.TrimSpace(d.Label) == "" {
				return fmt.Errorf("%w: match %q innings %d delivery %d: empty ball label", ErrMalformedMatch, m.ID, i+1, j)
			}
			if d.Runs < 0 {
				return fmt.Errorf("%w: match %q innings %d ball %s: negative runs %d", ErrMalformedMatch, m.ID, i+1, d.Label, d.Runs)
			}
		}
	}
	return nil
}
