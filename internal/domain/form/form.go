// Package form computes rolling player form from a historical corpus.
//
// A Table is built once and never mutated afterwards; it is safe to share
// between goroutines and is handed to feature construction explicitly.
package form

import (
	"math"
	"sort"

	"github.com/okian/chase/internal/domain/model"
)

// Window is the number of trailing matches averaged, current match included.
const Window = 5

// Role selects which aggregate a form value describes.
type Role string

const (
	Batsman Role = "batsman" // runs scored per match
	Bowler  Role = "bowler"  // wickets taken per match
)

// Roles lists every role in a stable order.
var Roles = []Role{Batsman, Bowler}

// Entry is one (role, player, match) form value. Seq is the match's position
// in the player's history, starting at 0.
type Entry struct {
	Role    Role
	Player  string
	MatchID string
	Date    string
	Seq     int
	Total   float64 // per-match aggregate
	Form    float64 // rolling mean ending at this match
}

// Table maps (role, player, match) to a rolling form value.
type Table struct {
	byMatch map[Role]map[string]map[string]float64
	latest  map[Role]map[string]float64
	medians map[Role]float64
	entries []Entry
}

type matchRef struct {
	id   string
	date string
}

// Build aggregates per-match totals from rows and computes rolling means.
// Player matches are ordered by (date, match id).
func Build(rows []model.Row) *Table {
	type key struct {
		player string
		match  matchRef
	}
	totals := map[Role]map[key]float64{Batsman: {}, Bowler: {}}
	for _, r := range rows {
		m := matchRef{id: r.MatchID, date: r.Date}
		if r.Batsman != "" {
			totals[Batsman][key{r.Batsman, m}] += float64(r.RunsInBall)
		}
		if r.Bowler != "" {
			wicket := 0.0
			if r.IsWicket {
				wicket = 1
			}
			totals[Bowler][key{r.Bowler, m}] += wicket
		}
	}

	var entries []Entry
	for _, role := range Roles {
		perPlayer := map[string][]Entry{}
		for k, total := range totals[role] {
			perPlayer[k.player] = append(perPlayer[k.player], Entry{
				Role: role, Player: k.player, MatchID: k.match.id, Date: k.match.date, Total: total,
			})
		}
		players := make([]string, 0, len(perPlayer))
		for p := range perPlayer {
			players = append(players, p)
		}
		sort.Strings(players)
		for _, p := range players {
			hist := perPlayer[p]
			sort.Slice(hist, func(i, j int) bool {
				if hist[i].Date != hist[j].Date {
					return hist[i].Date < hist[j].Date
				}
				return hist[i].MatchID < hist[j].MatchID
			})
			entries = append(entries, rolling(hist)...)
		}
	}
	return FromEntries(entries, nil)
}

func rolling(hist []Entry) []Entry {
	sum := 0.0
	for i := range hist {
		sum += hist[i].Total
		if i >= Window {
			sum -= hist[i-Window].Total
		}
		n := min(i+1, Window)
		hist[i].Seq = i
		hist[i].Form = sum / float64(n)
	}
	return hist
}

// FromEntries rebuilds a table from persisted entries. A nil medians map
// recomputes the per-role medians from the entries.
func FromEntries(entries []Entry, medians map[Role]float64) *Table {
	t := &Table{
		byMatch: map[Role]map[string]map[string]float64{},
		latest:  map[Role]map[string]float64{},
		medians: map[Role]float64{},
		entries: append([]Entry(nil), entries...),
	}
	latestSeq := map[Role]map[string]int{}
	values := map[Role][]float64{}
	for _, role := range Roles {
		t.byMatch[role] = map[string]map[string]float64{}
		t.latest[role] = map[string]float64{}
		latestSeq[role] = map[string]int{}
	}
	for _, e := range t.entries {
		if _, ok := t.byMatch[e.Role]; !ok {
			continue
		}
		pm := t.byMatch[e.Role][e.Player]
		if pm == nil {
			pm = map[string]float64{}
			t.byMatch[e.Role][e.Player] = pm
		}
		pm[e.MatchID] = e.Form
		if seq, seen := latestSeq[e.Role][e.Player]; !seen || e.Seq >= seq {
			latestSeq[e.Role][e.Player] = e.Seq
			t.latest[e.Role][e.Player] = e.Form
		}
		values[e.Role] = append(values[e.Role], e.Form)
	}
	for _, role := range Roles {
		if m, ok := medians[role]; ok {
			t.medians[role] = m
			continue
		}
		t.medians[role] = Median(values[role])
	}
	return t
}

// Lookup returns the form of player in match, falling back to the role
// median when the pair is unknown.
func (t *Table) Lookup(role Role, player, matchID string) float64 {
	if v, ok := t.byMatch[role][player][matchID]; ok {
		return v
	}
	return t.medians[role]
}

// Batsman is Lookup for the batting role.
func (t *Table) Batsman(player, matchID string) float64 { return t.Lookup(Batsman, player, matchID) }

// Bowler is Lookup for the bowling role.
func (t *Table) Bowler(player, matchID string) float64 { return t.Lookup(Bowler, player, matchID) }

// Latest returns the player's most recent form. known is false when the
// player is unseen and the role median is returned instead.
func (t *Table) Latest(role Role, player string) (value float64, known bool) {
	if v, ok := t.latest[role][player]; ok {
		return v, true
	}
	return t.medians[role], false
}

// LatestBatsman is Latest for the batting role.
func (t *Table) LatestBatsman(player string) (float64, bool) { return t.Latest(Batsman, player) }

// LatestBowler is Latest for the bowling role.
func (t *Table) LatestBowler(player string) (float64, bool) { return t.Latest(Bowler, player) }

// Median returns the role's corpus-wide median form.
func (t *Table) Median(role Role) float64 { return t.medians[role] }

// Players counts players with at least one form value for role.
func (t *Table) Players(role Role) int { return len(t.latest[role]) }

// Entries returns a copy of every form value, ordered by role, player, seq.
func (t *Table) Entries() []Entry { return append([]Entry(nil), t.entries...) }

// Median of xs ignoring NaN; 0 for an empty input.
func Median(xs []float64) float64 {
	vals := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			vals = append(vals, x)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}
