package form_test

import (
	"math"
	"testing"

	"github.com/okian/chase/internal/domain/form"
	"github.com/okian/chase/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ball(match, date, bat, bowl string, runs int, wicket bool) model.Row {
	return model.Row{MatchID: match, Date: date, Batsman: bat, Bowler: bowl, RunsInBall: runs, IsWicket: wicket}
}

func TestBuild(t *testing.T) {
	Convey("Given a player with a single match", t, func() {
		rows := []model.Row{
			ball("m1", "2020-01-01", "kohli", "starc", 10, false),
			ball("m1", "2020-01-01", "kohli", "starc", 20, false),
		}
		tbl := form.Build(rows)

		Convey("Then the rolling value equals that match's total", func() {
			So(tbl.Batsman("kohli", "m1"), ShouldEqual, 30)
			v, known := tbl.LatestBatsman("kohli")
			So(known, ShouldBeTrue)
			So(v, ShouldEqual, 30)
		})

		Convey("Then a bowler without wickets has form 0", func() {
			So(tbl.Bowler("starc", "m1"), ShouldEqual, 0)
			So(tbl.Players(form.Bowler), ShouldEqual, 1)
		})
	})

	Convey("Given a player with more matches than the window", t, func() {
		var rows []model.Row
		// totals 10, 20, ..., 70 across seven matches
		dates := []string{"2020-01-01", "2020-01-02", "2020-01-03", "2020-01-04", "2020-01-05", "2020-01-06", "2020-01-07"}
		ids := []string{"z", "y", "x", "w", "v", "u", "t"}
		for i := range dates {
			rows = append(rows, ball(ids[i], dates[i], "root", "", (i+1)*10, false))
		}
		tbl := form.Build(rows)

		Convey("Then early matches average what exists", func() {
			So(tbl.Batsman("root", "z"), ShouldEqual, 10)
			So(tbl.Batsman("root", "y"), ShouldEqual, 15)
			So(tbl.Batsman("root", "v"), ShouldEqual, 30)
		})

		Convey("Then later matches use only the trailing five", func() {
			So(tbl.Batsman("root", "u"), ShouldEqual, 40)
			So(tbl.Batsman("root", "t"), ShouldEqual, 50)
			v, _ := tbl.LatestBatsman("root")
			So(v, ShouldEqual, 50)
		})

		Convey("Then matches are ordered by date before id", func() {
			entries := tbl.Entries()
			So(entries[0].MatchID, ShouldEqual, "z")
			So(entries[0].Seq, ShouldEqual, 0)
			So(entries[6].MatchID, ShouldEqual, "t")
			So(entries[6].Seq, ShouldEqual, 6)
		})
	})

	Convey("Given bowlers taking wickets", t, func() {
		rows := []model.Row{
			ball("m1", "2021-01-01", "a", "cummins", 0, true),
			ball("m1", "2021-01-01", "b", "cummins", 0, true),
			ball("m2", "2021-02-01", "a", "cummins", 4, false),
			ball("m1", "2021-01-01", "a", "lyon", 1, false),
		}
		tbl := form.Build(rows)

		Convey("Then wickets per match are averaged", func() {
			So(tbl.Bowler("cummins", "m1"), ShouldEqual, 2)
			So(tbl.Bowler("cummins", "m2"), ShouldEqual, 1)
			So(tbl.Bowler("lyon", "m1"), ShouldEqual, 0)
		})

		Convey("Then unknown players fall back to the role median", func() {
			// bowler values: 2, 1, 0
			So(tbl.Median(form.Bowler), ShouldEqual, 1)
			So(tbl.Bowler("unknown", "m1"), ShouldEqual, 1)
			So(tbl.Bowler("cummins", "m9"), ShouldEqual, 1)
			v, known := tbl.LatestBowler("unknown")
			So(known, ShouldBeFalse)
			So(v, ShouldEqual, 1)
		})
	})

	Convey("Given an empty corpus", t, func() {
		tbl := form.Build(nil)

		Convey("Then medians are zero", func() {
			So(tbl.Median(form.Batsman), ShouldEqual, 0)
			So(tbl.Batsman("anyone", "m1"), ShouldEqual, 0)
			So(tbl.Players(form.Batsman), ShouldEqual, 0)
		})
	})
}

func TestFromEntries(t *testing.T) {
	Convey("Given persisted entries", t, func() {
		entries := []form.Entry{
			{Role: form.Batsman, Player: "p", MatchID: "m2", Seq: 1, Form: 25},
			{Role: form.Batsman, Player: "p", MatchID: "m1", Seq: 0, Form: 30},
		}

		Convey("When rebuilt without stored medians", func() {
			tbl := form.FromEntries(entries, nil)

			Convey("Then latest follows seq and medians are recomputed", func() {
				v, known := tbl.LatestBatsman("p")
				So(known, ShouldBeTrue)
				So(v, ShouldEqual, 25)
				So(tbl.Median(form.Batsman), ShouldEqual, 27.5)
				So(tbl.Median(form.Bowler), ShouldEqual, 0)
			})
		})

		Convey("When rebuilt with stored medians", func() {
			tbl := form.FromEntries(entries, map[form.Role]float64{form.Batsman: 12})

			Convey("Then stored values win", func() {
				So(tbl.Median(form.Batsman), ShouldEqual, 12)
				So(tbl.Batsman("q", "m1"), ShouldEqual, 12)
			})
		})
	})
}

func TestMedian(t *testing.T) {
	Convey("Given value lists", t, func() {
		So(form.Median(nil), ShouldEqual, 0)
		So(form.Median([]float64{3, 1, 2}), ShouldEqual, 2)
		So(form.Median([]float64{4, 1, 3, 2}), ShouldEqual, 2.5)
		So(form.Median([]float64{math.NaN(), 5}), ShouldEqual, 5)
		So(form.Median([]float64{math.NaN()}), ShouldEqual, 0)
	})
}
