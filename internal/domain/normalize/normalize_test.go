package normalize_test

import (
	"errors"
	"testing"

	"github.com/okian/chase/internal/domain/model"
	"github.com/okian/chase/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func delivery(label string, runs int, wicket bool) model.Delivery {
	return model.Delivery{Label: label, Runs: runs, Wicket: wicket, Batsman: "bat", Bowler: "bowl"}
}

func sampleMatch() model.Match {
	return model.Match{
		ID:         "m1",
		Date:       "2020-02-01",
		Winner:     "B",
		OversLimit: 1,
		Innings: []model.Innings{
			{Team: "A", Deliveries: []model.Delivery{
				delivery("0.1", 4, false),
				delivery("0.2", 1, false),
				delivery("0.3", 0, true),
			}},
			{Team: "B", Deliveries: []model.Delivery{
				delivery("0.1", 6, false),
				delivery("0.2", 0, true),
				delivery("0.3", 1, false),
				delivery("0.4", 0, false),
				delivery("0.5", 0, false),
				delivery("0.6", 0, false),
			}},
		},
	}
}

func TestMatch(t *testing.T) {
	Convey("Given a two-innings match", t, func() {
		rows, err := normalize.Match(sampleMatch())
		So(err, ShouldBeNil)
		So(rows, ShouldHaveLength, 9)

		Convey("Then state is taken before each ball", func() {
			So(rows[0].ScoreBefore, ShouldEqual, 0)
			So(rows[0].BallsElapsed, ShouldEqual, 0)
			So(rows[1].ScoreBefore, ShouldEqual, 4)
			So(rows[2].ScoreBefore, ShouldEqual, 5)
			So(rows[2].WicketsBefore, ShouldEqual, 0)
			So(rows[2].IsWicket, ShouldBeTrue)
		})

		Convey("Then the first delivery of every innings starts at zero", func() {
			So(rows[3].Innings, ShouldEqual, 2)
			So(rows[3].ScoreBefore, ShouldEqual, 0)
			So(rows[3].WicketsBefore, ShouldEqual, 0)
			So(rows[3].RunsInBall, ShouldEqual, 6)
		})

		Convey("Then the first innings has no target", func() {
			for _, r := range rows[:3] {
				So(r.Target, ShouldBeNil)
				So(r.RunsRequired, ShouldBeNil)
				So(r.BallsRemaining, ShouldBeNil)
				So(r.ReqRunRate, ShouldBeNil)
			}
		})

		Convey("Then the chase targets first innings total plus one", func() {
			r := rows[4]
			So(*r.Target, ShouldEqual, 6)
			So(*r.RunsRequired, ShouldEqual, 0)
			So(*r.BallsRemaining, ShouldEqual, 5)
			So(*r.ReqRunRate, ShouldEqual, 0)
			So(r.CurrentRunRate, ShouldEqual, 36)
			So(r.WicketsBefore, ShouldEqual, 0)
			So(rows[5].WicketsBefore, ShouldEqual, 1)
		})

		Convey("Then overs completed counts partial overs in sixths", func() {
			So(rows[8].OversCompleted, ShouldAlmostEqual, 5.0/6.0, 1e-12)
			So(rows[8].BallsElapsed, ShouldEqual, 5)
		})

		Convey("Then match metadata is copied to each row", func() {
			So(rows[7].MatchID, ShouldEqual, "m1")
			So(rows[7].Date, ShouldEqual, "2020-02-01")
			So(rows[7].Winner, ShouldEqual, "B")
			So(rows[7].Team, ShouldEqual, "B")
			So(rows[7].OverBall, ShouldEqual, "0.5")
		})
	})

	Convey("Given a match without an overs limit", t, func() {
		m := sampleMatch()
		m.OversLimit = 0
		rows, err := normalize.Match(m)
		So(err, ShouldBeNil)

		Convey("Then twenty overs are assumed", func() {
			So(*rows[3].BallsRemaining, ShouldEqual, 120)
		})
	})

	Convey("Given a malformed delivery", t, func() {
		m := sampleMatch()
		m.Innings[1].Deliveries[2].Runs = -1

		Convey("Then the whole match fails", func() {
			rows, err := normalize.Match(m)
			So(rows, ShouldBeNil)
			So(errors.Is(err, normalize.ErrMalformedMatch), ShouldBeTrue)
		})

		Convey("Then an empty ball label also fails", func() {
			m.Innings[1].Deliveries[2].Runs = 1
			m.Innings[0].Deliveries[0].Label = " "
			_, err := normalize.Match(m)
			So(errors.Is(err, normalize.ErrMalformedMatch), ShouldBeTrue)
		})
	})

	Convey("Given a match with three innings", t, func() {
		m := sampleMatch()
		m.Innings = append(m.Innings, model.Innings{Team: "A", Deliveries: []model.Delivery{delivery("0.1", 2, false)}})
		rows, err := normalize.Match(m)
		So(err, ShouldBeNil)

		Convey("Then innings past the second carry no target", func() {
			So(rows[len(rows)-1].Innings, ShouldEqual, 3)
			So(rows[len(rows)-1].Target, ShouldBeNil)
		})
	})
}

func TestState(t *testing.T) {
	Convey("Given a chase state", t, func() {
		st := normalize.NewState(2, 20, 151)

		Convey("When no balls remain", func() {
			st.BallsElapsed = 120
			st.Score = 140
			c, ok := st.Chase()

			Convey("Then the required rate is the sentinel", func() {
				So(ok, ShouldBeTrue)
				So(c.BallsRemaining, ShouldEqual, 0)
				So(c.ReqRunRate, ShouldEqual, normalize.SentinelRunRate)
				So(c.RunsRequired, ShouldEqual, 11)
			})
		})

		Convey("When the target is passed", func() {
			st.Score = 160
			st.BallsElapsed = 100
			c, _ := st.Chase()

			Convey("Then runs required floors at zero", func() {
				So(c.RunsRequired, ShouldEqual, 0)
				So(c.ReqRunRate, ShouldEqual, 0)
			})
		})

		Convey("When deliveries are applied", func() {
			var r model.Row
			st.Snapshot(&r)
			st.Apply(model.Delivery{Label: "0.1", Runs: 4})
			st.Apply(model.Delivery{Label: "0.2", Runs: 0, Wicket: true})

			Convey("Then the snapshot taken before them is unchanged", func() {
				So(r.ScoreBefore, ShouldEqual, 0)
				So(r.CurrentRunRate, ShouldEqual, 0)
				So(*r.RunsRequired, ShouldEqual, 151)
				So(*r.ReqRunRate, ShouldAlmostEqual, 7.55, 1e-9)
			})

			Convey("Then the state accumulates", func() {
				So(st.Score, ShouldEqual, 4)
				So(st.Wickets, ShouldEqual, 1)
				So(st.BallsElapsed, ShouldEqual, 2)
				So(st.CurrentRunRate(), ShouldEqual, 12)
			})
		})
	})

	Convey("Given a first-innings state", t, func() {
		st := normalize.NewState(1, 0, 0)

		Convey("Then no chase fields exist and the default limit applies", func() {
			_, ok := st.Chase()
			So(ok, ShouldBeFalse)
			So(st.OversLimit, ShouldEqual, model.DefaultOversLimit)
			_, has := st.Target()
			So(has, ShouldBeFalse)
		})
	})
}
