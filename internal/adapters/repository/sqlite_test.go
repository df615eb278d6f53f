package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/chase/internal/adapters/repository"
	"github.com/okian/chase/internal/domain/form"
	"github.com/okian/chase/internal/domain/model"
	"github.com/okian/chase/internal/domain/normalize"
	"github.com/okian/chase/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleRows() []model.Row {
	m := model.Match{
		ID: "m1", Date: "2022-11-13", Winner: "England", OversLimit: 20,
		Innings: []model.Innings{
			{Team: "Pakistan", Deliveries: []model.Delivery{
				{Label: "0.1", Runs: 1, Batsman: "Rizwan", Bowler: "Stokes"},
				{Label: "0.2", Runs: 4, Batsman: "Babar", Bowler: "Stokes"},
			}},
			{Team: "England", Deliveries: []model.Delivery{
				{Label: "0.1", Runs: 0, Wicket: true, Batsman: "Hales", Bowler: "Afridi"},
				{Label: "0.2", Runs: 2, Batsman: "Buttler", Bowler: "Afridi"},
			}},
		},
	}
	rows, err := normalize.Match(m)
	if err != nil {
		panic(err)
	}
	return rows
}

func TestSQLiteStore(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given a fresh store", t, func() {
		store, err := repository.Open(ctx, filepath.Join(t.TempDir(), "corpus.db"), repository.WithBatchSize(3))
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })

		Convey("When rows are saved", func() {
			rows := sampleRows()
			So(store.SaveRows(ctx, rows), ShouldBeNil)

			Convey("Then they round-trip with nullable chase fields", func() {
				n, err := store.CountRows(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)

				got, err := store.LoadRows(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 4)
				So(got[0].Target, ShouldBeNil)
				So(got[0].IsWicket, ShouldBeFalse)
				So(*got[2].Target, ShouldEqual, 6)
				So(*got[2].ReqRunRate, ShouldAlmostEqual, 6.0/20.0, 1e-12)
				So(got[2].IsWicket, ShouldBeTrue)
				So(got[3].WicketsBefore, ShouldEqual, 1)
				So(got[3].Batsman, ShouldEqual, "Buttler")
			})

			Convey("Then saving again replaces rather than duplicates", func() {
				So(store.SaveRows(ctx, rows), ShouldBeNil)
				n, _ := store.CountRows(ctx)
				So(n, ShouldEqual, 4)
			})

			Convey("Then replacing with a smaller corpus drops the stale rows", func() {
				other := rows[:1]
				other[0].MatchID = "m2"
				So(store.ReplaceRows(ctx, other), ShouldBeNil)
				n, err := store.CountRows(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				got, err := store.LoadRows(ctx)
				So(err, ShouldBeNil)
				So(got[0].MatchID, ShouldEqual, "m2")
			})

			Convey("Then replacing with nothing empties the table", func() {
				So(store.ReplaceRows(ctx, nil), ShouldBeNil)
				n, _ := store.CountRows(ctx)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When no form table was saved", func() {
			_, err := store.LoadForms(ctx)

			Convey("Then ErrNoForms is returned", func() {
				So(errors.Is(err, repository.ErrNoForms), ShouldBeTrue)
			})
		})

		Convey("When a form table is saved", func() {
			tbl := form.Build(sampleRows())
			So(store.SaveForms(ctx, tbl), ShouldBeNil)

			loaded, err := store.LoadForms(ctx)

			Convey("Then lookups match the original table", func() {
				So(err, ShouldBeNil)
				So(loaded.Batsman("Babar", "m1"), ShouldEqual, tbl.Batsman("Babar", "m1"))
				So(loaded.Bowler("Afridi", "m1"), ShouldEqual, 1)
				So(loaded.Median(form.Batsman), ShouldEqual, tbl.Median(form.Batsman))
				So(loaded.Players(form.Bowler), ShouldEqual, 2)
				v, known := loaded.LatestBatsman("Rizwan")
				So(known, ShouldBeTrue)
				So(v, ShouldEqual, 1)
			})

			Convey("Then saving again replaces the table", func() {
				So(store.SaveForms(ctx, form.Build(nil)), ShouldBeNil)
				again, err := store.LoadForms(ctx)
				So(err, ShouldBeNil)
				So(again.Players(form.Batsman), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a path in a missing directory", t, func() {
		_, err := repository.Open(ctx, filepath.Join(t.TempDir(), "no", "such", "dir.db"))

		Convey("Then Open fails with ErrStore", func() {
			So(errors.Is(err, repository.ErrStore), ShouldBeTrue)
		})
	})
}
