package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/chase/internal/corpus"
	"github.com/okian/chase/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const match = `{
  "info": {"match_id": "t20-1", "dates": ["2022-11-13"], "overs": 20, "outcome": {"winner": "England"}},
  "innings": [
    {"team": "Pakistan", "overs": [{"over": 0, "deliveries": [
      {"batter": "Rizwan", "bowler": "Stokes", "runs": {"total": 1}}
    ]}]},
    {"team": "England", "overs": [{"over": 0, "deliveries": [
      {"batter": "Buttler", "bowler": "Afridi", "runs": {"total": 2}}
    ]}]}
  ]
}`

func TestBuildDatasetCommand(t *testing.T) {
	_ = logger.Init()

	Convey("Given a data directory with one match", t, func() {
		data := t.TempDir()
		So(os.WriteFile(filepath.Join(data, "t20-1.json"), []byte(match), 0o600), ShouldBeNil)
		work := t.TempDir()
		out := filepath.Join(work, "dataset.csv")
		store := filepath.Join(work, "corpus.db")

		cmd := newRootCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"-d", data, "-o", out, "--store", store, "-w", "2", "--json"})

		err := cmd.Execute()

		Convey("Then the report is printed as JSON", func() {
			So(err, ShouldBeNil)
			var rep corpus.Report
			So(json.Unmarshal(buf.Bytes(), &rep), ShouldBeNil)
			So(rep.Matches, ShouldEqual, 1)
			So(rep.Rows, ShouldEqual, 2)
			So(rep.TrainingRows, ShouldEqual, 1)
		})

		Convey("Then the CSV and store exist", func() {
			_, err := os.Stat(out)
			So(err, ShouldBeNil)
			_, err = os.Stat(store)
			So(err, ShouldBeNil)
		})
	})

	Convey("Given --no-store and a text report", t, func() {
		data := t.TempDir()
		So(os.WriteFile(filepath.Join(data, "a.json"), []byte(match), 0o600), ShouldBeNil)
		work := t.TempDir()
		store := filepath.Join(work, "corpus.db")

		cmd := newRootCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"-d", data, "-o", filepath.Join(work, "d.csv"), "--store", store, "--no-store"})

		Convey("Then no store is written", func() {
			So(cmd.Execute(), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "training rows: 1")
			_, err := os.Stat(store)
			So(os.IsNotExist(err), ShouldBeTrue)
		})
	})

	Convey("Given an empty data directory", t, func() {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-d", t.TempDir(), "--no-store", "-o", ""})

		Convey("Then the command fails", func() {
			So(cmd.Execute(), ShouldNotBeNil)
		})
	})
}
