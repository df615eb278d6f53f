package matchfile_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/chase/internal/adapters/matchfile"
	. "github.com/smartystreets/goconvey/convey"
)

const legacyYAML = `
info:
  dates:
    - 2017-02-17
  overs: 20
  outcome:
    winner: Australia
innings:
  - 1st innings:
      team: India
      deliveries:
        - 0.1:
            batsman: Rohit
            bowler: Starc
            runs: {batsman: 4, extras: 0, total: 4}
        - 0.2:
            batsman: Rohit
            bowler: Starc
            runs: {total: 0}
            wicket: {kind: bowled, player_out: Rohit}
  - 2nd innings:
      team: Australia
      deliveries:
        - 0.1:
            batsman: Warner
            bowler: Bumrah
            runs: {total: 6}
        - 0.10:
            batsman: Warner
            bowler: Bumrah
            runs: {total: 1}
`

const modernJSON = `{
  "meta": {"data_version": "1.1.0"},
  "info": {"match_id": 1082591, "dates": ["2021-04-09"], "overs": 50, "outcome": {"winner": "Mumbai"}},
  "innings": [
    {"team": "Chennai", "overs": [
      {"over": 0, "deliveries": [
        {"batter": "Gaikwad", "bowler": "Boult", "runs": {"batter": 1, "extras": 0, "total": 1}},
        {"batter": "Gaikwad", "bowler": "Boult", "runs": {"total": 0}, "wickets": [{"kind": "caught"}]}
      ]},
      {"over": 1, "deliveries": [
        {"batter": "Rayudu", "bowler": "Bumrah", "runs": {"total": 4}, "wickets": []}
      ]}
    ]}
  ]
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoad(t *testing.T) {
	Convey("Given a legacy YAML match file", t, func() {
		dir := t.TempDir()
		path := writeFile(t, dir, "1001.yaml", legacyYAML)

		m, err := matchfile.Load(path)

		Convey("Then match metadata is extracted", func() {
			So(err, ShouldBeNil)
			So(m.ID, ShouldEqual, "1001")
			So(m.Date, ShouldEqual, "2017-02-17")
			So(m.Winner, ShouldEqual, "Australia")
			So(m.OversLimit, ShouldEqual, 20)
		})

		Convey("Then deliveries keep their labels and outcomes", func() {
			So(m.Innings, ShouldHaveLength, 2)
			So(m.Innings[0].Team, ShouldEqual, "India")
			first := m.Innings[0].Deliveries
			So(first, ShouldHaveLength, 2)
			So(first[0].Label, ShouldEqual, "0.1")
			So(first[0].Runs, ShouldEqual, 4)
			So(first[0].Batsman, ShouldEqual, "Rohit")
			So(first[1].Wicket, ShouldBeTrue)
			So(m.Innings[1].Deliveries[1].Label, ShouldEqual, "0.10")
		})
	})

	Convey("Given a modern JSON match file", t, func() {
		dir := t.TempDir()
		path := writeFile(t, dir, "ipl.json", modernJSON)

		m, err := matchfile.Load(path)

		Convey("Then overs are flattened with positional labels", func() {
			So(err, ShouldBeNil)
			So(m.ID, ShouldEqual, "1082591")
			So(m.OversLimit, ShouldEqual, 50)
			So(m.Winner, ShouldEqual, "Mumbai")
			d := m.Innings[0].Deliveries
			So(d, ShouldHaveLength, 3)
			So(d[0].Label, ShouldEqual, "0.1")
			So(d[1].Label, ShouldEqual, "0.2")
			So(d[1].Wicket, ShouldBeTrue)
			So(d[2].Label, ShouldEqual, "1.1")
			So(d[2].Batsman, ShouldEqual, "Rayudu")
			So(d[2].Wicket, ShouldBeFalse)
		})
	})

	Convey("Given a file that is neither JSON nor YAML", t, func() {
		dir := t.TempDir()
		path := writeFile(t, dir, "bad.json", "{not: [valid")

		_, err := matchfile.Load(path)

		Convey("Then ErrUnsupportedFormat is returned", func() {
			So(errors.Is(err, matchfile.ErrUnsupportedFormat), ShouldBeTrue)
		})
	})

	Convey("Given a document whose root is a list", t, func() {
		dir := t.TempDir()
		path := writeFile(t, dir, "list.yaml", "- 1\n- 2\n")

		_, err := matchfile.Load(path)

		Convey("Then ErrUnsupportedFormat is returned", func() {
			So(errors.Is(err, matchfile.ErrUnsupportedFormat), ShouldBeTrue)
		})
	})

	Convey("Given runs that are not numeric", t, func() {
		dir := t.TempDir()
		path := writeFile(t, dir, "x.json", `{"innings":[{"team":"A","deliveries":[{"0.1":{"runs":{"total":"four"}}}]}]}`)

		_, err := matchfile.Load(path)

		Convey("Then ErrBadRecord is returned", func() {
			So(errors.Is(err, matchfile.ErrBadRecord), ShouldBeTrue)
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := matchfile.Load(filepath.Join(t.TempDir(), "nope.json"))
		So(err, ShouldNotBeNil)
	})
}

func TestWinner(t *testing.T) {
	Convey("Given winners recorded in different places", t, func() {
		So(matchfile.Winner(map[string]any{"outcome": map[string]any{"winner": "A"}, "info": map[string]any{"winner": "B"}}), ShouldEqual, "A")
		So(matchfile.Winner(map[string]any{"info": map[string]any{"outcome": map[string]any{"winner": "B"}}}), ShouldEqual, "B")
		So(matchfile.Winner(map[string]any{"info": map[string]any{"winner": "C"}}), ShouldEqual, "C")
		So(matchfile.Winner(map[string]any{"result": "D"}), ShouldEqual, "D")
		So(matchfile.Winner(map[string]any{"match_winner": "E"}), ShouldEqual, "E")
		So(matchfile.Winner(map[string]any{"info": map[string]any{"outcome": map[string]any{"result": "no result"}}}), ShouldEqual, "")
	})
}

func TestFromDocument(t *testing.T) {
	Convey("Given a document without info", t, func() {
		m, err := matchfile.FromDocument(map[string]any{}, "stem")

		Convey("Then defaults apply", func() {
			So(err, ShouldBeNil)
			So(m.ID, ShouldEqual, "stem")
			So(m.OversLimit, ShouldEqual, 20)
			So(m.Date, ShouldEqual, "")
			So(m.Innings, ShouldBeEmpty)
		})
	})

	Convey("Given a single date string and an id field", t, func() {
		m, err := matchfile.FromDocument(map[string]any{
			"info": map[string]any{"id": "abc", "start_date": "2019-05-30", "overs": "50"},
		}, "stem")

		Convey("Then they are used", func() {
			So(err, ShouldBeNil)
			So(m.ID, ShouldEqual, "abc")
			So(m.Date, ShouldEqual, "2019-05-30")
			So(m.OversLimit, ShouldEqual, 50)
		})
	})

	Convey("Given innings that is not a list", t, func() {
		_, err := matchfile.FromDocument(map[string]any{"innings": "oops"}, "x")
		So(errors.Is(err, matchfile.ErrBadRecord), ShouldBeTrue)
	})
}

func TestDiscover(t *testing.T) {
	Convey("Given a directory of mixed files", t, func() {
		dir := t.TempDir()
		writeFile(t, dir, "b.yaml", "info: {}")
		writeFile(t, dir, "a.json", "{}")
		writeFile(t, dir, "c.YML", "info: {}")
		writeFile(t, dir, "readme.txt", "ignore")
		So(os.Mkdir(filepath.Join(dir, "sub.json"), 0o755), ShouldBeNil)

		files, err := matchfile.Discover(dir)

		Convey("Then only match files are listed in order", func() {
			So(err, ShouldBeNil)
			So(files, ShouldResemble, []string{
				filepath.Join(dir, "a.json"),
				filepath.Join(dir, "b.yaml"),
				filepath.Join(dir, "c.YML"),
			})
		})
	})

	Convey("Given a missing directory", t, func() {
		_, err := matchfile.Discover(filepath.Join(t.TempDir(), "none"))
		So(err, ShouldNotBeNil)
	})
}
