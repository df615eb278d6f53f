package corpus

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/okian/chase/internal/domain/features"
)

var identityColumns = []string{"match_id", "date", "innings", "team", "over_ball", "batsman", "bowler", "winner"}

// Header returns the training CSV header.
func Header() []string {
	h := append([]string(nil), identityColumns...)
	h = append(h, features.Names[:]...)
	return append(h, "label")
}

// WriteCSV writes examples to path, replacing any existing file.
func WriteCSV(path string, examples []Example) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteDataset, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header()); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %w", ErrWriteDataset, err)
	}
	for _, ex := range examples {
		r := ex.Row
		rec := []string{
			r.MatchID, r.Date, strconv.Itoa(r.Innings), r.Team, r.OverBall, r.Batsman, r.Bowler, r.Winner,
		}
		for _, v := range ex.Features {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rec = append(rec, strconv.Itoa(ex.Label))
		if err := w.Write(rec); err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: %w", ErrWriteDataset, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %w", ErrWriteDataset, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteDataset, err)
	}
	return nil
}
