// Package artifacts loads pre-trained model files into a scoring.Predictor.
//
// A model directory holds up to four JSON files:
//
//	scaler.json         {"mean": [...], "scale": [...]}
//	logistic.json       {"coef": [...], "intercept": 0.1}
//	gb.json             {"base_score": 0, "learning_rate": 0.1, "scaled_input": false, "trees": [[{...}]]}
//	gb_calibrated.json  gb.json plus "calibration": {"x": [...], "y": [...]}
//
// Tree nodes are {"feature", "threshold", "left", "right", "value"}; a
// negative feature marks a leaf. The calibrated ensemble wins over gb.json.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/chase/internal/domain/features"
	"github.com/okian/chase/internal/domain/scoring"
	"github.com/okian/chase/pkg/logger"
	"github.com/okian/chase/pkg/metrics"
)

// File names inside a model directory.
const (
	ScalerFile     = "scaler.json"
	LogisticFile   = "logistic.json"
	BoostedFile    = "gb.json"
	CalibratedFile = "gb_calibrated.json"
)

// Set is what was found in a model directory. Nil fields were absent or
// unusable.
type Set struct {
	Scaler  *scoring.Scaler
	Linear  *scoring.Linear
	Boosted scoring.Boosted
	// Problems lists files that exist but failed to load.
	Problems []error
}

// Options returns predictor options for every loaded model.
func (s Set) Options() []scoring.Option {
	var opts []scoring.Option
	if s.Scaler != nil {
		opts = append(opts, scoring.WithScaler(s.Scaler))
	}
	if s.Linear != nil {
		opts = append(opts, scoring.WithLinear(s.Linear))
	}
	if s.Boosted != nil {
		opts = append(opts, scoring.WithBoosted(s.Boosted))
	}
	return opts
}

// Load reads every artifact in dir. Missing files are normal; files that
// fail to load are logged, recorded in Problems and skipped. Load only
// returns an error when dir itself cannot be read.
func Load(ctx context.Context, dir string) (Set, error) {
	log := logger.Named("artifacts")
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn(ctx, "model directory missing; no models loaded", logger.String("dir", dir))
			publish(Set{})
			return Set{}, nil
		}
		return Set{}, fmt.Errorf("model dir %s: %w", dir, err)
	}

	var set Set
	fail := func(name string, err error) {
		err = fmt.Errorf("%w: %s: %w", ErrArtifact, name, err)
		set.Problems = append(set.Problems, err)
		log.Error(ctx, "model artifact rejected", logger.String("file", name), logger.Error(err))
		metrics.RecordErrorByComponent("artifacts", "load")
	}

	var scaler scoring.Scaler
	if ok, err := readJSON(filepath.Join(dir, ScalerFile), &scaler); err != nil {
		fail(ScalerFile, err)
	} else if ok {
		if err := checkScaler(&scaler); err != nil {
			fail(ScalerFile, err)
		} else {
			set.Scaler = &scaler
		}
	}

	var linear scoring.Linear
	if ok, err := readJSON(filepath.Join(dir, LogisticFile), &linear); err != nil {
		fail(LogisticFile, err)
	} else if ok {
		if len(linear.Coef) != features.Size {
			fail(LogisticFile, fmt.Errorf("%w: %d coefficients, want %d", scoring.ErrShapeMismatch, len(linear.Coef), features.Size))
		} else {
			set.Linear = &linear
		}
	}

	var cal scoring.CalibratedScorer
	if ok, err := readJSON(filepath.Join(dir, CalibratedFile), &cal); err != nil {
		fail(CalibratedFile, err)
	} else if ok {
		if err := checkCalibrated(&cal); err != nil {
			fail(CalibratedFile, err)
		} else {
			set.Boosted = &cal
		}
	}
	if set.Boosted == nil {
		var raw scoring.RawScorer
		if ok, err := readJSON(filepath.Join(dir, BoostedFile), &raw); err != nil {
			fail(BoostedFile, err)
		} else if ok {
			if err := checkEnsemble(&raw.Ensemble); err != nil {
				fail(BoostedFile, err)
			} else {
				set.Boosted = &raw
			}
		}
	}

	publish(set)
	log.Info(ctx, "model artifacts loaded",
		logger.String("dir", dir),
		logger.Bool("scaler", set.Scaler != nil),
		logger.Bool("logistic", set.Linear != nil),
		logger.String("boosted", kind(set.Boosted)),
		logger.Int("problems", len(set.Problems)))
	return set, nil
}

// readJSON decodes path into v. ok is false when the file does not exist.
func readJSON(path string, v any) (ok bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

func checkScaler(s *scoring.Scaler) error {
	if len(s.Mean) != features.Size || len(s.Scale) != features.Size {
		return fmt.Errorf("%w: %d means and %d scales, want %d", scoring.ErrShapeMismatch, len(s.Mean), len(s.Scale), features.Size)
	}
	return nil
}

func checkEnsemble(e *scoring.Ensemble) error {
	if len(e.Trees) == 0 {
		return errors.New("ensemble has no trees")
	}
	for i, t := range e.Trees {
		if len(t) == 0 {
			return fmt.Errorf("tree %d is empty", i)
		}
		for j, n := range t {
			if n.Feature >= features.Size {
				return fmt.Errorf("%w: tree %d node %d splits on feature %d", scoring.ErrShapeMismatch, i, j, n.Feature)
			}
		}
	}
	return nil
}

func checkCalibrated(c *scoring.CalibratedScorer) error {
	if err := checkEnsemble(&c.Ensemble); err != nil {
		return err
	}
	return c.Calibration.Validate()
}

func kind(b scoring.Boosted) string {
	if b == nil {
		return "none"
	}
	return b.Kind()
}

func publish(s Set) {
	metrics.SetModelAvailable("scaler", s.Scaler != nil)
	metrics.SetModelAvailable(scoring.ModelLR, s.Scaler != nil && s.Linear != nil)
	metrics.SetModelAvailable(scoring.ModelGB, s.Boosted != nil)
}
