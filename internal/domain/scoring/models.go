package scoring

import (
	"fmt"
	"math"
	"sort"
)

// Scaler standardises each feature as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform returns the scaled copy of x. A zero scale leaves the centred
// value unscaled.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(s.Mean) != len(x) || len(s.Scale) != len(x) {
		return nil, fmt.Errorf("%w: scaler has %d/%d params for %d features", ErrShapeMismatch, len(s.Mean), len(s.Scale), len(x))
	}
	out := make([]float64, len(x))
	for i := range x {
		sc := s.Scale[i]
		if sc == 0 {
			sc = 1
		}
		out[i] = (x[i] - s.Mean[i]) / sc
	}
	return out, nil
}

// Linear is a logistic regression over scaled features.
type Linear struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Prob returns sigmoid(coef . x + intercept).
func (l *Linear) Prob(x []float64) (float64, error) {
	if len(l.Coef) != len(x) {
		return 0, fmt.Errorf("%w: %d coefficients for %d features", ErrShapeMismatch, len(l.Coef), len(x))
	}
	z := l.Intercept
	for i, c := range l.Coef {
		z += c * x[i]
	}
	return sigmoid(z), nil
}

// Node is one tree node. Feature < 0 marks a leaf carrying Value; otherwise
// x[Feature] <= Threshold goes Left.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a flat node array rooted at index 0.
type Tree []Node

// Eval walks the tree for x and returns the leaf value.
func (t Tree) Eval(x []float64) (float64, error) {
	if len(t) == 0 {
		return 0, fmt.Errorf("%w: empty tree", ErrBadTree)
	}
	i := 0
	for range len(t) {
		n := t[i]
		if n.Feature < 0 {
			return n.Value, nil
		}
		if n.Feature >= len(x) {
			return 0, fmt.Errorf("%w: split on feature %d of %d", ErrShapeMismatch, n.Feature, len(x))
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
		if i <= 0 || i >= len(t) {
			return 0, fmt.Errorf("%w: child index %d", ErrBadTree, i)
		}
	}
	return 0, fmt.Errorf("%w: no leaf reached", ErrBadTree)
}

// Ensemble is an additive tree model on the log-odds scale.
type Ensemble struct {
	BaseScore    float64 `json:"base_score"`
	LearningRate float64 `json:"learning_rate"`
	ScaledInput  bool    `json:"scaled_input"`
	Trees        []Tree  `json:"trees"`
}

// Margin returns base + learning_rate * sum of leaf values.
func (e *Ensemble) Margin(x []float64) (float64, error) {
	sum := 0.0
	for i, t := range e.Trees {
		v, err := t.Eval(x)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += v
	}
	return e.BaseScore + e.LearningRate*sum, nil
}

// Prob returns sigmoid(Margin(x)).
func (e *Ensemble) Prob(x []float64) (float64, error) {
	m, err := e.Margin(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(m), nil
}

// Isotonic maps a raw probability through a monotone step-linear curve.
// X must be non-decreasing; inputs outside [X[0], X[n-1]] are clipped.
type Isotonic struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Validate checks the curve's shape.
func (c *Isotonic) Validate() error {
	if len(c.X) == 0 || len(c.X) != len(c.Y) {
		return fmt.Errorf("%w: calibration has %d x and %d y points", ErrShapeMismatch, len(c.X), len(c.Y))
	}
	if !sort.Float64sAreSorted(c.X) {
		return fmt.Errorf("%w: calibration x is not sorted", ErrShapeMismatch)
	}
	return nil
}

// Apply interpolates p on the curve.
func (c *Isotonic) Apply(p float64) float64 {
	n := len(c.X)
	if p <= c.X[0] {
		return c.Y[0]
	}
	if p >= c.X[n-1] {
		return c.Y[n-1]
	}
	j := sort.SearchFloat64s(c.X, p) // X[j-1] < p <= X[j]
	x0, x1 := c.X[j-1], c.X[j]
	y0, y1 := c.Y[j-1], c.Y[j]
	if x1 == x0 {
		return y1
	}
	return y0 + (p-x0)*(y1-y0)/(x1-x0)
}

// Boosted is the boosted-tree model. It is either a *RawScorer or a
// *CalibratedScorer; Predictor dispatches on the concrete type.
type Boosted interface {
	boosted()
	Kind() string
}

// RawScorer is an uncalibrated ensemble. It reads the scaled vector when the
// ensemble was fitted on scaled input.
type RawScorer struct {
	Ensemble
}

// CalibratedScorer is an ensemble followed by isotonic calibration. It always
// reads the unscaled vector.
type CalibratedScorer struct {
	Ensemble
	Calibration Isotonic `json:"calibration"`
}

func (*RawScorer) boosted()        {}
func (*CalibratedScorer) boosted() {}

// Kind names the variant.
func (*RawScorer) Kind() string { return "raw" }

// Kind names the variant.
func (*CalibratedScorer) Kind() string { return "calibrated" }

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
