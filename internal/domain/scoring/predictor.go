// Package scoring blends a logistic model and a boosted-tree model into one
// win probability.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/okian/chase/internal/domain/features"
	"github.com/okian/chase/pkg/logger"
)

// Model names used in results, logs and metrics.
const (
	ModelLR = "lr"
	ModelGB = "gb"
)

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithScaler sets the feature scaler used by the linear model and by raw
// ensembles fitted on scaled input.
func WithScaler(s *Scaler) Option {
	return func(p *Predictor) { p.scaler = s }
}

// WithLinear sets the logistic model.
func WithLinear(l *Linear) Option {
	return func(p *Predictor) { p.linear = l }
}

// WithBoosted sets the boosted model variant.
func WithBoosted(b Boosted) Option {
	return func(p *Predictor) { p.boosted = b }
}

// WithLogger sets the logger used to report degraded models.
func WithLogger(l logger.Logger) Option {
	return func(p *Predictor) { p.log = l }
}

// Predictor scores feature vectors. It holds no mutable state after
// construction and is safe for concurrent use.
type Predictor struct {
	scaler  *Scaler
	linear  *Linear
	boosted Boosted
	log     logger.Logger
}

// NewPredictor builds a Predictor. Every model is optional.
func NewPredictor(opts ...Option) *Predictor {
	p := &Predictor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Outcome is one model's probability in [0,1], or the reason it has none.
type Outcome struct {
	Prob float64
	Err  error
}

// OK reports whether the model produced a probability.
func (o Outcome) OK() bool { return o.Err == nil }

// Result holds percentages rounded to two decimals. LR and GB are nil when
// that model was unavailable.
type Result struct {
	LR       *float64 `json:"lr,omitempty"`
	GB       *float64 `json:"gb,omitempty"`
	Combined float64  `json:"combined"`
}

// Available reports which models are loaded. A raw ensemble needing a scaler
// counts as unavailable without one.
func (p *Predictor) Available() (lr, gb bool) {
	lr = p.scaler != nil && p.linear != nil
	switch m := p.boosted.(type) {
	case *RawScorer:
		gb = m != nil && (!m.ScaledInput || p.scaler != nil)
	case *CalibratedScorer:
		gb = m != nil
	}
	return lr, gb
}

// BoostedKind names the loaded boosted variant, or "" when none.
func (p *Predictor) BoostedKind() string {
	if p.boosted == nil {
		return ""
	}
	return p.boosted.Kind()
}

// Outcomes scores v with each model independently.
func (p *Predictor) Outcomes(v features.Vector) (lr, gb Outcome) {
	raw := v.Slice()

	var scaled []float64
	var scaleErr error
	if p.scaler != nil {
		scaled, scaleErr = p.scaler.Transform(raw)
	}

	lr = p.scoreLinear(scaled, scaleErr)
	gb = p.scoreBoosted(raw, scaled, scaleErr)
	return lr, gb
}

func (p *Predictor) scoreLinear(scaled []float64, scaleErr error) Outcome {
	switch {
	case p.linear == nil:
		return Outcome{Err: fmt.Errorf("%s: %w", ModelLR, ErrNoModel)}
	case p.scaler == nil:
		return Outcome{Err: fmt.Errorf("%s: %w", ModelLR, ErrScalerRequired)}
	case scaleErr != nil:
		return Outcome{Err: fmt.Errorf("%s: %w", ModelLR, scaleErr)}
	}
	prob, err := p.linear.Prob(scaled)
	return finite(ModelLR, prob, err)
}

func (p *Predictor) scoreBoosted(raw, scaled []float64, scaleErr error) Outcome {
	switch m := p.boosted.(type) {
	case *RawScorer:
		if m == nil {
			break
		}
		in := raw
		if m.ScaledInput {
			if p.scaler == nil {
				return Outcome{Err: fmt.Errorf("%s: %w", ModelGB, ErrScalerRequired)}
			}
			if scaleErr != nil {
				return Outcome{Err: fmt.Errorf("%s: %w", ModelGB, scaleErr)}
			}
			in = scaled
		}
		prob, err := m.Prob(in)
		return finite(ModelGB, prob, err)
	case *CalibratedScorer:
		if m == nil {
			break
		}
		if err := m.Calibration.Validate(); err != nil {
			return Outcome{Err: fmt.Errorf("%s: %w", ModelGB, err)}
		}
		prob, err := m.Prob(raw)
		if err != nil {
			return Outcome{Err: fmt.Errorf("%s: %w", ModelGB, err)}
		}
		return finite(ModelGB, m.Calibration.Apply(prob), nil)
	}
	return Outcome{Err: fmt.Errorf("%s: %w", ModelGB, ErrNoModel)}
}

func finite(model string, prob float64, err error) Outcome {
	if err != nil {
		return Outcome{Err: fmt.Errorf("%s: %w", model, err)}
	}
	if math.IsNaN(prob) || math.IsInf(prob, 0) {
		return Outcome{Err: fmt.Errorf("%s: %w", model, ErrNonFinite)}
	}
	return Outcome{Prob: prob}
}

// Predict scores v with both models and blends the available probabilities
// with equal weight. It fails with ErrNoModel only when neither model scored.
func (p *Predictor) Predict(ctx context.Context, v features.Vector) (Result, error) {
	lr, gb := p.Outcomes(v)
	p.logDegraded(ctx, lr, gb)
	return Combine(lr, gb)
}

// Combine aggregates two outcomes into a Result.
func Combine(lr, gb Outcome) (Result, error) {
	var res Result
	var sum float64
	n := 0
	if lr.OK() {
		pct := Percent(lr.Prob)
		res.LR = &pct
		sum += lr.Prob
		n++
	}
	if gb.OK() {
		pct := Percent(gb.Prob)
		res.GB = &pct
		sum += gb.Prob
		n++
	}
	if n == 0 {
		return Result{}, fmt.Errorf("%w: %w", ErrNoModel, errors.Join(lr.Err, gb.Err))
	}
	res.Combined = Percent(sum / float64(n))
	return res, nil
}

// Percent converts a probability to a percentage rounded half away from zero
// to two decimals.
func Percent(p float64) float64 {
	return decimal.NewFromFloat(p * 100).Round(2).InexactFloat64()
}

func (p *Predictor) logDegraded(ctx context.Context, outcomes ...Outcome) {
	if p.log == nil {
		return
	}
	for _, o := range outcomes {
		// an absent model is expected; only report ones that failed to score
		if o.Err != nil && !errors.Is(o.Err, ErrNoModel) {
			p.log.Warn(ctx, "model degraded", logger.Error(o.Err))
		}
	}
}
