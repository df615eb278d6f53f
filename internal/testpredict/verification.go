package testpredict

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/chase/internal/domain/features"
	"github.com/okian/chase/internal/domain/types"
)

// Tolerance allows for the two-decimal rounding of every percentage.
const Tolerance = 0.01

var errInconsistent = errors.New("inconsistent prediction")

// Verify checks a prediction for internal consistency: every feature is
// present, percentages lie in [0,100] and combined is the mean of the
// models that answered.
func Verify(p types.StatePrediction) error {
	if len(p.Features) != features.Size {
		return fmt.Errorf("%w: %d features, want %d", errInconsistent, len(p.Features), features.Size)
	}
	for _, name := range features.Names {
		v, ok := p.Features[name]
		if !ok {
			return fmt.Errorf("%w: feature %s missing", errInconsistent, name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: feature %s is %v", errInconsistent, name, v)
		}
	}

	r := p.Prediction
	var sum float64
	n := 0
	for _, pct := range []*float64{r.LR, r.GB} {
		if pct == nil {
			continue
		}
		if *pct < 0 || *pct > 100 {
			return fmt.Errorf("%w: model percentage %v out of range", errInconsistent, *pct)
		}
		sum += *pct
		n++
	}
	if n == 0 {
		return fmt.Errorf("%w: no model percentages", errInconsistent)
	}
	if r.Combined < 0 || r.Combined > 100 {
		return fmt.Errorf("%w: combined %v out of range", errInconsistent, r.Combined)
	}
	if mean := sum / float64(n); math.Abs(mean-r.Combined) > Tolerance {
		return fmt.Errorf("%w: combined %v, mean of models %v", errInconsistent, r.Combined, mean)
	}
	return nil
}
