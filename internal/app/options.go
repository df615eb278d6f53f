package service

import (
	"github.com/okian/chase/internal/domain/form"
	"github.com/okian/chase/internal/domain/scoring"
	"github.com/okian/chase/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPredictor sets the model predictor.
func WithPredictor(p *scoring.Predictor) Option {
	return func(s *Service) {
		if p != nil {
			s.predictor = p
		}
	}
}

// WithForms sets the player form table used by state predictions.
func WithForms(t *form.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.forms = t
		}
	}
}

// WithDefaultOversLimit sets the overs limit assumed when a state omits it.
func WithDefaultOversLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultOvers = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
