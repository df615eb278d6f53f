// Package service wires the predictor and the form table behind the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/chase/internal/domain/features"
	"github.com/okian/chase/internal/domain/form"
	"github.com/okian/chase/internal/domain/model"
	"github.com/okian/chase/internal/domain/normalize"
	"github.com/okian/chase/internal/domain/scoring"
	"github.com/okian/chase/internal/domain/types"
	"github.com/okian/chase/pkg/logger"
	"github.com/okian/chase/pkg/metrics"
)

const (
	maxWickets   = 10
	ballsPerOver = 6
)

// Service answers prediction, form and stats requests. Everything it holds
// is read-only after New, so it is safe for concurrent use.
type Service struct {
	predictor    *scoring.Predictor
	forms        *form.Table
	defaultOvers int
	startedAt    time.Time
	logger       logger.Logger
}

// New constructs a Service. Without options it has no models and an empty
// form table.
func New(opts ...Option) *Service {
	s := &Service{
		predictor:    scoring.NewPredictor(),
		forms:        form.FromEntries(nil, nil),
		defaultOvers: model.DefaultOversLimit,
		startedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	for _, role := range form.Roles {
		metrics.UpdateFormPlayers(string(role), s.forms.Players(role))
	}
	lr, gb := s.predictor.Available()
	metrics.SetModelAvailable(scoring.ModelLR, lr)
	metrics.SetModelAvailable(scoring.ModelGB, gb)
	return s
}

// Predict scores a feature map. Missing keys are 0; non-numeric values
// fail with features.ErrBadFeature.
func (s *Service) Predict(ctx context.Context, in map[string]any) (types.PredictionResult, error) {
	v, err := features.FromMap(in)
	if err != nil {
		metrics.RecordPrediction("bad_request")
		return types.PredictionResult{}, err
	}
	return s.PredictVector(ctx, v)
}

// PredictVector scores an already built vector.
func (s *Service) PredictVector(ctx context.Context, v features.Vector) (types.PredictionResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordPredictionLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	res, err := s.predictor.Predict(ctx, v)
	recordModel(scoring.ModelLR, res.LR != nil)
	recordModel(scoring.ModelGB, res.GB != nil)
	switch {
	case err != nil:
		metrics.RecordPrediction("no_model")
		s.logger.Error(ctx, "prediction failed", logger.Error(err))
		return types.PredictionResult{}, err
	case res.LR == nil || res.GB == nil:
		metrics.RecordPrediction("degraded")
	default:
		metrics.RecordPrediction("ok")
	}
	return res, nil
}

func recordModel(name string, ok bool) {
	status := "ok"
	if !ok {
		status = "unavailable"
	}
	metrics.RecordModelScore(name, status)
}

// PredictState builds features from a live chase position and scores them.
// Player form comes from the request when given, else the latest corpus
// value with median fallback.
func (s *Service) PredictState(ctx context.Context, req types.StateRequest) (types.StatePrediction, error) {
	row, err := s.StateRow(req)
	if err != nil {
		metrics.RecordPrediction("bad_request")
		return types.StatePrediction{}, err
	}

	bat, _ := s.forms.LatestBatsman(req.Batsman)
	if req.BatsmanForm != nil {
		bat = *req.BatsmanForm
	}
	bowl, _ := s.forms.LatestBowler(req.Bowler)
	if req.BowlerForm != nil {
		bowl = *req.BowlerForm
	}

	v := features.Build(row, bat, bowl)
	res, err := s.PredictVector(ctx, v)
	if err != nil {
		return types.StatePrediction{}, err
	}
	return types.StatePrediction{Features: v.Map(), Prediction: res}, nil
}

// StateRow validates req and derives the pre-ball row with the same
// arithmetic as the batch normalizer.
func (s *Service) StateRow(req types.StateRequest) (model.Row, error) {
	if req.Score < 0 {
		return model.Row{}, fmt.Errorf("%w: score %d", ErrBadState, req.Score)
	}
	if req.Wickets < 0 || req.Wickets > maxWickets {
		return model.Row{}, fmt.Errorf("%w: wickets %d", ErrBadState, req.Wickets)
	}
	if req.Target <= 0 {
		return model.Row{}, fmt.Errorf("%w: target must be positive", ErrBadState)
	}
	balls := 0
	switch {
	case req.BallsElapsed != nil:
		balls = *req.BallsElapsed
		if balls < 0 {
			return model.Row{}, fmt.Errorf("%w: balls_elapsed %d", ErrBadState, balls)
		}
	case req.Overs != "":
		var err error
		if balls, err = ParseOvers(req.Overs); err != nil {
			return model.Row{}, err
		}
	}
	limit := req.OversLimit
	if limit <= 0 {
		limit = s.defaultOvers
	}

	st := normalize.NewState(2, limit, req.Target)
	st.Score, st.Wickets, st.BallsElapsed = req.Score, req.Wickets, balls

	row := model.Row{
		OverBall: strconv.Itoa(balls/ballsPerOver) + "." + strconv.Itoa(balls%ballsPerOver+1),
		Batsman:  req.Batsman,
		Bowler:   req.Bowler,
	}
	st.Snapshot(&row)
	return row, nil
}

// ParseOvers converts "o.b" (completed overs and balls) into balls bowled.
func ParseOvers(s string) (int, error) {
	whole, part, found := strings.Cut(strings.TrimSpace(s), ".")
	o, err := strconv.Atoi(whole)
	if err != nil || o < 0 {
		return 0, fmt.Errorf("%w: overs %q", ErrBadState, s)
	}
	b := 0
	if found {
		b, err = strconv.Atoi(part)
		if err != nil || b < 0 || b >= ballsPerOver {
			return 0, fmt.Errorf("%w: overs %q", ErrBadState, s)
		}
	}
	return o*ballsPerOver + b, nil
}

// Form returns the latest form of player in role. An unseen player gets the
// role median with Known false.
func (s *Service) Form(_ context.Context, role, player string) (types.FormEntry, error) {
	r, err := ParseRole(role)
	if err != nil {
		return types.FormEntry{}, err
	}
	v, known := s.forms.Latest(r, player)
	return types.FormEntry{Player: player, Role: string(r), Form: v, Known: known}, nil
}

// ParseRole maps a role name to form.Role. Empty means batsman.
func ParseRole(role string) (form.Role, error) {
	switch form.Role(strings.ToLower(strings.TrimSpace(role))) {
	case "", form.Batsman:
		return form.Batsman, nil
	case form.Bowler:
		return form.Bowler, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	lr, gb := s.predictor.Available()
	st := types.Stats{
		Models:        map[string]bool{scoring.ModelLR: lr, scoring.ModelGB: gb},
		BoostedKind:   s.predictor.BoostedKind(),
		FormPlayers:   map[string]int{},
		FormMedians:   map[string]float64{},
		DefaultOvers:  s.defaultOvers,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}
	for _, role := range form.Roles {
		st.FormPlayers[string(role)] = s.forms.Players(role)
		st.FormMedians[string(role)] = s.forms.Median(role)
	}
	return st
}

// IsClientError reports whether err stems from bad input rather than the
// service.
func IsClientError(err error) bool {
	return errors.Is(err, features.ErrBadFeature) ||
		errors.Is(err, ErrBadState) ||
		errors.Is(err, ErrUnknownRole)
}
