package testpredict_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/chase/internal/adapters/http/api"
	service "github.com/okian/chase/internal/app"
	"github.com/okian/chase/internal/domain/features"
	"github.com/okian/chase/internal/domain/scoring"
	"github.com/okian/chase/internal/domain/types"
	"github.com/okian/chase/internal/testpredict"
	"github.com/okian/chase/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	scaler := &scoring.Scaler{Mean: make([]float64, features.Size), Scale: make([]float64, features.Size)}
	for i := range scaler.Scale {
		scaler.Scale[i] = 1
	}
	svc := service.New(service.WithPredictor(scoring.NewPredictor(
		scoring.WithScaler(scaler),
		scoring.WithLinear(&scoring.Linear{Coef: make([]float64, features.Size), Intercept: math.Log(3)}),
		scoring.WithBoosted(&scoring.RawScorer{Ensemble: scoring.Ensemble{LearningRate: 1, Trees: []scoring.Tree{{{Feature: -1}}}}}),
	)))
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(url string) *testpredict.Config {
	return &testpredict.Config{
		BaseURL:    url,
		Requests:   40,
		Workers:    4,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		Seed:       7,
	}
}

func pct(v float64) *float64 { return &v }

func fullFeatures() map[string]float64 {
	m := make(map[string]float64, features.Size)
	for _, n := range features.Names {
		m[n] = 1
	}
	return m
}

func TestGenerate(t *testing.T) {
	Convey("Given a fixed seed", t, func() {
		a := testpredict.Generate(100, 42)
		b := testpredict.Generate(100, 42)

		Convey("Then states repeat and stay inside a legal chase", func() {
			So(a, ShouldHaveLength, 100)
			for i := range a {
				So(a[i].State, ShouldResemble, b[i].State)
				So(a[i].ID, ShouldNotEqual, b[i].ID)
				st := a[i].State
				So(st.Target, ShouldBeBetweenOrEqual, 80, 240)
				So(st.Score, ShouldBeBetweenOrEqual, 0, st.Target-1)
				So(st.Wickets, ShouldBeBetweenOrEqual, 0, 10)
				So(*st.BallsElapsed, ShouldBeBetweenOrEqual, 0, 120)
				So(st.Batsman, ShouldNotBeEmpty)
				So(st.Bowler, ShouldNotBeEmpty)
			}
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given predictions", t, func() {
		ok := types.StatePrediction{Features: fullFeatures(), Prediction: types.PredictionResult{LR: pct(75), GB: pct(50), Combined: 62.5}}
		So(testpredict.Verify(ok), ShouldBeNil)

		single := types.StatePrediction{Features: fullFeatures(), Prediction: types.PredictionResult{GB: pct(41.2), Combined: 41.2}}
		So(testpredict.Verify(single), ShouldBeNil)

		Convey("Then a combined value off the mean is rejected", func() {
			bad := ok
			bad.Prediction.Combined = 70
			So(testpredict.Verify(bad), ShouldNotBeNil)
		})

		Convey("Then out-of-range percentages are rejected", func() {
			bad := types.StatePrediction{Features: fullFeatures(), Prediction: types.PredictionResult{LR: pct(101), Combined: 101}}
			So(testpredict.Verify(bad), ShouldNotBeNil)
		})

		Convey("Then a missing feature is rejected", func() {
			f := fullFeatures()
			delete(f, features.Names[0])
			So(testpredict.Verify(types.StatePrediction{Features: f, Prediction: ok.Prediction}), ShouldNotBeNil)
		})

		Convey("Then a prediction with no models is rejected", func() {
			So(testpredict.Verify(types.StatePrediction{Features: fullFeatures()}), ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running service", t, func() {
		srv := newServer(t)
		cfg := testConfig(srv.URL)
		cfg.OutputFile = filepath.Join(t.TempDir(), "out", "samples.json")

		stats, err := testpredict.Run(ctx, cfg)

		Convey("Then every sample is answered consistently", func() {
			So(err, ShouldBeNil)
			So(stats.RunID, ShouldNotBeEmpty)
			So(stats.Generated, ShouldEqual, 40)
			So(stats.Submitted, ShouldEqual, 40)
			So(stats.Successful, ShouldEqual, 40)
			So(stats.Failed+stats.Rejected+stats.Invalid, ShouldEqual, 0)
			So(stats.MaxLatency, ShouldBeGreaterThanOrEqualTo, stats.MeanLatency)
		})

		Convey("Then the samples file holds every result", func() {
			raw, err := os.ReadFile(cfg.OutputFile)
			So(err, ShouldBeNil)
			var saved []testpredict.Sample
			So(json.Unmarshal(raw, &saved), ShouldBeNil)
			So(saved, ShouldHaveLength, 40)
			So(saved[0].Result.Prediction.Combined, ShouldEqual, 62.5)
		})
	})

	Convey("Given a service that answers inconsistently", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		mux.HandleFunc("/api/predict/state", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(types.StatePrediction{
				Features:   fullFeatures(),
				Prediction: types.PredictionResult{LR: pct(10), GB: pct(90), Combined: 10},
			})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		stats, err := testpredict.Run(ctx, testConfig(srv.URL))

		Convey("Then the run fails and counts invalid answers", func() {
			So(errors.Is(err, testpredict.ErrRunFailed), ShouldBeTrue)
			So(stats.Invalid, ShouldEqual, 40)
		})
	})

	Convey("Given a service that is briefly overloaded", t, func() {
		var calls atomic.Int64
		inner := newServer(t)
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		mux.HandleFunc("/api/predict/state", func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1)%2 == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			req, _ := http.NewRequestWithContext(r.Context(), http.MethodPost, inner.URL+r.URL.Path, r.Body)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			defer resp.Body.Close()
			w.WriteHeader(resp.StatusCode)
			var body any
			_ = json.NewDecoder(resp.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode(body)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := testConfig(srv.URL)
		cfg.Workers = 1
		cfg.Requests = 5
		stats, err := testpredict.Run(ctx, cfg)

		Convey("Then retries recover every sample", func() {
			So(err, ShouldBeNil)
			So(stats.Successful, ShouldEqual, 5)
			So(calls.Load(), ShouldEqual, 10)
		})
	})

	Convey("Given a service that rejects states", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		mux.HandleFunc("/api/predict/state", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"code":"bad_request","message":"no"}`, http.StatusBadRequest)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := testConfig(srv.URL)
		cfg.Requests = 3
		stats, err := testpredict.Run(ctx, cfg)

		Convey("Then rejections are counted without retries", func() {
			So(errors.Is(err, testpredict.ErrRunFailed), ShouldBeTrue)
			So(stats.Rejected, ShouldEqual, 3)
		})
	})

	Convey("Given an unhealthy service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		cfg := testConfig(srv.URL)
		cfg.MaxRetries = 0

		_, err := testpredict.Run(ctx, cfg)

		Convey("Then the run stops at the health check", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}

func TestRequestID(t *testing.T) {
	Convey("Given a service that records request ids", t, func() {
		var seen atomic.Value
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		mux.HandleFunc("/api/predict/state", func(w http.ResponseWriter, r *http.Request) {
			seen.Store(r.Header.Get("X-Request-ID"))
			w.WriteHeader(http.StatusBadRequest)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := testConfig(srv.URL)
		cfg.Requests = 1
		stats, _ := testpredict.Run(context.Background(), cfg)

		Convey("Then the id carries the run id", func() {
			id, _ := seen.Load().(string)
			So(id, ShouldStartWith, stats.RunID+"-")
		})
	})
}
