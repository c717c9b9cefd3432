package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeModelUnavailable Outcome = "model_unavailable"
	OutcomePredictionFailed Outcome = "prediction_failed"
	OutcomeInvalidInput     Outcome = "invalid_input"
)

// Result is the outcome of one submitted form.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Cost    float64 `json:"cost"`
	Message string  `json:"message,omitempty"`
	Err     error   `json:"-"`
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

func success(cost float64) Result {
	return Result{Outcome: OutcomeSuccess, Cost: cost}
}

func failure(outcome Outcome, err error) Result {
	return Result{Outcome: outcome, Message: err.Error(), Err: err}
}

// RoundCost rounds to cents.
func RoundCost(v float64) float64 {
	return math.Round(v*100) / 100
}

// FeatureTable is a feature matrix with named columns.
type FeatureTable struct {
	Columns []string
	Data    *mat.Dense
}

// NewFeatureTable builds a single-row table. Columns come from the model
// schema; the vector must carry the same names in the same order.
func NewFeatureTable(columns []string, vec FeatureVector) (*FeatureTable, error) {
	if err := matchSchema(columns, vec); err != nil {
		return nil, err
	}
	return &FeatureTable{
		Columns: append([]string(nil), columns...),
		Data:    mat.NewDense(1, len(columns), append([]float64(nil), vec.Values...)),
	}, nil
}

func matchSchema(columns []string, vec FeatureVector) error {
	if len(vec.Values) != len(columns) {
		return fmt.Errorf("%w: model expects %d features, vector has %d", ErrSchemaMismatch, len(columns), len(vec.Values))
	}
	if len(vec.Names) != len(columns) {
		return fmt.Errorf("%w: vector names %d columns, model expects %d", ErrSchemaMismatch, len(vec.Names), len(columns))
	}
	for i, name := range columns {
		if vec.Names[i] != name {
			return fmt.Errorf("%w: column %d is %q, model expects %q", ErrSchemaMismatch, i, vec.Names[i], name)
		}
	}
	return nil
}

// CheckSchema verifies that the encoder's column order matches the model.
func CheckSchema(model Regressor) error {
	return matchSchema(model.FeatureNames(), FeatureVector{
		Names:  FeatureNames(),
		Values: make([]float64, len(FeatureNames())),
	})
}

// Invoke runs one prediction. It never panics: a missing artifact yields
// OutcomeModelUnavailable and every other failure OutcomePredictionFailed.
func Invoke(source ArtifactSource, vec FeatureVector) (res Result) {
	model, err := source.Artifact()
	if err != nil {
		if !errors.Is(err, ErrModelUnavailable) {
			err = fmt.Errorf("%w: %w", ErrModelUnavailable, err)
		}
		return failure(OutcomeModelUnavailable, err)
	}

	defer func() {
		if r := recover(); r != nil {
			res = failure(OutcomePredictionFailed, fmt.Errorf("%w: %v", ErrPredictionFailed, r))
		}
	}()

	table, err := NewFeatureTable(model.FeatureNames(), vec)
	if err != nil {
		return failure(OutcomePredictionFailed, fmt.Errorf("%w: %w", ErrPredictionFailed, err))
	}
	out, err := model.Predict(table.Data)
	if err != nil {
		return failure(OutcomePredictionFailed, fmt.Errorf("%w: %w", ErrPredictionFailed, err))
	}
	if len(out) == 0 {
		return failure(OutcomePredictionFailed, fmt.Errorf("%w: model returned no output", ErrPredictionFailed))
	}
	if math.IsNaN(out[0]) || math.IsInf(out[0], 0) {
		return failure(OutcomePredictionFailed, fmt.Errorf("%w: model returned %v", ErrPredictionFailed, out[0]))
	}
	return success(RoundCost(out[0]))
}

// Observer receives one call per prediction.
type Observer interface {
	ObservePrediction(outcome string, cached bool, d time.Duration)
}

// Predictor validates, encodes and invokes. Successful results are memoised
// per feature vector since the artifact never changes once loaded.
type Predictor struct {
	source   ArtifactSource
	logger   *zap.Logger
	cache    *lru.Cache[string, float64]
	observer Observer
}

type PredictorOption func(*Predictor)

func WithObserver(o Observer) PredictorOption {
	return func(p *Predictor) { p.observer = o }
}

func WithLogger(logger *zap.Logger) PredictorOption {
	return func(p *Predictor) { p.logger = logger }
}

// NewPredictor creates a predictor. cacheSize <= 0 disables memoisation.
func NewPredictor(source ArtifactSource, cacheSize int, opts ...PredictorOption) (*Predictor, error) {
	p := &Predictor{source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, float64](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

func (p *Predictor) Predict(raw RawInput) Result {
	start := time.Now()

	if err := raw.Validate(); err != nil {
		res := failure(OutcomeInvalidInput, err)
		p.observe(res, false, start)
		return res
	}

	vec := Encode(raw)
	if err := CheckOneHot(vec); err != nil {
		res := failure(OutcomeInvalidInput, fmt.Errorf("%w: %w", ErrInvalidInput, err))
		p.observe(res, false, start)
		return res
	}
	key := vec.key()
	if p.cache != nil {
		if cost, ok := p.cache.Get(key); ok {
			res := success(cost)
			p.observe(res, true, start)
			return res
		}
	}

	res := Invoke(p.source, vec)
	if res.OK() && p.cache != nil {
		p.cache.Add(key, res.Cost)
	}
	if !res.OK() {
		p.logger.Warn("prediction did not complete",
			zap.String("outcome", string(res.Outcome)), zap.Error(res.Err))
	}
	p.observe(res, false, start)
	return res
}

func (p *Predictor) observe(res Result, cached bool, start time.Time) {
	if p.observer != nil {
		p.observer.ObservePrediction(string(res.Outcome), cached, time.Since(start))
	}
}
