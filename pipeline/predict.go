// Package pipeline 实现预测请求处理流程
package pipeline

import (
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"studentperf/metrics"
	"studentperf/ml"
)

const (
	LabelPass = "Pass"
	LabelFail = "Fail"

	// probabilityScale 概率保留4位小数
	probabilityScale = 1e4
	sumTolerance     = 1e-6
)

// ErrModelUnavailable 模型未加载
var ErrModelUnavailable = fmt.Errorf("model is not available: %w", ml.ErrModelNotLoaded)

// Predictor 模型适配器能力
type Predictor interface {
	Loaded() bool
	Predict(features []float64) (int, []float64, error)
}

// Result 预测结果
type Result struct {
	Prediction      string  `json:"prediction"`
	Label           int     `json:"prediction_label"`
	Confidence      float64 `json:"confidence_score"`
	ProbabilityPass float64 `json:"probability_pass"`
	ProbabilityFail float64 `json:"probability_fail"`
}

// Pipeline 预测流水线
type Pipeline struct {
	model Predictor
	log   *zap.SugaredLogger
	cache *lru.Cache[ml.FeatureVector, Result]
	stats counters
}

// Option 流水线选项
type Option func(*Pipeline) error

// WithLogger 设置日志
func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Pipeline) error {
		if log != nil {
			p.log = log
		}
		return nil
	}
}

// WithCacheSize 启用结果缓存，size为0时关闭
func WithCacheSize(size int) Option {
	return func(p *Pipeline) error {
		if size <= 0 {
			p.cache = nil
			return nil
		}
		cache, err := lru.New[ml.FeatureVector, Result](size)
		if err != nil {
			return err
		}
		p.cache = cache
		return nil
	}
}

// New 创建预测流水线
func New(model Predictor, opts ...Option) (*Pipeline, error) {
	if model == nil {
		return nil, errors.New("predictor is required")
	}
	p := &Pipeline{
		model: model,
		log:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ModelLoaded 模型是否已加载
func (p *Pipeline) ModelLoaded() bool {
	return p.model.Loaded()
}

// HandlePredict 处理原始JSON请求体
func (p *Pipeline) HandlePredict(raw []byte) (*Result, error) {
	p.stats.total.Add(1)
	if !p.model.Loaded() {
		return nil, p.unavailable()
	}

	features, err := ml.ValidateFeatures(raw)
	if err != nil {
		return nil, p.rejected(err)
	}
	return p.predict(features)
}

// Predict 处理已解码的特征
func (p *Pipeline) Predict(features ml.FeatureVector) (*Result, error) {
	p.stats.total.Add(1)
	if !p.model.Loaded() {
		return nil, p.unavailable()
	}
	if err := features.Validate(); err != nil {
		return nil, p.rejected(err)
	}
	return p.predict(features)
}

func (p *Pipeline) predict(features ml.FeatureVector) (*Result, error) {
	if p.cache != nil {
		if cached, ok := p.cache.Get(features); ok {
			p.stats.cacheHits.Add(1)
			p.succeeded(cached)
			return &cached, nil
		}
	}

	vector := features.Values()
	label, probs, err := p.model.Predict(vector)
	if err != nil {
		if errors.Is(err, ml.ErrModelNotLoaded) {
			return nil, p.unavailable()
		}
		return nil, p.failed(len(vector), err)
	}

	result, err := buildResult(label, probs)
	if err != nil {
		return nil, p.failed(len(vector), err)
	}

	if p.cache != nil {
		p.cache.Add(features, *result)
	}
	p.succeeded(*result)
	return result, nil
}

// buildResult 将模型输出转为响应，先校验概率和再四舍五入
func buildResult(label int, probs []float64) (*Result, error) {
	if len(probs) != 2 {
		return nil, fmt.Errorf("expected 2 class probabilities, got %d", len(probs))
	}
	if label != 0 && label != 1 {
		return nil, fmt.Errorf("unexpected class %d", label)
	}
	probFail, probPass := probs[0], probs[1]
	if math.Abs(probFail+probPass-1) > sumTolerance {
		return nil, fmt.Errorf("class probabilities sum to %v", probFail+probPass)
	}

	// 失败概率取通过概率的补数，保证展示值之和仍为1
	pass := roundProbability(probPass)
	fail := roundProbability(1 - pass)

	result := &Result{
		Label:           label,
		ProbabilityPass: pass,
		ProbabilityFail: fail,
	}
	if label == 1 {
		result.Prediction = LabelPass
		result.Confidence = pass
	} else {
		result.Prediction = LabelFail
		result.Confidence = fail
	}
	return result, nil
}

func roundProbability(p float64) float64 {
	return math.Round(p*probabilityScale) / probabilityScale
}

func (p *Pipeline) unavailable() error {
	p.stats.unavailable.Add(1)
	metrics.PredictCount.WithLabelValues(metrics.OutcomeUnavailable).Inc()
	p.log.Warnw("prediction refused, model not loaded")
	return ErrModelUnavailable
}

func (p *Pipeline) rejected(err error) error {
	p.stats.rejected.Add(1)
	metrics.PredictCount.WithLabelValues(metrics.OutcomeRejected).Inc()
	var verr *ml.ValidationError
	if errors.As(err, &verr) {
		p.log.Infow("prediction request rejected", "fields", verr.Fields())
	}
	return err
}

func (p *Pipeline) failed(vectorLen int, err error) error {
	p.stats.failed.Add(1)
	metrics.PredictCount.WithLabelValues(metrics.OutcomeFailed).Inc()
	var inferenceErr *ml.InferenceError
	if !errors.As(err, &inferenceErr) {
		err = &ml.InferenceError{Got: vectorLen, Err: err}
	}
	p.log.Errorw("inference failed", "vector_len", vectorLen, "schema_len", ml.FeatureCount, "error", err)
	return err
}

func (p *Pipeline) succeeded(result Result) {
	p.stats.succeeded.Add(1)
	metrics.PredictCount.WithLabelValues(metrics.OutcomeSucceeded).Inc()
	metrics.PredictedLabelCount.WithLabelValues(result.Prediction).Inc()
	metrics.ConfidenceHistogram.Observe(result.Confidence)
	if result.Label == 1 {
		p.stats.pass.Add(1)
	} else {
		p.stats.fail.Add(1)
	}
	p.log.Infow("prediction succeeded", "prediction", result.Prediction, "confidence", result.Confidence)
}
