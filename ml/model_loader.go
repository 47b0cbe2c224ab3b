package ml

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"studentperf/metrics"
)

// columnAliases maps dataset column names used by exported artifacts to
// request field names.
var columnAliases = map[string]string{
	"Medu":     "mother_education",
	"Fedu":     "father_education",
	"famrel":   "family_relations",
	"freetime": "free_time",
	"goout":    "going_out",
	"Dalc":     "weekday_alcohol",
	"Walc":     "weekend_alcohol",
}

func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case "", LogisticRegressionType:
		model := &LogisticRegression{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		if err := checkFeatureOrder(model.InputDim(), model.FeatureNames()); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

func checkFeatureOrder(dim int, names []string) error {
	if dim != FeatureCount {
		return fmt.Errorf("model expects %d features, schema provides %d", dim, FeatureCount)
	}
	if len(names) == 0 {
		return nil
	}
	expected := FeatureNames()
	for i, name := range names {
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if name != expected[i] {
			return fmt.Errorf("feature %d is %q in the model but %q in the schema", i, names[i], expected[i])
		}
	}
	return nil
}

type AdapterConfig struct {
	ModelType string
	ModelPath string
}

// Adapter owns the classifier. Its state is decided once in NewAdapter and
// never changes afterwards, so Predict needs no locking.
type Adapter struct {
	classifier Classifier
}

// NewAdapter loads the configured artifact. A failed load is logged and
// leaves the adapter unloaded.
func NewAdapter(cfg AdapterConfig, log *zap.SugaredLogger) *Adapter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.ModelPath == "" {
		log.Errorw("model path not configured, serving in degraded mode")
		return NewAdapterWithClassifier(nil)
	}

	model, err := LoadModel(cfg.ModelType, cfg.ModelPath)
	if err != nil {
		log.Errorw("failed to load model, serving in degraded mode", "path", cfg.ModelPath, "type", cfg.ModelType, "error", err)
		return NewAdapterWithClassifier(nil)
	}
	log.Infow("model loaded", "path", cfg.ModelPath, "type", cfg.ModelType, "features", model.InputDim())
	return NewAdapterWithClassifier(model)
}

// NewAdapterWithClassifier wraps an in-memory classifier; nil yields an
// unloaded adapter.
func NewAdapterWithClassifier(classifier Classifier) *Adapter {
	a := &Adapter{classifier: classifier}
	if a.Loaded() {
		metrics.ModelLoaded.Set(1)
	} else {
		metrics.ModelLoaded.Set(0)
	}
	return a
}

func (a *Adapter) State() ModelState {
	if a == nil || a.classifier == nil {
		return ModelUnloaded
	}
	return ModelLoaded
}

func (a *Adapter) Loaded() bool {
	return a.State() == ModelLoaded
}

func (a *Adapter) Predict(features []float64) (label int, probs []float64, err error) {
	if !a.Loaded() {
		return 0, nil, ErrModelNotLoaded
	}
	want := a.classifier.InputDim()
	if len(features) != want {
		return 0, nil, &InferenceError{Got: len(features), Want: want, Err: errors.New("dimension mismatch")}
	}

	defer func() {
		if r := recover(); r != nil {
			label, probs = 0, nil
			err = &InferenceError{Got: len(features), Want: want, Err: fmt.Errorf("classifier panic: %v", r)}
		}
	}()

	label, probs, err = a.classifier.Predict(features)
	if err != nil {
		var inferenceErr *InferenceError
		if errors.As(err, &inferenceErr) {
			return 0, nil, err
		}
		return 0, nil, &InferenceError{Got: len(features), Want: want, Err: err}
	}
	if label != 0 && label != 1 {
		return 0, nil, &InferenceError{Got: len(features), Want: want, Err: fmt.Errorf("unexpected class %d", label)}
	}
	if len(probs) != 2 {
		return 0, nil, &InferenceError{Got: len(features), Want: want, Err: fmt.Errorf("expected 2 class probabilities, got %d", len(probs))}
	}
	for _, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return 0, nil, &InferenceError{Got: len(features), Want: want, Err: fmt.Errorf("probability %v out of range", p)}
		}
	}
	return label, probs, nil
}
