package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

const LogisticRegressionType = "logistic_regression"

// LogisticRegression is inference-only; weights come from an exported artifact.
type LogisticRegression struct {
	featureNames []string
	coefficients []float64
	intercept    float64
	classes      [2]int
}

type logisticArtifact struct {
	ModelType    string    `json:"model_type"`
	FeatureNames []string  `json:"feature_names,omitempty"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Classes      []int     `json:"classes,omitempty"`
}

func NewLogisticRegression(featureNames []string, coefficients []float64, intercept float64) (*LogisticRegression, error) {
	lr := &LogisticRegression{}
	if err := lr.setArtifact(logisticArtifact{
		ModelType:    LogisticRegressionType,
		FeatureNames: featureNames,
		Coefficients: coefficients,
		Intercept:    intercept,
	}); err != nil {
		return nil, err
	}
	return lr, nil
}

func (lr *LogisticRegression) setArtifact(a logisticArtifact) error {
	if a.ModelType != "" && a.ModelType != LogisticRegressionType {
		return fmt.Errorf("artifact model type %q is not %s", a.ModelType, LogisticRegressionType)
	}
	if len(a.Coefficients) == 0 {
		return errors.New("artifact has no coefficients")
	}
	if len(a.FeatureNames) != 0 && len(a.FeatureNames) != len(a.Coefficients) {
		return fmt.Errorf("artifact has %d feature names but %d coefficients", len(a.FeatureNames), len(a.Coefficients))
	}
	for i, c := range a.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if math.IsNaN(a.Intercept) || math.IsInf(a.Intercept, 0) {
		return errors.New("intercept is not finite")
	}

	classes := [2]int{0, 1}
	if len(a.Classes) != 0 {
		if len(a.Classes) != 2 || a.Classes[0] == a.Classes[1] {
			return fmt.Errorf("artifact must declare two distinct classes, got %v", a.Classes)
		}
		for _, c := range a.Classes {
			if c != 0 && c != 1 {
				return fmt.Errorf("unsupported class label %d", c)
			}
		}
		classes = [2]int{a.Classes[0], a.Classes[1]}
	}

	lr.featureNames = append([]string(nil), a.FeatureNames...)
	lr.coefficients = append([]float64(nil), a.Coefficients...)
	lr.intercept = a.Intercept
	lr.classes = classes
	return nil
}

func (lr *LogisticRegression) InputDim() int {
	return len(lr.coefficients)
}

func (lr *LogisticRegression) FeatureNames() []string {
	return append([]string(nil), lr.featureNames...)
}

// Predict returns the predicted class and the probabilities ordered by class
// label, [P(0), P(1)].
func (lr *LogisticRegression) Predict(features []float64) (int, []float64, error) {
	if len(lr.coefficients) == 0 {
		return 0, nil, errors.New("model not trained")
	}
	if len(features) != len(lr.coefficients) {
		return 0, nil, &InferenceError{Got: len(features), Want: len(lr.coefficients), Err: errors.New("dimension mismatch")}
	}

	z := lr.intercept
	for i, x := range features {
		z += lr.coefficients[i] * x
	}
	positive := sigmoid(z)
	if math.IsNaN(positive) {
		return 0, nil, &InferenceError{Err: errors.New("decision function is not finite")}
	}

	// Column order follows classes; re-key by label.
	probs := make([]float64, 2)
	probs[lr.classes[1]] = positive
	probs[lr.classes[0]] = 1 - positive

	label := lr.classes[0]
	if positive > 0.5 {
		label = lr.classes[1]
	}
	return label, probs, nil
}

func (lr *LogisticRegression) Save(path string) error {
	if len(lr.coefficients) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.MarshalIndent(logisticArtifact{
		ModelType:    LogisticRegressionType,
		FeatureNames: lr.featureNames,
		Coefficients: lr.coefficients,
		Intercept:    lr.intercept,
		Classes:      lr.classes[:],
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (lr *LogisticRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact logisticArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return lr.setArtifact(artifact)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
