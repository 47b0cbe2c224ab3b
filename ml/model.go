package ml

import (
	"errors"
	"fmt"
)

var ErrModelNotLoaded = errors.New("model not loaded")

// Classifier is a pre-trained binary classifier. Implementations must be
// safe for concurrent use and must not keep state between calls.
type Classifier interface {
	Predict(features []float64) (int, []float64, error)
	InputDim() int
}

type ModelState int

const (
	ModelUnloaded ModelState = iota
	ModelLoaded
)

func (s ModelState) String() string {
	switch s {
	case ModelLoaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

// InferenceError is returned when a loaded classifier cannot produce a
// usable prediction. It never carries feature values.
type InferenceError struct {
	Got  int
	Want int
	Err  error
}

func (e *InferenceError) Error() string {
	if e.Want > 0 && e.Got != e.Want {
		return fmt.Sprintf("inference failed: vector length %d, model expects %d: %v", e.Got, e.Want, e.Err)
	}
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
