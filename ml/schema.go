package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// FeatureVector is a fully validated set of student attributes.
type FeatureVector struct {
	Sex             int `json:"sex"`
	Age             int `json:"age"`
	MotherEducation int `json:"mother_education"`
	FatherEducation int `json:"father_education"`
	FamilyRelations int `json:"family_relations"`
	FreeTime        int `json:"free_time"`
	GoingOut        int `json:"going_out"`
	WeekdayAlcohol  int `json:"weekday_alcohol"`
	WeekendAlcohol  int `json:"weekend_alcohol"`
	Health          int `json:"health"`
	Absences        int `json:"absences"`
}

// FieldSpec describes one input field. Max is ignored when Bounded is false.
type FieldSpec struct {
	Name    string
	Min     int64
	Max     int64
	Bounded bool

	field func(*FeatureVector) *int
}

// featureSchema is the order the classifier consumes features in.
var featureSchema = []FieldSpec{
	{Name: "sex", Min: 0, Max: 1, Bounded: true, field: func(v *FeatureVector) *int { return &v.Sex }},
	{Name: "age", Min: 15, Max: 22, Bounded: true, field: func(v *FeatureVector) *int { return &v.Age }},
	{Name: "mother_education", Min: 0, Max: 4, Bounded: true, field: func(v *FeatureVector) *int { return &v.MotherEducation }},
	{Name: "father_education", Min: 0, Max: 4, Bounded: true, field: func(v *FeatureVector) *int { return &v.FatherEducation }},
	{Name: "family_relations", Min: 1, Max: 5, Bounded: true, field: func(v *FeatureVector) *int { return &v.FamilyRelations }},
	{Name: "free_time", Min: 1, Max: 5, Bounded: true, field: func(v *FeatureVector) *int { return &v.FreeTime }},
	{Name: "going_out", Min: 1, Max: 5, Bounded: true, field: func(v *FeatureVector) *int { return &v.GoingOut }},
	{Name: "weekday_alcohol", Min: 1, Max: 5, Bounded: true, field: func(v *FeatureVector) *int { return &v.WeekdayAlcohol }},
	{Name: "weekend_alcohol", Min: 1, Max: 5, Bounded: true, field: func(v *FeatureVector) *int { return &v.WeekendAlcohol }},
	{Name: "health", Min: 1, Max: 5, Bounded: true, field: func(v *FeatureVector) *int { return &v.Health }},
	{Name: "absences", Min: 0, field: func(v *FeatureVector) *int { return &v.Absences }},
}

// FeatureCount is the input dimensionality every classifier must accept.
var FeatureCount = len(featureSchema)

func FeatureSchema() []FieldSpec {
	return append([]FieldSpec(nil), featureSchema...)
}

func FeatureNames() []string {
	names := make([]string, len(featureSchema))
	for i, spec := range featureSchema {
		names[i] = spec.Name
	}
	return names
}

// Values returns the vector in FeatureNames order.
func (v FeatureVector) Values() []float64 {
	values := make([]float64, len(featureSchema))
	for i, spec := range featureSchema {
		values[i] = float64(*spec.field(&v))
	}
	return values
}

// Validate runs the range check on an already typed vector.
func (v FeatureVector) Validate() error {
	var errs error
	for _, spec := range featureSchema {
		errs = multierr.Append(errs, spec.check(int64(*spec.field(&v))))
	}
	return newValidationError(errs)
}

func (s FieldSpec) check(value int64) error {
	if value < s.Min {
		return &FieldError{Field: s.Name, Message: fmt.Sprintf("must be >= %d, got %d", s.Min, value)}
	}
	if s.Bounded && value > s.Max {
		return &FieldError{Field: s.Name, Message: fmt.Sprintf("must be <= %d, got %d", s.Max, value)}
	}
	return nil
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError reports every violation found in a request.
type ValidationError struct {
	Errors []*FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "invalid input data: " + strings.Join(msgs, "; ")
}

// Fields returns the names of the offending fields in report order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		fields[i] = fe.Field
	}
	return fields
}

func newValidationError(errs error) error {
	if errs == nil {
		return nil
	}
	verr := &ValidationError{}
	for _, err := range multierr.Errors(errs) {
		if fe, ok := err.(*FieldError); ok {
			verr.Errors = append(verr.Errors, fe)
		}
	}
	return verr
}

// ValidateFeatures decodes a JSON object body and validates it.
func ValidateFeatures(raw []byte) (FeatureVector, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return FeatureVector{}, &ValidationError{Errors: []*FieldError{{Field: "body", Message: "must be a JSON object"}}}
	}
	return ValidateFields(fields)
}

// ValidateFields validates all fields and either returns a complete vector or
// a ValidationError naming every violation.
func ValidateFields(fields map[string]json.RawMessage) (FeatureVector, error) {
	var (
		vector FeatureVector
		errs   error
	)
	for _, spec := range featureSchema {
		raw, ok := fields[spec.Name]
		if !ok {
			errs = multierr.Append(errs, &FieldError{Field: spec.Name, Message: "field required"})
			continue
		}
		value, err := coerceInt(raw)
		if err != nil {
			errs = multierr.Append(errs, &FieldError{Field: spec.Name, Message: err.Error()})
			continue
		}
		if err := spec.check(value); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		*spec.field(&vector) = int(value)
	}

	known := make(map[string]struct{}, len(featureSchema))
	for _, spec := range featureSchema {
		known[spec.Name] = struct{}{}
	}
	unknown := make([]string, 0)
	for name := range fields {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs = multierr.Append(errs, &FieldError{Field: name, Message: "unexpected field"})
	}

	if err := newValidationError(errs); err != nil {
		return FeatureVector{}, err
	}
	return vector, nil
}

// maxExactInt is the largest integer a float64 holds without loss.
const maxExactInt = 1 << 53

func coerceInt(raw json.RawMessage) (int64, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return 0, fmt.Errorf("must be a numeric value")
	}

	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("value cannot be null")
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a numeric value")
		}
		if math.Trunc(f) != f || math.Abs(f) > maxExactInt {
			return 0, fmt.Errorf("must be an integer, got %s", v.String())
		}
		return int64(f), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("must be a numeric value")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("must be a numeric value")
	}
}
