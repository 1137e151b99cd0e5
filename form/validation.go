package form

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/liamcoop/iris/classifier"
)

// Field names, as used in HTML forms and CLI flags
const (
	FieldSepalLength = "sepal_length"
	FieldSepalWidth  = "sepal_width"
	FieldPetalLength = "petal_length"
	FieldPetalWidth  = "petal_width"
)

// Fields lists the measurement fields in display order
var Fields = []string{FieldSepalLength, FieldSepalWidth, FieldPetalLength, FieldPetalWidth}

var (
	ErrMissing      = errors.New("measurement missing")
	ErrInvalid      = errors.New("measurement is not a number")
	ErrNonPositive  = errors.New("measurement must be positive")
	ErrBusy         = errors.New("prediction already in progress")
	ErrUnknownField = errors.New("unknown field")
)

// Notice returns the user-facing message for a validation error.
// It returns an empty string for errors that are not user-facing.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissing):
		return "Please fill in all measurements"
	case errors.Is(err, ErrInvalid):
		return "Please enter valid numbers"
	case errors.Is(err, ErrNonPositive):
		return "Please enter positive values"
	case errors.Is(err, ErrBusy):
		return "A prediction is already in progress"
	default:
		return ""
	}
}

// IsValidation reports whether err rejects the user's input
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissing) || errors.Is(err, ErrInvalid) || errors.Is(err, ErrNonPositive)
}

// RawMeasurement holds the four measurements as entered, before parsing
type RawMeasurement struct {
	SepalLength string `json:"sepalLength"`
	SepalWidth  string `json:"sepalWidth"`
	PetalLength string `json:"petalLength"`
	PetalWidth  string `json:"petalWidth"`
}

// Get returns the raw value of a field
func (r RawMeasurement) Get(field string) (string, error) {
	switch field {
	case FieldSepalLength:
		return r.SepalLength, nil
	case FieldSepalWidth:
		return r.SepalWidth, nil
	case FieldPetalLength:
		return r.PetalLength, nil
	case FieldPetalWidth:
		return r.PetalWidth, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

func (r *RawMeasurement) set(field, value string) error {
	switch field {
	case FieldSepalLength:
		r.SepalLength = value
	case FieldSepalWidth:
		r.SepalWidth = value
	case FieldPetalLength:
		r.PetalLength = value
	case FieldPetalWidth:
		r.PetalWidth = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func (r RawMeasurement) values() [4]string {
	return [4]string{r.SepalLength, r.SepalWidth, r.PetalLength, r.PetalWidth}
}

// Parse validates raw input and converts it to a Measurement.
// All fields are checked for presence first, then for being numbers,
// then for positivity, so the reported error is the first failing class.
func Parse(raw RawMeasurement) (classifier.Measurement, error) {
	values := raw.values()

	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			return classifier.Measurement{}, fmt.Errorf("%w: %s", ErrMissing, Fields[i])
		}
	}

	var parsed [4]float64
	for i, v := range values {
		f, err := parseNumber(v)
		if err != nil {
			return classifier.Measurement{}, fmt.Errorf("%w: %s %q", ErrInvalid, Fields[i], v)
		}
		parsed[i] = f
	}

	for i, f := range parsed {
		if f <= 0 {
			return classifier.Measurement{}, fmt.Errorf("%w: %s is %v", ErrNonPositive, Fields[i], f)
		}
	}

	return classifier.Measurement{
		SepalLength: parsed[0],
		SepalWidth:  parsed[1],
		PetalLength: parsed[2],
		PetalWidth:  parsed[3],
	}, nil
}

// parseNumber accepts finite decimal numbers only
func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return f, nil
}
