package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/liamcoop/iris/classifier"
	"github.com/liamcoop/iris/form"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func measurementArgs(sl, sw, pl, pw string) []string {
	return []string{
		"--sepal-length", sl,
		"--sepal-width", sw,
		"--petal-length", pl,
		"--petal-width", pw,
	}
}

func TestClassifyText(t *testing.T) {
	out, err := execute(t, measurementArgs("5.1", "3.5", "1.4", "0.2")...)
	require.NoError(t, err)

	assert.Contains(t, out, "Species:      Iris Setosa")
	assert.Contains(t, out, "Confidence:   95%")
	assert.Contains(t, out, "Category:     setosa")
	assert.Contains(t, out, "Petal Width:  0.2 cm")
	assert.NotContains(t, out, "Rules:")
}

func TestClassifyJSON(t *testing.T) {
	for _, engine := range []string{classifier.EngineNative, classifier.EngineCEL} {
		t.Run(engine, func(t *testing.T) {
			args := append(measurementArgs("6.3", "2.5", "5.0", "1.9"), "-o", "json", "--engine", engine)
			out, err := execute(t, args...)
			require.NoError(t, err)

			var got cliResult
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, classifier.Virginica, got.Species)
			assert.Equal(t, 90, got.Confidence)
			assert.Equal(t, classifier.CategoryVirginica, got.Category)
			assert.Equal(t, 5.0, got.Measurement.PetalLength)
		})
	}
}

func TestClassifyExplain(t *testing.T) {
	args := append(measurementArgs("6.4", "3.2", "4.5", "1.5"), "--explain")
	out, err := execute(t, args...)
	require.NoError(t, err)

	assert.Contains(t, out, "Iris Versicolor")
	assert.Contains(t, out, "Confidence:   82%")
	assert.Contains(t, out, "Rules:")
	assert.Contains(t, out, "* versicolor ")
	assert.NotContains(t, out, "virginica ")
}

func TestClassifyValidation(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		target error
		notice string
	}{
		{"missing flag", []string{"--sepal-width", "3.0", "--petal-length", "1.0", "--petal-width", "0.2"}, form.ErrMissing, "Please fill in all measurements"},
		{"not a number", measurementArgs("abc", "3.0", "1.0", "0.2"), form.ErrInvalid, "Please enter valid numbers"},
		{"zero", measurementArgs("0", "3.0", "1.0", "0.2"), form.ErrNonPositive, "Please enter positive values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.ErrorIs(t, err, tt.target)
			assert.Contains(t, err.Error(), tt.notice)
		})
	}
}

func TestClassifyBadOptions(t *testing.T) {
	_, err := execute(t, append(measurementArgs("5.1", "3.5", "1.4", "0.2"), "-o", "yaml")...)
	assert.Error(t, err)

	_, err = execute(t, append(measurementArgs("5.1", "3.5", "1.4", "0.2"), "--engine", "svm")...)
	assert.Error(t, err)

	_, err = execute(t, "extra-arg")
	assert.Error(t, err)
}

// TestClassifyExplainChecksEngine verifies --explain does not bypass engine validation
func TestClassifyExplainChecksEngine(t *testing.T) {
	args := append(measurementArgs("5.1", "3.5", "1.4", "0.2"), "--engine", "bogus", "--explain")
	_, err := execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")

	for _, engine := range []string{classifier.EngineNative, classifier.EngineCEL} {
		args := append(measurementArgs("5.1", "3.5", "1.4", "0.2"), "--engine", engine, "--explain")
		out, err := execute(t, args...)
		require.NoError(t, err, engine)
		assert.Contains(t, out, "* setosa ")
	}
}
