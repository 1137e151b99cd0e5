package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/liamcoop/iris/classifier"
	"github.com/liamcoop/iris/form"
	"github.com/liamcoop/iris/internal/logger"
)

// API Request and Response Models

// MeasurementValue accepts a JSON string or number and keeps its text,
// so the API validates input exactly like the HTML form does
type MeasurementValue string

// UnmarshalJSON implements json.Unmarshaler
func (v *MeasurementValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = MeasurementValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("measurement must be a string or a number: %w", err)
	}
	*v = MeasurementValue(n.String())
	return nil
}

// ClassifyRequest represents the request body for classifying a flower
type ClassifyRequest struct {
	SepalLength MeasurementValue `json:"sepalLength" example:"5.1"`
	SepalWidth  MeasurementValue `json:"sepalWidth" example:"3.5"`
	PetalLength MeasurementValue `json:"petalLength" example:"1.4"`
	PetalWidth  MeasurementValue `json:"petalWidth" example:"0.2"`
} // @name ClassifyRequest

func (r ClassifyRequest) raw() form.RawMeasurement {
	return form.RawMeasurement{
		SepalLength: string(r.SepalLength),
		SepalWidth:  string(r.SepalWidth),
		PetalLength: string(r.PetalLength),
		PetalWidth:  string(r.PetalWidth),
	}
}

// ClassifyResponse represents one classification result
type ClassifyResponse struct {
	ID          string                  `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Species     classifier.Species      `json:"species" example:"Iris Setosa"`
	Confidence  int                     `json:"confidence" example:"95"`
	Category    classifier.Category     `json:"category" example:"setosa"`
	Branch      string                  `json:"branch" example:"setosa"`
	Measurement classifier.Measurement  `json:"measurement"`
	Trace       []classifier.Evaluation `json:"trace,omitempty"`
} // @name ClassifyResponse

func newClassifyResponse(id string, res classifier.Result, m classifier.Measurement, trace []classifier.Evaluation) ClassifyResponse {
	return ClassifyResponse{
		ID:          id,
		Species:     res.Species,
		Confidence:  res.Confidence,
		Category:    res.Category,
		Branch:      res.Branch,
		Measurement: m,
		Trace:       trace,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"Please enter positive values"`
	Details string `json:"details,omitempty" example:"measurement must be positive: petal_width is 0"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string          `json:"status" example:"healthy"`
	Engine   string          `json:"engine" example:"native"`
	Sessions int             `json:"sessions" example:"3"`
	Counters logger.Counters `json:"counters"`
} // @name HealthResponse

// RulesResponse lists the decision rules in evaluation order
type RulesResponse struct {
	Engine string            `json:"engine" example:"cel"`
	Rules  []classifier.Rule `json:"rules"`
} // @name RulesResponse
