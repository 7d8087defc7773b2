package models

import "time"

// Point is one (date, value) observation in an analysis series. Value is a
// pointer so transformers can emit nil for dates where a metric is not
// computable (e.g. a rolling window that has not filled yet).
type Point struct {
	Date  time.Time `json:"date"`
	Value *float64  `json:"value"`
}

// Series is an ordered sequence of points for one named metric.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// AnalysisResult is the output of one transformer run. It is owned by the
// chart-building step that consumes it and discarded after render.
//
// Insufficient marks results where the requested window exceeds the
// available history. The series still carry whatever could be computed;
// consumers decide whether to render a placeholder.
type AnalysisResult struct {
	Kind         string   `json:"kind"`
	ContractCode string   `json:"contract_code"`
	Series       []Series `json:"series"`
	Insufficient bool     `json:"insufficient,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// Float returns a pointer to v. Convenience for building points.
func Float(v float64) *float64 { return &v }
