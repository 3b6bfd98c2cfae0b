package server

import (
	"math"

	"github.com/YuminosukeSato/stepml/dataset"
	"github.com/YuminosukeSato/stepml/metrics"
	"github.com/YuminosukeSato/stepml/workflow"
)

type StateResponse struct {
	Stage workflow.Stage `json:"stage"`
	Flags workflow.Flags `json:"flags"`
	Error string         `json:"error,omitempty"`
}

func newStateResponse(c *workflow.Context) StateResponse {
	r := StateResponse{Stage: c.Stage(), Flags: c.Flags()}
	if err := c.Err(); err != nil {
		r.Error = err.Error()
	}
	return r
}

type Column struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Nulls int    `json:"nulls"`
}

type DatasetResponse struct {
	StateResponse
	Source  string     `json:"source"`
	Rows    int        `json:"rows"`
	Columns []Column   `json:"columns"`
	Head    [][]string `json:"head"`
}

func newDatasetResponse(c *workflow.Context) DatasetResponse {
	d := c.Dataset()
	r := DatasetResponse{
		StateResponse: newStateResponse(c),
		Source:        c.Source(),
		Rows:          d.NRows(),
		Head:          d.Head(previewRows),
	}
	for _, info := range d.Summary() {
		r.Columns = append(r.Columns, columnOf(info))
	}
	return r
}

func columnOf(info dataset.ColumnInfo) Column {
	return Column{Name: info.Name, Kind: info.Kind.String(), Nulls: info.Nulls}
}

type ColumnsRequest struct {
	IDColumn string `json:"id_column"`
	Target   string `json:"target"`
}

type NullsResponse struct {
	StateResponse
	TotalColumns     int            `json:"total_columns"`
	ColumnsWithNulls int            `json:"columns_with_nulls"`
	PerColumn        map[string]int `json:"per_column"`
	// Remaining is set once nulls have been resolved.
	Remaining *NullCounts `json:"remaining,omitempty"`
	Strategy  string      `json:"strategy,omitempty"`
	Rows      int         `json:"rows"`
	Warnings  []string    `json:"warnings,omitempty"`
}

type NullCounts struct {
	ColumnsWithNulls int            `json:"columns_with_nulls"`
	PerColumn        map[string]int `json:"per_column"`
}

func newNullsResponse(c *workflow.Context) NullsResponse {
	report, _ := c.NullReport()
	r := NullsResponse{
		StateResponse:    newStateResponse(c),
		TotalColumns:     report.TotalColumns,
		ColumnsWithNulls: report.ColumnsWithNulls,
		PerColumn:        report.PerColumn,
		Strategy:         string(c.Strategy()),
		Rows:             c.Dataset().NRows(),
	}
	if remaining, ok := c.RemainingNulls(); ok {
		r.Remaining = &NullCounts{ColumnsWithNulls: remaining.ColumnsWithNulls, PerColumn: remaining.PerColumn}
	}
	for _, w := range c.Warnings() {
		r.Warnings = append(r.Warnings, w.Error())
	}
	return r
}

type NullsRequest struct {
	Strategy string `json:"strategy"`
}

type FeaturesResponse struct {
	StateResponse
	XShape       [2]int   `json:"x_shape"`
	YShape       [1]int   `json:"y_shape"`
	FeatureNames []string `json:"feature_names"`
	Target       string   `json:"target"`
}

func newFeaturesResponse(c *workflow.Context) FeaturesResponse {
	f := c.Features()
	n, p := f.Shape()
	return FeaturesResponse{
		StateResponse: newStateResponse(c),
		XShape:        [2]int{n, p},
		YShape:        [1]int{f.Y.Len()},
		FeatureNames:  f.FeatureNames,
		Target:        f.Target,
	}
}

type CorrelationResponse struct {
	StateResponse
	Names []string `json:"names"`
	// Matrix holds null where a coefficient is undefined (constant feature).
	Matrix [][]*float64 `json:"matrix"`
}

func newCorrelationResponse(c *workflow.Context) CorrelationResponse {
	corr := c.Correlation()
	r := CorrelationResponse{StateResponse: newStateResponse(c), Names: corr.Names}
	for _, row := range corr.Rows() {
		out := make([]*float64, len(row))
		for j, v := range row {
			if !math.IsNaN(v) {
				out[j] = &v
			}
		}
		r.Matrix = append(r.Matrix, out)
	}
	return r
}

type TrainRequest struct {
	TestPercent int `json:"test_percent"`
}

type MetricsResponse struct {
	StateResponse
	TestPercent     int       `json:"test_percent"`
	TrainRows       int       `json:"train_rows"`
	TestRows        int       `json:"test_rows"`
	Accuracy        float64   `json:"accuracy"`
	AccuracyPercent string    `json:"accuracy_percent"`
	Labels          []float64 `json:"labels"`
	Confusion       [][]int   `json:"confusion_matrix"`
}

func newMetricsResponse(c *workflow.Context) MetricsResponse {
	s := c.Split()
	trainRows, _ := s.XTrain.Dims()
	testRows, _ := s.XTest.Dims()
	cm := c.Confusion()
	return MetricsResponse{
		StateResponse:   newStateResponse(c),
		TestPercent:     c.TestPercent(),
		TrainRows:       trainRows,
		TestRows:        testRows,
		Accuracy:        c.Accuracy(),
		AccuracyPercent: metrics.FormatPercent(c.Accuracy()),
		Labels:          cm.Labels,
		Confusion:       cm.Rows(),
	}
}
