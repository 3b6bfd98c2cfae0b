// Package stepml is a guided, stepwise classification workflow for tabular
// data, usable as a Go library, a terminal wizard or a JSON HTTP API.
//
// A CSV file moves through a fixed sequence of stages: pick an ID column and
// a numeric target, inspect and resolve missing values, one-hot encode
// categorical columns, optionally explore feature correlations, then split,
// train a logistic regression model and evaluate it on the held-out rows.
// Stages only move forward; uploading a file again is the one way back.
//
// # Quick Start
//
// Drive the workflow directly through immutable contexts:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "os"
//
//	    "github.com/YuminosukeSato/stepml/metrics"
//	    "github.com/YuminosukeSato/stepml/workflow"
//	)
//
//	func main() {
//	    f, err := os.Open("customers.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer f.Close()
//
//	    c, err := workflow.New(workflow.DefaultOptions()).Load(f, "customers.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if c, err = c.SelectColumns("id", "churned"); err != nil {
//	        log.Fatal(err)
//	    }
//	    // InspectNulls, ResolveNulls, Encode, Train(30), Evaluate ...
//	    fmt.Println(metrics.FormatPercent(c.Accuracy()))
//	}
//
// Or run the front ends:
//
//	stepml tui customers.csv
//	stepml serve --addr :8080
//
// # Packages
//
//   - dataset: CSV loading with per-column type inference
//   - preprocessing: null handling, one-hot encoding, feature scaling
//   - stats: correlation matrix
//   - model_selection: train/test split
//   - linear_model: logistic regression and the scaler pipeline
//   - metrics: accuracy and confusion matrix
//   - plotting: correlation and confusion heatmaps
//   - workflow: the stage machine and sessions
//   - config, tui, server: configuration and front ends
//   - core/model: estimator interfaces and fitted-state tracking
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # License
//
// stepml is released under the MIT License.
package stepml
