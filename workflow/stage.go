// Package workflow implements the guided, forward-only classification
// workflow: upload, column selection, null handling, encoding, exploration,
// training and evaluation.
package workflow

import (
	"strings"

	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// Stage is a position in the workflow. Stages only move forward; the one
// way back is a new upload.
type Stage int

const (
	StageEmpty Stage = iota
	StageDataLoaded
	StageTargetSelected
	StageNullsInspected
	StageNullsResolved
	StagePreprocessed
	StageExplored
	StageTrained
	StageEvaluated
	// StageHalted is terminal: only a new upload is accepted.
	StageHalted
)

var stageNames = [...]string{
	StageEmpty:          "Empty",
	StageDataLoaded:     "DataLoaded",
	StageTargetSelected: "TargetSelected",
	StageNullsInspected: "NullsInspected",
	StageNullsResolved:  "NullsResolved",
	StagePreprocessed:   "Preprocessed",
	StageExplored:       "Explored",
	StageTrained:        "Trained",
	StageEvaluated:      "Evaluated",
	StageHalted:         "Halted",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}

// MarshalText renders the stage name in JSON responses.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = Stage(i)
			return nil
		}
	}
	return errors.NewValidationError("stage", "unknown stage", string(text))
}

func stageList(stages []Stage) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.String()
	}
	return strings.Join(names, " or ")
}

// Flags are the five progress markers the front ends gate their screens on.
type Flags struct {
	DataLoaded   bool `json:"data_loaded"`
	TargetSet    bool `json:"target_set"`
	NullsHandled bool `json:"nulls_handled"`
	Preprocessed bool `json:"preprocessed"`
	ModelTrained bool `json:"model_trained"`
}
