package tui

import (
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/plotting"
	"github.com/YuminosukeSato/stepml/preprocessing"
	"github.com/YuminosukeSato/stepml/workflow"
)

// File names of the rendered heatmaps inside the output directory.
const (
	CorrelationFile = "correlation.png"
	ConfusionFile   = "confusion_matrix.png"
)

// stepDoneMsg reports the end of a workflow step run as a command.
type stepDoneMsg struct {
	op       string
	err      error
	artifact string
}

func loadCmd(s *workflow.Session, path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return stepDoneMsg{op: "load", err: errors.NewInputError(path, "cannot open file", err)}
		}
		defer f.Close()
		return stepDoneMsg{op: "load", err: s.Load(f, filepath.Base(path))}
	}
}

// selectCmd selects the columns and, on success, inspects nulls right away:
// there is nothing for the operator to decide in between.
func selectCmd(s *workflow.Session, idColumn, target string) tea.Cmd {
	return func() tea.Msg {
		if err := s.SelectColumns(idColumn, target); err != nil {
			return stepDoneMsg{op: "select", err: err}
		}
		return stepDoneMsg{op: "select", err: s.InspectNulls()}
	}
}

func resolveCmd(s *workflow.Session, strategy preprocessing.NullStrategy) tea.Cmd {
	return func() tea.Msg {
		return stepDoneMsg{op: "resolve", err: s.ResolveNulls(strategy)}
	}
}

func encodeCmd(s *workflow.Session) tea.Cmd {
	return func() tea.Msg {
		return stepDoneMsg{op: "encode", err: s.Encode()}
	}
}

func exploreCmd(s *workflow.Session, outputDir string) tea.Cmd {
	return func() tea.Msg {
		if err := s.Explore(); err != nil {
			return stepDoneMsg{op: "explore", err: err}
		}
		p, err := plotting.CorrelationHeatmap(s.Context().Correlation())
		if err != nil {
			return stepDoneMsg{op: "explore", err: err}
		}
		path, err := plotting.SavePNG(outputDir, CorrelationFile, p)
		return stepDoneMsg{op: "explore", err: err, artifact: path}
	}
}

// trainCmd trains and evaluates in one go, then renders the confusion matrix.
func trainCmd(s *workflow.Session, testPercent int, outputDir string) tea.Cmd {
	return func() tea.Msg {
		if err := s.Train(testPercent); err != nil {
			return stepDoneMsg{op: "train", err: err}
		}
		if err := s.Evaluate(); err != nil {
			return stepDoneMsg{op: "train", err: err}
		}
		p, err := plotting.ConfusionHeatmap(s.Context().Confusion())
		if err != nil {
			return stepDoneMsg{op: "train", err: err}
		}
		path, err := plotting.SavePNG(outputDir, ConfusionFile, p)
		return stepDoneMsg{op: "train", err: err, artifact: path}
	}
}
