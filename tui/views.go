package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/YuminosukeSato/stepml/metrics"
	"github.com/YuminosukeSato/stepml/workflow"
)

const previewRows = 5

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	c := m.session.Context()
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("stepml"))
	b.WriteString("\n")
	b.WriteString(m.theme.Subtitle.Render(m.progressLine(c)))
	b.WriteString("\n")

	switch m.screen() {
	case screenLoading:
		b.WriteString(m.loadingView())
	case screenColumns:
		b.WriteString(m.columnsView(c))
	case screenNullStrategy:
		b.WriteString(m.nullsView(c))
	case screenEncode:
		b.WriteString(m.encodeView(c))
	case screenTrain:
		b.WriteString(m.trainView(c))
	case screenResults:
		b.WriteString(m.resultsView(c))
	case screenHalted:
		b.WriteString(m.haltedView(c))
	}

	if m.busy && m.screen() != screenLoading {
		b.WriteString("\n" + m.spinner.View() + " working...")
	}
	if m.lastError != nil && m.screen() != screenHalted {
		b.WriteString("\n" + m.theme.Error.Render("Error: "+m.lastError.Error()))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render(m.help.ShortHelpView(m.keymap.help(m.screen()))))
	return b.String()
}

func (m Model) progressLine(c *workflow.Context) string {
	f := c.Flags()
	mark := func(done bool, label string) string {
		if done {
			return m.theme.Success.Render("✓ " + label)
		}
		return m.theme.Muted.Render("· " + label)
	}
	return strings.Join([]string{
		mark(f.DataLoaded, "data"),
		mark(f.TargetSet, "target"),
		mark(f.NullsHandled, "nulls"),
		mark(f.Preprocessed, "encoded"),
		mark(f.ModelTrained, "model"),
	}, "  ")
}

func (m Model) loadingView() string {
	if m.busy {
		return m.spinner.View() + " Loading " + m.config.Path
	}
	return m.theme.Warning.Render("No dataset loaded.") + " Press ctrl+r to retry."
}

func (m Model) columnsView(c *workflow.Context) string {
	d := c.Dataset()
	rows, cols := d.Shape()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d rows, %d columns\n\n", m.theme.Bold.Render(c.Source()), rows, cols)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#404040"))).
		Headers(d.Names()...).
		Rows(d.Head(previewRows)...)
	b.WriteString(t.String())
	b.WriteString("\n\n")

	for _, info := range d.Summary() {
		fmt.Fprintf(&b, "  %-20s %-12s %s\n", info.Name, info.Kind, m.theme.Muted.Render(fmt.Sprintf("%d missing", info.Nulls)))
	}
	b.WriteString("\n")
	b.WriteString(m.idInput.View() + "\n")
	b.WriteString(m.targetInput.View() + "\n")
	return b.String()
}

func (m Model) nullReport(c *workflow.Context) string {
	r, _ := c.NullReport()
	var b strings.Builder
	fmt.Fprintf(&b, "Columns: %d, with missing values: %d\n", r.TotalColumns, r.ColumnsWithNulls)

	names := make([]string, 0, len(r.PerColumn))
	for name, n := range r.PerColumn {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %-20s %d\n", name, r.PerColumn[name])
	}
	return b.String()
}

func (m Model) nullsView(c *workflow.Context) string {
	var b strings.Builder
	b.WriteString(m.nullReport(c))
	b.WriteString("\nHow should missing values be handled?\n")
	labels := map[string]string{
		"drop": "Drop rows with missing values",
		"mean": "Fill numeric columns with the column mean",
	}
	for i, s := range strategies {
		line := "  " + labels[string(s)]
		if i == m.strategy {
			line = m.theme.Selected.Render("> " + labels[string(s)])
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) encodeView(c *workflow.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s", m.theme.Bold.Render(c.Target()))
	if id := c.IDColumn(); id != "" {
		fmt.Fprintf(&b, "   ID column: %s", id)
	}
	b.WriteString("\n\n")

	if c.Stage() == workflow.StageNullsResolved {
		remaining, _ := c.RemainingNulls()
		fmt.Fprintf(&b, "Applied %s: %d rows remain, %d columns still have missing values.\n",
			c.Strategy(), c.Dataset().NRows(), remaining.ColumnsWithNulls)
		for _, w := range c.Warnings() {
			b.WriteString(m.theme.Warning.Render("! "+w.Error()) + "\n")
		}
	} else {
		b.WriteString(m.nullReport(c))
		b.WriteString(m.theme.Success.Render("No missing values.") + "\n")
	}
	b.WriteString("\nPress enter to one-hot encode categorical columns.\n")
	return b.String()
}

func (m Model) trainView(c *workflow.Context) string {
	var b strings.Builder
	f := c.Features()
	n, p := f.Shape()
	fmt.Fprintf(&b, "X: (%d, %d)   y: (%d)\n", n, p, f.Y.Len())
	fmt.Fprintf(&b, "Features: %s\n\n", strings.Join(f.FeatureNames, ", "))

	if m.correlationPath != "" {
		fmt.Fprintf(&b, "Correlation heatmap: %s\n\n", m.theme.Success.Render(m.correlationPath))
	}

	const width = workflow.MaxTestPercent - workflow.MinTestPercent
	filled := m.testPercent - workflow.MinTestPercent
	bar := m.theme.Progress.Render(strings.Repeat("█", filled)) + m.theme.Muted.Render(strings.Repeat("░", width-filled))
	fmt.Fprintf(&b, "Test size: %d%%\n%d%% %s %d%%\n", m.testPercent, workflow.MinTestPercent, bar, workflow.MaxTestPercent)
	b.WriteString("\nPress enter to train the logistic regression model.\n")
	return b.String()
}

func (m Model) resultsView(c *workflow.Context) string {
	var b strings.Builder
	s := c.Split()
	trainRows, _ := s.XTrain.Dims()
	testRows, _ := s.XTest.Dims()
	fmt.Fprintf(&b, "Trained on %d rows, tested on %d rows (%d%%).\n\n", trainRows, testRows, c.TestPercent())
	fmt.Fprintf(&b, "Accuracy: %s\n\n", m.theme.Success.Render(metrics.FormatPercent(c.Accuracy())))
	b.WriteString(m.theme.Box.Render(strings.TrimRight(c.Confusion().String(), "\n")))
	b.WriteString("\n")
	if m.confusionPath != "" {
		fmt.Fprintf(&b, "Confusion matrix heatmap: %s\n", m.theme.Success.Render(m.confusionPath))
	}
	if m.correlationPath != "" {
		fmt.Fprintf(&b, "Correlation heatmap: %s\n", m.correlationPath)
	}
	return b.String()
}

func (m Model) haltedView(c *workflow.Context) string {
	msg := "The workflow cannot continue."
	if err := c.Err(); err != nil {
		msg = err.Error()
	}
	return m.theme.Error.Render(msg) + "\n\nPress ctrl+r to load the file again.\n"
}
