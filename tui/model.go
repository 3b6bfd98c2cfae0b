// Package tui is the terminal front end: a bubbletea wizard with one screen
// per workflow stage.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/YuminosukeSato/stepml/preprocessing"
	"github.com/YuminosukeSato/stepml/workflow"
)

// screen is what the operator is currently asked to do.
type screen int

const (
	screenLoading screen = iota
	screenColumns
	screenNullStrategy
	screenEncode
	screenTrain
	screenResults
	screenHalted
)

var strategies = []preprocessing.NullStrategy{preprocessing.StrategyDrop, preprocessing.StrategyMean}

// Config holds the TUI settings.
type Config struct {
	Theme Theme
	// Path is the CSV file loaded on start and on reload.
	Path        string
	OutputDir   string
	TestPercent int
	Width       int
	Height      int
}

// Model holds the TUI state. The workflow state itself lives in the session.
type Model struct {
	session         *workflow.Session
	config          Config
	theme           Theme
	keymap          KeyMap
	idInput         textinput.Model
	targetInput     textinput.Model
	spinner         spinner.Model
	help            help.Model
	lastError       error
	correlationPath string
	confusionPath   string
	focus           int
	strategy        int
	testPercent     int
	width           int
	height          int
	busy            bool
	quitting        bool
}

func newModel(s *workflow.Session, cfg Config) Model {
	id := textinput.New()
	id.Placeholder = "optional"
	id.Prompt = "ID column: "
	id.CharLimit = 128
	id.Focus()

	target := textinput.New()
	target.Placeholder = "required"
	target.Prompt = "Target:    "
	target.CharLimit = 128

	pct := cfg.TestPercent
	if pct == 0 {
		pct = workflow.DefaultTestPercent
	}

	return Model{
		session:     s,
		config:      cfg,
		theme:       cfg.Theme,
		keymap:      DefaultKeyMap(),
		idInput:     id,
		targetInput: target,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(cfg.Theme.Progress)),
		help:        help.New(),
		testPercent: pct,
		width:       cfg.Width,
		height:      cfg.Height,
		busy:        true,
	}
}

// Init loads the configured file.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, loadCmd(m.session, m.config.Path))
}

func (m Model) screen() screen {
	c := m.session.Context()
	switch c.Stage() {
	case workflow.StageEmpty:
		return screenLoading
	case workflow.StageDataLoaded:
		return screenColumns
	case workflow.StageNullsInspected:
		if r, _ := c.NullReport(); r.HasNulls() {
			return screenNullStrategy
		}
		return screenEncode
	case workflow.StageTargetSelected, workflow.StageNullsResolved:
		return screenEncode
	case workflow.StagePreprocessed, workflow.StageExplored, workflow.StageTrained:
		return screenTrain
	case workflow.StageEvaluated:
		return screenResults
	default:
		return screenHalted
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stepDoneMsg:
		m.busy = false
		m.lastError = msg.err
		switch msg.op {
		case "load":
			if msg.err == nil {
				m.correlationPath, m.confusionPath = "", ""
				m.resetInputs()
			}
		case "explore":
			if msg.artifact != "" {
				m.correlationPath = msg.artifact
			}
		case "train":
			if msg.artifact != "" {
				m.confusionPath = msg.artifact
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) resetInputs() {
	m.idInput.Reset()
	m.targetInput.Reset()
	m.focus = 0
	m.idInput.Focus()
	m.targetInput.Blur()
	m.strategy = 0
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}
	if key.Matches(msg, m.keymap.Reload) {
		return m.run(loadCmd(m.session, m.config.Path))
	}

	switch m.screen() {
	case screenColumns:
		return m.handleColumnsKey(msg)

	case screenNullStrategy:
		switch {
		case key.Matches(msg, m.keymap.Up):
			m.strategy = (m.strategy + len(strategies) - 1) % len(strategies)
		case key.Matches(msg, m.keymap.Down):
			m.strategy = (m.strategy + 1) % len(strategies)
		case key.Matches(msg, m.keymap.Confirm):
			return m.run(resolveCmd(m.session, strategies[m.strategy]))
		}

	case screenEncode:
		if key.Matches(msg, m.keymap.Confirm) {
			return m.run(encodeCmd(m.session))
		}

	case screenTrain:
		switch {
		case key.Matches(msg, m.keymap.Less):
			m.testPercent = max(workflow.MinTestPercent, m.testPercent-1)
		case key.Matches(msg, m.keymap.More):
			m.testPercent = min(workflow.MaxTestPercent, m.testPercent+1)
		case key.Matches(msg, m.keymap.Explore):
			return m.run(exploreCmd(m.session, m.config.OutputDir))
		case key.Matches(msg, m.keymap.Confirm):
			return m.run(trainCmd(m.session, m.testPercent, m.config.OutputDir))
		}
	}
	return m, nil
}

func (m Model) handleColumnsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Next):
		m.focus = 1 - m.focus
		if m.focus == 0 {
			m.targetInput.Blur()
			return m, m.idInput.Focus()
		}
		m.idInput.Blur()
		return m, m.targetInput.Focus()

	case key.Matches(msg, m.keymap.Confirm):
		id := strings.TrimSpace(m.idInput.Value())
		target := strings.TrimSpace(m.targetInput.Value())
		return m.run(selectCmd(m.session, id, target))
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.idInput, cmd = m.idInput.Update(msg)
	} else {
		m.targetInput, cmd = m.targetInput.Update(msg)
	}
	return m, cmd
}

func (m Model) run(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = true
	m.lastError = nil
	return m, cmd
}
