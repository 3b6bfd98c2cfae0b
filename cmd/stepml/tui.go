package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/stepml/config"
	"github.com/YuminosukeSato/stepml/pkg/log"
	"github.com/YuminosukeSato/stepml/tui"
	"github.com/YuminosukeSato/stepml/workflow"
)

// logFile is written under output.dir while the wizard owns the terminal.
const logFile = "stepml.log"

func tuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui <file.csv>",
		Short: "Run the interactive terminal wizard on a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := redirectLogs(cfg.Output.Dir, cfg.Logging)
			if err != nil {
				return err
			}
			defer f.Close()

			session := workflow.NewSession(cfg.WorkflowOptions())
			return tui.Run(cmd.Context(), session, tui.Config{
				Theme:       tui.DefaultTheme,
				Path:        args[0],
				OutputDir:   cfg.Output.Dir,
				TestPercent: cfg.Workflow.DefaultTestPercent,
			})
		},
	}
	cmd.Flags().String("output-dir", "", "directory for heatmap PNGs and the log file (overrides output.dir)")
	cmd.Flags().Int64("seed", -1, "random seed for the train/test split (overrides workflow.random_state)")
	return cmd
}

// redirectLogs reopens the logger on a file in dir so log lines never reach
// the alt screen.
func redirectLogs(dir string, logging config.LoggingConfig) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if err := log.Setup(log.Options{Level: logging.Level, Format: logging.Format, Output: f}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return f, nil
}
