package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/stepml/config"
	"github.com/YuminosukeSato/stepml/pkg/log"
)

var (
	cfgFile string
	version = "dev"
	cfg     *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stepml",
		Short: "Guided tabular classification",
		Long: `stepml walks a CSV file through a fixed sequence of steps: pick the
target, handle missing values, one-hot encode, explore correlations, train a
logistic regression model and read its accuracy and confusion matrix.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/stepml/config.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log format (console, json)")

	root.AddCommand(tuiCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	v := config.NewViper(cfgFile)
	_ = v.BindPFlag("logging.level", cmd.Flags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", cmd.Flags().Lookup("log-format"))
	if f := cmd.Flags().Lookup("addr"); f != nil {
		_ = v.BindPFlag("server.addr", f)
	}
	if f := cmd.Flags().Lookup("output-dir"); f != nil {
		_ = v.BindPFlag("output.dir", f)
	}
	if f := cmd.Flags().Lookup("seed"); f != nil {
		_ = v.BindPFlag("workflow.random_state", f)
	}

	if err := config.Read(v); err != nil {
		return err
	}
	loaded, err := config.FromViper(v)
	if err != nil {
		return err
	}
	cfg = loaded

	if err := log.Setup(log.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.GetLogger().Debug("Config loaded", "config.file", used)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stepml %s\n", version)
		},
	}
}
