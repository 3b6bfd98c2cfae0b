package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/stepml/server"
	"github.com/YuminosukeSato/stepml/workflow"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow as a JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session := workflow.NewSession(cfg.WorkflowOptions())
			srv := server.New(session, server.WithDefaultTestPercent(cfg.Workflow.DefaultTestPercent))
			return srv.Start(cmd.Context(), cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().Int64("seed", -1, "random seed for the train/test split (overrides workflow.random_state)")
	return cmd
}
