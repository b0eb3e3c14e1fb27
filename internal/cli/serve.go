package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func (r *runner) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the preview server exposing view-models over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			r.app.Lifecycle.Listen(ctx, cancel)
			return r.app.Serve(ctx)
		},
	}
}
