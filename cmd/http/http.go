package http

import "github.com/spf13/cobra"

func NewHTTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Analysis API server",
		Long: `Runs the tenant-scoped analysis API: session and job endpoints,
image upload, report generation and the background event workers.`,
	}

	cmd.AddCommand(NewStartCommand())

	return cmd
}
