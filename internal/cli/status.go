package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/viant/quotevec/internal/app"
)

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Boot every service and report its health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s %s\n", color.CyanString("quotebot"), version)
				fmt.Fprintf(out, "  model:   %s (%s, D=%d)\n", a.Embedder.Model(), a.Embedder.Device(), a.Embedder.Dimension())
				fmt.Fprintf(out, "  store:   %s\n", a.Config.Store.Backend)
				fmt.Fprintf(out, "  metric:  %s (threshold %.2f)\n", a.Config.Query.Metric, a.Config.Query.Threshold)
				if n, err := a.Manager.CountQuotes(ctx); err == nil {
					fmt.Fprintf(out, "  quotes:  %d\n", n)
				}
				for _, st := range a.Services.Status(ctx) {
					if st.Healthy {
						fmt.Fprintf(out, "  %s %s\n", color.GreenString("OK  "), st.Name)
						continue
					}
					fmt.Fprintf(out, "  %s %s: %s\n", color.RedString("FAIL"), st.Name, st.Error)
				}
				return nil
			})
		},
	}
}
