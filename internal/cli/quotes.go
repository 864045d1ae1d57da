package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/viant/quotevec/internal/app"
	"github.com/viant/quotevec/quote"
	"github.com/viant/quotevec/vector"
)

func newAddCmd(o *options) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a quote",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := a.Manager.AddQuote(ctx, strings.Join(args, " "), label)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added #%d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&label, "label", quote.DefaultLabel, "quote label")
	return cmd
}

func newListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List quotes ordered by id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				quotes, err := a.Manager.ListQuotes(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tLABEL\tTEXT")
				for _, q := range quotes {
					fmt.Fprintf(w, "%d\t%s\t%s\n", q.ID, q.Label, q.Text)
				}
				return w.Flush()
			})
		},
	}
}

func newRemoveCmd(o *options) *cobra.Command {
	var id int64
	var index int
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a quote by id or by 0-based position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			byID, byIndex := cmd.Flags().Changed("id"), cmd.Flags().Changed("index")
			if byID == byIndex {
				return errors.New("exactly one of --id or --index is required")
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if byID {
					if err := a.Manager.RemoveQuoteByID(ctx, id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed #%d\n", id)
					return nil
				}
				removed, err := a.Manager.RemoveQuote(ctx, index)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed #%d %s\n", removed.ID, removed.Text)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "quote id")
	cmd.Flags().IntVar(&index, "index", 0, "0-based position in the id-ordered list")
	return cmd
}

func newQueryCmd(o *options) *cobra.Command {
	var top int
	var threshold float64
	var metricName string
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Find the quotes most similar to text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := quote.QueryOptions{TopN: top}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = &threshold
			}
			if metricName != "" {
				metric, err := vector.ParseMetric(metricName)
				if err != nil {
					return err
				}
				opts.Metric = &metric
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				matches, err := a.Manager.Query(ctx, strings.Join(args, " "), opts)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tDISTANCE\tTEXT")
				for _, m := range matches {
					fmt.Fprintf(w, "%d\t%.4f\t%s\n", m.ID, m.Distance, m.Text)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 5, "number of results")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "maximum distance (unset: no cutoff)")
	cmd.Flags().StringVarP(&metricName, "metric", "m", "", "cosine, euclidean or inner_product (default from config)")
	return cmd
}

func newCountCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Manager.CountQuotes(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newRandomCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Print a random quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				q, err := a.Manager.Random(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), q.Text)
				return nil
			})
		},
	}
}

func newExportCmd(o *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every quote as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				var w io.Writer = cmd.OutOrStdout()
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return a.Manager.Export(ctx, w)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add quotes from a JSON export or a JSON array of strings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Manager.Import(ctx, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d quotes\n", n)
				return nil
			})
		},
	}
}

func newReindexCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Re-embed every stored quote with the configured model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Manager.Reindex(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d quotes with %s\n", n, a.Embedder.Model())
				return nil
			})
		},
	}
}

func newResetCmd(o *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset deletes every quote; pass --yes to confirm")
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Store.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "store reset")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}
