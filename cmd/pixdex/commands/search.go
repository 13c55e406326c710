package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	searchK      int
	searchAnswer bool
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a hybrid query and print ranked images",
	Long: `Embed the query once, search the visual and OCR text indexes and print
the fused ranking. With --answer the completion model answers the query from
the retrieved images.

Examples:
  pixdex search "exit sign"
  pixdex search "what is the opening time" -k 5 --answer`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		query := strings.Join(args, " ")
		k := searchK
		if k <= 0 {
			k = a.cfg.Retrieval.DefaultK
		}
		k = min(k, a.cfg.Retrieval.MaxK)

		out := cmd.OutOrStdout()
		if searchAnswer {
			ans, err := a.answer.Answer(ctx, query, k)
			if err != nil {
				return fmt.Errorf("answer: %w", err)
			}
			fmt.Fprintln(out, ans.Completion)
			return nil
		}

		results, err := a.retrieval.Retrieve(ctx, query, k)
		if err != nil {
			return fmt.Errorf("retrieve: %w", err)
		}

		if searchJSON {
			rows := make([]map[string]any, 0, len(results))
			for i := range results {
				r := &results[i]
				rows = append(rows, map[string]any{
					"id":           r.ID(),
					"url":          r.Item().URL,
					"score":        r.Score(),
					"modalities":   r.Modalities(),
					"similarities": r.Similarities(),
				})
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSCORE\tMODALITIES\tURL")
		for i := range results {
			r := &results[i]
			mods := make([]string, 0, 2)
			for _, m := range r.Modalities() {
				mods = append(mods, string(m))
			}
			fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\n", r.ID(), r.Score(), strings.Join(mods, ","), r.Item().URL)
		}
		return tw.Flush()
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "number of results (default: retrieval.default_k)")
	searchCmd.Flags().BoolVar(&searchAnswer, "answer", false, "answer the query with the completion model")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
}
