package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecscan"
	"github.com/hupe1980/vecscan/distance"
)

type hitResult struct {
	ID         string         `json:"id"`
	Score      float64        `json:"score"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func newQueryCommand(flags *rootFlags) *cobra.Command {
	var (
		text   string
		vector []float32
		metric string
		limit  int
		manual bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Rank records against a query",
		Long: `Rank every record against a query vector or text and print the best
matches as JSON lines.

Cosine results are ordered by descending similarity. Hamming results are
ordered by ascending distance and only consider records inserted with
--binary. --manual ranks against the configured vector field, falling back
to the default "vector" attribute.`,
		Example: `  vecscan query --text "reset my password" --limit 5
  vecscan query --vector 1,0,0 --metric hamming
  vecscan query --manual --vector 0.2,0.7,0.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (text == "") == (len(vector) == 0) {
				return errors.New("exactly one of --text and --vector is required")
			}
			if manual && text != "" {
				return errors.New("--manual requires --vector")
			}
			m, err := distance.ParseMetric(metric)
			if err != nil {
				return err
			}

			a, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var hits []vecscan.Hit
			switch {
			case manual:
				hits, err = a.store.QueryManual(ctx, vector, limit)
			case text != "":
				hits, err = a.store.QueryByText(ctx, text, m, limit)
			default:
				hits, err = a.store.QueryByVector(ctx, vector, m, limit)
			}
			if err != nil {
				return err
			}

			results := make([]hitResult, len(hits))
			for i, h := range hits {
				results[i] = hitResult(h)
			}
			return writeJSONLines(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "query text, embedded with the configured embedder")
	cmd.Flags().Float32SliceVar(&vector, "vector", nil, "query vector, comma separated")
	cmd.Flags().StringVarP(&metric, "metric", "m", "cosine", "similarity metric (cosine, hamming)")
	cmd.Flags().IntVarP(&limit, "limit", "k", 10, "maximum number of results")
	cmd.Flags().BoolVar(&manual, "manual", false, "cosine query against the configured vector field")
	cmd.MarkFlagsMutuallyExclusive("text", "vector")
	cmd.MarkFlagsMutuallyExclusive("manual", "metric")

	return cmd
}
