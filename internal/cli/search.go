package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"semsearch/internal/domain"
	"semsearch/internal/usecase"
)

var (
	searchQuery     string
	searchLimit     int
	searchThreshold float64
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find records whose bio matches a query",
	Long: `Rank stored records by cosine similarity between the query and each bio.

Examples:
  semsearch search -q "enjoys rock climbing"
  semsearch search -q "cat lover" --limit 10 --threshold 0.2 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 0, "maximum results (default from config)")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", 0, "minimum similarity in [-1, 1] (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

type searchResultJSON struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Bio        string  `json:"bio"`
	Similarity float64 `json:"similarity"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	var opts []usecase.SearchOption
	if cmd.Flags().Changed("limit") {
		opts = append(opts, usecase.WithLimit(searchLimit))
	}
	if cmd.Flags().Changed("threshold") {
		opts = append(opts, usecase.WithThreshold(searchThreshold))
	}

	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.svc.Search(cmd.Context(), searchQuery, opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		rows := make([]searchResultJSON, len(results))
		for i, r := range results {
			rows[i] = searchResultJSON{
				ID:         r.Record.ID,
				Name:       r.Record.Name,
				Email:      r.Record.Email,
				Bio:        r.Record.Bio,
				Similarity: r.Similarity,
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Fprintln(out, renderResults(searchQuery, results))
	return nil
}

func renderResults(query string, results []domain.ScoredRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Results for %q", query)))
	b.WriteString("\n")

	if len(results) == 0 {
		b.WriteString(dimStyle.Render("No records above the similarity threshold."))
		return b.String()
	}

	for i, r := range results {
		b.WriteString(fmt.Sprintf("\n%d. %s %s  %s\n",
			i+1,
			labelStyle.Render(r.Record.Name),
			dimStyle.Render("<"+r.Record.Email+">"),
			scoreStyle.Render(fmt.Sprintf("%.4f", r.Similarity)),
		))
		b.WriteString("   " + truncate(r.Record.Bio, 100) + "\n")
	}
	return b.String()
}
