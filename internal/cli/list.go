package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listJSON       bool
	listEmbeddings bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	listCmd.Flags().BoolVar(&listEmbeddings, "embeddings", false, "include embeddings in JSON output")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.svc.ListAll(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if listJSON {
		if !listEmbeddings {
			for i := range records {
				records[i].Embedding = nil
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"totalUsers": len(records), "users": records})
	}

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d records", len(records))))
	for _, r := range records {
		fmt.Fprintf(out, "%s  %s %s\n   %s\n",
			dimStyle.Render(r.ID),
			labelStyle.Render(r.Name),
			dimStyle.Render("<"+r.Email+">"),
			truncate(r.Bio, 100),
		)
	}
	return nil
}
