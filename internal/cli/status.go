package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"semsearch/config"
	"semsearch/internal/adapter/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and model configuration",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	out := cmd.OutOrStdout()

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.svc.ListAll(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(out, titleStyle.Render("semsearch status"))
	row(out, "Backend", cfg.Store.Backend)
	switch cfg.Store.Backend {
	case "mongo":
		row(out, "Collection", fmt.Sprintf("%s/%s.%s", cfg.Store.MongoURI, cfg.Store.MongoDatabase, cfg.Store.MongoCollection))
	case "memory":
	default:
		row(out, "Path", config.StorePath(GetRootDir(), cfg))
	}
	row(out, "Records", fmt.Sprint(len(records)))
	row(out, "Model", fmt.Sprintf("%s/%s (%d dims)", cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimension))
	row(out, "Search", fmt.Sprintf("threshold %.2f, limit %d", cfg.Search.Threshold, cfg.Search.Limit))

	if bolt, ok := a.store.(*store.BoltStore); ok {
		info, err := bolt.GetSchemaInfo()
		if err != nil {
			return err
		}
		row(out, "Schema", fmt.Sprintf("v%d, embedding hash %s", info.Version, info.ConfigHash))

		result, err := bolt.CheckMigration(cfg.Embedding)
		if err != nil {
			return err
		}
		if result.NeedsRebuild {
			fmt.Fprintln(out, warnStyle.Render("Warning: "+result.Reason+"; run 'semsearch clear --yes' and re-add records"))
		}
	}
	return nil
}

func row(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-11s", label+":")), value)
}
