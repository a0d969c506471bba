package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored record",
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "confirm deletion")
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearYes {
		return fmt.Errorf("refusing to delete all records without --yes")
	}

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.svc.ClearAll(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records\n", n)
	return nil
}
