package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"semsearch/internal/adapter/fs"
)

var (
	addExcludes   []string
	addNoProgress bool
)

var addCmd = &cobra.Command{
	Use:   "add <file|dir|glob>...",
	Short: "Embed and store records from JSON or YAML files",
	Long: `Load records from JSON or YAML files and store them as one batch.
A file may hold a list of {name, email, bio} objects or an object with a
"users" list. Directories are searched for record files; glob patterns
support ** (doublestar).

If any record is invalid or any embedding fails, nothing is stored.

Examples:
  semsearch add users.json
  semsearch add 'data/**/*.yaml' --exclude 'data/archive/**'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringSliceVar(&addExcludes, "exclude", nil, "glob patterns to skip when walking directories")
	addCmd.Flags().BoolVar(&addNoProgress, "no-progress", false, "disable the progress bar")
}

func runAdd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	walker := fs.NewWalker(nil, addExcludes)
	paths, err := walker.Expand(args)
	if err != nil {
		return err
	}
	inputs, err := fs.LoadAll(paths)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded %d records from %d files\n", len(inputs), len(paths))

	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		bar       *progressbar.ProgressBar
		barMu     sync.Mutex
		startTime = time.Now()
	)
	progress := func(done, total int) {
		if addNoProgress {
			return
		}
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(cmd.ErrOrStderr())
				}),
			)
		}
		bar.Set(done)

		elapsed := time.Since(startTime)
		if rate := float64(done) / elapsed.Seconds(); rate > 0 {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
		}
	}

	result, err := a.svc.AddRecordsWithProgress(cmd.Context(), inputs, progress)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Added %d records in %s\n", result.InsertedCount, formatDuration(time.Since(startTime)))
	return nil
}
