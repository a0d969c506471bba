package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"semsearch/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Start the HTTP API:

  GET    /users       list records
  DELETE /users       delete every record
  POST   /add-users   {"users": [{name, email, bio}]}
  POST   /search      {"query", "threshold"?, "limit"?}
  GET    /healthz     model and status

The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	return httpapi.NewServer(a.svc, cfg.Server, logger).ListenAndServe(ctx)
}
