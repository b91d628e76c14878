package main

import (
	"strings"

	"github.com/spf13/cobra"

	"hdexport/internal/app"
	"hdexport/pkg/ui"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the message endpoint and print surface",
	Long: `Start the browser session and the loopback HTTP server, then wait.

Messages such as {"action":"START_CRAWL"} or {"action":"PRINT_INVOICE",...}
can be posted to /runtime/message while it runs. Print views load from
/print/.`,
	Example: `  hdexport serve --listen 127.0.0.1:8931
  curl -d '{"action":"GET_AUTH_TOKEN"}' http://127.0.0.1:8931/runtime/message`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("output", "o", "", "base directory for the Invoices folder (default: current directory)")
	serveCmd.Flags().Bool("print", true, "save an A4 print capture of every invoice")
	serveCmd.Flags().String("token", "", "portal token to use instead of the browser session")
	addBrowserFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd, nil, append(browserFlags, "output", "print", "token")...)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var reporter ui.Reporter
	if !quiet {
		reporter = ui.NewProgressDisplay(ui.Output, cfg.Logging.Level == "debug")
	}
	a, err := app.New(ctx, cfg, app.Options{Reporter: reporter, Notifier: ui.NewNotifier(cfg.Notifications)}, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ui.PrintInfo("Listening", a.BaseURL())
	ui.PrintInfo("Messages", a.BaseURL()+"/runtime/message")
	ui.PrintInfo("Print surface", strings.TrimRight(a.BaseURL(), "/")+"/print/")
	ui.PrintInfo("Output", a.OutputDir())
	ui.PrintHighlight("Press Ctrl+C to stop")

	<-ctx.Done()
	log.Info("Shutting down")
	return nil
}
