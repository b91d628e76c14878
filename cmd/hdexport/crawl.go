package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hdexport/internal/app"
	"hdexport/pkg/auth"
	"hdexport/pkg/bus"
	"hdexport/pkg/config"
	"hdexport/pkg/logger"
	"hdexport/pkg/ui"
	"hdexport/pkg/ui/tui"
)

var (
	// Crawl command flags
	waitLogin bool
	useTUI    bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Export every invoice in the portal's search results",
	Long: `Open the invoice search page, read the session token and export every
invoice in the result table, page by page.

Sign in and run a search in the Chrome window first, or pass --wait-login
to let hdexport wait until the table shows results.`,
	Example: `  # Sign in, search, then export everything with print captures
  hdexport crawl --wait-login

  # Skip the print capture and write to another folder
  hdexport crawl --print=false --output ./exports

  # Reuse an already running Chrome
  hdexport crawl --browser-url http://127.0.0.1:9222`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().BoolVar(&waitLogin, "wait-login", false, "wait until the invoice table shows rows before starting")
	crawlCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
	crawlCmd.Flags().StringP("output", "o", "", "base directory for the Invoices folder (default: current directory)")
	crawlCmd.Flags().Bool("print", true, "save an A4 print capture of every invoice")
	crawlCmd.Flags().String("token", "", "portal token to use instead of the browser session")
	crawlCmd.Flags().String("token-source", "", "where to read the session token: cookie or storage")
	crawlCmd.Flags().Duration("delay", 0, "pause between invoices (default 300ms)")
	addBrowserFlags(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	overrides := map[string]interface{}{}
	if useTUI {
		// the dashboard owns the screen
		overrides["log-level"] = "error"
	}
	cfg, log, err := setup(cmd, overrides, append(browserFlags, "output", "print", "token", "token-source", "delay")...)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var (
		reporter ui.Reporter
		terminal *tui.TUI
		console  = ui.Output
	)
	switch {
	case useTUI:
		terminal = tui.NewTUI(stop)
		reporter = terminal
	case !quiet:
		reporter = ui.NewProgressDisplay(ui.Output, cfg.Logging.Level == "debug")
	}

	a, err := app.New(ctx, cfg, app.Options{Reporter: reporter, Notifier: ui.NewNotifier(cfg.Notifications)}, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ui.PrintInfo("Output", a.OutputDir())
	if waitLogin {
		ui.PrintHighlight("Sign in and run a search in the Chrome window")
		if err := a.WaitForTable(ctx); err != nil {
			return fmt.Errorf("waiting for the invoice table: %w", err)
		}
	}

	var reply bus.CrawlReply
	if terminal != nil {
		ui.Output = io.Discard
		reply, err = crawlWithTUI(ctx, a, terminal, log)
		ui.Output = console
	} else {
		reply, err = crawl(ctx, a)
	}
	if err != nil {
		return err
	}
	return reportCrawl(reply, a.FilesWritten(), cfg, log)
}

func crawl(ctx context.Context, a *app.App) (bus.CrawlReply, error) {
	reply, err := a.Dispatch(ctx, bus.Message{Action: bus.StartCrawl})
	if err != nil {
		return bus.CrawlReply{}, err
	}
	return reply.(bus.CrawlReply), nil
}

func crawlWithTUI(ctx context.Context, a *app.App, terminal *tui.TUI, log logger.Logger) (bus.CrawlReply, error) {
	type result struct {
		reply bus.CrawlReply
		err   error
	}
	crawlDone := make(chan result, 1)
	go func() {
		reply, err := crawl(ctx, a)
		crawlDone <- result{reply, err}
	}()

	tuiDone := make(chan error, 1)
	go func() {
		tuiDone <- terminal.Start()
	}()

	select {
	case r := <-crawlDone:
		terminal.Stop()
		<-tuiDone
		return r.reply, r.err
	case err := <-tuiDone:
		if err != nil {
			log.WithError(err).Error("TUI failed")
		}
		// quitting the dashboard cancels ctx; wait for the crawl to unwind
		r := <-crawlDone
		return r.reply, r.err
	}
}

func reportCrawl(reply bus.CrawlReply, files int, cfg *config.Config, log logger.Logger) error {
	if app.NoToken(reply) {
		log.Error("No auth token found")
		ui.PrintError("No auth token found")
		auth.ShowLoginGuide(ui.Output, cfg.Portal.ListURL)
		return auth.ErrNoToken
	}
	if reply.Status != bus.Started().Status {
		log.WithField("message", reply.Message).Error("Export failed")
		return fmt.Errorf("export failed: %s", reply.Message)
	}
	log.WithField("files", files).Info("Export completed")
	ui.PrintSuccess("Export completed")
	ui.PrintInfo("Files written", fmt.Sprintf("%d", files))
	return nil
}
