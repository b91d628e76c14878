package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hdexport/internal/app"
	"hdexport/pkg/bus"
	"hdexport/pkg/ui"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <row-key>...",
	Short: "Export specific invoices by row key",
	Long: `Export the invoices named on the command line without walking the table.

A row key is the data-row-key of a result row, for example
"1_0101234567_1_C24TAA_123". The shorter "0101234567_1_C24TAA_123"
(nbmst_khmshdon_khhdon_shdon) is accepted too.

The token comes from --token or HDEXPORT_TOKEN, falling back to the
browser session.`,
	Example: `  hdexport fetch 0101234567_1_C24TAA_123 0101234567_1_C24TAA_124 --token eyJhbGciOi...`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringP("output", "o", "", "base directory for the Invoices folder (default: current directory)")
	fetchCmd.Flags().Bool("print", false, "save an A4 print capture of every invoice")
	fetchCmd.Flags().String("token", "", "portal token to use instead of the browser session")
	fetchCmd.Flags().Duration("delay", 0, "pause between invoices (default 300ms)")
	addBrowserFlags(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ids, rejected := parseKeys(args)
	for _, key := range rejected {
		ui.PrintWarning("Skipping malformed row key", key)
	}
	if len(ids) == 0 {
		return errors.New("no valid row keys")
	}

	// print capture is opt-in here
	overrides := map[string]interface{}{"print": false}
	cfg, log, err := setup(cmd, overrides, append(browserFlags, "output", "print", "token", "delay")...)
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

	ui.PrintInfo("Invoices", fmt.Sprintf("%d", len(ids)))
	ui.PrintInfo("Output", a.OutputDir())

	reply, err := a.Dispatch(ctx, bus.Message{Action: bus.DownloadBatch, Data: ids})
	if err != nil {
		return err
	}
	if r := reply.(bus.BatchReply); !r.Success {
		return fmt.Errorf("batch failed: %s", r.Error)
	}
	ui.PrintInfo("Files written", fmt.Sprintf("%d", a.FilesWritten()))
	return nil
}
