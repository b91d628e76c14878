package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hdexport/internal/app"
	"hdexport/pkg/bus"
	"hdexport/pkg/ui"
)

// printCmd represents the print command
var printCmd = &cobra.Command{
	Use:   "print <row-key>",
	Short: "Open the printable layout of one invoice",
	Long: `Fetch one invoice and open its A4 layout in a Chrome tab, ready for the
browser's print dialog. The tab stays open until it is closed from its
toolbar or hdexport is interrupted.`,
	Example: `  hdexport print 1_0101234567_1_C24TAA_123`,
	Args:    cobra.ExactArgs(1),
	RunE:    runPrint,
}

func init() {
	rootCmd.AddCommand(printCmd)

	printCmd.Flags().String("token", "", "portal token to use instead of the session cookie")
	addBrowserFlags(printCmd)
}

func runPrint(cmd *cobra.Command, args []string) error {
	ids, _ := parseKeys(args)
	if len(ids) != 1 {
		return fmt.Errorf("malformed row key %q", args[0])
	}
	id := ids[0]

	cfg, log, err := setup(cmd, nil, append(browserFlags, "token")...)
	if err != nil {
		return err
	}
	if cfg.Browser.Headless {
		return errors.New("print needs a visible browser, drop --headless")
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{}, log)
	if err != nil {
		return err
	}
	defer a.Close()

	reply, err := a.Dispatch(ctx, bus.Message{Action: bus.PrintInvoice, Invoice: &id, Token: cfg.Portal.Token})
	if err != nil {
		return err
	}
	r := reply.(bus.PrintReply)
	if r.Status != "ok" {
		return fmt.Errorf("print failed: %s", r.Message)
	}

	ui.PrintSuccess("Print view opened for " + id.String())
	ui.PrintInfo("Session key", r.Key)
	ui.PrintHighlight("Press Ctrl+C to exit")
	<-ctx.Done()
	return nil
}
