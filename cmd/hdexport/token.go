package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hdexport/internal/app"
	"hdexport/pkg/auth"
	"hdexport/pkg/bus"
	"hdexport/pkg/ui"
)

var showFullToken bool

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show the portal token of the browser session",
	Long: `Read the "jwt" session cookie of hoadondientu.gdt.gov.vn from the browser
and print it masked. Use --wait-login to sign in first.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().BoolVar(&waitLogin, "wait-login", false, "wait until the invoice table shows rows first")
	tokenCmd.Flags().BoolVar(&showFullToken, "reveal", false, "print the whole token")
	addBrowserFlags(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd, nil, browserFlags...)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{}, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if waitLogin {
		ui.PrintHighlight("Sign in and run a search in the Chrome window")
		if err := a.WaitForTable(ctx); err != nil {
			return fmt.Errorf("waiting for the invoice table: %w", err)
		}
	}

	reply, err := a.Dispatch(ctx, bus.Message{Action: bus.GetAuthToken})
	if err != nil {
		return err
	}
	r := reply.(bus.TokenReply)
	if r.Token == nil {
		auth.ShowLoginGuide(ui.Output, cfg.Portal.ListURL)
		return auth.ErrNoToken
	}

	if showFullToken {
		fmt.Fprintln(ui.Output, *r.Token)
		return nil
	}
	ui.PrintInfo("Token", auth.Mask(*r.Token))
	return nil
}
