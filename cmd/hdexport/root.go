package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"hdexport/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hdexport",
	Short: "Bulk export of e-invoices from hoadondientu.gdt.gov.vn",
	Long: `hdexport downloads every invoice listed in the search results of the
Vietnamese e-invoice portal (hoadondientu.gdt.gov.vn).

It drives a Chrome window you sign in to, walks every page of the invoice
table and saves each invoice into an "Invoices" folder:
  - the signed XML when the portal returns it inline
  - the linked PDF when there is one
  - the raw JSON detail otherwise
  - optionally an A4 print capture of the invoice as PDF

Requests are made one at a time with a fixed pause, and the pause grows
after the portal answers HTTP 429.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
		if quiet || cmd.Name() == "help" || cmd.Parent() == configCmd {
			return
		}
		ui.PrintBanner()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/hdexport/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`hdexport {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
