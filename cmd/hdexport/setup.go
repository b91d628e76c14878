package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"hdexport/pkg/config"
	"hdexport/pkg/invoice"
	"hdexport/pkg/logger"
	"hdexport/pkg/ui"
)

// changedFlags returns the named flags the user set, typed the way
// config.MergeCommandLineFlags expects them
func changedFlags(cmd *cobra.Command, names ...string) map[string]interface{} {
	out := make(map[string]interface{})
	fs := cmd.Flags()
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "bool":
			v, _ := fs.GetBool(name)
			out[name] = v
		case "duration":
			v, _ := fs.GetDuration(name)
			out[name] = v
		default:
			out[name] = f.Value.String()
		}
	}
	return out
}

// setup loads the configuration and starts the global logger
func setup(cmd *cobra.Command, overrides map[string]interface{}, names ...string) (*config.Config, logger.Logger, error) {
	flags := changedFlags(cmd, append(names, "log-level", "no-color")...)
	for k, v := range overrides {
		if _, set := flags[k]; !set {
			flags[k] = v
		}
	}
	if quiet {
		flags["log-level"] = "error"
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if cfg.Logging.NoColor {
		ui.SetColor(false)
	}

	log := logger.GetLogger()
	log.WithFields(map[string]interface{}{
		"version": version,
		"command": cmd.Name(),
	}).Debug("hdexport starting")
	return cfg, log, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseKeys accepts table row keys and the shorter
// nbmst_khmshdon_khhdon_shdon form
func parseKeys(args []string) ([]invoice.Identifier, []string) {
	keys := make([]string, len(args))
	for i, arg := range args {
		arg = strings.TrimSpace(arg)
		if strings.Count(arg, "_") == 3 {
			arg = "row_" + arg
		}
		keys[i] = arg
	}
	return invoice.ParseRowKeys(keys)
}

// addBrowserFlags registers the flags shared by commands that drive Chrome
func addBrowserFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("headless", false, "run Chrome without a window")
	cmd.Flags().String("browser-url", "", "attach to a running Chrome (DevTools address)")
	cmd.Flags().String("listen", "", "print surface listen address (default 127.0.0.1:0)")
}

var browserFlags = []string{"headless", "browser-url", "listen"}
