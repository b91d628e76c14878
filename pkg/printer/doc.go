// Package printer captures invoices as PDF through a print view.
//
// A capture stores the invoice under its print key in the SessionStore, opens
// a background view on the print surface and waits for the view's ready
// signal through the Registry. It then attaches a capture channel and asks
// for an A4 PDF. Views and channels are always released, and teardown
// failures are only logged.
//
//	p := printer.New(host, storageManager, nil, printer.OptionsFromConfig(cfg, surfaceURL), log)
//	path, err := p.Print(ctx, id, detail)
package printer
