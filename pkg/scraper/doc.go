// Package scraper walks the portal's paginated invoice table.
//
// The Crawler works against a Table, which the browser package implements on
// a live page. Each page is scraped for row keys, the parsed invoices are
// handed to a BatchSink, and the crawler clicks "next" until the control is
// disabled.
//
// Advancing a page clicks the control, waits one settle period, polls the
// loading indicators every PollInterval until they clear and waits another
// settle period. Indicators still present after LoadingTimeout end the crawl
// with ErrLoadingTimeout.
//
// Usage:
//
//	c := scraper.NewCrawler(table, sink, scraper.OptionsFromConfig(cfg), log)
//	summary, err := c.Run(ctx)
package scraper
