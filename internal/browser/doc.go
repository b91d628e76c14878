// Package browser drives Chrome for the exporter.
//
// A Session launches Chrome with rod, or attaches to a running instance, and
// reads cookies from it. TablePage implements the scraper's Table and the
// storage token probe on the open invoice list. ViewHost opens print views
// for the printer, whose PDF capture runs over a separate chromedp
// connection attached to the view's target.
package browser
