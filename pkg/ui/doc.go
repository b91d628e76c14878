// Package ui provides terminal output for hdexport: coloured print
// helpers, a single line batch progress readout and run notifications.
package ui
