// Package server runs the loopback HTTP surface used by print views.
//
// GET /print/ serves the shell page. It reads the session key, correlation
// id and view id from the URL fragment, loads the rendered invoice from
// GET /print/render/{key} and, for background captures, posts CHECK_READY
// once fonts and images have settled. POST /runtime/message carries bus
// messages in both directions of the print flow.
package server
