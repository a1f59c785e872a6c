// Package web contains embedded web UI template assets.
package web

import "embed"

// Assets contains embedded web UI assets for the built-in catalog viewer.
//
//go:embed *.html
var Assets embed.FS
