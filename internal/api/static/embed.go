// Package static holds the embedded stylesheet and script of the web
// interface.
package static

import "embed"

//go:embed *.css *.js
var Files embed.FS
