// Package web embeds the front-end page.
package web

import _ "embed"

// Index is the single-page front end served at "/".
//
//go:embed index.html
var Index []byte
