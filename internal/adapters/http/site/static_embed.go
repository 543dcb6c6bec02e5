package site

import _ "embed"

// IndexHTML contains the embedded landing page.
//
//go:embed static/index.html
var IndexHTML []byte
