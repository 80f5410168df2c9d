// Package locales embeds the translations of all user-facing text.
package locales

import "embed"

//go:embed *.yaml
var FS embed.FS
