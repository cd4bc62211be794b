// Package charts embeds the helm chart of the templated gateway.
package charts

import (
	"embed"
)

var (
	//go:embed all:apicast
	ApicastChart embed.FS
)
