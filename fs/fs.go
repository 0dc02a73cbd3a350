// Package appfs holds the files embedded in the binaries.
package appfs

import "embed"

//go:embed migrations/*.sql
var FS embed.FS
