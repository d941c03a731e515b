package migrations

import "embed"

// FS holds the schema migrations, one sub-directory per engine
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
