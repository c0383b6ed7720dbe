// Package migrations holds the warehouse schemas as embedded SQL and the
// runners that apply them on startup.
package migrations

import "embed"

//go:embed postgres/*.sql
var PostgresFS embed.FS

//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
