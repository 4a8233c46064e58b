// Package all registers every built-in storage backend. Import it for side
// effects:
//
//	import _ "dep/internal/storage/all"
//
// after which storage.New accepts the kinds "sqlite", "postgres", "mssql" and
// "mysql".
package all

import (
	_ "dep/internal/storage/mssql"
	_ "dep/internal/storage/mysql"
	_ "dep/internal/storage/postgres"
	_ "dep/internal/storage/sqlite"
)
