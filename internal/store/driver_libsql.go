//go:build libsql

package store

import (
	_ "github.com/tursodatabase/go-libsql"
)

const driverName = "libsql"

// dataSource builds the embedded libSQL DSN. The DSN carries no pragmas;
// the connector applies them to every connection.
func dataSource(path string) string {
	return "file:" + path
}

func isConstraintErr(err error) bool {
	return constraintMessage(err)
}
