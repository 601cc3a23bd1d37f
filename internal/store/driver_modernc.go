//go:build modernc && !libsql

package store

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

func dataSource(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func isConstraintErr(err error) bool {
	return constraintMessage(err)
}
