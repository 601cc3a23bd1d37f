//go:build !libsql && !modernc

package store

import (
	"errors"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const driverName = "sqlite3"

// dataSource builds the embedded-mode DSN: file:path plus connection pragmas.
func dataSource(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func isConstraintErr(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT) || constraintMessage(err)
}
