//go:build nosqlite

package storage

import (
	"errors"

	logx "github.com/elsieclark/superqueue/pkg/logx"
)

func openSQLite(Config, logx.Logger) (Store, error) {
	return nil, errors.New("sqlite storage not built: rebuild without -tags nosqlite")
}
