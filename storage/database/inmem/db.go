package inmemdb

import (
	"sync"

	"github.com/trezcool/paes/core/trust"
)

type (
	// DB is a process-local store, for development and tests.
	DB struct {
		actions *actionTable
		flags   *flagTable
	}

	actionTable struct {
		sync.RWMutex
		rows []trust.ValidatedAction // insertion order
		ids  map[string]struct{}
	}

	flagTable struct {
		sync.RWMutex
		rows []trust.UserFlag
	}
)

func Open() *DB {
	return &DB{
		actions: &actionTable{ids: make(map[string]struct{})},
		flags:   &flagTable{},
	}
}
