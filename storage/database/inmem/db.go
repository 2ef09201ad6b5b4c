package inmemdb

import (
	"sync"

	"github.com/trezcool/backoffice/core/admission"
)

type (
	DB struct {
		applications *applicationTable
	}

	applicationTable struct {
		sync.RWMutex
		table map[string]*admission.Application
		order []string // insertion order
	}
)

func Open() *DB {
	return &DB{
		applications: &applicationTable{table: make(map[string]*admission.Application)},
	}
}

// Reset drops every record; used by tests.
func (db *DB) Reset() {
	db.applications.Lock()
	defer db.applications.Unlock()
	db.applications.table = make(map[string]*admission.Application)
	db.applications.order = nil
}
