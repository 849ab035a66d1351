package store

import "fmt"

// Open selects a store backend by name, the same way the queue backend is
// selected: "postgres" and "sqlite" for real deployments, "memory" for dev.
func Open(backend, databaseURL, sqlitePath string) (Store, error) {
	switch backend {
	case "postgres":
		return NewPostgres(databaseURL)
	case "sqlite":
		return NewSQLite(sqlitePath)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}
