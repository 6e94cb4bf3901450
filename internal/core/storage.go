package core

import (
	"fmt"
	"os"
	"strings"

	"reefsim/internal/infra/persistence/memory"
	"reefsim/internal/infra/persistence/postgres"
	"reefsim/internal/infra/persistence/sqlite"
)

// OpenSimulationStore selects a persistence backend from process environment.
//
//	REEFSIM_STORAGE_DRIVER=memory|sqlite|postgres (default sqlite)
//	REEFSIM_SQLITE_PATH=<file> (sqlite driver, default reefsim.db)
//	REEFSIM_POSTGRES_DSN=<dsn> (postgres driver)
func OpenSimulationStore() (SimulationStore, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("REEFSIM_STORAGE_DRIVER")))
	switch driver {
	case "memory":
		return memory.NewStore(), nil
	case "postgres":
		return postgres.NewStore(os.Getenv("REEFSIM_POSTGRES_DSN"))
	case "sqlite", "":
		return sqlite.NewStore(os.Getenv("REEFSIM_SQLITE_PATH"))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
