package main

import (
	"fmt"
	"os"

	"auction-site/internal/clock"
	"auction-site/internal/config"
	"auction-site/internal/credentials"
	host "auction-site/internal/hostService"
	"auction-site/internal/repository"
	"auction-site/internal/repository/sqlite"
	"auction-site/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}

	h, err := host.LoadHost(store, clock.NewSystemClock(), credentials.NewBcryptHasher(), cfg.Sweep.Period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load host: %v\n", err)
		os.Exit(1)
	}

	router := server.SetupRouter(h)

	fmt.Printf("Starting auction site server on %s...\n", cfg.Server.Addr)
	if err := router.Run(cfg.Server.Addr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// openStore selects the sqlite store when a database path is configured,
// falling back to the in-memory store otherwise.
func openStore(cfg config.Config) (repository.Store, error) {
	if cfg.Database.Path == "" {
		return repository.NewMemoryStore(), nil
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	store := sqlite.NewStore(db)
	if cfg.Database.Reset {
		if err := store.Reset(); err != nil {
			return nil, err
		}
		return store, nil
	}
	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}
