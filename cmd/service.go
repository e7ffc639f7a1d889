package cmd

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"

	"github.com/surge-downloader/swarmpeer/internal/config"
	"github.com/surge-downloader/swarmpeer/internal/core"
	"github.com/surge-downloader/swarmpeer/internal/store"
	"github.com/surge-downloader/swarmpeer/internal/utils"
)

// openService locks and opens the store named by settings and wraps it in a
// RoundService. The returned cleanup releases both.
func openService(ctx context.Context, settings *config.Settings) (core.RoundService, func(), error) {
	cfg, err := settings.ToStrategyConfig()
	if err != nil {
		return nil, nil, err
	}

	dbPath := settings.DBPath()
	lock, err := store.Lock(ctx, dbPath, settings.Storage.LockTimeout)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		unlock(lock)
		return nil, nil, err
	}
	utils.Debug("Opened store %s", dbPath)

	cleanup := func() {
		if err := st.Close(); err != nil {
			utils.Debug("Error closing store: %v", err)
		}
		unlock(lock)
	}
	return core.NewLocalRoundService(st, cfg, utils.Logger()), cleanup, nil
}

func unlock(fl *flock.Flock) {
	if err := fl.Unlock(); err != nil {
		utils.Debug("Error releasing lock %s: %v", fl.Path(), err)
	}
}

func mustOpenService(ctx context.Context, settings *config.Settings) (core.RoundService, func()) {
	svc, cleanup, err := openService(ctx, settings)
	if err != nil {
		fatalf("%v", fmt.Errorf("open store: %w", err))
	}
	return svc, cleanup
}
