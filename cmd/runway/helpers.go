package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/engine"
	"github.com/Veraticus/runway/internal/storage"
)

// openEngine opens the configured database and builds an engine on it.
// The returned function closes both.
func openEngine(ctx context.Context) (*engine.Engine, func(), error) {
	store, err := storage.NewSQLiteStorage(appConfig.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	e, err := engine.New(store, appConfig.Engine, engine.WithLogger(slog.Default()))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return e, func() {
		e.Close()
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}, nil
}

// currentUser returns the user selected with --user.
func currentUser() (string, error) {
	user := strings.TrimSpace(viper.GetString("user"))
	if user == "" {
		return "", common.NewUserError("--user must not be empty", common.ErrInvalidConfig)
	}
	return user, nil
}
