// Command nakama builds the partyboard Nakama Go plugin
// (go build -buildmode=plugin).
package main

import (
	"context"
	"database/sql"

	"partyboard/internal/ports/nakama"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule is the symbol Nakama looks up when loading the plugin. It
// registers the session match and its RPCs.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := nakama.InitModule(ctx, logger, db, nk, initializer); err != nil {
		logger.Error("InitModule: Failed to register partyboard module: %v", err)
		return err
	}
	return nil
}
