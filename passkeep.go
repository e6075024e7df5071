// Package passkeep - encrypted-at-rest single-user secret store
package passkeep

import (
	"context"
	"fmt"

	"gorm.io/gorm/logger"

	"github.com/passkeep/passkeep/config"
	"github.com/passkeep/passkeep/encryption"
	"github.com/passkeep/passkeep/vault"
)

/*
Open unlock the vault described by the configuration and start a session.

On first run the supplied password becomes the master password permanently.
The vault directory and key derivation salt are created when missing.

	@param ctx context.Context - execution context
	@param cfg config.Config - vault installation configuration
	@param clipboard vault.Clipboard - receiver for plaintext secrets on copy operations
	@param dbLogLevel logger.LogLevel - SQL log level
	@param masterPassword string - the master password
	@returns an open vault session
*/
func Open(
	ctx context.Context,
	cfg config.Config,
	clipboard vault.Clipboard,
	dbLogLevel logger.LogLevel,
	masterPassword string,
) (vault.Session, error) {
	// The salt file lives inside the vault directory
	if err := cfg.EnsureBaseDir(); err != nil {
		return nil, err
	}

	// Prepare cryptography engine
	cryptoEngine, err := encryption.NewEngine(ctx, encryption.EngineParams{
		SaltFile:      cfg.SaltFile,
		KDFIterations: cfg.KDFIterations,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialized cryptography engine [%w]", err)
	}

	session, err := vault.NewSession(ctx, vault.SessionParams{
		Config:     cfg,
		Crypto:     cryptoEngine,
		Clipboard:  clipboard,
		DBLogLevel: dbLogLevel,
	}, masterPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault session [%w]", err)
	}

	return session, nil
}
