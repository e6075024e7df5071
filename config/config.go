// Package config - runtime configuration for the vault
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/passkeep/passkeep/encryption"
)

// DefaultBaseDirName name of the per-user vault directory under $HOME
const DefaultBaseDirName = ".passkeep"

// DefaultVaultFileName name of the encrypted vault blob
const DefaultVaultFileName = "secrets.db.enc"

// DefaultSaltFileName name of the persistent key derivation salt file
const DefaultSaltFileName = "salt.key"

// Config runtime configuration of a vault installation.
//
// All paths are explicit; nothing is resolved through process-wide state, so
// multiple configurations can coexist within one process (tests rely on
// this).
type Config struct {
	// BaseDir directory holding all vault artifacts. Also used for the
	// transient decrypted working copy, so it shares the same filesystem as
	// the vault blob and atomic renames work.
	BaseDir string `mapstructure:"base_dir" json:"base_dir" validate:"required"`

	// VaultFile path to the encrypted vault blob
	VaultFile string `mapstructure:"vault_file" json:"vault_file" validate:"required"`

	// SaltFile path to the persistent key derivation salt
	SaltFile string `mapstructure:"salt_file" json:"salt_file" validate:"required"`

	// KDFIterations PBKDF2-SHA256 iteration count for deriving the vault
	// encryption key
	KDFIterations int `mapstructure:"kdf_iterations" json:"kdf_iterations" validate:"required,gte=1"`
}

/*
Default build the default configuration rooted at $HOME/.passkeep

	@returns default configuration
*/
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve user home directory [%w]", err)
	}
	return DefaultAt(filepath.Join(home, DefaultBaseDirName)), nil
}

/*
DefaultAt build the default configuration rooted at an explicit directory

	@param baseDir string - vault artifact directory
	@returns configuration
*/
func DefaultAt(baseDir string) Config {
	return Config{
		BaseDir:       baseDir,
		VaultFile:     filepath.Join(baseDir, DefaultVaultFileName),
		SaltFile:      filepath.Join(baseDir, DefaultSaltFileName),
		KDFIterations: encryption.DefaultKDFIterations,
	}
}

/*
Validate verify the configuration is complete

	@param v *validator.Validate - the validator to check against
*/
func (c Config) Validate(v *validator.Validate) error {
	if err := v.Struct(&c); err != nil {
		return fmt.Errorf("invalid vault configuration [%w]", err)
	}
	return nil
}

/*
EnsureBaseDir create the vault artifact directory when missing. Permissions
are restricted to the owning user where the platform supports it.
*/
func (c Config) EnsureBaseDir() error {
	if err := os.MkdirAll(c.BaseDir, 0700); err != nil {
		return fmt.Errorf("failed to create vault directory %s [%w]", c.BaseDir, err)
	}
	return nil
}
