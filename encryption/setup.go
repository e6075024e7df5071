package encryption

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/apex/log"
)

// loadOrCreateSalt load the persistent key derivation salt, generating a fresh
// one on first run.
//
// The salt is bound to the installation once any vault data has been written
// under it. It is therefore never regenerated when the file already exists.
func (e *engineImpl) loadOrCreateSalt(_ context.Context, saltFilePath string) error {
	content, err := os.ReadFile(saltFilePath)
	if err == nil {
		if len(content) != SaltLength {
			return fmt.Errorf(
				"salt file %s holds %d bytes, expected %d", saltFilePath, len(content), SaltLength,
			)
		}
		e.salt = content
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s [%w]", saltFilePath, err)
	}

	// First run. Generate and persist a new salt.
	newSalt := make([]byte, SaltLength)
	if _, err := rand.Read(newSalt); err != nil {
		return fmt.Errorf("failed to generate new salt [%w]", err)
	}
	if err := os.WriteFile(saltFilePath, newSalt, 0600); err != nil {
		return fmt.Errorf("failed to persist new salt at %s [%w]", saltFilePath, err)
	}

	log.WithFields(e.LogTags).
		WithField("salt_file", saltFilePath).
		Debug("Generated new key derivation salt")

	e.salt = newSalt
	return nil
}
