// Package encryption - master password key derivation and vault blob encryption
package encryption

import (
	"context"
	"errors"
	"fmt"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
)

// SaltLength length in bytes of the persistent key derivation salt
const SaltLength = 32

// DefaultKDFIterations default PBKDF2-SHA256 iteration count
const DefaultKDFIterations = 100000

// derivedKeyLength length in bytes of the derived symmetric encryption key
const derivedKeyLength = 32

// ErrDecryptFailed the vault cipher text failed authenticated decryption.
//
// A wrong key and a tampered blob are indistinguishable at this layer.
var ErrDecryptFailed = errors.New("vault decryption failed")

// ErrVerifyMismatch the candidate password does not match the stored verifier
var ErrVerifyMismatch = errors.New("master password verification failed")

/*
Engine the vault's cryptography engine. It is solely responsible for all
cryptographic operations in the system.

It owns the persistent key derivation salt. The salt is bound to the
installation on first use and must never change afterwards; changing it
silently invalidates every previously derived key.
*/
type Engine interface {
	/*
		DeriveKey derive the symmetric vault encryption key from the master password
		and the persistent salt. Deterministic for fixed inputs.

			@param masterPassword string - the master password
			@returns the symmetric encryption key
	*/
	DeriveKey(masterPassword string) []byte

	/*
		HashForVerification compute a salted memory-hard verification hash of the
		master password. The hash uses its own random salt, distinct from the key
		derivation salt.

			@param masterPassword string - the master password
			@returns the verifier in PHC string format
	*/
	HashForVerification(masterPassword string) (string, error)

	/*
		VerifyPassword check a candidate password against a stored verifier using a
		constant-time comparison.

			@param verifier string - the stored verifier in PHC string format
			@param candidate string - the candidate master password
	*/
	VerifyPassword(verifier string, candidate string) error

	/*
		EncryptVault encrypt the serialized vault with authenticated encryption.
		The returned blob is nonce || cipher text, with the authentication tag
		appended by the AEAD.

			@param ctx context.Context - execution context
			@param key []byte - the symmetric encryption key
			@param plainText []byte - the serialized vault
			@returns the encrypted blob
	*/
	EncryptVault(ctx context.Context, key []byte, plainText []byte) ([]byte, error)

	/*
		DecryptVault decrypt an encrypted vault blob. Tampering or a wrong key
		surfaces as ErrDecryptFailed, never as silently corrupted plain text.

			@param ctx context.Context - execution context
			@param key []byte - the symmetric encryption key
			@param cipherText []byte - the encrypted blob
			@returns the serialized vault
	*/
	DecryptVault(ctx context.Context, key []byte, cipherText []byte) ([]byte, error)
}

// engineImpl implements Engine
type engineImpl struct {
	goutils.Component

	validator *validator.Validate

	salt          []byte
	kdfIterations int
}

// EngineParams cryptography engine init parameters
type EngineParams struct {
	// SaltFile file path to the persistent key derivation salt. Created with a
	// fresh random salt when missing.
	SaltFile string `validate:"required"`
	// KDFIterations PBKDF2-SHA256 iteration count
	KDFIterations int `validate:"required,gte=1"`
}

/*
NewEngine define new cryptography engine

	@param ctx context.Context - execution context
	@param params EngineParams - engine parameters
	@returns engine instance
*/
func NewEngine(ctx context.Context, params EngineParams) (Engine, error) {
	logTags := log.Fields{"module": "encryption", "component": "crypto-engine"}

	instance := &engineImpl{
		Component: goutils.Component{
			LogTags: logTags,
		},
		validator:     validator.New(),
		kdfIterations: params.KDFIterations,
	}

	if err := instance.validator.Struct(&params); err != nil {
		return nil, fmt.Errorf("invalid engine init parameters [%w]", err)
	}
	if err := instance.loadOrCreateSalt(ctx, params.SaltFile); err != nil {
		return nil, fmt.Errorf("failed to prepare key derivation salt [%w]", err)
	}

	return instance, nil
}
