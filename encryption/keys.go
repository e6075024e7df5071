package encryption

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// Argon2id parameters for the master password verifier. These are distinct
// from the key derivation parameters; the verifier only ever confirms
// password correctness.
const (
	verifierMemory      uint32 = 64 * 1024
	verifierIterations  uint32 = 3
	verifierParallelism uint8  = 2
	verifierSaltLength  uint32 = 16
	verifierKeyLength   uint32 = 32
)

// ErrInvalidVerifierFormat the stored verifier is not a valid PHC string
var ErrInvalidVerifierFormat = errors.New("invalid encoded verifier format")

/*
DeriveKey derive the symmetric vault encryption key from the master password
and the persistent salt. Deterministic for fixed inputs.

	@param masterPassword string - the master password
	@returns the symmetric encryption key
*/
func (e *engineImpl) DeriveKey(masterPassword string) []byte {
	return pbkdf2.Key(
		[]byte(masterPassword), e.salt, e.kdfIterations, derivedKeyLength, sha256.New,
	)
}

/*
HashForVerification compute a salted memory-hard verification hash of the
master password. The hash uses its own random salt, distinct from the key
derivation salt.

	@param masterPassword string - the master password
	@returns the verifier in PHC string format
*/
func (e *engineImpl) HashForVerification(masterPassword string) (string, error) {
	salt := make([]byte, verifierSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate verifier salt [%w]", err)
	}

	hash := argon2.IDKey(
		[]byte(masterPassword),
		salt,
		verifierIterations,
		verifierMemory,
		verifierParallelism,
		verifierKeyLength,
	)

	// PHC format: $argon2id$v=19$m=65536,t=3,p=2$<base64-salt>$<base64-hash>
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		verifierMemory,
		verifierIterations,
		verifierParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

/*
VerifyPassword check a candidate password against a stored verifier using a
constant-time comparison.

	@param verifier string - the stored verifier in PHC string format
	@param candidate string - the candidate master password
*/
func (e *engineImpl) VerifyPassword(verifier string, candidate string) error {
	salt, hash, memory, iterations, parallelism, err := decodeVerifier(verifier)
	if err != nil {
		return fmt.Errorf("failed to decode stored verifier [%w]", err)
	}

	candidateHash := argon2.IDKey(
		[]byte(candidate), salt, iterations, memory, parallelism, uint32(len(hash)),
	)

	if subtle.ConstantTimeCompare(hash, candidateHash) != 1 {
		return ErrVerifyMismatch
	}
	return nil
}

// decodeVerifier parse a PHC-formatted Argon2id verifier string
func decodeVerifier(verifier string) (
	salt []byte, hash []byte, memory uint32, iterations uint32, parallelism uint8, err error,
) {
	parts := strings.Split(verifier, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, ErrInvalidVerifierFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, ErrInvalidVerifierFormat
	}
	if version != argon2.Version {
		return nil, nil, 0, 0, 0, fmt.Errorf(
			"verifier argon2 version %d not supported", version,
		)
	}

	if _, err := fmt.Sscanf(
		parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism,
	); err != nil {
		return nil, nil, 0, 0, 0, ErrInvalidVerifierFormat
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, 0, 0, 0, ErrInvalidVerifierFormat
	}
	if hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, 0, 0, 0, ErrInvalidVerifierFormat
	}

	return salt, hash, memory, iterations, parallelism, nil
}
