package encryption

import (
	"context"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

/*
EncryptVault encrypt the serialized vault with authenticated encryption.
The returned blob is nonce || cipher text, with the authentication tag
appended by the AEAD.

	@param ctx context.Context - execution context
	@param key []byte - the symmetric encryption key
	@param plainText []byte - the serialized vault
	@returns the encrypted blob
*/
func (e *engineImpl) EncryptVault(
	_ context.Context, key []byte, plainText []byte,
) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("unable to define AEAD client [%w]", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plainText)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate AEAD nonce [%w]", err)
	}

	// Seal appends to the nonce, producing nonce || cipher text in one buffer
	return aead.Seal(nonce, nonce, plainText, nil), nil
}

/*
DecryptVault decrypt an encrypted vault blob. Tampering or a wrong key
surfaces as ErrDecryptFailed, never as silently corrupted plain text.

	@param ctx context.Context - execution context
	@param key []byte - the symmetric encryption key
	@param cipherText []byte - the encrypted blob
	@returns the serialized vault
*/
func (e *engineImpl) DecryptVault(
	_ context.Context, key []byte, cipherText []byte,
) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("unable to define AEAD client [%w]", err)
	}

	if len(cipherText) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("encrypted blob too short [%w]", ErrDecryptFailed)
	}

	nonce, sealed := cipherText[:aead.NonceSize()], cipherText[aead.NonceSize():]
	plainText, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("blob failed authenticated decryption [%w]", ErrDecryptFailed)
	}

	return plainText, nil
}
