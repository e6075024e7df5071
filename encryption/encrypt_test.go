package encryption_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"

	"github.com/passkeep/passkeep/encryption"
)

func TestCryptoEngineVaultBlob(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	testDir := fmt.Sprintf("/tmp/passkeep_ut_%s", ulid.Make().String())
	assert.Nil(os.MkdirAll(testDir, 0700))

	uut := utNewEngine(t, filepath.Join(testDir, "salt.key"))
	key := uut.DeriveKey("Secr3t!")

	plainText := make([]byte, 1024)
	_, err := rand.Read(plainText)
	assert.Nil(err)

	// Round trip
	blob, err := uut.EncryptVault(utCtx, key, plainText)
	assert.Nil(err)
	decrypted, err := uut.DecryptVault(utCtx, key, blob)
	assert.Nil(err)
	assert.Equal(plainText, decrypted)

	// Two encryptions of the same plain text differ (random nonce)
	blob2, err := uut.EncryptVault(utCtx, key, plainText)
	assert.Nil(err)
	assert.NotEqual(blob, blob2)

	// Flipping any byte of the blob fails authenticated decryption
	for _, idx := range []int{0, 7, len(blob) / 2, len(blob) - 1} {
		tampered := make([]byte, len(blob))
		copy(tampered, blob)
		tampered[idx] ^= 0x01

		_, err := uut.DecryptVault(utCtx, key, tampered)
		assert.ErrorIs(err, encryption.ErrDecryptFailed)
	}

	// A wrong key fails authenticated decryption
	wrongKey := uut.DeriveKey("Secr3t?")
	_, err = uut.DecryptVault(utCtx, wrongKey, blob)
	assert.ErrorIs(err, encryption.ErrDecryptFailed)

	// A truncated blob is rejected
	_, err = uut.DecryptVault(utCtx, key, blob[:8])
	assert.ErrorIs(err, encryption.ErrDecryptFailed)

	// Empty plain text still round trips
	emptyBlob, err := uut.EncryptVault(utCtx, key, []byte{})
	assert.Nil(err)
	empty, err := uut.DecryptVault(utCtx, key, emptyBlob)
	assert.Nil(err)
	assert.Empty(empty)
}
