package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/passkeep/passkeep/db"
	"github.com/passkeep/passkeep/models"
)

func TestMasterAuthEntry(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := utPrepareTestDB(t)

	// Case 0: no verifier recorded yet
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.GetMasterAuth(ctx)
		assert.True(errors.Is(err, gorm.ErrRecordNotFound))
		return nil
	}))

	// Case 1: record the verifier
	testVerifier := "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHQ$c29tZWhhc2g"
	assert.Nil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			entry, err := dbClient.RecordMasterAuth(ctx, testVerifier)
			assert.Nil(err)
			assert.Equal(models.MasterAuthEntryID, entry.ID)
			return nil
		},
	))

	// Case 2: fetch the singleton entry back
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entry, err := dbClient.GetMasterAuth(ctx)
		assert.Nil(err)
		assert.Equal(testVerifier, entry.Verifier)
		return nil
	}))

	// Case 3: recording an empty verifier fails
	assert.NotNil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.RecordMasterAuth(ctx, "")
			return err
		},
	))

	assert.Nil(uut.Close())
}
