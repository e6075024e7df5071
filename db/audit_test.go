package db_test

import (
	"context"
	"testing"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/passkeep/passkeep/db"
	"github.com/passkeep/passkeep/models"
)

func TestVaultEventRecording(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := utPrepareTestDB(t)

	// Case 0: record an event without metadata
	assert.Nil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			entry, err := dbClient.RecordVaultEvent(ctx, models.VaultEventTypeVaultCreated, nil)
			assert.Nil(err)
			assert.Equal(models.VaultEventTypeVaultCreated, entry.EventType)
			assert.Empty(entry.Metadata)
			return nil
		},
	))

	// Case 1: record events carrying secret related metadata
	assert.Nil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.RecordVaultEvent(
				ctx,
				models.VaultEventTypeAddSecret,
				models.VaultEventSecretRelated{SecretID: 1, Service: "github"},
			)
			assert.Nil(err)
			_, err = dbClient.RecordVaultEvent(
				ctx,
				models.VaultEventTypeDeleteSecret,
				models.VaultEventSecretRelated{SecretID: 1, Service: "github"},
			)
			assert.Nil(err)
			return nil
		},
	))

	// Case 2: recording with an unknown event type fails
	assert.NotNil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.RecordVaultEvent(ctx, "NOT_AN_EVENT", nil)
			return err
		},
	))

	// Case 3: recording with invalid metadata fails
	assert.NotNil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.RecordVaultEvent(
				ctx, models.VaultEventTypeAddSecret, models.VaultEventSecretRelated{},
			)
			return err
		},
	))

	// Case 4: list the captured events, oldest first
	validate := validator.New()
	assert.Nil(models.RegisterWithValidator(validate))
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		events, err := dbClient.ListVaultEvents(ctx, db.VaultEventQueryFilter{})
		assert.Nil(err)
		assert.Len(events, 3)
		assert.Equal(models.VaultEventTypeVaultCreated, events[0].EventType)
		assert.Equal(models.VaultEventTypeAddSecret, events[1].EventType)
		assert.Equal(models.VaultEventTypeDeleteSecret, events[2].EventType)

		// The metadata parses back into the typed form
		parsed, err := events[1].ParseMetadata(validate)
		assert.Nil(err)
		metadata, ok := parsed.(models.VaultEventSecretRelated)
		assert.True(ok)
		assert.Equal(uint(1), metadata.SecretID)
		assert.Equal("github", metadata.Service)
		return nil
	}))

	// Case 5: filter events by type
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		events, err := dbClient.ListVaultEvents(ctx, db.VaultEventQueryFilter{
			EventTypes: []models.VaultEventTypeENUMType{models.VaultEventTypeAddSecret},
		})
		assert.Nil(err)
		assert.Len(events, 1)
		assert.Equal(models.VaultEventTypeAddSecret, events[0].EventType)
		return nil
	}))

	assert.Nil(uut.Close())
}
