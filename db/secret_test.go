package db_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/passkeep/passkeep/db"
)

// utPrepareTestDB define a working copy DB against a fresh sqlite file
func utPrepareTestDB(t *testing.T) db.Client {
	testDB := fmt.Sprintf("/tmp/passkeep_ut_%s.db", ulid.Make().String())
	client, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(t, err)
	assert.Nil(t, client.RunSQLInTransaction(
		context.Background(), func(ctx context.Context, tx *gorm.DB) error {
			return db.DefineTables(ctx, tx)
		},
	))
	return client
}

func TestSecretRecordCRUD(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := utPrepareTestDB(t)

	// Case 0: insert new secret records
	var record0, record1 uint
	assert.Nil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			entry, err := dbClient.InsertSecret(ctx, "github", "hunter2", "alice", "work acct")
			assert.Nil(err)
			assert.Equal("github", entry.Service)
			assert.Equal("alice", entry.Username)
			record0 = entry.ID

			entry, err = dbClient.InsertSecret(ctx, "mail", "s3same", "", "")
			assert.Nil(err)
			record1 = entry.ID
			return nil
		},
	))
	assert.NotEqual(record0, record1)

	// Case 1: records are assigned monotonically increasing IDs
	assert.Greater(record1, record0)

	// Case 2: insert with missing required fields fails
	assert.NotNil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.InsertSecret(ctx, "", "hunter2", "", "")
			return err
		},
	))
	assert.NotNil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.InsertSecret(ctx, "github", "", "", "")
			return err
		},
	))

	// Case 3: fetch individual records
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		entry, err := dbClient.GetSecret(ctx, record0)
		assert.Nil(err)
		assert.Equal("github", entry.Service)
		assert.Equal("hunter2", entry.Password)
		return nil
	}))

	// Case 4: fetching an unknown ID fails
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.GetSecret(ctx, record1+100)
		assert.True(errors.Is(err, gorm.ErrRecordNotFound))
		return nil
	}))

	// Case 5: delete a record, and verify the removed entry is returned
	assert.Nil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			removed, err := dbClient.DeleteSecret(ctx, record1)
			assert.Nil(err)
			assert.Equal("mail", removed.Service)
			return nil
		},
	))
	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.GetSecret(ctx, record1)
		assert.True(errors.Is(err, gorm.ErrRecordNotFound))

		// The other record is untouched
		entry, err := dbClient.GetSecret(ctx, record0)
		assert.Nil(err)
		assert.Equal("github", entry.Service)
		return nil
	}))

	// Case 6: deleting an unknown ID fails
	assert.Nil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			_, err := dbClient.DeleteSecret(ctx, record1)
			assert.True(errors.Is(err, gorm.ErrRecordNotFound))
			return nil
		},
	))

	assert.Nil(uut.Close())
}

func TestSecretRecordListing(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := utPrepareTestDB(t)

	// Setup: seed records across several services
	assert.Nil(uut.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			for _, seed := range []struct {
				service, password, username string
			}{
				{"github", "pw-0", "alice"},
				{"mail", "pw-1", "alice"},
				{"mail", "pw-2", "bob"},
				{"github-enterprise", "pw-3", "carol"},
			} {
				_, err := dbClient.InsertSecret(ctx, seed.service, seed.password, seed.username, "")
				assert.Nil(err)
			}
			return nil
		},
	))

	assert.Nil(uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		// Case 0: listing without filters returns everything ordered by ID
		entries, err := dbClient.ListSecrets(ctx, db.SecretQueryFilter{})
		assert.Nil(err)
		assert.Len(entries, 4)
		for idx := 1; idx < len(entries); idx++ {
			assert.Greater(entries[idx].ID, entries[idx-1].ID)
		}

		// Case 1: filter by exact service name
		service := "mail"
		entries, err = dbClient.ListSecrets(ctx, db.SecretQueryFilter{Service: &service})
		assert.Nil(err)
		assert.Len(entries, 2)
		for _, entry := range entries {
			assert.Equal("mail", entry.Service)
		}

		// Case 2: filter by service and username
		username := "bob"
		entries, err = dbClient.ListSecrets(
			ctx, db.SecretQueryFilter{Service: &service, Username: &username},
		)
		assert.Nil(err)
		assert.Len(entries, 1)
		assert.Equal("pw-2", entries[0].Password)

		// Case 3: substring search on service name
		fragment := "git"
		entries, err = dbClient.ListSecrets(ctx, db.SecretQueryFilter{ServiceLike: &fragment})
		assert.Nil(err)
		assert.Len(entries, 2)

		// Case 4: substring search matching nothing
		fragment = "no-such-service"
		entries, err = dbClient.ListSecrets(ctx, db.SecretQueryFilter{ServiceLike: &fragment})
		assert.Nil(err)
		assert.Empty(entries)

		// Case 5: limit and offset
		limit := 2
		offset := 1
		entries, err = dbClient.ListSecrets(ctx, db.SecretQueryFilter{
			CommonListEntryQueryFilter: db.CommonListEntryQueryFilter{Limit: &limit, Offset: &offset},
		})
		assert.Nil(err)
		assert.Len(entries, 2)
		assert.Equal("mail", entries[0].Service)
		return nil
	}))

	assert.Nil(uut.Close())
}
