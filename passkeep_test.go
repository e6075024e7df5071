package passkeep_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"

	"github.com/passkeep/passkeep"
	"github.com/passkeep/passkeep/config"
	"github.com/passkeep/passkeep/models"
	"github.com/passkeep/passkeep/vault"
)

func TestVaultEndToEnd(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	cfg := config.DefaultAt(fmt.Sprintf("/tmp/passkeep_ut_%s", ulid.Make().String()))
	cfg.KDFIterations = 4096

	var copied []string
	clipboard := vault.ClipboardFunc(func(text string) error {
		copied = append(copied, text)
		return nil
	})

	// Case 0: opening a fresh installation creates the vault directory, the
	// salt file, and an empty encrypted vault blob
	uut, err := passkeep.Open(utCtx, cfg, clipboard, logger.Error, "Secr3t!")
	assert.Nil(err)
	_, err = os.Stat(cfg.SaltFile)
	assert.Nil(err)
	_, err = os.Stat(cfg.VaultFile)
	assert.Nil(err)

	records, err := uut.List(utCtx)
	assert.Nil(err)
	assert.Empty(records)

	// Case 1: store a credential
	githubID, err := uut.Insert(utCtx, "github", "hunter2", "alice", "work acct")
	assert.Nil(err)

	records, err = uut.List(utCtx)
	assert.Nil(err)
	assert.Len(records, 1)
	assert.Equal("github", records[0].Service)

	assert.Nil(uut.Close())

	// Case 2: the stored credential survives a process restart
	uut, err = passkeep.Open(utCtx, cfg, clipboard, logger.Error, "Secr3t!")
	assert.Nil(err)

	record, err := uut.GetByID(utCtx, githubID)
	assert.Nil(err)
	assert.Equal("hunter2", record.Password)
	assert.Equal("alice", record.Username)

	// Case 3: add a second credential for another service, then copy by
	// service name
	_, err = uut.Insert(utCtx, "mail", "s3same", "alice", "")
	assert.Nil(err)

	confirmation, err := uut.CopyToClipboard(utCtx, vault.ByService("mail"))
	assert.Nil(err)
	assert.Contains(confirmation, "mail")
	assert.Equal([]string{"s3same"}, copied)

	// Case 4: a second account on the same service makes the service name
	// ambiguous; copy by ID instead
	copied = nil
	mailBobID, err := uut.Insert(utCtx, "mail", "bob-pw", "bob", "")
	assert.Nil(err)

	_, err = uut.CopyToClipboard(utCtx, vault.ByService("mail"))
	var ambiguity *vault.AmbiguousMatchError
	assert.ErrorAs(err, &ambiguity)
	assert.Len(ambiguity.Candidates, 2)
	assert.Empty(copied)

	_, err = uut.CopyToClipboard(utCtx, vault.ByID(mailBobID))
	assert.Nil(err)
	assert.Equal([]string{"bob-pw"}, copied)

	// Case 5: search and delete
	records, err = uut.Search(utCtx, "mail")
	assert.Nil(err)
	assert.Len(records, 2)

	service, username, err := uut.Delete(utCtx, mailBobID)
	assert.Nil(err)
	assert.Equal("mail", service)
	assert.Equal("bob", username)

	// Case 6: the activity trail covers the whole session history
	events, err := uut.History(utCtx)
	assert.Nil(err)
	assert.Len(events, 5)
	assert.Equal(models.VaultEventTypeVaultCreated, events[0].EventType)
	assert.Equal(models.VaultEventTypeDeleteSecret, events[4].EventType)

	assert.Nil(uut.Close())

	// Case 7: the wrong master password never opens the vault
	_, err = passkeep.Open(utCtx, cfg, clipboard, logger.Error, "wrong password")
	assert.ErrorIs(err, vault.ErrAuthentication)
}
