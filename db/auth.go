package db

import (
	"context"
	"fmt"

	"github.com/passkeep/passkeep/models"
)

/*
GetMasterAuth fetch the singleton master auth entry

	@param ctx context.Context - execution context
	@returns the entry
*/
func (d *databaseImpl) GetMasterAuth(_ context.Context) (models.MasterAuth, error) {
	var entry masterAuthEntry
	if tmp := d.db.Where("id = ?", models.MasterAuthEntryID).First(&entry); tmp.Error != nil {
		return models.MasterAuth{}, fmt.Errorf(
			"failed to fetch master auth entry [%w]", tmp.Error,
		)
	}
	return entry.MasterAuth, nil
}

/*
RecordMasterAuth store the master password verifier. Only meaningful on the
first-run path; the entry is a singleton.

	@param ctx context.Context - execution context
	@param verifier string - verifier in PHC string format
	@returns the entry
*/
func (d *databaseImpl) RecordMasterAuth(
	_ context.Context, verifier string,
) (models.MasterAuth, error) {
	newEntry := masterAuthEntry{
		MasterAuth: models.MasterAuth{
			ID:       models.MasterAuthEntryID,
			Verifier: verifier,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.MasterAuth{}, fmt.Errorf("new master auth entry is not valid [%w]", err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.MasterAuth{}, fmt.Errorf("master auth entry failed insert [%w]", tmp.Error)
	}

	return newEntry.MasterAuth, nil
}
