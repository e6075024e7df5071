// Package db - working copy persistence layer
package db

import (
	"context"
	"fmt"

	"github.com/passkeep/passkeep/models"
)

/*
InsertSecret insert a new secret record

	@param ctx context.Context - execution context
	@param service string - service name, required
	@param password string - the secret, required
	@param username string - optional account name
	@param notes string - optional notes
	@returns the new record
*/
func (d *databaseImpl) InsertSecret(
	_ context.Context, service string, password string, username string, notes string,
) (models.SecretRecord, error) {
	newEntry := secretEntry{
		SecretRecord: models.SecretRecord{
			Service:  service,
			Username: username,
			Password: password,
			Notes:    notes,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.SecretRecord{}, fmt.Errorf("new secret '%s' is not valid [%w]", service, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.SecretRecord{}, fmt.Errorf(
			"new secret '%s' failed insert [%w]", service, tmp.Error,
		)
	}

	// Record this event
	if _, err := d.defineNewVaultEvent(
		models.VaultEventTypeAddSecret,
		models.VaultEventSecretRelated{SecretID: newEntry.ID, Service: service},
	); err != nil {
		return models.SecretRecord{}, fmt.Errorf(
			"failed to log add secret '%s' audit event [%w]", service, err,
		)
	}

	return newEntry.SecretRecord, nil
}

// getSecretEntry find a secret record by ID
func (d *databaseImpl) getSecretEntry(secretID uint) (secretEntry, error) {
	var entry secretEntry
	err := d.db.Where("id = ?", secretID).First(&entry).Error
	return entry, err
}

/*
GetSecret fetch a secret record by ID

	@param ctx context.Context - execution context
	@param secretID uint - secret record ID
	@returns the record
*/
func (d *databaseImpl) GetSecret(
	_ context.Context, secretID uint,
) (models.SecretRecord, error) {
	entry, err := d.getSecretEntry(secretID)
	if err != nil {
		return models.SecretRecord{}, fmt.Errorf("failed to fetch secret %d [%w]", secretID, err)
	}

	return entry.SecretRecord, nil
}

/*
ListSecrets list secret records ordered by ID ascending

	@param ctx context.Context - execution context
	@param filters SecretQueryFilter - entry listing filter
	@return list of records
*/
func (d *databaseImpl) ListSecrets(
	_ context.Context, filters SecretQueryFilter,
) ([]models.SecretRecord, error) {
	query := d.db.Model(&secretEntry{})

	if filters.Service != nil {
		query = query.Where("service = ?", *filters.Service)
	}
	if filters.Username != nil {
		query = query.Where("username = ?", *filters.Username)
	}
	if filters.ServiceLike != nil {
		query = query.Where("service LIKE ?", "%"+*filters.ServiceLike+"%")
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	query = query.Order("id")

	var entries []secretEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list secret records [%w]", tmp.Error)
	}

	result := []models.SecretRecord{}
	for _, entry := range entries {
		result = append(result, entry.SecretRecord)
	}

	return result, nil
}

/*
DeleteSecret delete a secret record

	@param ctx context.Context - execution context
	@param secretID uint - secret record ID
	@returns the removed record
*/
func (d *databaseImpl) DeleteSecret(
	_ context.Context, secretID uint,
) (models.SecretRecord, error) {
	entry, err := d.getSecretEntry(secretID)
	if err != nil {
		return models.SecretRecord{}, fmt.Errorf("failed to fetch secret %d [%w]", secretID, err)
	}

	if tmp := d.db.Delete(&entry); tmp.Error != nil {
		return models.SecretRecord{}, fmt.Errorf(
			"failed to delete secret %d [%w]", secretID, tmp.Error,
		)
	}

	// Record this event
	if _, err := d.defineNewVaultEvent(
		models.VaultEventTypeDeleteSecret,
		models.VaultEventSecretRelated{SecretID: entry.ID, Service: entry.Service},
	); err != nil {
		return models.SecretRecord{}, fmt.Errorf(
			"failed to log delete secret '%s' audit event [%w]", entry.Service, err,
		)
	}

	return entry.SecretRecord, nil
}
