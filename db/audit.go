package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"

	"github.com/passkeep/passkeep/models"
)

// defineNewVaultEvent record a new vault event
func (d *databaseImpl) defineNewVaultEvent(
	eventType models.VaultEventTypeENUMType, metadata interface{},
) (models.VaultEvent, error) {

	newEntry := vaultEventEntry{
		VaultEvent: models.VaultEvent{ID: ulid.Make().String(), EventType: eventType},
	}

	if metadata != nil {
		if err := d.validator.Struct(metadata); err != nil {
			return models.VaultEvent{}, fmt.Errorf(
				"new vault event '%s' metadata entry is not valid [%w]", eventType, err,
			)
		}

		metadataStr, _ := json.Marshal(&metadata)
		newEntry.Metadata = datatypes.JSON(metadataStr)
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.VaultEvent{}, fmt.Errorf(
			"new vault event '%s' entry is not valid [%w]", eventType, err,
		)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.VaultEvent{}, fmt.Errorf(
			"new vault event '%s' insert failed [%w]", eventType, tmp.Error,
		)
	}

	return newEntry.VaultEvent, nil
}

/*
RecordVaultEvent record a vault event

	@param ctx context.Context - execution context
	@param eventType models.VaultEventTypeENUMType - event type
	@param metadata interface{} - optional event metadata
	@returns the event entry
*/
func (d *databaseImpl) RecordVaultEvent(
	_ context.Context, eventType models.VaultEventTypeENUMType, metadata interface{},
) (models.VaultEvent, error) {
	return d.defineNewVaultEvent(eventType, metadata)
}

/*
ListVaultEvents list captured vault events, oldest first

	@param ctx context.Context - execution context
	@param filters VaultEventQueryFilter - entry listing filter
	@return list of vault events
*/
func (d *databaseImpl) ListVaultEvents(
	_ context.Context, filters VaultEventQueryFilter,
) ([]models.VaultEvent, error) {
	query := d.db.Model(&vaultEventEntry{})

	if len(filters.EventTypes) > 0 {
		query = query.Where("type in ?", filters.EventTypes)
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	// ULIDs sort lexically in creation order
	query = query.Order("id")

	var entries []vaultEventEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list captured vault events [%w]", tmp.Error)
	}

	result := []models.VaultEvent{}
	for _, entry := range entries {
		result = append(result, entry.VaultEvent)
	}

	return result, nil
}
