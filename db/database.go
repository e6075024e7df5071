package db

import (
	"context"
	"fmt"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/passkeep/passkeep/models"
)

// CommonListEntryQueryFilter common query filter when listing data entries
type CommonListEntryQueryFilter struct {
	Limit  *int
	Offset *int
}

// SecretQueryFilter secret record query filter conditions
type SecretQueryFilter struct {
	CommonListEntryQueryFilter
	// Service filter for exact service name match
	Service *string
	// Username filter for exact username match
	Username *string
	// ServiceLike filter for case-insensitive service name substring match
	ServiceLike *string
}

// VaultEventQueryFilter vault event query filter conditions
type VaultEventQueryFilter struct {
	CommonListEntryQueryFilter
	// EventTypes the specific event types to query for
	EventTypes []models.VaultEventTypeENUMType
}

// Database the database handle for interacting with the working copy
type Database interface {
	// ------------------------------------------------------------------------------------
	// Master password verification

	/*
		GetMasterAuth fetch the singleton master auth entry

			@param ctx context.Context - execution context
			@returns the entry
	*/
	GetMasterAuth(ctx context.Context) (models.MasterAuth, error)

	/*
		RecordMasterAuth store the master password verifier. Only meaningful on the
		first-run path; the entry is a singleton.

			@param ctx context.Context - execution context
			@param verifier string - verifier in PHC string format
			@returns the entry
	*/
	RecordMasterAuth(ctx context.Context, verifier string) (models.MasterAuth, error)

	// ------------------------------------------------------------------------------------
	// Secret records

	/*
		InsertSecret insert a new secret record

			@param ctx context.Context - execution context
			@param service string - service name, required
			@param password string - the secret, required
			@param username string - optional account name
			@param notes string - optional notes
			@returns the new record
	*/
	InsertSecret(
		ctx context.Context, service string, password string, username string, notes string,
	) (models.SecretRecord, error)

	/*
		ListSecrets list secret records ordered by ID ascending

			@param ctx context.Context - execution context
			@param filters SecretQueryFilter - entry listing filter
			@return list of records
	*/
	ListSecrets(ctx context.Context, filters SecretQueryFilter) ([]models.SecretRecord, error)

	/*
		GetSecret fetch a secret record by ID

			@param ctx context.Context - execution context
			@param secretID uint - secret record ID
			@returns the record
	*/
	GetSecret(ctx context.Context, secretID uint) (models.SecretRecord, error)

	/*
		DeleteSecret delete a secret record

			@param ctx context.Context - execution context
			@param secretID uint - secret record ID
			@returns the removed record
	*/
	DeleteSecret(ctx context.Context, secretID uint) (models.SecretRecord, error)

	// ------------------------------------------------------------------------------------
	// Vault audit events

	/*
		RecordVaultEvent record a vault event

			@param ctx context.Context - execution context
			@param eventType models.VaultEventTypeENUMType - event type
			@param metadata interface{} - optional event metadata
			@returns the event entry
	*/
	RecordVaultEvent(
		ctx context.Context, eventType models.VaultEventTypeENUMType, metadata interface{},
	) (models.VaultEvent, error)

	/*
		ListVaultEvents list captured vault events, oldest first

			@param ctx context.Context - execution context
			@param filters VaultEventQueryFilter - entry listing filter
			@return list of vault events
	*/
	ListVaultEvents(
		ctx context.Context, filters VaultEventQueryFilter,
	) ([]models.VaultEvent, error)
}

// databaseImpl implements Database
type databaseImpl struct {
	goutils.Component
	db        *gorm.DB
	validator *validator.Validate
}

// newDatabase define a new database client
func newDatabase(_ context.Context, sqlClient *gorm.DB) (Database, error) {
	logTags := log.Fields{"package": "passkeep", "module": "db", "component": "db-client"}

	instance := &databaseImpl{
		Component: goutils.Component{
			LogTags: logTags,
		},
		db:        sqlClient,
		validator: validator.New(),
	}

	if err := models.RegisterWithValidator(instance.validator); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	return instance, nil
}
