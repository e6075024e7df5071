// Package vault - vault session orchestration
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/passkeep/passkeep/config"
	"github.com/passkeep/passkeep/db"
	"github.com/passkeep/passkeep/encryption"
	"github.com/passkeep/passkeep/models"
)

/*
Session an authenticated vault session.

A session owns a transient decrypted working copy of the vault. Every
mutation is applied to the working copy and then synchronously re-encrypted
and atomically swapped into the persisted vault blob before the call returns.
Closing the session discards the working copy and the in-memory key.

A session is meant for single-process use; two processes opening the same
vault concurrently is unsupported.
*/
type Session interface {
	/*
		Insert add a new secret record. The change is persisted before returning.

			@param ctx context.Context - execution context
			@param service string - service name, required
			@param password string - the secret, required
			@param username string - optional account name
			@param notes string - optional notes
			@returns the new record ID
	*/
	Insert(
		ctx context.Context, service string, password string, username string, notes string,
	) (uint, error)

	/*
		List fetch all secret records ordered by ID ascending

			@param ctx context.Context - execution context
			@returns the records
	*/
	List(ctx context.Context) ([]models.SecretRecord, error)

	/*
		GetByService fetch the secret records matching a service name exactly.
		Zero, one, or many records may match.

			@param ctx context.Context - execution context
			@param service string - exact service name
			@returns the matching records ordered by ID ascending
	*/
	GetByService(ctx context.Context, service string) ([]models.SecretRecord, error)

	/*
		Search fetch the secret records whose service name contains a fragment

			@param ctx context.Context - execution context
			@param fragment string - service name fragment
			@returns the matching records ordered by ID ascending
	*/
	Search(ctx context.Context, fragment string) ([]models.SecretRecord, error)

	/*
		GetByID fetch one secret record by ID

			@param ctx context.Context - execution context
			@param id uint - record ID
			@returns the record
	*/
	GetByID(ctx context.Context, id uint) (models.SecretRecord, error)

	/*
		Delete remove a secret record permanently. The change is persisted before
		returning.

			@param ctx context.Context - execution context
			@param id uint - record ID
			@returns the removed record's service and username for confirmation
			    messaging
	*/
	Delete(ctx context.Context, id uint) (string, string, error)

	/*
		CopyToClipboard resolve a selector to exactly one record and place its
		password on the clipboard. A service-only selector matching multiple
		records fails with AmbiguousMatchError carrying the candidate list.

			@param ctx context.Context - execution context
			@param selector Selector - the record selector
			@returns a confirmation message
	*/
	CopyToClipboard(ctx context.Context, selector Selector) (string, error)

	/*
		History list the vault activity events, oldest first

			@param ctx context.Context - execution context
			@returns the events
	*/
	History(ctx context.Context) ([]models.VaultEvent, error)

	/*
		Close discard the in-memory key and the decrypted working copy. Idempotent.
	*/
	Close() error
}

// sessionStateENUMType session state ENUM value type
type sessionStateENUMType string

const (
	sessionStateOpen   sessionStateENUMType = "OPEN"
	sessionStateClosed sessionStateENUMType = "CLOSED"
)

// vaultSession implements Session
type vaultSession struct {
	goutils.Component

	cfg       config.Config
	crypto    encryption.Engine
	clipboard Clipboard

	persistence db.Client
	key         []byte
	scratchFile string
	state       sessionStateENUMType

	// opLock serializes session operations so an interrupt handler can Close
	// safely while an operation is in flight
	opLock *sync.Mutex
}

// SessionParams vault session init parameters
type SessionParams struct {
	// Config the vault installation configuration
	Config config.Config `validate:"required"`
	// Crypto the cryptography engine holding the installation salt
	Crypto encryption.Engine `validate:"required"`
	// Clipboard receiver for plaintext secrets on copy operations
	Clipboard Clipboard `validate:"required"`
	// DBLogLevel SQL log level for the working copy store
	DBLogLevel logger.LogLevel `validate:"-"`
}

/*
NewSession open a vault session.

On first run (no vault blob on disk) the supplied password becomes the master
password permanently: a fresh empty vault is created, the verifier bound, and
the blob persisted before the session opens. On any later run the blob is
decrypted into a scratch working copy and the password verified; a wrong
password and an undecryptable blob both surface as ErrAuthentication.

	@param ctx context.Context - execution context
	@param params SessionParams - session parameters
	@param masterPassword string - the master password
	@returns an open session
*/
func NewSession(
	ctx context.Context, params SessionParams, masterPassword string,
) (Session, error) {
	logTags := log.Fields{"module": "vault", "component": "session"}

	validate := validator.New()
	if err := validate.Struct(&params); err != nil {
		return nil, fmt.Errorf("invalid session init parameters [%w]", err)
	}
	if err := params.Config.Validate(validate); err != nil {
		return nil, err
	}
	if err := params.Config.EnsureBaseDir(); err != nil {
		return nil, err
	}

	instance := &vaultSession{
		Component: goutils.Component{
			LogTags: logTags,
		},
		cfg:       params.Config,
		crypto:    params.Crypto,
		clipboard: params.Clipboard,
		key:       params.Crypto.DeriveKey(masterPassword),
		scratchFile: filepath.Join(
			params.Config.BaseDir, fmt.Sprintf(".working-%s.db", uuid.NewString()),
		),
		state:  sessionStateClosed,
		opLock: &sync.Mutex{},
	}

	if _, err := os.Stat(params.Config.VaultFile); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot stat vault blob %s [%w]", params.Config.VaultFile, err)
		}
		// First run
		if err := instance.initializeVault(ctx, params.DBLogLevel, masterPassword); err != nil {
			instance.discardWorkingCopy()
			return nil, err
		}
	} else {
		if err := instance.materializeWorkingCopy(ctx, params.DBLogLevel); err != nil {
			instance.discardWorkingCopy()
			return nil, err
		}
		if err := instance.authenticate(ctx, masterPassword); err != nil {
			instance.discardWorkingCopy()
			return nil, err
		}
	}

	instance.state = sessionStateOpen
	log.WithFields(logTags).WithField("vault", params.Config.VaultFile).Debug("Vault session open")
	return instance, nil
}

// initializeVault first-run path: build an empty working copy, bind the
// verifier, and persist the initial blob
func (s *vaultSession) initializeVault(
	ctx context.Context, dbLogLevel logger.LogLevel, masterPassword string,
) error {
	if err := s.connectWorkingCopy(ctx, dbLogLevel); err != nil {
		return err
	}

	verifier, err := s.crypto.HashForVerification(masterPassword)
	if err != nil {
		return fmt.Errorf("failed to compute master password verifier [%w]", err)
	}

	if dbErr := s.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			if _, err := dbClient.RecordMasterAuth(dbCtx, verifier); err != nil {
				return fmt.Errorf("failed to bind master password verifier [%w]", err)
			}
			if _, err := dbClient.RecordVaultEvent(
				dbCtx, models.VaultEventTypeVaultCreated, nil,
			); err != nil {
				return fmt.Errorf("failed to log vault creation audit event [%w]", err)
			}
			return nil
		},
	); dbErr != nil {
		return fmt.Errorf("failed to initialize new vault [%w]", dbErr)
	}

	return s.persist(ctx)
}

// materializeWorkingCopy decrypt the persisted vault blob into the scratch
// working copy and open the record store against it
func (s *vaultSession) materializeWorkingCopy(
	ctx context.Context, dbLogLevel logger.LogLevel,
) error {
	blob, err := os.ReadFile(s.cfg.VaultFile)
	if err != nil {
		return fmt.Errorf("failed to read vault blob %s [%w]", s.cfg.VaultFile, err)
	}

	plainText, err := s.crypto.DecryptVault(ctx, s.key, blob)
	if err != nil {
		// Wrong password and corrupted blob are indistinguishable here
		return fmt.Errorf("vault blob failed decryption [%w]", ErrAuthentication)
	}

	if err := os.WriteFile(s.scratchFile, plainText, 0600); err != nil {
		return fmt.Errorf("failed to materialize working copy [%w]", err)
	}

	return s.connectWorkingCopy(ctx, dbLogLevel)
}

// connectWorkingCopy open the record store against the scratch working copy
func (s *vaultSession) connectWorkingCopy(
	ctx context.Context, dbLogLevel logger.LogLevel,
) error {
	client, err := db.NewConnection(db.GetSqliteDialector(s.scratchFile), dbLogLevel)
	if err != nil {
		return fmt.Errorf("failed to open working copy store [%w]", err)
	}
	s.persistence = client

	if err := client.RunSQLInTransaction(ctx, db.DefineTables); err != nil {
		return fmt.Errorf("failed to prepare working copy tables [%w]", err)
	}

	return nil
}

// authenticate verify the candidate master password against the stored
// verifier inside the decrypted working copy
func (s *vaultSession) authenticate(ctx context.Context, masterPassword string) error {
	var authEntry models.MasterAuth
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			authEntry, err = dbClient.GetMasterAuth(dbCtx)
			return err
		},
	); dbErr != nil {
		// A decryptable blob without a verifier row is not a valid vault
		return fmt.Errorf("vault holds no master auth entry [%w]", ErrAuthentication)
	}

	if err := s.crypto.VerifyPassword(authEntry.Verifier, masterPassword); err != nil {
		return fmt.Errorf("master password rejected [%w]", ErrAuthentication)
	}

	return nil
}

// persist re-encrypt the working copy and atomically replace the persisted
// vault blob. Write goes to a temporary file first, then swaps via rename, so
// a crash mid-write cannot corrupt the previously valid blob.
func (s *vaultSession) persist(ctx context.Context) error {
	plainText, err := os.ReadFile(s.scratchFile)
	if err != nil {
		return fmt.Errorf("failed to read working copy: %s [%w]", err.Error(), ErrPersistence)
	}

	blob, err := s.crypto.EncryptVault(ctx, s.key, plainText)
	if err != nil {
		return fmt.Errorf("failed to re-encrypt vault: %s [%w]", err.Error(), ErrPersistence)
	}

	swapFile := s.cfg.VaultFile + ".tmp"
	if err := os.WriteFile(swapFile, blob, 0600); err != nil {
		return fmt.Errorf("failed to stage vault blob: %s [%w]", err.Error(), ErrPersistence)
	}
	if err := os.Rename(swapFile, s.cfg.VaultFile); err != nil {
		return fmt.Errorf("failed to swap vault blob: %s [%w]", err.Error(), ErrPersistence)
	}

	return nil
}

// discardWorkingCopy release the store connection and erase the scratch file
func (s *vaultSession) discardWorkingCopy() {
	if s.persistence != nil {
		if err := s.persistence.Close(); err != nil {
			log.WithError(err).WithFields(s.LogTags).Error("Working copy store close failed")
		}
		s.persistence = nil
	}
	if err := os.Remove(s.scratchFile); err != nil && !os.IsNotExist(err) {
		log.WithError(err).WithFields(s.LogTags).
			WithField("scratch", s.scratchFile).
			Error("Working copy erase failed")
	}
}

/*
Insert add a new secret record. The change is persisted before returning.

	@param ctx context.Context - execution context
	@param service string - service name, required
	@param password string - the secret, required
	@param username string - optional account name
	@param notes string - optional notes
	@returns the new record ID
*/
func (s *vaultSession) Insert(
	ctx context.Context, service string, password string, username string, notes string,
) (uint, error) {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	if s.state != sessionStateOpen {
		return 0, ErrSessionClosed
	}

	// Reject before touching the store, so nothing is persisted
	if service == "" || password == "" {
		return 0, fmt.Errorf("service and password are required [%w]", ErrValidation)
	}

	var record models.SecretRecord
	if dbErr := s.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			record, err = dbClient.InsertSecret(dbCtx, service, password, username, notes)
			return err
		},
	); dbErr != nil {
		return 0, fmt.Errorf("failed to insert secret for '%s' [%w]", service, dbErr)
	}

	if err := s.persist(ctx); err != nil {
		return 0, err
	}

	return record.ID, nil
}

/*
List fetch all secret records ordered by ID ascending

	@param ctx context.Context - execution context
	@returns the records
*/
func (s *vaultSession) List(ctx context.Context) ([]models.SecretRecord, error) {
	return s.listSecrets(ctx, db.SecretQueryFilter{})
}

/*
GetByService fetch the secret records matching a service name exactly

	@param ctx context.Context - execution context
	@param service string - exact service name
	@returns the matching records ordered by ID ascending
*/
func (s *vaultSession) GetByService(
	ctx context.Context, service string,
) ([]models.SecretRecord, error) {
	return s.listSecrets(ctx, db.SecretQueryFilter{Service: &service})
}

/*
Search fetch the secret records whose service name contains a fragment

	@param ctx context.Context - execution context
	@param fragment string - service name fragment
	@returns the matching records ordered by ID ascending
*/
func (s *vaultSession) Search(
	ctx context.Context, fragment string,
) ([]models.SecretRecord, error) {
	return s.listSecrets(ctx, db.SecretQueryFilter{ServiceLike: &fragment})
}

// listSecrets shared query path for the read operations
func (s *vaultSession) listSecrets(
	ctx context.Context, filters db.SecretQueryFilter,
) ([]models.SecretRecord, error) {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	if s.state != sessionStateOpen {
		return nil, ErrSessionClosed
	}

	var records []models.SecretRecord
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			records, err = dbClient.ListSecrets(dbCtx, filters)
			return err
		},
	); dbErr != nil {
		return nil, fmt.Errorf("failed to list secrets [%w]", dbErr)
	}

	return records, nil
}

/*
GetByID fetch one secret record by ID

	@param ctx context.Context - execution context
	@param id uint - record ID
	@returns the record
*/
func (s *vaultSession) GetByID(ctx context.Context, id uint) (models.SecretRecord, error) {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	return s.getByID(ctx, id)
}

// getByID fetch one record by ID. Caller must hold opLock.
func (s *vaultSession) getByID(ctx context.Context, id uint) (models.SecretRecord, error) {
	if s.state != sessionStateOpen {
		return models.SecretRecord{}, ErrSessionClosed
	}

	var record models.SecretRecord
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			record, err = dbClient.GetSecret(dbCtx, id)
			return err
		},
	); dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return models.SecretRecord{}, fmt.Errorf("no record with ID %d [%w]", id, ErrNotFound)
		}
		return models.SecretRecord{}, fmt.Errorf("failed to fetch secret %d [%w]", id, dbErr)
	}

	return record, nil
}

/*
Delete remove a secret record permanently. The change is persisted before
returning.

	@param ctx context.Context - execution context
	@param id uint - record ID
	@returns the removed record's service and username for confirmation messaging
*/
func (s *vaultSession) Delete(ctx context.Context, id uint) (string, string, error) {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	if s.state != sessionStateOpen {
		return "", "", ErrSessionClosed
	}

	var removed models.SecretRecord
	if dbErr := s.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			removed, err = dbClient.DeleteSecret(dbCtx, id)
			return err
		},
	); dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return "", "", fmt.Errorf("no record with ID %d [%w]", id, ErrNotFound)
		}
		return "", "", fmt.Errorf("failed to delete secret %d [%w]", id, dbErr)
	}

	if err := s.persist(ctx); err != nil {
		return "", "", err
	}

	return removed.Service, removed.Username, nil
}

/*
CopyToClipboard resolve a selector to exactly one record and place its
password on the clipboard

	@param ctx context.Context - execution context
	@param selector Selector - the record selector
	@returns a confirmation message
*/
func (s *vaultSession) CopyToClipboard(
	ctx context.Context, selector Selector,
) (string, error) {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	if s.state != sessionStateOpen {
		return "", ErrSessionClosed
	}

	record, err := s.resolveSelector(ctx, selector)
	if err != nil {
		return "", err
	}

	if err := s.clipboard.WriteText(record.Password); err != nil {
		return "", fmt.Errorf("failed to place secret on clipboard [%w]", err)
	}

	if record.Username != "" {
		return fmt.Sprintf(
			"Copied password for '%s' (%s) to clipboard", record.Service, record.Username,
		), nil
	}
	return fmt.Sprintf("Copied password for '%s' to clipboard", record.Service), nil
}

// resolveSelector resolve a selector to exactly one record. Caller must hold
// opLock.
func (s *vaultSession) resolveSelector(
	ctx context.Context, selector Selector,
) (models.SecretRecord, error) {
	if selector.ID != nil {
		return s.getByID(ctx, *selector.ID)
	}

	if selector.Service == "" {
		return models.SecretRecord{}, fmt.Errorf(
			"selector needs an ID or a service name [%w]", ErrValidation,
		)
	}

	filters := db.SecretQueryFilter{Service: &selector.Service, Username: selector.Username}
	var matches []models.SecretRecord
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			matches, err = dbClient.ListSecrets(dbCtx, filters)
			return err
		},
	); dbErr != nil {
		return models.SecretRecord{}, fmt.Errorf(
			"failed to query secrets for '%s' [%w]", selector.Service, dbErr,
		)
	}

	if len(matches) == 0 {
		return models.SecretRecord{}, fmt.Errorf(
			"no record for service '%s' [%w]", selector.Service, ErrNotFound,
		)
	}

	// A service-only selector must resolve unambiguously; hand the caller the
	// candidate list instead of silently picking one
	if selector.Username == nil && len(matches) > 1 {
		ambiguity := &AmbiguousMatchError{Service: selector.Service}
		for _, match := range matches {
			ambiguity.Candidates = append(ambiguity.Candidates, Candidate{
				ID:       match.ID,
				Service:  match.Service,
				Username: match.Username,
				Notes:    match.Notes,
			})
		}
		return models.SecretRecord{}, ambiguity
	}

	return matches[0], nil
}

/*
History list the vault activity events, oldest first

	@param ctx context.Context - execution context
	@returns the events
*/
func (s *vaultSession) History(ctx context.Context) ([]models.VaultEvent, error) {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	if s.state != sessionStateOpen {
		return nil, ErrSessionClosed
	}

	var events []models.VaultEvent
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			events, err = dbClient.ListVaultEvents(dbCtx, db.VaultEventQueryFilter{})
			return err
		},
	); dbErr != nil {
		return nil, fmt.Errorf("failed to list vault events [%w]", dbErr)
	}

	return events, nil
}

/*
Close discard the in-memory key and the decrypted working copy. Idempotent.
*/
func (s *vaultSession) Close() error {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	if s.state == sessionStateClosed {
		return nil
	}

	s.discardWorkingCopy()

	// Best-effort in-process hygiene
	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil

	s.state = sessionStateClosed
	log.WithFields(s.LogTags).Debug("Vault session closed")
	return nil
}
