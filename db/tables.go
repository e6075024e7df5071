package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/passkeep/passkeep/models"
)

// --------------------------------------------------------------------------------------
// Master password verification

type masterAuthEntry struct {
	models.MasterAuth
}

// TableName hard code table name
func (masterAuthEntry) TableName() string {
	return "master_auth"
}

// --------------------------------------------------------------------------------------
// Vault audit events

type vaultEventEntry struct {
	models.VaultEvent
}

// TableName hard code table name
func (vaultEventEntry) TableName() string {
	return "vault_audit_events"
}

// --------------------------------------------------------------------------------------
// Secret records

// secretEntry credential record DB entry
type secretEntry struct {
	models.SecretRecord
}

// TableName hard code table name
func (secretEntry) TableName() string {
	return "secrets"
}

// DefineTables prepare a working copy database with the vault tables
func DefineTables(_ context.Context, db *gorm.DB) error {
	return db.AutoMigrate(
		masterAuthEntry{},
		vaultEventEntry{},
		secretEntry{},
	)
}
