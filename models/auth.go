// Package models - vault data models
package models

import "time"

// MasterAuthEntryID ID of the singleton master auth entry
const MasterAuthEntryID = "master-auth"

// MasterAuth the singleton master password verification entry.
//
// Only the verification hash is stored, never the password itself. The row
// lives inside the encrypted vault blob, so the hash also gets
// confidentiality at rest.
type MasterAuth struct {
	// ID param entry ID. It must always be master-auth
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,oneof=master-auth"`

	// Verifier Argon2id hash of the master password in PHC string format
	Verifier string `json:"verifier" gorm:"column:verifier;not null" validate:"required"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}
