package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// VaultEventTypeENUMType vault event type ENUM value type
type VaultEventTypeENUMType string

const (
	// VaultEventTypeVaultCreated the vault was created
	VaultEventTypeVaultCreated VaultEventTypeENUMType = "VAULT_CREATED"

	// VaultEventTypeAddSecret a new secret record is being added
	VaultEventTypeAddSecret VaultEventTypeENUMType = "ADD_SECRET"

	// VaultEventTypeDeleteSecret a secret record is deleted
	VaultEventTypeDeleteSecret VaultEventTypeENUMType = "DELETE_SECRET"
)

// VaultEvent recording of events occurring against the vault
//
// The events are stored inside the encrypted vault blob, so the activity
// history gets the same confidentiality as the secrets themselves.
type VaultEvent struct {
	// ID audit entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required"`
	// EventType vault event type
	EventType VaultEventTypeENUMType `json:"type" gorm:"column:type;not null" validate:"required,vault_event_type"`
	// Metadata a metadata relating to the event
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"column:metadata;default:null"`
	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
}

// ParseMetadata parse the metadata based on the event type
func (a VaultEvent) ParseMetadata(validator *validator.Validate) (interface{}, error) {
	switch a.EventType {
	case VaultEventTypeAddSecret:
		fallthrough
	case VaultEventTypeDeleteSecret:
		var parsed VaultEventSecretRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("vault event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)
	}
	return nil, nil
}

// VaultEventSecretRelated vault event metadata related to a secret record
type VaultEventSecretRelated struct {
	// SecretID the secret record ID
	SecretID uint `json:"secret_id" validate:"required"`
	// Service the secret record service name
	Service string `json:"service" validate:"required"`
}
