package models

import "time"

// SecretRecord a stored credential entry
type SecretRecord struct {
	// ID record ID, assigned by the store on insert, never reused
	ID uint `json:"id" gorm:"column:id;primaryKey;autoIncrement" validate:"-"`

	// Service the service this credential belongs to
	Service string `json:"service" gorm:"column:service;not null" validate:"required"`

	// Username optional account name. Multiple records may share a
	// (service, username) pair.
	Username string `json:"username" gorm:"column:username"`

	// Password the stored secret, kept verbatim
	Password string `json:"password" gorm:"column:password;not null" validate:"required"`

	// Notes optional free-form notes
	Notes string `json:"notes" gorm:"column:notes"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
}
