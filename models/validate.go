package models

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

/*
RegisterWithValidator register with the validator this custom validation support

	@param v *validator.Validate - the validator to register against
	@return whether successful
*/
func RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation(
		"vault_event_type", validateVaultEventType,
	); err != nil {
		return err
	}

	return nil
}

func validateVaultEventType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch VaultEventTypeENUMType(fl.Field().String()) {
	case VaultEventTypeVaultCreated:
		fallthrough
	case VaultEventTypeAddSecret:
		fallthrough
	case VaultEventTypeDeleteSecret:
		return true
	}
	return false
}
