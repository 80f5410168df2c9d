package form

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/prior-it/clientbook/core"
)

const (
	MessageInvalidTaxID       = "Invalid tax ID"
	MessageFullNameTooLong    = "Full name must be 140 characters or less"
	MessageInvalidEmail       = "Invalid email"
	MessageInvalidMobile      = "Invalid mobile number"
	MessageAddressLine1Needed = "Address line 1 is required"
	MessageInvalidPostcode    = "Invalid postcode"
)

// Errors maps field keys to a user-facing error message.
// Top-level fields use their field name as key, address fields use AddressKey.
type Errors map[string]string

// AddressKey returns the error key for a field of the address at the specified index.
func AddressKey(field AddressField, index int) string {
	return fmt.Sprintf("%s_%d", field, index)
}

// Field returns the field name for an error key, without the address index.
func (Errors) Field(key string) string {
	field, _, _ := strings.Cut(key, "_")
	return field
}

// Validate checks every field of the draft and returns all violations at once.
// An empty result means the draft can be committed.
func Validate(d Draft) Errors {
	errs := Errors{}
	if !core.IsValidTaxID(d.TaxID) {
		errs[string(FieldTaxID)] = MessageInvalidTaxID
	}
	if utf8.RuneCountInString(d.FullName) > core.MaxFullNameLength {
		errs[string(FieldFullName)] = MessageFullNameTooLong
	}
	if !core.IsValidEmail(d.Email) {
		errs[string(FieldEmail)] = MessageInvalidEmail
	}
	if !core.IsValidMobile(d.Mobile) {
		errs[string(FieldMobile)] = MessageInvalidMobile
	}
	for i, address := range d.Addresses {
		if len(address.AddressLine1) == 0 {
			errs[AddressKey(FieldAddressLine1, i)] = MessageAddressLine1Needed
		}
		if !core.IsValidPostcode(address.Postcode) {
			errs[AddressKey(FieldPostcode, i)] = MessageInvalidPostcode
		}
	}
	return errs
}
