package form_test

import (
	"strings"
	"testing"

	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/form"
	"github.com/prior-it/clientbook/tests"
	"github.com/stretchr/testify/assert"
)

func validDraft() form.Draft {
	return form.DraftFrom(tests.Customer())
}

func TestValidate(t *testing.T) {
	t.Run("ok: valid draft has no errors", func(t *testing.T) {
		assert.Empty(t, form.Validate(validDraft()))
	})

	t.Run("ok: empty full name is allowed", func(t *testing.T) {
		d := validDraft()
		d.FullName = ""
		assert.Empty(t, form.Validate(d))
	})

	t.Run("ok: full name length is counted in characters", func(t *testing.T) {
		d := validDraft()
		d.FullName = strings.Repeat("é", core.MaxFullNameLength)
		assert.Empty(t, form.Validate(d))

		d.FullName += "é"
		assert.Equal(t, form.Errors{"fullName": form.MessageFullNameTooLong}, form.Validate(d))
	})

	t.Run("err: every violation is reported", func(t *testing.T) {
		d := form.EmptyDraft()
		d.Addresses = append(d.Addresses, core.Address{AddressLine1: "Main Street 1", Postcode: "12345"})
		errs := form.Validate(d)
		assert.Equal(t, form.Errors{
			"taxId":          form.MessageInvalidTaxID,
			"email":          form.MessageInvalidEmail,
			"mobile":         form.MessageInvalidMobile,
			"addressLine1_0": form.MessageAddressLine1Needed,
			"postcode_0":     form.MessageInvalidPostcode,
			"postcode_1":     form.MessageInvalidPostcode,
		}, errs)
	})

	t.Run("err: invalid mobile", func(t *testing.T) {
		d := validDraft()
		d.Mobile = "5123456789"
		assert.Equal(t, form.Errors{"mobile": "Invalid mobile number"}, form.Validate(d))
	})

	t.Run("err: lowercase tax id", func(t *testing.T) {
		d := validDraft()
		d.TaxID = strings.ToLower(d.TaxID)
		assert.Equal(t, form.Errors{"taxId": "Invalid tax ID"}, form.Validate(d))
	})
}

func TestErrorKeys(t *testing.T) {
	assert.Equal(t, "postcode_3", form.AddressKey(form.FieldPostcode, 3))
	assert.Equal(t, "postcode", form.Errors{}.Field("postcode_3"))
	assert.Equal(t, "email", form.Errors{}.Field("email"))
}
