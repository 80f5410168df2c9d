package core_test

import (
	"strings"
	"testing"
	"unicode"

	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/tests"
	"github.com/stretchr/testify/assert"
)

func isTaxIDShape(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i, r := range s {
		switch {
		case i < 5 || i == 9:
			if r < 'A' || r > 'Z' {
				return false
			}
		default:
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func FuzzTaxID(f *testing.F) {
	for _, seed := range []string{"ABCDE1234F", "abcde1234f", "ABCDE12345", "", "ABCDE1234FG", "ÄBCDE1234F"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, value string) {
		assert.Equal(
			t,
			isTaxIDShape(value),
			core.IsValidTaxID(value),
			"%q should only be valid if it has 5 letters, 4 digits and 1 letter",
			value,
		)
	})
}

func TestTaxID(t *testing.T) {
	t.Run("ok: generated tax ids", func(t *testing.T) {
		for range 20 {
			value := tests.TaxID()
			assert.True(t, core.IsValidTaxID(value), "%q should be a valid tax id", value)
		}
	})

	t.Run("err: tax ids are case-sensitive", func(t *testing.T) {
		value := tests.TaxID()
		assert.False(t, core.IsValidTaxID(strings.ToLower(value)))
	})

	t.Run("err: invalid tax ids", func(t *testing.T) {
		for _, value := range []string{
			"",
			"ABCDE1234",
			"ABCDE1234FF",
			"ABCD12345F",
			"ABCDE1234 ",
			" ABCDE1234F",
			"ABCDEF234F",
			"ABCDE12341",
			"ABCDE1234F\n",
		} {
			assert.False(t, core.IsValidTaxID(value), "%q should not be a valid tax id", value)
		}
	})
}

func TestEmail(t *testing.T) {
	t.Run("ok: valid e-mail addresses", func(t *testing.T) {
		for _, value := range []string{
			"jane@x.com",
			"a@b.c",
			"first.last@sub.example.org",
			tests.Faker.Email(),
		} {
			assert.True(t, core.IsValidEmail(value), "%q should be a valid e-mail address", value)
		}
	})

	t.Run("err: invalid e-mail addresses", func(t *testing.T) {
		for _, value := range []string{
			"",
			".",
			"@",
			"@.",
			"@.com",
			"abc@xyz",
			"abc@xyz.",
			"a b@x.com",
			"a@@x.com",
			"a@x .com",
		} {
			assert.False(t, core.IsValidEmail(value), "%q should not be a valid e-mail address", value)
		}
	})
}

func TestMobile(t *testing.T) {
	t.Run("ok: valid mobile numbers", func(t *testing.T) {
		assert.True(t, core.IsValidMobile("9876543210"))
		assert.True(t, core.IsValidMobile("6000000000"))
		assert.True(t, core.IsValidMobile(tests.Mobile()))
	})

	t.Run("err: invalid mobile numbers", func(t *testing.T) {
		for _, value := range []string{
			"1234567890",
			"5876543210",
			"987654321",
			"98765432101",
			"98765x3210",
			"",
		} {
			assert.False(t, core.IsValidMobile(value), "%q should not be a valid mobile number", value)
		}
	})
}

func TestPostcode(t *testing.T) {
	t.Run("ok: valid postcodes", func(t *testing.T) {
		assert.True(t, core.IsValidPostcode("400001"))
		assert.True(t, core.IsValidPostcode(tests.Postcode()))
	})

	t.Run("err: invalid postcodes", func(t *testing.T) {
		for _, value := range []string{"40001", "4000011", "abcdef", "", "40 001"} {
			assert.False(t, core.IsValidPostcode(value), "%q should not be a valid postcode", value)
		}
	})

	t.Run("err: only ascii digits are accepted", func(t *testing.T) {
		value := "४००००१" // devanagari digits
		assert.True(t, unicode.IsDigit([]rune(value)[0]))
		assert.False(t, core.IsValidPostcode(value))
	})
}
