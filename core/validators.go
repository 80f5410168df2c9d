package core

import "regexp"

var (
	taxIDPattern    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern   = regexp.MustCompile(`^[6-9]\d{9}$`)
	postcodePattern = regexp.MustCompile(`^\d{6}$`)
)

// IsValidTaxID reports whether s is a tax id: five uppercase letters, four digits and one
// uppercase letter (e.g. "ABCDE1234F").
// This only checks the format, use an Enricher to verify whether the tax id is actually registered.
func IsValidTaxID(s string) bool {
	return taxIDPattern.MatchString(s)
}

// IsValidEmail reports whether s looks like an e-mail address: a single "@" with non-whitespace on
// both sides and a "." somewhere after it.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidMobile reports whether s is a 10-digit mobile number starting with 6, 7, 8 or 9.
func IsValidMobile(s string) bool {
	return mobilePattern.MatchString(s)
}

// IsValidPostcode reports whether s is a 6-digit postcode.
func IsValidPostcode(s string) bool {
	return postcodePattern.MatchString(s)
}
