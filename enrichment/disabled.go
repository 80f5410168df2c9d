package enrichment

import (
	"context"

	"github.com/prior-it/clientbook/core"
)

// Disabled is an enricher that never finds anything, use it to run without enrichment lookups.
type Disabled struct{}

var _ core.Enricher = Disabled{}

func (Disabled) VerifyTaxID(_ context.Context, _ string) (core.TaxIDVerification, error) {
	return core.TaxIDVerification{}, ErrDisabled
}

func (Disabled) LookupPostcode(_ context.Context, _ string) (core.PostcodeDetails, error) {
	return core.PostcodeDetails{}, ErrDisabled
}
