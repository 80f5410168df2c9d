package core

import "context"

// PostcodeStatusSuccess is the status a postcode lookup reports when it found the postcode.
const PostcodeStatusSuccess = "Success"

type TaxIDVerification struct {
	IsValid  bool   `json:"isValid"`
	FullName string `json:"fullName"`
}

type Place struct {
	Name string `json:"name"`
}

type PostcodeDetails struct {
	Status string  `json:"status"`
	State  []Place `json:"state"`
	City   []Place `json:"city"`
}

// Matched returns true if the lookup found the postcode and returned at least one state and city.
func (d PostcodeDetails) Matched() bool {
	return d.Status == PostcodeStatusSuccess && len(d.State) > 0 && len(d.City) > 0
}

// Enricher looks up additional customer data in external registries.
// Enrichment is best-effort: callers treat every error as "no enrichment".
type Enricher interface {
	// Verify a tax id and retrieve the full name it was registered to.
	VerifyTaxID(ctx context.Context, taxID string) (TaxIDVerification, error)
	// Retrieve the state and city for a postcode.
	LookupPostcode(ctx context.Context, postcode string) (PostcodeDetails, error)
}
