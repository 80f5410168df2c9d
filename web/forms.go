package web

import (
	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/form"
)

const (
	intentSave          = "save"
	intentAddAddress    = "add-address"
	intentRemoveAddress = "remove-address"
	intentEnrich        = "enrich"
)

type addressForm struct {
	AddressLine1 string `schema:"addressLine1"`
	AddressLine2 string `schema:"addressLine2"`
	Postcode     string `schema:"postcode"`
	State        string `schema:"state"`
	City         string `schema:"city"`
}

type customerForm struct {
	Intent    string        `schema:"intent"`
	TaxID     string        `schema:"taxId"`
	FullName  string        `schema:"fullName"`
	Email     string        `schema:"email"`
	Mobile    string        `schema:"mobile"`
	Addresses []addressForm `schema:"addresses"`
}

func (f customerForm) draft() form.Draft {
	addresses := make([]core.Address, len(f.Addresses))
	for i, a := range f.Addresses {
		addresses[i] = core.Address{
			AddressLine1: a.AddressLine1,
			AddressLine2: a.AddressLine2,
			Postcode:     a.Postcode,
			State:        a.State,
			City:         a.City,
		}
	}
	return form.Draft{
		TaxID:     f.TaxID,
		FullName:  f.FullName,
		Email:     f.Email,
		Mobile:    f.Mobile,
		Addresses: addresses,
	}
}
