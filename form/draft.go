package form

import (
	"fmt"

	"github.com/prior-it/clientbook/core"
)

type Field string

const (
	FieldTaxID    Field = "taxId"
	FieldFullName Field = "fullName"
	FieldEmail    Field = "email"
	FieldMobile   Field = "mobile"
)

type AddressField string

const (
	FieldAddressLine1 AddressField = "addressLine1"
	FieldAddressLine2 AddressField = "addressLine2"
	FieldPostcode     AddressField = "postcode"
	FieldState        AddressField = "state"
	FieldCity         AddressField = "city"
)

// Fields lists all top-level draft fields in display order.
var Fields = []Field{FieldTaxID, FieldFullName, FieldEmail, FieldMobile}

// AddressFields lists all address fields in display order.
var AddressFields = []AddressField{
	FieldAddressLine1,
	FieldAddressLine2,
	FieldPostcode,
	FieldState,
	FieldCity,
}

// Draft is a customer that is still being edited and has not been committed to the store yet.
type Draft struct {
	TaxID     string
	FullName  string
	Email     string
	Mobile    string
	Addresses []core.Address
}

// EmptyDraft returns a draft with empty fields and a single empty address.
func EmptyDraft() Draft {
	return Draft{Addresses: []core.Address{core.EmptyAddress()}}
}

// DraftFrom creates a draft that edits an existing customer.
func DraftFrom(c core.Customer) Draft {
	c = c.Clone()
	return Draft{
		TaxID:     c.TaxID,
		FullName:  c.FullName,
		Email:     c.Email,
		Mobile:    c.Mobile,
		Addresses: c.Addresses,
	}.normalised()
}

// Customer converts the draft into a customer with the specified id.
func (d Draft) Customer(id core.CustomerID) core.Customer {
	return core.Customer{
		ID:        id,
		TaxID:     d.TaxID,
		FullName:  d.FullName,
		Email:     d.Email,
		Mobile:    d.Mobile,
		Addresses: d.Clone().Addresses,
	}
}

func (d Draft) Clone() Draft {
	clone := d
	clone.Addresses = make([]core.Address, len(d.Addresses))
	copy(clone.Addresses, d.Addresses)
	return clone
}

// Get returns the current value of a top-level field.
func (d Draft) Get(field Field) string {
	switch field {
	case FieldTaxID:
		return d.TaxID
	case FieldFullName:
		return d.FullName
	case FieldEmail:
		return d.Email
	case FieldMobile:
		return d.Mobile
	}
	return ""
}

// GetAddress returns the current value of an address field, or the empty string if there is no
// address at that index.
func (d Draft) GetAddress(index int, field AddressField) string {
	if index < 0 || index >= len(d.Addresses) {
		return ""
	}
	a := d.Addresses[index]
	switch field {
	case FieldAddressLine1:
		return a.AddressLine1
	case FieldAddressLine2:
		return a.AddressLine2
	case FieldPostcode:
		return a.Postcode
	case FieldState:
		return a.State
	case FieldCity:
		return a.City
	}
	return ""
}

func (d *Draft) set(field Field, value string) error {
	switch field {
	case FieldTaxID:
		d.TaxID = value
	case FieldFullName:
		d.FullName = value
	case FieldEmail:
		d.Email = value
	case FieldMobile:
		d.Mobile = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func (d *Draft) setAddress(index int, field AddressField, value string) error {
	if index < 0 || index >= len(d.Addresses) {
		return fmt.Errorf("%w: %d", ErrNoSuchAddress, index)
	}
	a := &d.Addresses[index]
	switch field {
	case FieldAddressLine1:
		a.AddressLine1 = value
	case FieldAddressLine2:
		a.AddressLine2 = value
	case FieldPostcode:
		a.Postcode = value
	case FieldState:
		a.State = value
	case FieldCity:
		a.City = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// normalised makes sure the draft has between core.MinAddresses and core.MaxAddresses addresses.
func (d Draft) normalised() Draft {
	if len(d.Addresses) > core.MaxAddresses {
		d.Addresses = d.Addresses[:core.MaxAddresses]
	}
	for len(d.Addresses) < core.MinAddresses {
		d.Addresses = append(d.Addresses, core.EmptyAddress())
	}
	return d
}
