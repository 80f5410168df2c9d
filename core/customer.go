package core

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

/**
 * DOMAIN
 */

const (
	MinAddresses      = 1
	MaxAddresses      = 10
	MaxFullNameLength = 140
)

type Customer struct {
	ID        CustomerID `json:"id"`
	TaxID     string     `json:"taxId"`
	FullName  string     `json:"fullName"`
	Email     string     `json:"email"`
	Mobile    string     `json:"mobile"`
	Addresses []Address  `json:"addresses"`
}

type Address struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	Postcode     string `json:"postcode"`
	State        string `json:"state"`
	City         string `json:"city"`
}

// EmptyAddress returns the default shape of a new address.
func EmptyAddress() Address {
	return Address{}
}

// Clone returns a deep copy of the customer, so the copy's addresses can be changed without
// affecting the original.
func (c Customer) Clone() Customer {
	clone := c
	if c.Addresses != nil {
		clone.Addresses = make([]Address, len(c.Addresses))
		copy(clone.Addresses, c.Addresses)
	}
	return clone
}

type (
	CustomerID int64
)

func (id CustomerID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// NewCustomerID derives a customer id from a point in time, in milliseconds since the unix epoch.
func NewCustomerID(at time.Time) CustomerID {
	return CustomerID(at.UnixMilli())
}

// ParseCustomerID parses a string into a customer id.
func ParseCustomerID(id string) (CustomerID, error) {
	integerID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse customer id: %w", err)
	}
	if integerID <= 0 {
		return 0, errors.New("cannot parse customer id: customer ids must be positive")
	}
	return CustomerID(integerID), nil
}
