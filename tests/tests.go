package tests

import (
	"log"
	"math/rand/v2"
	"os"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/prior-it/clientbook/core"
)

var Faker = gofakeit.New(rand.Uint64())

// TaxID generates a random tax id that passes core.IsValidTaxID.
func TaxID() string {
	return strings.ToUpper(Faker.LetterN(5)) + Faker.DigitN(4) + strings.ToUpper(Faker.LetterN(1))
}

// Mobile generates a random mobile number that passes core.IsValidMobile.
func Mobile() string {
	return Faker.RandomString([]string{"6", "7", "8", "9"}) + Faker.DigitN(9)
}

// Postcode generates a random postcode that passes core.IsValidPostcode.
func Postcode() string {
	return Faker.DigitN(6)
}

func Address() core.Address {
	fake := Faker.Address()
	return core.Address{
		AddressLine1: fake.Street,
		AddressLine2: "",
		Postcode:     Postcode(),
		State:        fake.State,
		City:         fake.City,
	}
}

// Customer generates a customer without an id that passes all field validators.
func Customer() core.Customer {
	return core.Customer{
		TaxID:     TaxID(),
		FullName:  Faker.Name(),
		Email:     strings.ToLower(Faker.Email()),
		Mobile:    Mobile(),
		Addresses: []core.Address{Address()},
	}
}

// CustomerWithID generates a valid customer with the specified id.
func CustomerWithID(id core.CustomerID) core.Customer {
	c := Customer()
	c.ID = id
	return c
}

// DatabaseURL returns the postgres url to run integration tests against.
// The test will be skipped if no DATABASE_URL was configured.
func DatabaseURL(t *testing.T) string {
	return envOrSkip(t, "DATABASE_URL")
}

// RedisURL returns the redis url to run integration tests against.
// The test will be skipped if no REDIS_URL was configured.
func RedisURL(t *testing.T) string {
	return envOrSkip(t, "REDIS_URL")
}

func envOrSkip(t *testing.T, name string) string {
	t.Helper()
	if err := godotenv.Load("../.env"); err != nil {
		log.Printf("Could not load the .env file: %v", err)
	}
	value := os.Getenv(name)
	if len(value) == 0 {
		t.Skipf("Set the %s env variable to run this integration test", name)
	}
	return value
}

func Check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
