package config

import (
	"fmt"
	"regexp"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateHost checks an Amadeus host selector
func ValidateHost(host string) error {
	if host != "test" && host != "prod" {
		return fmt.Errorf("amadeus.host must be test or prod, got %q", host)
	}
	return nil
}

// ValidateCurrency checks an ISO 4217 currency code
func ValidateCurrency(currency string) error {
	if !currencyPattern.MatchString(currency) {
		return fmt.Errorf("defaults.currency must be a 3-letter code, got %q", currency)
	}
	return nil
}
