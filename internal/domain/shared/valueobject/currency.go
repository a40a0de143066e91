package valueobject

import (
	"fmt"
	"strings"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	RUB Currency = "RUB" // Russian Ruble (base)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	CNY Currency = "CNY" // Chinese Yuan
	KZT Currency = "KZT" // Kazakhstani Tenge
)

// BaseCurrency is the reporting currency all balances are converted to
const BaseCurrency = RUB

// ParseCurrency normalizes and validates a three-letter currency code
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q", code)
		}
	}
	return Currency(code), nil
}

// IsBase reports whether c is the reporting currency
func (c Currency) IsBase() bool {
	return c == BaseCurrency
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}
