package enums

import "fmt"

// Currency names one of the two balances an account holds.
type Currency string

const (
	CurrencyPoint  Currency = "point"
	CurrencyCredit Currency = "credit"
)

var validCurrencies = []Currency{
	CurrencyPoint,
	CurrencyCredit,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}

// Currencies lists every currency, point first.
func Currencies() []Currency {
	return append([]Currency(nil), validCurrencies...)
}
