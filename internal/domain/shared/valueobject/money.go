package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits carried by monetary amounts
const MoneyScale int32 = 2

// maxMoneyAmount bounds amounts so they fit a decimal(18,4) column
var maxMoneyAmount = decimal.New(1, 14)

// ErrCodeInvalidAmount is returned for amounts that fail ValidateAmount
const ErrCodeInvalidAmount = "INVALID_AMOUNT"

// ValidateAmount checks that d is positive, has at most two fractional
// digits and fits the storage range.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return shared.NewDomainError(ErrCodeInvalidAmount, "Amount must be positive")
	}
	if !d.Equal(d.Truncate(MoneyScale)) {
		return shared.NewDomainError(ErrCodeInvalidAmount,
			fmt.Sprintf("Amount %s has more than %d fractional digits", d.String(), MoneyScale))
	}
	if d.GreaterThanOrEqual(maxMoneyAmount) {
		return shared.NewDomainError(ErrCodeInvalidAmount,
			fmt.Sprintf("Amount %s exceeds the supported range", d.String()))
	}
	return nil
}

// ValidateNonNegativeAmount is ValidateAmount that also accepts zero
func ValidateNonNegativeAmount(d decimal.Decimal) error {
	if d.IsZero() {
		return nil
	}
	if d.IsNegative() {
		return shared.NewDomainError(ErrCodeInvalidAmount, "Amount cannot be negative")
	}
	return ValidateAmount(d)
}

// RoundMoney rounds d half away from zero to MoneyScale digits
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Money is a value object representing monetary amounts
// It is immutable - all operations return new Money instances
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns a new Money with the difference
// Returns error if currencies don't match
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// ToBase converts m into the base currency using rate (base units per one unit of m).
// The result is rounded to MoneyScale.
func (m Money) ToBase(rate decimal.Decimal) Money {
	if m.currency.IsBase() {
		return Money{amount: RoundMoney(m.amount), currency: BaseCurrency}
	}
	return Money{amount: RoundMoney(m.amount.Mul(rate)), currency: BaseCurrency}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(MoneyScale), m.currency)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(MoneyScale),
		Currency: m.currency,
	})
}
