package domain

import "fmt"

// Money represents a monetary amount in euro cents. All arithmetic stays in
// integer minor units; floating point views exist for presentation only.
type Money int64

// MoneyFromCents constructs a Money value from an integer cent amount.
func MoneyFromCents(cents int64) Money {
	return Money(cents)
}

// Cents returns the amount in euro cents.
func (m Money) Cents() int64 {
	return int64(m)
}

// Euros returns the amount as a floating point euro value. Presentation only.
func (m Money) Euros() float64 {
	return float64(m) / 100
}

// Add returns the sum of both amounts.
func (m Money) Add(other Money) Money {
	return m + other
}

// Sub returns the difference between both amounts.
func (m Money) Sub(other Money) Money {
	return m - other
}

// MulInt returns the amount multiplied by an integer factor.
func (m Money) MulInt(factor int) Money {
	return m * Money(factor)
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m == 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m < 0
}

// Min returns the smaller of both amounts.
func (m Money) Min(other Money) Money {
	if other < m {
		return other
	}
	return m
}

// String renders the amount as a French-formatted euro string, e.g. "12,34 €".
func (m Money) String() string {
	cents := int64(m)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d,%02d €", sign, cents/100, cents%100)
}
