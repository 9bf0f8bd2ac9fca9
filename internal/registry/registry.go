// Package registry resolves textual instrument identifiers to stable numeric
// ids.
//
// A Registrar is shared by every statement of a batch, so implementations
// must be safe for concurrent use, and declaring the same identifier twice
// must return the same id.
package registry

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// ErrEmptyIdentifier is returned when the identifier is blank after trimming.
var ErrEmptyIdentifier = errors.New("empty instrument identifier")

// Registrar declares instruments and returns their ids.
type Registrar interface {
	// DeclareSecurity registers a stock or bond by ISIN, ticker or name.
	DeclareSecurity(ctx context.Context, ident string) (int, error)
	// DeclareDerivative registers a futures or option contract code.
	DeclareDerivative(ctx context.Context, code string) (int, error)
	// DeclareCurrencyPair registers a currency pair such as USDRUB.
	DeclareCurrencyPair(ctx context.Context, pair string) (int, error)
}

// Class partitions the id space of a registry.
type Class string

const (
	ClassSecurity     Class = "security"
	ClassDerivative   Class = "derivative"
	ClassCurrencyPair Class = "currency_pair"
)

var isinPattern = regexp.MustCompile(`^[A-Za-z]{2}[A-Za-z0-9]{9}[0-9]$`)

// IsISIN reports whether s is shaped like an ISIN. The check digit is not
// verified.
func IsISIN(s string) bool {
	return isinPattern.MatchString(strings.TrimSpace(s))
}

// Canonical returns the lookup key for an identifier of the given class.
//
// Whitespace is trimmed and collapsed. Derivative codes and currency pairs
// are upper-cased, and currency pairs also lose separators ("usd/rub" and
// "USD_RUB" are both USDRUB). ISINs are upper-cased. Other security names
// keep their case.
func Canonical(class Class, ident string) (string, error) {
	s := strings.Join(strings.Fields(ident), " ")
	if s == "" {
		return "", ErrEmptyIdentifier
	}

	switch class {
	case ClassDerivative:
		return strings.ToUpper(s), nil
	case ClassCurrencyPair:
		s = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) {
				return unicode.ToUpper(r)
			}
			return -1
		}, s)
		if s == "" {
			return "", ErrEmptyIdentifier
		}
		return s, nil
	default:
		if isinPattern.MatchString(s) {
			return strings.ToUpper(s), nil
		}
		return s, nil
	}
}
