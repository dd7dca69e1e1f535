// Package payment wraps the hosted checkout provider: session creation,
// webhook signature verification and minor-unit amount scaling.
package payment

import "strings"

// zeroDecimal lists ISO currencies the provider charges in whole units.
var zeroDecimal = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {},
	"krw": {}, "mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {},
	"vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// IsZeroDecimal reports whether currency has no minor unit. Case-insensitive.
func IsZeroDecimal(currency string) bool {
	_, ok := zeroDecimal[strings.ToLower(strings.TrimSpace(currency))]
	return ok
}

// UnitAmount converts a price in major units to the provider's smallest
// unit: unchanged for zero-decimal currencies, x100 otherwise.
func UnitAmount(amount int64, currency string) int64 {
	if IsZeroDecimal(currency) {
		return amount
	}
	return amount * 100
}
