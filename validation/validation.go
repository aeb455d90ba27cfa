// Package validation centralizes symbol validation so the HTTP layer and the
// workers agree on what a ticker looks like.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Tickers are 1-20 chars, uppercase, digits, dot or dash; indices may start
// with ^ (e.g. ^GSPC).
var symbolRe = regexp.MustCompile(`^[\^A-Z][A-Z0-9.\-]{0,19}$`)

// ValidationError is returned when client-provided data fails validation.
// The HTTP layer maps it to a 400.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func newError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// NormalizeSymbol trims, uppercases and validates a single symbol.
func NormalizeSymbol(symbol string) (string, error) {
	candidate := strings.ToUpper(strings.TrimSpace(symbol))
	if candidate == "" || !symbolRe.MatchString(candidate) {
		return "", newError("invalid symbol: %q", symbol)
	}
	return candidate, nil
}

// NormalizeSymbols validates a list of symbols, de-duplicating while
// preserving the order of first appearance. At least one valid symbol is
// required.
func NormalizeSymbols(symbols []string) ([]string, error) {
	seen := make(map[string]struct{})
	normalized := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		cleaned, err := NormalizeSymbol(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		normalized = append(normalized, cleaned)
	}
	if len(normalized) == 0 {
		return nil, newError("at least one valid symbol is required")
	}
	return normalized, nil
}

// ParseSymbolsCSV splits a comma-separated list, drops empty entries and
// validates the rest.
func ParseSymbolsCSV(csv string) ([]string, error) {
	parts := make([]string, 0)
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return NormalizeSymbols(parts)
}
