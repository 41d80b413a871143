package fx

import (
	"errors"
	"strings"
	"time"
)

// Rate carries consumed conversion rates for a currency pair as of a date.
// Rates are sourced upstream; this module never derives them.
type Rate struct {
	Pair    string    `json:"pair"`
	Closing float64   `json:"closing"`
	Average float64   `json:"average"`
	AsOf    time.Time `json:"as_of"`
}

// Method enumerates rate selection methods for statement conversion.
type Method string

const (
	// MethodAverage applies the period average rate, used for flows.
	MethodAverage Method = "AVERAGE"
	// MethodClosing applies the closing rate, used for positions.
	MethodClosing Method = "CLOSING"
)

var (
	// ErrRateNotFound indicates no rate row covers the requested date.
	ErrRateNotFound = errors.New("fx: rate not found")
	// ErrBadPair indicates a malformed currency pair.
	ErrBadPair = errors.New("fx: currency pair must be six letters")
)

// PairOf joins two ISO currency codes into a pair key, e.g. "EURUSD".
func PairOf(from, to string) string {
	return strings.ToUpper(strings.TrimSpace(from) + strings.TrimSpace(to))
}

// ValidPair checks the six-letter pair shape.
func ValidPair(pair string) bool {
	if len(pair) != 6 {
		return false
	}
	for _, r := range pair {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
