// Package scheme holds the parsing schemes that turn a document into
// transactions. The set is closed: every scheme is a type in this package
// and the order they are tried in is chosen at startup.
package scheme

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrNoTransactions is returned by Parse when a scheme claimed a document
// but found nothing in it.
var ErrNoTransactions = errors.New("no transactions found")

// Scheme recognizes and parses one document format.
type Scheme interface {
	// Name identifies the scheme in logs and run records.
	Name() string
	// CanParse is a cheap, side-effect free applicability check.
	CanParse(doc domain.Document) bool
	// Parse extracts at least one transaction or returns an error.
	Parse(ctx context.Context, doc domain.Document) ([]domain.Transaction, error)
}

// ws matches Unicode whitespace; Japanese mail separates labels from
// values with full-width spaces, which \s alone does not cover.
const ws = `[\s\p{Z}]`

// Source zones. Both countries have no daylight saving time.
var (
	jst = time.FixedZone("JST", 9*60*60)
	wib = time.FixedZone("WIB", 7*60*60)
)

// firstMatch returns the capture groups of the first match of re in text.
// A missing match is an error naming field.
func firstMatch(re *regexp.Regexp, text, field string) ([]string, error) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%s not found", field)
	}
	return m[1:], nil
}

// parseExpense parses an unsigned amount with thousands separators and
// returns it negated.
func parseExpense(raw string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if amount.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: expected unsigned value", raw)
	}
	return amount.Neg(), nil
}

// parseLocal parses value with layout in loc and returns it in UTC.
func parseLocal(layout, value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datetime %q: %w", value, err)
	}
	return t.UTC(), nil
}
