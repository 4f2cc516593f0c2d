// Package sheet persists transactions in the "Transactions" tab of a
// spreadsheet and reads them back as rows.
package sheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

// Name of the tab holding transactions.
const Name = "Transactions"

// TimestampLayout is how timestamps are written. The sheet parses it as a
// date so it comes back as a serial on fetch.
const TimestampLayout = "2006-01-02 15:04:05"

// FirstDataRow is the 1-based row after the header.
const FirstDataRow = 2

// Column is a spreadsheet column letter.
type Column string

const (
	ColumnAccount  Column = "A"
	ColumnSubject  Column = "B"
	ColumnDate     Column = "C"
	ColumnAmount   Column = "D"
	ColumnCategory Column = "E"
)

// Reader returns every stored row.
type Reader interface {
	Fetch(ctx context.Context) ([]domain.Row, error)
}

// CellUpdater rewrites one cell.
type CellUpdater interface {
	UpdateCell(ctx context.Context, row int, col Column, value string) error
}

// Store is the full persistence contract.
type Store interface {
	Reader
	CellUpdater
	Append(ctx context.Context, txs []domain.Transaction) error
}

// AppendValues renders transactions as sheet rows:
// account, subject, timestamp, amount.
func AppendValues(txs []domain.Transaction) [][]any {
	values := make([][]any, 0, len(txs))
	for _, tx := range txs {
		values = append(values, []any{
			strings.TrimSpace(tx.Account),
			strings.TrimSpace(tx.Subject),
			tx.Time.UTC().Format(TimestampLayout),
			tx.Amount.String(),
		})
	}
	return values
}

func cellRange(row int, col Column) string {
	return fmt.Sprintf("%s!%s%d", Name, col, row)
}

// rowFromValues decodes one UNFORMATTED_VALUE row. Missing trailing cells
// are empty.
func rowFromValues(index int, cells []any) domain.Row {
	cell := func(i int) any {
		if i < len(cells) {
			return cells[i]
		}
		return nil
	}

	return domain.Row{
		Index:      index,
		Account:    stringCell(cell(0)),
		Subject:    stringCell(cell(1)),
		DateSerial: numberCell(cell(2)),
		Amount:     decimalCell(cell(3)),
		Category:   stringCell(cell(4)),
	}
}

func stringCell(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func numberCell(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}

func decimalCell(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(t), ",", ""))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}
