package sheet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

// Memory is an in-process store that converts values the way the sheet
// does: timestamps become serials and amounts are parsed back from text.
type Memory struct {
	// FailOn, when set, can reject single cell updates.
	FailOn func(row int, col Column) error

	mu   sync.Mutex
	rows []domain.Row
}

// NewMemory creates a store holding rows. Row indexes are reassigned in
// order starting at FirstDataRow.
func NewMemory(rows ...domain.Row) *Memory {
	m := &Memory{}
	for _, r := range rows {
		r.Index = FirstDataRow + len(m.rows)
		m.rows = append(m.rows, r)
	}
	return m
}

func (m *Memory) Fetch(ctx context.Context) ([]domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Row(nil), m.rows...), nil
}

func (m *Memory) Append(ctx context.Context, txs []domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cells := range AppendValues(txs) {
		at, err := time.Parse(TimestampLayout, cells[2].(string))
		if err != nil {
			return fmt.Errorf("Append: %w", err)
		}
		amount, err := decimal.NewFromString(cells[3].(string))
		if err != nil {
			return fmt.Errorf("Append: %w", err)
		}
		m.rows = append(m.rows, domain.Row{
			Index:      FirstDataRow + len(m.rows),
			Account:    cells[0].(string),
			Subject:    cells[1].(string),
			DateSerial: domain.SerialFromTime(at),
			Amount:     amount,
		})
	}
	return nil
}

func (m *Memory) UpdateCell(ctx context.Context, row int, col Column, value string) error {
	if m.FailOn != nil {
		if err := m.FailOn(row, col); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := row - FirstDataRow
	if i < 0 || i >= len(m.rows) {
		return fmt.Errorf("UpdateCell: row %d out of range", row)
	}
	r := &m.rows[i]

	switch col {
	case ColumnAccount:
		r.Account = value
	case ColumnSubject:
		r.Subject = value
	case ColumnDate:
		at, err := time.Parse(TimestampLayout, strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("UpdateCell: %w", err)
		}
		r.DateSerial = domain.SerialFromTime(at)
	case ColumnAmount:
		amount, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("UpdateCell: %w", err)
		}
		r.Amount = amount
	case ColumnCategory:
		r.Category = value
	default:
		return fmt.Errorf("UpdateCell: unknown column %q", col)
	}
	return nil
}

var _ Store = (*Memory)(nil)
