package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermitpopcorn/negi-ms/internal/categorize"
	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/sheet"
)

func seed() *sheet.Memory {
	return sheet.NewMemory(
		domain.Row{Account: "Rakuten", Subject: "Lawson", DateSerial: 100.0, Amount: decimal.NewFromInt(-1200)},
		domain.Row{Account: "Rakuten", Subject: "!Lawson", DateSerial: 101.5, Amount: decimal.NewFromInt(-1200)},
		domain.Row{Account: "OCBC", Subject: "Grab", DateSerial: 102.0, Amount: decimal.NewFromInt(-25000)},
	)
}

func categories() *categorize.Map {
	m := categorize.NewMap()
	m.Set("Lawson", "Food")
	m.Set("Grab", "Transport")
	return m
}

func TestDuplifinder(t *testing.T) {
	store := sheet.NewMemory(
		domain.Row{Account: "Rakuten", Subject: "a", DateSerial: 100.0, Amount: decimal.NewFromInt(-1200)},
		domain.Row{Account: "Rakuten", Subject: "b", DateSerial: 100.5, Amount: decimal.NewFromInt(-1200)},
	)

	report, err := NewService(store).Duplifinder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, sheet.UpdateSummary{Total: 1, Updated: 1}, report.Duplicates)

	rows, _ := store.Fetch(context.Background())
	assert.Equal(t, "?dupof(2) b", rows[1].Subject)
	assert.True(t, rows[1].Amount.IsZero())
}

func TestDuplifinder_IgnoresConfirmed(t *testing.T) {
	report, err := NewService(seed()).Duplifinder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Duplicates.Total)
}

func TestMarksman(t *testing.T) {
	store := seed()

	report, err := NewService(store).Marksman(context.Background(), categories())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Duplicates.Updated)
	assert.Equal(t, 3, report.Categories.Updated)

	rows, _ := store.Fetch(context.Background())
	assert.Equal(t, "?dupof(3) Lawson", rows[0].Subject)
	assert.True(t, rows[0].Amount.IsZero())
	assert.Equal(t, "!Lawson", rows[1].Subject)
	assert.Equal(t, "Food", rows[0].Category)
	assert.Equal(t, "Food", rows[1].Category)
	assert.Equal(t, "Transport", rows[2].Category)
}

func TestMarksman_PartialFailureStillCategorizes(t *testing.T) {
	store := seed()
	store.FailOn = func(row int, col sheet.Column) error {
		if col == sheet.ColumnSubject {
			return errors.New("protected range")
		}
		return nil
	}

	report, err := NewService(store).Marksman(context.Background(), categories())
	require.Error(t, err)
	assert.ErrorIs(t, err, sheet.ErrPartialUpdate)
	assert.Equal(t, 0, report.Duplicates.Updated)
	assert.Equal(t, 3, report.Categories.Updated)
}

type brokenStore struct{ sheet.Memory }

func (b *brokenStore) Fetch(context.Context) ([]domain.Row, error) {
	return nil, errors.New("unauthorized")
}

func TestMarksman_FetchFailure(t *testing.T) {
	_, err := NewService(&brokenStore{}).Marksman(context.Background(), categories())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}
