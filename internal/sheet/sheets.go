package sheet

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

// SheetsStore talks to the Google Sheets v4 API.
type SheetsStore struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewSheetsStore authenticates with the service-account key at
// credentialsFile, or Application Default Credentials when it is empty.
func NewSheetsStore(ctx context.Context, spreadsheetID, credentialsFile string) (*SheetsStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("NewSheetsStore: read credentials: %w", err)
		}
		cfg, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("NewSheetsStore: parse credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(cfg.TokenSource(ctx)))
	} else {
		opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))
	}
	return NewSheetsStoreWithOptions(ctx, spreadsheetID, opts...)
}

// NewSheetsStoreWithOptions builds a store from raw client options.
func NewSheetsStoreWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsStore, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewSheetsStore: create service: %w", err)
	}
	return &SheetsStore{service: service, spreadsheetID: spreadsheetID}, nil
}

// Fetch reads A2:E with unformatted values so dates come back as serials.
func (s *SheetsStore) Fetch(ctx context.Context) ([]domain.Row, error) {
	resp, err := s.service.Spreadsheets.Values.
		Get(s.spreadsheetID, Name+"!A2:E").
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	rows := make([]domain.Row, 0, len(resp.Values))
	for i, cells := range resp.Values {
		rows = append(rows, rowFromValues(FirstDataRow+i, cells))
	}
	return rows, nil
}

// Append writes all transactions in a single call.
func (s *SheetsStore) Append(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rng := Name + "!A:D"
	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, rng, &sheets.ValueRange{Range: rng, Values: AppendValues(txs)}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

// UpdateCell overwrites a single cell.
func (s *SheetsStore) UpdateCell(ctx context.Context, row int, col Column, value string) error {
	rng := cellRange(row, col)
	_, err := s.service.Spreadsheets.Values.
		Update(s.spreadsheetID, rng, &sheets.ValueRange{Range: rng, Values: [][]any{{value}}}).
		ValueInputOption("USER_ENTERED").
		IncludeValuesInResponse(false).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("UpdateCell %s: %w", rng, err)
	}
	return nil
}

var _ Store = (*SheetsStore)(nil)
