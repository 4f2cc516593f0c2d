package scheme

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

const (
	ocbcSender        = "Notifikasi OCBC <notifikasi@ocbc.id>"
	ocbcSubjectPrefix = "Successful Payment to "
)

var (
	ocbcAmount   = regexp.MustCompile(`IDR` + ws + `+([0-9,]+)`)
	ocbcDatetime = regexp.MustCompile(`<b>PAYMENT DATE:</b><br/>` + ws + `*<span style="color:#5f5f5f">(.+)` + ws + `WIB</span></span>`)
)

// OCBC parses OCBC Indonesia QR payment notifications.
type OCBC struct {
	Account string
}

// NewOCBC creates the scheme for the given account label.
func NewOCBC(account string) *OCBC {
	return &OCBC{Account: account}
}

func (s *OCBC) Name() string { return "ocbc" }

func (s *OCBC) CanParse(doc domain.Document) bool {
	return doc.From == ocbcSender && strings.Contains(doc.Subject, strings.TrimSpace(ocbcSubjectPrefix))
}

func (s *OCBC) Parse(ctx context.Context, doc domain.Document) ([]domain.Transaction, error) {
	m, err := firstMatch(ocbcAmount, doc.Body, "amount")
	if err != nil {
		return nil, fmt.Errorf("OCBC.Parse: %w", err)
	}
	amount, err := parseExpense(m[0])
	if err != nil {
		return nil, fmt.Errorf("OCBC.Parse: %w", err)
	}

	m, err = firstMatch(ocbcDatetime, doc.Body, "payment date")
	if err != nil {
		return nil, fmt.Errorf("OCBC.Parse: %w", err)
	}
	when, err := parseLocal("02 Jan 2006 15:04:05", m[0], wib)
	if err != nil {
		return nil, fmt.Errorf("OCBC.Parse: %w", err)
	}

	return []domain.Transaction{{
		Account: s.Account,
		Subject: strings.ReplaceAll(strings.TrimSpace(doc.Subject), ocbcSubjectPrefix, ""),
		Time:    when,
		Amount:  amount,
	}}, nil
}

var _ Scheme = (*OCBC)(nil)
