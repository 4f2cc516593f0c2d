package scheme

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

// RakutenPaySubject identifies Rakuten Pay app receipt mail. Charges from
// this source are never duplicates of each other.
const RakutenPaySubject = "楽天ペイアプリご利用内容確認メール"

var (
	rakutenPayAmount   = regexp.MustCompile(`決済総額` + ws + `+([0-9,]+)`)
	rakutenPayDatetime = regexp.MustCompile(`ご利用日時` + ws + `+([0-9]+)/([0-9]+)/([0-9]+)\(.\) ([0-9]+):([0-9]+)`)
	rakutenPayShop     = regexp.MustCompile(`ご利用店舗` + ws + `+(.+)`)
)

// RakutenPay parses Rakuten Pay app payment confirmations.
type RakutenPay struct {
	Account string
}

// NewRakutenPay creates the scheme for the given account label.
func NewRakutenPay(account string) *RakutenPay {
	return &RakutenPay{Account: account}
}

func (s *RakutenPay) Name() string { return "rakuten-pay" }

func (s *RakutenPay) CanParse(doc domain.Document) bool {
	return strings.Contains(doc.Subject, RakutenPaySubject)
}

func (s *RakutenPay) Parse(ctx context.Context, doc domain.Document) ([]domain.Transaction, error) {
	m, err := firstMatch(rakutenPayAmount, doc.Body, "amount")
	if err != nil {
		return nil, fmt.Errorf("RakutenPay.Parse: %w", err)
	}
	amount, err := parseExpense(m[0])
	if err != nil {
		return nil, fmt.Errorf("RakutenPay.Parse: %w", err)
	}

	m, err = firstMatch(rakutenPayDatetime, doc.Body, "datetime")
	if err != nil {
		return nil, fmt.Errorf("RakutenPay.Parse: %w", err)
	}
	when, err := parseLocal("2006/1/2 15:4", fmt.Sprintf("%s/%s/%s %s:%s", m[0], m[1], m[2], m[3], m[4]), jst)
	if err != nil {
		return nil, fmt.Errorf("RakutenPay.Parse: %w", err)
	}

	m, err = firstMatch(rakutenPayShop, doc.Body, "shop")
	if err != nil {
		return nil, fmt.Errorf("RakutenPay.Parse: %w", err)
	}

	return []domain.Transaction{{
		Account: s.Account,
		Subject: strings.TrimSpace(m[0]),
		Time:    when,
		Amount:  amount,
	}}, nil
}

var _ Scheme = (*RakutenPay)(nil)
