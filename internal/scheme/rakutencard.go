package scheme

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

const (
	rakutenCardSubject = "カード利用のお知らせ"
	rakutenCardSender  = "info@mail.rakuten-card.co.jp"
)

// One block per card use; a notice can list several.
var rakutenCardEntry = regexp.MustCompile(
	`■利用日: ([0-9/]+)\n■利用先: (.+)\n■利用者: 本人\n■支払方法: [0-9]*回\n■利用金額: ([0-9,]+) 円\n■支払月: [0-9/]+`)

// RakutenCard parses Rakuten Card usage notices.
type RakutenCard struct {
	Account string
}

// NewRakutenCard creates the scheme for the given account label.
func NewRakutenCard(account string) *RakutenCard {
	return &RakutenCard{Account: account}
}

func (s *RakutenCard) Name() string { return "rakuten-card" }

func (s *RakutenCard) CanParse(doc domain.Document) bool {
	return strings.Contains(doc.Subject, rakutenCardSubject) && strings.Contains(doc.From, rakutenCardSender)
}

func (s *RakutenCard) Parse(ctx context.Context, doc domain.Document) ([]domain.Transaction, error) {
	var txs []domain.Transaction

	for _, m := range rakutenCardEntry.FindAllStringSubmatch(doc.Body, -1) {
		when, err := parseLocal("2006/01/02", m[1], jst)
		if err != nil {
			return nil, fmt.Errorf("RakutenCard.Parse: %w", err)
		}
		amount, err := parseExpense(m[3])
		if err != nil {
			return nil, fmt.Errorf("RakutenCard.Parse: %w", err)
		}
		txs = append(txs, domain.Transaction{
			Account: s.Account,
			Subject: strings.TrimSpace(m[2]),
			Time:    when,
			Amount:  amount,
		})
	}

	if len(txs) == 0 {
		return nil, fmt.Errorf("RakutenCard.Parse: %w", ErrNoTransactions)
	}
	return txs, nil
}

var _ Scheme = (*RakutenCard)(nil)
