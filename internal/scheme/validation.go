package scheme

import (
	"fmt"
	"strings"
)

// AccountValidator checks model-produced account labels against the
// configured allow-list and maps them onto the configured spelling.
type AccountValidator struct {
	accounts map[string]string // normalized -> configured label
}

// NewAccountValidator builds a validator for labels.
func NewAccountValidator(labels []string) *AccountValidator {
	v := &AccountValidator{accounts: make(map[string]string, len(labels))}
	for _, label := range labels {
		v.accounts[normalizeAccount(label)] = strings.TrimSpace(label)
	}
	return v
}

// Canonical returns the configured label matching account.
func (v *AccountValidator) Canonical(account string) (string, error) {
	label, ok := v.accounts[normalizeAccount(account)]
	if !ok {
		return "", fmt.Errorf("invalid account: %q (normalized: %q)", account, normalizeAccount(account))
	}
	return label, nil
}

// normalizeAccount upper-cases and trims for case-insensitive comparison.
func normalizeAccount(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
