package models

import (
	"errors"
	"regexp"
	"strings"
)

// BankCode identifies the bank a merchant receives transfers on.
type BankCode string

// BankCBE is the only bank the verification service understands.
const BankCBE BankCode = "CBE"

var cbeAccountRegex = regexp.MustCompile(`^\d{13}$`)

var (
	ErrBankNotConfigured  = errors.New("merchant bank details not configured")
	ErrUnsupportedBank    = errors.New("only CBE bank is supported at the moment")
	ErrInvalidBankAccount = errors.New("invalid bank account number format")
)

// BankSettings is either a configured CBE account or the zero value
// (unconfigured). Build it with ParseBankSettings only.
type BankSettings struct {
	Code    BankCode `json:"bankName"`
	Account string   `json:"bankAccount"`
}

// Configured reports whether the settings name a supported account.
func (b BankSettings) Configured() bool {
	return b.Code == BankCBE && b.Account != ""
}

// ParseBankSettings is the single validation point for bank details. Every
// consumer (settings updates, intent creation, payment submission) goes
// through it.
func ParseBankSettings(bankName, bankAccount string) (BankSettings, error) {
	bankName = strings.TrimSpace(bankName)
	bankAccount = strings.TrimSpace(bankAccount)

	if bankName == "" || bankAccount == "" {
		return BankSettings{}, ErrBankNotConfigured
	}
	if BankCode(bankName) != BankCBE {
		return BankSettings{}, ErrUnsupportedBank
	}
	if !cbeAccountRegex.MatchString(bankAccount) {
		return BankSettings{}, ErrInvalidBankAccount
	}

	return BankSettings{Code: BankCBE, Account: bankAccount}, nil
}
