package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes fiat ledger movements.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// DepositIntent is a pending card or bank deposit created at the payment processor.
type DepositIntent struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	ClientSecret    string          `json:"clientSecret,omitempty"`
	ClientReference string          `json:"clientReference"`
}

// Withdrawal is a fiat payout request to a linked bank account.
type Withdrawal struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BankAccountID   string          `json:"bankAccountId"`
	Status          string          `json:"status"`
	ClientReference string          `json:"clientReference"`
}

// FiatTransaction is one entry of the fiat payment history.
type FiatTransaction struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}
