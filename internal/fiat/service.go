// Package fiat initiates deposits and withdrawals through the exchange's payment endpoints.
package fiat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/exchange"
)

// Gateway is the subset of the exchange API used for fiat payments.
type Gateway interface {
	CreateDepositIntent(ctx context.Context, req exchange.DepositIntentRequest) (domain.DepositIntent, error)
	CreateWithdrawal(ctx context.Context, req exchange.WithdrawalRequest) (domain.Withdrawal, error)
	FetchFiatTransactions(ctx context.Context) ([]domain.FiatTransaction, error)
}

// AvailableBalances reports spendable balances for the withdrawal form check.
type AvailableBalances interface {
	AvailableOf(asset string) decimal.Decimal
}

// Limits bounds fiat amounts.
type Limits struct {
	MinDeposit    decimal.Decimal
	MaxDeposit    decimal.Decimal // zero means unlimited
	MinWithdrawal decimal.Decimal
}

// DefaultLimits returns the exchange's standard fiat limits.
func DefaultLimits() Limits {
	return Limits{
		MinDeposit:    decimal.NewFromInt(10),
		MaxDeposit:    decimal.NewFromInt(10000),
		MinWithdrawal: decimal.NewFromInt(10),
	}
}

// DepositInput is the deposit form.
type DepositInput struct {
	Amount          decimal.Decimal
	Currency        string
	ClientReference string
}

// WithdrawalInput is the withdrawal form.
type WithdrawalInput struct {
	Amount          decimal.Decimal
	Currency        string
	BankAccountID   string
	ClientReference string
}

// Service validates fiat requests and forwards them to the gateway.
type Service struct {
	gateway  Gateway
	limits   Limits
	balances AvailableBalances // optional
}

// NewService creates a fiat Service. balances may be nil to skip the available-balance check.
func NewService(gateway Gateway, limits Limits, balances AvailableBalances) *Service {
	return &Service{gateway: gateway, limits: limits, balances: balances}
}

// CreateDepositIntent validates the form and opens a deposit intent.
func (s *Service) CreateDepositIntent(ctx context.Context, in DepositInput) (domain.DepositIntent, error) {
	currency, err := validateCommon(in.Amount, in.Currency)
	if err != nil {
		return domain.DepositIntent{}, err
	}
	if in.Amount.LessThan(s.limits.MinDeposit) {
		return domain.DepositIntent{}, &domain.ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("minimum deposit is %s", domain.FormatUSD(s.limits.MinDeposit)),
		}
	}
	if s.limits.MaxDeposit.IsPositive() && in.Amount.GreaterThan(s.limits.MaxDeposit) {
		return domain.DepositIntent{}, &domain.ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("maximum deposit is %s", domain.FormatUSD(s.limits.MaxDeposit)),
		}
	}
	if in.ClientReference == "" {
		in.ClientReference = uuid.NewString()
	}

	return s.gateway.CreateDepositIntent(ctx, exchange.DepositIntentRequest{
		Amount:          in.Amount,
		Currency:        currency,
		ClientReference: in.ClientReference,
	})
}

// CreateWithdrawal validates the form and requests a payout.
func (s *Service) CreateWithdrawal(ctx context.Context, in WithdrawalInput) (domain.Withdrawal, error) {
	currency, err := validateCommon(in.Amount, in.Currency)
	if err != nil {
		return domain.Withdrawal{}, err
	}
	if in.BankAccountID == "" {
		return domain.Withdrawal{}, &domain.ValidationError{Field: "bankAccountId", Message: "is required"}
	}
	if in.Amount.LessThan(s.limits.MinWithdrawal) {
		return domain.Withdrawal{}, &domain.ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("minimum withdrawal is %s", domain.FormatUSD(s.limits.MinWithdrawal)),
		}
	}
	if s.balances != nil {
		if available := s.balances.AvailableOf(currency); in.Amount.GreaterThan(available) {
			return domain.Withdrawal{}, &domain.ValidationError{
				Field:   "amount",
				Message: fmt.Sprintf("exceeds available balance of %s", domain.FormatUSD(available)),
			}
		}
	}
	if in.ClientReference == "" {
		in.ClientReference = uuid.NewString()
	}

	return s.gateway.CreateWithdrawal(ctx, exchange.WithdrawalRequest{
		Amount:          in.Amount,
		Currency:        currency,
		BankAccountID:   in.BankAccountID,
		ClientReference: in.ClientReference,
	})
}

// Transactions lists the fiat payment history.
func (s *Service) Transactions(ctx context.Context) ([]domain.FiatTransaction, error) {
	return s.gateway.FetchFiatTransactions(ctx)
}

func validateCommon(amount decimal.Decimal, currency string) (string, error) {
	if !amount.IsPositive() {
		return "", &domain.ValidationError{Field: "amount", Message: "must be positive"}
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return "", &domain.ValidationError{Field: "amount", Message: "must have at most two decimal places"}
	}
	currency = domain.NormalizeSymbol(currency)
	if currency == "" {
		currency = domain.USDSymbol
	}
	if currency != domain.USDSymbol {
		return "", &domain.ValidationError{Field: "currency", Message: "only USD is supported"}
	}
	return currency, nil
}
