package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/fiat"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/idempotency"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/portfolio"
)

type depositRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type withdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	BankAccountID string          `json:"bankAccountId"`
}

// CreateDepositIntent handles POST /api/v1/fiat/deposit-intents. The
// Idempotency-Key header, when present, becomes the upstream client reference.
func (h *Handler) CreateDepositIntent(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	var req depositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	intent, err := s.CreateDepositIntent(r.Context(), fiat.DepositInput{
		Amount:          req.Amount,
		Currency:        req.Currency,
		ClientReference: r.Header.Get(idempotency.HeaderKey),
	})
	if err != nil {
		writeDomainError(w, "creating deposit intent", err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

// CreateWithdrawal handles POST /api/v1/fiat/withdrawals.
func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	var req withdrawalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	wd, err := s.CreateWithdrawal(r.Context(), fiat.WithdrawalInput{
		Amount:          req.Amount,
		Currency:        req.Currency,
		BankAccountID:   req.BankAccountID,
		ClientReference: r.Header.Get(idempotency.HeaderKey),
	})
	if err != nil {
		writeDomainError(w, "creating withdrawal", err)
		return
	}
	writeJSON(w, http.StatusCreated, wd)
}

// ListFiatTransactions handles GET /api/v1/fiat/transactions.
func (h *Handler) ListFiatTransactions(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	txs, err := s.Transactions(r.Context())
	if err != nil {
		writeDomainError(w, "listing fiat transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}
