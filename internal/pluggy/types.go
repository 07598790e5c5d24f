package pluggy

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeBank       AccountType = "BANK"
	AccountTypeCredit     AccountType = "CREDIT"
	AccountTypeInvestment AccountType = "INVESTMENT"
)

type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "DEBIT"
	TransactionTypeCredit TransactionType = "CREDIT"
)

type Account struct {
	ID           string          `json:"id"`
	Type         AccountType     `json:"type"`
	Subtype      string          `json:"subtype"`
	Name         string          `json:"name"`
	Number       string          `json:"number"`
	Balance      decimal.Decimal `json:"balance"`
	CurrencyCode string          `json:"currencyCode"`
	BankData     *BankData       `json:"bankData,omitempty"`
	CreditData   *CreditData     `json:"creditData,omitempty"`
}

type BankData struct {
	// TransferNumber identifies the account for payment rails, formatted
	// "<routing>/<branch>/<account>" with optional check digits ("-x").
	TransferNumber string `json:"transferNumber"`
}

type CreditData struct {
	Brand string `json:"brand"`
	Level string `json:"level"`
}

type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	PaymentData *PaymentData    `json:"paymentData,omitempty"`
}

type PaymentData struct {
	PaymentMethod string              `json:"paymentMethod"`
	Payer         *PaymentParticipant `json:"payer,omitempty"`
	Receiver      *PaymentParticipant `json:"receiver,omitempty"`
}

type PaymentParticipant struct {
	Name           string          `json:"name"`
	DocumentNumber *DocumentNumber `json:"documentNumber,omitempty"`
	RoutingNumber  string          `json:"routingNumber"`
	BranchNumber   string          `json:"branchNumber"`
	AccountNumber  string          `json:"accountNumber"`
}

type DocumentNumber struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type AccountsResponse struct {
	Results    []Account `json:"results"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
}

type TransactionsResponse struct {
	Results    []Transaction `json:"results"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
}
