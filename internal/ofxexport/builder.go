// Package ofxexport renders Pluggy items as OFX statement files. This path
// only reads source data; it never touches the budgeting ledger.
package ofxexport

import (
	"fmt"
	"time"

	"github.com/bcaldwell/bankops/internal/ofx"
	"github.com/bcaldwell/bankops/internal/pluggy"
	"github.com/bcaldwell/bankops/internal/txfilter"
	"k8s.io/klog"
)

// Identification defaults for items with no bank account carrying routing
// metadata (card-only and investment-only items).
const (
	fallbackFID    = 9999
	fallbackBranch = "0001"
)

type SourceClient interface {
	FetchAccounts(itemID string) (*pluggy.AccountsResponse, error)
	FetchTransactions(accountID string, from, to time.Time) (*pluggy.TransactionsResponse, error)
}

// FindBankInfo derives the statement header identification for an item's
// accounts. A bank account with routing metadata wins; otherwise any account
// yields generic identification.
func FindBankInfo(accounts []pluggy.Account) *ofx.BankAccountInfo {
	for _, acc := range accounts {
		if acc.Type != pluggy.AccountTypeBank {
			continue
		}

		if fid, branch, number, ok := acc.TransferParts(); ok {
			return &ofx.BankAccountInfo{
				OrgName:       acc.Name,
				FID:           fid,
				Branch:        branch,
				AccountNumber: number,
			}
		}
	}

	for _, acc := range accounts {
		switch acc.Type {
		case pluggy.AccountTypeBank, pluggy.AccountTypeCredit, pluggy.AccountTypeInvestment:
			number := acc.Number
			if number == "" {
				number = acc.ID
				if len(number) > 8 {
					number = number[len(number)-8:]
				}
			}

			return &ofx.BankAccountInfo{
				OrgName:       acc.Name,
				FID:           fallbackFID,
				Branch:        fallbackBranch,
				AccountNumber: number,
			}
		}
	}

	return nil
}

// NewStatementFile constructs the empty statement variant for an account.
func NewStatementFile(acc pluggy.Account, info ofx.BankAccountInfo, start, end time.Time) (ofx.File, error) {
	switch acc.Type {
	case pluggy.AccountTypeBank:
		return ofx.NewBankFile(ofx.AccountTypeFromName(acc.Name), info, acc.CurrencyCode, start, end, acc.Name, acc.Number), nil
	case pluggy.AccountTypeCredit:
		card := ofx.CardInfo{Brand: "Unknown", Level: "Unknown", Number: acc.Number}
		if acc.CreditData != nil {
			if acc.CreditData.Brand != "" {
				card.Brand = acc.CreditData.Brand
			}
			if acc.CreditData.Level != "" {
				card.Level = acc.CreditData.Level
			}
		}

		return ofx.NewCreditCardFile(acc.ID, card, info, acc.CurrencyCode, start, end, acc.Name), nil
	case pluggy.AccountTypeInvestment:
		return ofx.NewInvestmentFile(info, acc.CurrencyCode, start, end, acc.Name, acc.Number), nil
	default:
		return nil, fmt.Errorf("account type %s not supported", acc.Type)
	}
}

// BuildFiles renders one statement file per account of the item for the
// reporting period. The closing balance is attached only when the period end
// is today, since Pluggy reports balances as of "now".
func BuildFiles(source SourceClient, itemID string, start, end time.Time) ([]ofx.File, error) {
	accounts, err := source.FetchAccounts(itemID)
	if err != nil {
		return nil, err
	}

	if len(accounts.Results) == 0 {
		klog.Infof("No accounts found for item %s", itemID)
		return nil, nil
	}

	info := FindBankInfo(accounts.Results)
	if info == nil {
		return nil, fmt.Errorf("bank info not found for the accounts of item %s", itemID)
	}

	filter := txfilter.ForInstitution(info.FID)

	files := make([]ofx.File, 0, len(accounts.Results))

	for _, acc := range accounts.Results {
		file, err := NewStatementFile(acc, *info, start, end)
		if err != nil {
			return nil, err
		}

		transactions, err := source.FetchTransactions(acc.ID, start, end)
		if err != nil {
			return nil, err
		}

		if transactions.TotalPages > 1 {
			return nil, fmt.Errorf("pagination not supported, total pages: %d, total: %d", transactions.TotalPages, transactions.Total)
		}

		for _, tx := range transactions.Results {
			filtered, ok := filter(tx)
			if !ok {
				continue
			}

			file.Append(ofx.Transaction{
				ID:     filtered.ID,
				Type:   string(filtered.Type),
				Amount: filtered.Amount,
				Memo:   filtered.Description,
				Date:   filtered.Date,
			})
		}

		if sameDay(end, time.Now()) {
			balance := acc.Balance
			if acc.Type == pluggy.AccountTypeCredit {
				balance = balance.Neg()
			}

			file.SetBalance(balance, end)
		}

		files = append(files, file)
	}

	return files, nil
}

func sameDay(a, b time.Time) bool {
	aYear, aMonth, aDay := a.UTC().Date()
	bYear, bMonth, bDay := b.UTC().Date()

	return aYear == bYear && aMonth == bMonth && aDay == bDay
}
