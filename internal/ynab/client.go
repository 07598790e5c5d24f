// Package ynab speaks to the YNAB v1 transaction endpoints used by the sync
// path: listing an account's transactions since a date and bulk-creating
// transactions with import_id based duplicate detection.
package ynab

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bcaldwell/bankops/internal/pluggy"
	"github.com/shopspring/decimal"
)

const DefaultAPIURL = "https://api.youneedabudget.com/v1"

// YNAB amounts are integer milliunits.
const milliunitScale = 1000

type Client struct {
	apiURL      string
	accessToken string
	httpClient  *http.Client
}

func NewClient(accessToken string) *Client {
	return NewClientWithURL(DefaultAPIURL, accessToken)
}

func NewClientWithURL(apiURL, accessToken string) *Client {
	return &Client{
		apiURL:      strings.TrimSuffix(apiURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Transaction is a ledger transaction as reported by YNAB. ImportID is empty
// for transactions entered by hand.
type Transaction struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo"`
	PayeeName string `json:"payee_name"`
	ImportID  string `json:"import_id"`
}

// NewTransaction is the write-only payload shape for creation. When ImportID
// is empty the source transaction ID is used as the dedup key.
type NewTransaction struct {
	ID          string
	ImportID    string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

type CreateResult struct {
	TransactionsCreated int
	DuplicateImportIDs  []string
}

type saveTransaction struct {
	AccountID string `json:"account_id"`
	Date      string `json:"date"`
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo"`
	ImportID  string `json:"import_id"`
}

func (c *Client) GetTransactions(budgetID, accountID string, since time.Time) ([]Transaction, error) {
	url := fmt.Sprintf("%s/budgets/%s/accounts/%s/transactions?since_date=%s",
		c.apiURL, budgetID, accountID, since.Format("2006-01-02"))

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", resp.Status)
	}

	var result struct {
		Data struct {
			Transactions []Transaction `json:"transactions"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode transactions response: %w", err)
	}

	return result.Data.Transactions, nil
}

// CreateTransactions sends a batch of transactions. Amounts are converted to
// milliunits and sign-inverted for credit-card accounts, whose purchases
// arrive as positive debits but are outflows on the ledger. The result
// reports what YNAB actually created and which dedup keys it rejected.
func (c *Client) CreateTransactions(budgetID, accountID string, payload []NewTransaction, kind pluggy.AccountType) (*CreateResult, error) {
	wire := make([]saveTransaction, 0, len(payload))

	for _, t := range payload {
		amount := t.Amount
		if kind == pluggy.AccountTypeCredit {
			amount = amount.Neg()
		}

		importID := t.ImportID
		if importID == "" {
			importID = t.ID
		}

		wire = append(wire, saveTransaction{
			AccountID: accountID,
			Date:      t.Date.Format("2006-01-02"),
			Amount:    amount.Mul(decimal.NewFromInt(milliunitScale)).Round(0).IntPart(),
			Memo:      t.Description,
			ImportID:  importID,
		})
	}

	body, err := json.Marshal(map[string]interface{}{"transactions": wire})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/budgets/%s/transactions", c.apiURL, budgetID)

	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("API error: %s", resp.Status)
	}

	var result struct {
		Data struct {
			Transactions       []Transaction `json:"transactions"`
			DuplicateImportIDs []string      `json:"duplicate_import_ids"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode create response: %w", err)
	}

	return &CreateResult{
		TransactionsCreated: len(result.Data.Transactions),
		DuplicateImportIDs:  result.Data.DuplicateImportIDs,
	}, nil
}
