// Package ynabsync reconciles Pluggy transactions against a YNAB account.
// Reconciliation state is recomputed from the ledger's history on every run;
// nothing is persisted between runs.
package ynabsync

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bcaldwell/bankops/internal/ofxexport"
	"github.com/bcaldwell/bankops/internal/pluggy"
	"github.com/bcaldwell/bankops/internal/txfilter"
	"github.com/bcaldwell/bankops/internal/ynab"
	"k8s.io/klog"
)

// ReimportSuffix is appended to a dedup key when YNAB rejects the bare key
// as a duplicate (e.g. the earlier import was deleted) so the transaction
// can be re-imported under a distinct key.
const ReimportSuffix = "-reimport"

type TransactionStatus string

const (
	// StatusSkippedExists: the pre-send dedup check found the transaction
	// already on the ledger.
	StatusSkippedExists TransactionStatus = "skipped_exists"
	// StatusCreated: accepted on the first send.
	StatusCreated TransactionStatus = "created"
	// StatusCreatedReimport: rejected on the first send, accepted on the
	// retry with the reimport suffix.
	StatusCreatedReimport TransactionStatus = "created_reimport"
	// StatusRejectedDuplicate: rejected on both attempts, or the retry call
	// itself failed.
	StatusRejectedDuplicate TransactionStatus = "rejected_duplicate"
)

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusSkipped SyncStatus = "skipped"
	SyncStatusError   SyncStatus = "error"
)

type SourceClient interface {
	FetchAccounts(itemID string) (*pluggy.AccountsResponse, error)
	FetchTransactions(accountID string, from, to time.Time) (*pluggy.TransactionsResponse, error)
}

type LedgerClient interface {
	GetTransactions(budgetID, accountID string, since time.Time) ([]ynab.Transaction, error)
	CreateTransactions(budgetID, accountID string, payload []ynab.NewTransaction, kind pluggy.AccountType) (*ynab.CreateResult, error)
}

type SyncedTransaction struct {
	ID            string            `json:"id"`
	Date          string            `json:"date"`
	Description   string            `json:"description"`
	Amount        string            `json:"amount"`
	DisplayAmount string            `json:"displayAmount"`
	Status        TransactionStatus `json:"status"`
}

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type SyncResult struct {
	AccountName       string              `json:"accountName"`
	AccountType       pluggy.AccountType  `json:"accountType"`
	DateRange         DateRange           `json:"dateRange"`
	TransactionsFound int                 `json:"transactionsFound"`
	SkippedExists     int                 `json:"skippedExists"`
	SentToYnab        int                 `json:"sentToYnab"`
	ActuallyCreated   int                 `json:"actuallyCreated"`
	RejectedByYnab    int                 `json:"rejectedByYnab"`
	Transactions      []SyncedTransaction `json:"transactions"`
	Status            SyncStatus          `json:"status"`
	Message           string              `json:"message,omitempty"`
}

type Synchronizer struct {
	source SourceClient
	ledger LedgerClient
}

func NewSynchronizer(source SourceClient, ledger LedgerClient) *Synchronizer {
	return &Synchronizer{source: source, ledger: ledger}
}

// Sync reconciles one account: fetch source transactions, skip the ones the
// ledger already has, send the rest in a single batch, and re-import
// rejected ones once under a suffixed dedup key. The returned error covers
// fetch/send failures and unsupported result shapes; destination rejections
// are outcomes in the result, not errors.
func (s *Synchronizer) Sync(itemID string, kind pluggy.AccountType, budgetID, accountID string, from time.Time) (*SyncResult, error) {
	to := time.Now()
	dateRange := DateRange{
		From: from.Format("2006-01-02"),
		To:   to.Format("2006-01-02"),
	}

	klog.Infof("Starting sync for item %s (%s) to YNAB account %s", itemID, kind, accountID)

	accounts, err := s.source.FetchAccounts(itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	var target *pluggy.Account

	for i := range accounts.Results {
		if accounts.Results[i].Type == kind {
			target = &accounts.Results[i]
			break
		}
	}

	if target == nil {
		klog.Warningf("No %s account found in item %s", kind, itemID)

		return &SyncResult{
			AccountName:  "Unknown",
			AccountType:  kind,
			DateRange:    dateRange,
			Transactions: []SyncedTransaction{},
			Status:       SyncStatusSkipped,
			Message:      fmt.Sprintf("no %s account found in item", kind),
		}, nil
	}

	klog.Infof("Found %s account: %s (%s)", kind, target.Name, target.ID)

	fetched, err := s.source.FetchTransactions(target.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	if fetched.TotalPages > 1 {
		return nil, fmt.Errorf("pagination not supported, total pages: %d, total: %d", fetched.TotalPages, fetched.Total)
	}

	// Institution-specific normalization runs before reconciliation so
	// suppressed bookkeeping entries never reach the ledger.
	transactions := s.applyInstitutionFilter(accounts.Results, fetched.Results)

	result := &SyncResult{
		AccountName:  target.Name,
		AccountType:  kind,
		DateRange:    dateRange,
		Transactions: []SyncedTransaction{},
		Status:       SyncStatusSuccess,
	}

	if len(transactions) == 0 {
		klog.Infof("No transactions found in date range")
		result.Message = "no transactions found in date range"

		return result, nil
	}

	result.TransactionsFound = len(transactions)

	existing, err := s.existingSourceIDs(budgetID, accountID, from)
	if err != nil {
		return nil, err
	}

	var skipped []SyncedTransaction

	var toSend []pluggy.Transaction

	for _, tx := range transactions {
		if _, ok := existing[tx.ID]; ok {
			skipped = append(skipped, formatTransaction(tx, kind, StatusSkippedExists))
		} else {
			toSend = append(toSend, tx)
		}
	}

	klog.Infof("Found %d transactions. Skipping %d (already in YNAB). Sending %d.", len(transactions), len(skipped), len(toSend))

	result.SkippedExists = len(skipped)

	if len(toSend) == 0 {
		result.Message = "all transactions already in YNAB"
		result.Transactions = sortNewestFirst(skipped)

		return result, nil
	}

	sent, created, err := s.send(budgetID, accountID, kind, toSend)
	if err != nil {
		return nil, err
	}

	result.SentToYnab = len(toSend)
	result.ActuallyCreated = created

	for _, tx := range sent {
		if tx.Status == StatusRejectedDuplicate {
			result.RejectedByYnab++
		}
	}

	result.Transactions = sortNewestFirst(append(skipped, sent...))

	return result, nil
}

// existingSourceIDs builds the set of source identifiers the ledger already
// represents: every non-empty import_id verbatim, plus the bare identifier
// for any import_id carrying the reimport suffix. The pre-check is therefore
// symmetric across bare and re-imported keys.
func (s *Synchronizer) existingSourceIDs(budgetID, accountID string, since time.Time) (map[string]struct{}, error) {
	ledgerTransactions, err := s.ledger.GetTransactions(budgetID, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch YNAB transactions: %w", err)
	}

	existing := make(map[string]struct{})

	for _, tx := range ledgerTransactions {
		if tx.ImportID == "" {
			continue
		}

		existing[tx.ImportID] = struct{}{}

		if strings.HasSuffix(tx.ImportID, ReimportSuffix) {
			existing[strings.TrimSuffix(tx.ImportID, ReimportSuffix)] = struct{}{}
		}
	}

	return existing, nil
}

// send transmits the batch with bare source ids as dedup keys, then retries
// rejected ones once with suffixed keys. A retry-call failure degrades every
// retried transaction to rejected_duplicate instead of propagating, so the
// report is still produced.
func (s *Synchronizer) send(budgetID, accountID string, kind pluggy.AccountType, toSend []pluggy.Transaction) ([]SyncedTransaction, int, error) {
	payload := make([]ynab.NewTransaction, 0, len(toSend))
	for _, tx := range toSend {
		payload = append(payload, ynab.NewTransaction{
			ID:          tx.ID,
			Date:        tx.Date,
			Amount:      tx.Amount,
			Description: tx.Description,
		})
	}

	response, err := s.ledger.CreateTransactions(budgetID, accountID, payload, kind)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create YNAB transactions: %w", err)
	}

	created := response.TransactionsCreated

	rejected := make(map[string]struct{}, len(response.DuplicateImportIDs))
	for _, id := range response.DuplicateImportIDs {
		rejected[id] = struct{}{}
	}

	klog.Infof("Sent %d to YNAB. Created: %d, Rejected as duplicates: %d", len(toSend), created, len(rejected))

	stillRejected := make(map[string]struct{})

	if len(rejected) > 0 {
		var retryPayload []ynab.NewTransaction

		for _, tx := range toSend {
			if _, ok := rejected[tx.ID]; !ok {
				continue
			}

			retryPayload = append(retryPayload, ynab.NewTransaction{
				ID:          tx.ID,
				ImportID:    tx.ID + ReimportSuffix,
				Date:        tx.Date,
				Amount:      tx.Amount,
				Description: tx.Description,
			})
		}

		retryResponse, err := s.ledger.CreateTransactions(budgetID, accountID, retryPayload, kind)
		if err != nil {
			slog.Warn("re-import retry failed, keeping transactions as rejected", "count", len(retryPayload), "error", err)

			for _, tx := range retryPayload {
				stillRejected[tx.ImportID] = struct{}{}
			}
		} else {
			created += retryResponse.TransactionsCreated
			for _, id := range retryResponse.DuplicateImportIDs {
				stillRejected[id] = struct{}{}
			}

			klog.Infof("Re-imported %d rejected transactions. Created: %d, Still rejected: %d", len(retryPayload), retryResponse.TransactionsCreated, len(retryResponse.DuplicateImportIDs))
		}
	}

	sent := make([]SyncedTransaction, 0, len(toSend))

	for _, tx := range toSend {
		status := StatusCreated

		if _, wasRejected := rejected[tx.ID]; wasRejected {
			if _, still := stillRejected[tx.ID+ReimportSuffix]; still {
				status = StatusRejectedDuplicate
			} else {
				status = StatusCreatedReimport
			}
		}

		sent = append(sent, formatTransaction(tx, kind, status))
	}

	return sent, created, nil
}

func (s *Synchronizer) applyInstitutionFilter(accounts []pluggy.Account, transactions []pluggy.Transaction) []pluggy.Transaction {
	filter := txfilter.Filter(nil)

	if info := ofxexport.FindBankInfo(accounts); info != nil {
		filter = txfilter.ForInstitution(info.FID)
	}

	if filter == nil {
		return transactions
	}

	filtered := make([]pluggy.Transaction, 0, len(transactions))

	for _, tx := range transactions {
		if out, ok := filter(tx); ok {
			filtered = append(filtered, out)
		}
	}

	return filtered
}

func formatTransaction(tx pluggy.Transaction, kind pluggy.AccountType, status TransactionStatus) SyncedTransaction {
	displayAmount := tx.Amount
	if kind == pluggy.AccountTypeCredit {
		displayAmount = displayAmount.Neg()
	}

	return SyncedTransaction{
		ID:            tx.ID,
		Date:          tx.Date.Format("2006-01-02"),
		Description:   tx.Description,
		Amount:        tx.Amount.String(),
		DisplayAmount: displayAmount.StringFixed(2),
		Status:        status,
	}
}

// sortNewestFirst orders by the ISO date string; zero-padded YYYY-MM-DD makes
// lexicographic order match chronological order.
func sortNewestFirst(transactions []SyncedTransaction) []SyncedTransaction {
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Date > transactions[j].Date
	})

	return transactions
}
