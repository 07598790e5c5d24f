package ynabsync

import (
	"fmt"
	"testing"
	"time"

	"github.com/bcaldwell/bankops/internal/pluggy"
	"github.com/bcaldwell/bankops/internal/ynab"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	accounts     pluggy.AccountsResponse
	transactions pluggy.TransactionsResponse
}

func (f *fakeSource) FetchAccounts(itemID string) (*pluggy.AccountsResponse, error) {
	return &f.accounts, nil
}

func (f *fakeSource) FetchTransactions(accountID string, from, to time.Time) (*pluggy.TransactionsResponse, error) {
	return &f.transactions, nil
}

type createCall struct {
	payload []ynab.NewTransaction
}

type fakeLedger struct {
	existing  []ynab.Transaction
	responses []*ynab.CreateResult
	errs      []error
	calls     []createCall
}

func (f *fakeLedger) GetTransactions(budgetID, accountID string, since time.Time) ([]ynab.Transaction, error) {
	return f.existing, nil
}

func (f *fakeLedger) CreateTransactions(budgetID, accountID string, payload []ynab.NewTransaction, kind pluggy.AccountType) (*ynab.CreateResult, error) {
	call := len(f.calls)
	f.calls = append(f.calls, createCall{payload: payload})

	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}

	if call < len(f.responses) {
		return f.responses[call], nil
	}

	return &ynab.CreateResult{TransactionsCreated: len(payload)}, nil
}

func sourceTransaction(id, date string, amount string) pluggy.Transaction {
	d, _ := time.Parse("2006-01-02", date)

	return pluggy.Transaction{
		ID:          id,
		Type:        pluggy.TransactionTypeDebit,
		Amount:      decimal.RequireFromString(amount),
		Description: "desc " + id,
		Date:        d,
	}
}

func newFakeSource(transactions ...pluggy.Transaction) *fakeSource {
	return &fakeSource{
		accounts: pluggy.AccountsResponse{
			Results: []pluggy.Account{{
				ID:   "acc1",
				Type: pluggy.AccountTypeBank,
				Name: "Conta Corrente",
			}},
		},
		transactions: pluggy.TransactionsResponse{
			Results:    transactions,
			Total:      len(transactions),
			TotalPages: 1,
		},
	}
}

func findTransaction(t *testing.T, result *SyncResult, id string) SyncedTransaction {
	t.Helper()

	for _, tx := range result.Transactions {
		if tx.ID == id {
			return tx
		}
	}

	t.Fatalf("transaction %s not in report", id)

	return SyncedTransaction{}
}

func assertCountInvariants(t *testing.T, result *SyncResult) {
	t.Helper()

	assert.Equal(t, result.TransactionsFound, result.SkippedExists+result.SentToYnab)
	assert.Equal(t, result.SentToYnab, result.ActuallyCreated+result.RejectedByYnab)
}

func TestSyncCreatesNewTransactions(t *testing.T) {
	source := newFakeSource(
		sourceTransaction("tx1", "2024-01-10", "10.00"),
		sourceTransaction("tx2", "2024-01-12", "-5.50"),
	)
	ledger := &fakeLedger{responses: []*ynab.CreateResult{{TransactionsCreated: 2}}}

	synchronizer := NewSynchronizer(source, ledger)

	result, err := synchronizer.Sync("item1", pluggy.AccountTypeBank, "b1", "a1", time.Now().AddDate(0, 0, -30))

	assert.NoError(t, err)
	assert.Equal(t, SyncStatusSuccess, result.Status)
	assert.Equal(t, 2, result.TransactionsFound)
	assert.Equal(t, 0, result.SkippedExists)
	assert.Equal(t, 2, result.SentToYnab)
	assert.Equal(t, 2, result.ActuallyCreated)
	assert.Equal(t, 0, result.RejectedByYnab)
	assert.Equal(t, StatusCreated, findTransaction(t, result, "tx1").Status)
	assertCountInvariants(t, result)

	// bare source ids are used as dedup keys on the first attempt
	assert.Len(t, ledger.calls, 1)
	assert.Equal(t, "", ledger.calls[0].payload[0].ImportID)
}

func TestSyncSkipsExistingTransactions(t *testing.T) {
	source := newFakeSource(
		sourceTransaction("tx1", "2024-01-10", "10.00"),
		sourceTransaction("tx2", "2024-01-12", "-5.50"),
		sourceTransaction("tx3", "2024-01-14", "7.25"),
	)
	// tx1 was imported under its bare id, tx2 under the reimport suffix;
	// both must be considered already present
	ledger := &fakeLedger{
		existing: []ynab.Transaction{
			{ID: "y1", ImportID: "tx1"},
			{ID: "y2", ImportID: "tx2" + ReimportSuffix},
			{ID: "y3", ImportID: ""},
		},
		responses: []*ynab.CreateResult{{TransactionsCreated: 1}},
	}

	synchronizer := NewSynchronizer(source, ledger)

	result, err := synchronizer.Sync("item1", pluggy.AccountTypeBank, "b1", "a1", time.Now().AddDate(0, 0, -30))

	assert.NoError(t, err)
	assert.Equal(t, 3, result.TransactionsFound)
	assert.Equal(t, 2, result.SkippedExists)
	assert.Equal(t, 1, result.SentToYnab)
	assert.Equal(t, StatusSkippedExists, findTransaction(t, result, "tx1").Status)
	assert.Equal(t, StatusSkippedExists, findTransaction(t, result, "tx2").Status)
	assert.Equal(t, StatusCreated, findTransaction(t, result, "tx3").Status)
	assertCountInvariants(t, result)

	// only tx3 is sent
	assert.Len(t, ledger.calls, 1)
	assert.Len(t, ledger.calls[0].payload, 1)
	assert.Equal(t, "tx3", ledger.calls[0].payload[0].ID)
}

func TestSyncAllTransactionsAlreadyExist(t *testing.T) {
	source := newFakeSource(sourceTransaction("tx1", "2024-01-10", "10.00"))
	ledger := &fakeLedger{existing: []ynab.Transaction{{ID: "y1", ImportID: "tx1"}}}

	synchronizer := NewSynchronizer(source, ledger)

	result, err := synchronizer.Sync("item1", pluggy.AccountTypeBank, "b1", "a1", time.Now().AddDate(0, 0, -30))

	assert.NoError(t, err)
	assert.Equal(t, SyncStatusSuccess, result.Status)
	assert.Equal(t, 1, result.SkippedExists)
	assert.Equal(t, 0, result.SentToYnab)
	assert.Empty(t, ledger.calls)
	assertCountInvariants(t, result)
}

func TestSyncReimportsRejectedDuplicates(t *testing.T) {
	source := newFakeSource(
		sourceTransaction("tx1", "2024-01-10", "10.00"),
		sourceTransaction("tx2", "2024-01-12", "-5.50"),
	)
	// tx1 rejected on first send (e.g. deleted in YNAB), accepted on retry
	ledger := &fakeLedger{
		responses: []*ynab.CreateResult{
			{TransactionsCreated: 1, DuplicateImportIDs: []string{"tx1"}},
			{TransactionsCreated: 1},
		},
	}

	synchronizer := NewSynchronizer(source, ledger)

	result, err := synchronizer.Sync("item1", pluggy.AccountTypeBank, "b1", "a1", time.Now().AddDate(0, 0, -30))

	assert.NoError(t, err)
	assert.Equal(t, StatusCreatedReimport, findTransaction(t, result, "tx1").Status)
	assert.Equal(t, StatusCreated, findTransaction(t, result, "tx2").Status)
	assert.Equal(t, 2, result.ActuallyCreated)
	assert.Equal(t, 0, result.RejectedByYnab)
	assertCountInvariants(t, result)

	// the retry batch carries the suffixed dedup key
	assert.Len(t, ledger.calls, 2)
	assert.Len(t, ledger.calls[1].payload, 1)
	assert.Equal(t, "tx1"+ReimportSuffix, ledger.calls[1].payload[0].ImportID)
}

func TestSyncRejectedOnBothAttempts(t *testing.T) {
	source := newFakeSource(sourceTransaction("tx1", "2024-01-10", "10.00"))
	ledger := &fakeLedger{
		responses: []*ynab.CreateResult{
			{TransactionsCreated: 0, DuplicateImportIDs: []string{"tx1"}},
			{TransactionsCreated: 0, DuplicateImportIDs: []string{"tx1" + ReimportSuffix}},
		},
	}

	synchronizer := NewSynchronizer(source, ledger)

	result, err := synchronizer.Sync("item1", pluggy.AccountTypeBank, "b1", "a1", time.Now().AddDate(0, 0, -30))

	assert.NoError(t, err)
	assert.Equal(t, StatusRejectedDuplicate, findTransaction(t, result, "tx1").Status)
	assert.Equal(t, 0, result.ActuallyCreated)
	assert.Equal(t, 1, result.RejectedByYnab)
	assertCountInvariants(t, result)
}

func TestSyncRetryCallFailureDegradesToRejected(t *testing.T) {
	source := newFakeSource(
		sourceTransaction("tx1", "2024-01-10", "10.00"),
		sourceTransaction("tx2", "2024-01-12", "-5.50"),
	)
	ledger := &fakeLedger{
		responses: []*ynab.CreateResult{
			{TransactionsCreated: 1, DuplicateImportIDs: []string{"tx1"}},
		},
		errs: []error{nil, fmt.Errorf("400 Bad Request")},
	}

	synchronizer := NewSynchronizer(source, ledger)

	result, err := synchronizer.Sync("item1", pluggy.AccountTypeBank, "b1", "a1", time.Now().AddDate(0, 0, -30))

	// the retry failure is folded into the report, not returned
	assert.NoError(t, err)
	assert.Equal(t, SyncStatusSuccess, result.Status)
	assert.Equal(t, StatusRejectedDuplicate, findTransaction(t, result, "tx1").Status)
	assert.Equal(t, StatusCreated, findTransaction(t, result, "tx2").Status)
	assert.Equal(t, 1, result.ActuallyCreated)
	assert.Equal(t, 1, result.RejectedByYnab)
	assertCountInvariants(t, result)
}

func TestSyncRejectsPaginatedResults(t *testing.T) {
	source := newFakeSource(sourceTransaction("tx1", "2024-01-10", "10.00"))
	source.transactions.TotalPages = 2
	source.transactions.Total = 500

	synchronizer := NewSynchronizer(source, &fakeLedger{})

	_, err := synchronizer.Sync("item1", pluggy.AccountTypeBank, "b1", "a1", time.Now().AddDate(0, 0, -30))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pagination not supported")
}

func TestSyncMissingAccountKindIsSkippedNotError(t *testing.T) {
	source := newFakeSource()

	synchronizer := NewSynchronizer(source, &fakeLedger{})

	result, err := synchronizer.Sync("item1", pluggy.AccountTypeCredit, "b1", "a1", time.Now().AddDate(0, 0, -30))

	assert.NoError(t, err)
	assert.Equal(t, SyncStatusSkipped, result.Status)
	assert.Contains(t, result.Message, "no CREDIT account found")
	assert.Zero(t, result.TransactionsFound)
}

func TestSyncReportSortedNewestFirst(t *testing.T) {
	source := newFakeSource(
		sourceTransaction("tx1", "2024-01-05", "1.00"),
		sourceTransaction("tx2", "2024-01-20", "2.00"),
		sourceTransaction("tx3", "2024-01-12", "3.00"),
	)
	ledger := &fakeLedger{responses: []*ynab.CreateResult{{TransactionsCreated: 3}}}

	synchronizer := NewSynchronizer(source, ledger)

	result, err := synchronizer.Sync("item1", pluggy.AccountTypeBank, "b1", "a1", time.Now().AddDate(0, 0, -30))

	assert.NoError(t, err)
	assert.Equal(t, []string{"2024-01-20", "2024-01-12", "2024-01-05"}, []string{
		result.Transactions[0].Date,
		result.Transactions[1].Date,
		result.Transactions[2].Date,
	})
}

func TestSyncCreditCardDisplayAmountIsNegated(t *testing.T) {
	source := newFakeSource(sourceTransaction("tx1", "2024-01-10", "99.90"))
	source.accounts.Results[0].Type = pluggy.AccountTypeCredit
	ledger := &fakeLedger{responses: []*ynab.CreateResult{{TransactionsCreated: 1}}}

	synchronizer := NewSynchronizer(source, ledger)

	result, err := synchronizer.Sync("item1", pluggy.AccountTypeCredit, "b1", "a1", time.Now().AddDate(0, 0, -30))

	assert.NoError(t, err)

	tx := findTransaction(t, result, "tx1")
	assert.Equal(t, "99.9", tx.Amount)
	assert.Equal(t, "-99.90", tx.DisplayAmount)
}
