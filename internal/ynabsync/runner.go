package ynabsync

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bcaldwell/bankops/internal/accountmatch"
	"github.com/bcaldwell/bankops/internal/config"
	"github.com/bcaldwell/bankops/internal/ofxexport"
	"github.com/bcaldwell/bankops/internal/pluggy"
	"github.com/bcaldwell/bankops/internal/ynab"
	ynabapi "github.com/davidsteinsland/ynab-go/ynab"
	"k8s.io/klog"
)

const defaultSinceDays = 30

// YNAB has request rate limits; keep the fan-out bounded.
const maxConcurrentSyncs = 4

type AccountReport struct {
	Name   string      `json:"name"`
	Result *SyncResult `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type BatchSummary struct {
	Accounts []AccountReport `json:"accounts"`
	Errors   int             `json:"errors"`
}

type SyncYNABRunner struct{}

// Run reconciles every configured account. Accounts run concurrently; one
// account's failure is captured in its report and never aborts the others.
// Only missing credentials abort the run up front.
func (SyncYNABRunner) Run() error {
	pluggySecrets := config.CurrentPluggySecrets()
	ynabSecrets := config.CurrentYnabSecrets()

	if pluggySecrets.ClientID == "" || pluggySecrets.ClientSecret == "" {
		return fmt.Errorf("pluggy credentials are not configured")
	}

	if ynabSecrets.YnabAccessToken == "" {
		return fmt.Errorf("YNAB access token is not configured")
	}

	conf := config.CurrentSyncConfig()
	if len(conf.Accounts) == 0 {
		return fmt.Errorf("no accounts configured for sync")
	}

	source := pluggy.NewClient(pluggySecrets.ClientID, pluggySecrets.ClientSecret)
	ledger := ynab.NewClient(ynabSecrets.YnabAccessToken)
	budgets := ynabapi.NewDefaultClient(ynabSecrets.YnabAccessToken)
	synchronizer := NewSynchronizer(source, ledger)

	err := resolveBudgetIDs(budgets, conf.Accounts)
	if err != nil {
		return err
	}

	sinceDays := conf.SinceDays
	if sinceDays == 0 {
		sinceDays = defaultSinceDays
	}

	from := time.Now().AddDate(0, 0, -sinceDays)

	summary := BatchSummary{Accounts: make([]AccountReport, len(conf.Accounts))}

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, maxConcurrentSyncs)

	for i, account := range conf.Accounts {
		waitGroup.Add(1)

		go func(i int, account config.SyncAccount) {
			defer waitGroup.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			summary.Accounts[i] = syncAccount(synchronizer, source, budgets, account, from)
		}(i, account)
	}

	waitGroup.Wait()

	for _, report := range summary.Accounts {
		if report.Error != "" {
			summary.Errors++
		}
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render batch summary: %w", err)
	}

	fmt.Println(string(out))

	if summary.Errors > 0 {
		return fmt.Errorf("sync finished with %d account errors", summary.Errors)
	}

	return nil
}

func syncAccount(synchronizer *Synchronizer, source SourceClient, budgets *ynabapi.Client, account config.SyncAccount, from time.Time) AccountReport {
	report := AccountReport{Name: account.Name}

	kind := pluggy.AccountType(account.Type)

	accountID := account.YnabAccountID
	if accountID == "" {
		matched, err := resolveDestinationAccount(budgets, source, account, kind)
		if err != nil {
			klog.Errorf("Failed to resolve YNAB account for %s: %v", account.Name, err)

			return errorReport(report, kind, err)
		}

		klog.Infof("Matched %s to YNAB account %s", account.Name, matched)
		accountID = matched
	}

	result, err := synchronizer.Sync(account.PluggyItemID, kind, account.YnabBudgetID, accountID, from)
	if err != nil {
		klog.Errorf("Sync failed for %s: %v", account.Name, err)

		return errorReport(report, kind, err)
	}

	report.Result = result

	return report
}

func errorReport(report AccountReport, kind pluggy.AccountType, err error) AccountReport {
	report.Error = err.Error()
	report.Result = &SyncResult{
		AccountName:  report.Name,
		AccountType:  kind,
		Transactions: []SyncedTransaction{},
		Status:       SyncStatusError,
		Message:      err.Error(),
	}

	return report
}

// resolveBudgetIDs fills in budget IDs for accounts configured by budget
// name, the same lookup the YNAB UI offers.
func resolveBudgetIDs(budgets *ynabapi.Client, accounts []config.SyncAccount) error {
	var summaries []ynabapi.BudgetSummary

	for i := range accounts {
		if accounts[i].YnabBudgetID != "" {
			continue
		}

		if accounts[i].YnabBudget == "" {
			return fmt.Errorf("account %s has neither a YNAB budget ID nor a budget name", accounts[i].Name)
		}

		if summaries == nil {
			var err error

			summaries, err = budgets.BudgetService.List()
			if err != nil {
				return fmt.Errorf("failed to list YNAB budgets: %w", err)
			}
		}

		found := false

		for _, budget := range summaries {
			if budget.Name == accounts[i].YnabBudget {
				accounts[i].YnabBudgetID = budget.Id
				found = true

				break
			}
		}

		if !found {
			return fmt.Errorf("unable to find ID for budget: %s", accounts[i].YnabBudget)
		}
	}

	return nil
}

// resolveDestinationAccount scores the budget's accounts against the source
// account's statement metadata. An ambiguous top score is an error: the
// account must then be mapped explicitly.
func resolveDestinationAccount(budgets *ynabapi.Client, source SourceClient, account config.SyncAccount, kind pluggy.AccountType) (string, error) {
	detail, err := budgets.BudgetService.Get(account.YnabBudgetID)
	if err != nil {
		return "", fmt.Errorf("failed to get budget %s: %w", account.YnabBudgetID, err)
	}

	candidates := make([]accountmatch.Candidate, 0, len(detail.Accounts))

	for _, candidate := range detail.Accounts {
		if candidate.Closed {
			continue
		}

		candidates = append(candidates, accountmatch.Candidate{ID: candidate.Id, Name: candidate.Name})
	}

	accounts, err := source.FetchAccounts(account.PluggyItemID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch accounts: %w", err)
	}

	var target *pluggy.Account

	for i := range accounts.Results {
		if accounts.Results[i].Type == kind {
			target = &accounts.Results[i]
			break
		}
	}

	if target == nil {
		return "", fmt.Errorf("no %s account found in item %s", kind, account.PluggyItemID)
	}

	info := ofxexport.FindBankInfo(accounts.Results)
	if info == nil {
		return "", fmt.Errorf("bank info not found for item %s", account.PluggyItemID)
	}

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	file, err := ofxexport.NewStatementFile(*target, *info, start, end)
	if err != nil {
		return "", err
	}

	matched, ok := accountmatch.BestMatch(file, candidates)
	if !ok {
		return "", fmt.Errorf("no unambiguous YNAB account match for %s; set ynabAccountId explicitly", account.Name)
	}

	return matched, nil
}
