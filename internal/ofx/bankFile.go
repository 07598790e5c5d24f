package ofx

import (
	"fmt"
	"strings"
	"time"
)

type BankAccountType string

const (
	Checking    BankAccountType = "CHECKING"
	Saving      BankAccountType = "SAVING"
	MoneyMarket BankAccountType = "MONEYMRKT"
)

// AccountTypeFromName picks the OFX account-type token from the account's
// display name. Institutions don't report this directly, so keyword
// heuristics (including Brazilian Portuguese names) decide.
func AccountTypeFromName(name string) BankAccountType {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "poupança") || strings.Contains(lower, "savings"):
		return Saving
	case strings.Contains(lower, "fundo") || strings.Contains(lower, "fund") ||
		strings.Contains(lower, "investimento") || strings.Contains(lower, "investment"):
		return MoneyMarket
	default:
		return Checking
	}
}

// BankFile is the statement variant for checking, savings and money-market
// accounts.
type BankFile struct {
	statement
	accountType   BankAccountType
	accountName   string
	accountNumber string
}

func NewBankFile(accountType BankAccountType, info BankAccountInfo, currency string, start, end time.Time, accountName, accountNumber string) *BankFile {
	return &BankFile{
		statement:     newStatement(info, currency, start, end),
		accountType:   accountType,
		accountName:   accountName,
		accountNumber: accountNumber,
	}
}

func (f *BankFile) SuggestedFileName() string {
	accountSuffix := ""
	if f.accountNumber != "" {
		accountSuffix = "-" + lastFour(f.accountNumber)
	}

	nameSuffix := ""
	if f.accountName != "" {
		nameSuffix = "-" + fileNameToken(f.accountName, 15)
	}

	return fmt.Sprintf("%s-%s%s%s-%s-%s.ofx",
		fileNameToken(f.info.OrgName, 10),
		strings.ToLower(string(f.accountType)),
		accountSuffix,
		nameSuffix,
		FormatFileNameDate(f.start),
		FormatFileNameDate(f.end))
}

func (f *BankFile) Render() string {
	return f.renderEnvelope(f.bankMessage())
}

func (f *BankFile) bankMessage() string {
	return fmt.Sprintf(`  <BANKMSGSRSV1>
    <STMTTRNRS>
      <TRNUID>1</TRNUID>
      <STATUS>
        <CODE>0</CODE>
        <SEVERITY>INFO</SEVERITY>
      </STATUS>
      <STMTRS>
        <CURDEF>%s</CURDEF>
        <BANKACCTFROM>
          <BANKID>%d</BANKID>
          <BRANCHID>%s</BRANCHID>
          <ACCTID>%s</ACCTID>
          <ACCTTYPE>%s</ACCTTYPE>
        </BANKACCTFROM>
        <BANKTRANLIST>
          <DTSTART>%s</DTSTART>
          <DTEND>%s</DTEND>
%s
        </BANKTRANLIST>
%s
      </STMTRS>
    </STMTTRNRS>
  </BANKMSGSRSV1>`,
		f.currency,
		f.info.FID,
		f.info.Branch,
		f.info.AccountNumber,
		f.accountType,
		FormatDate(f.start),
		FormatDate(f.end),
		f.renderTransactions(),
		f.renderBalance())
}
