package ofx

import (
	"fmt"
	"time"
)

// InvestmentFile is the statement variant for investment accounts. Most OFX
// consumers have no investment support, so the body is rendered as a
// money-market bank statement, which downstream tools import as cash flow.
type InvestmentFile struct {
	statement
	accountName   string
	accountNumber string
}

func NewInvestmentFile(info BankAccountInfo, currency string, start, end time.Time, accountName, accountNumber string) *InvestmentFile {
	return &InvestmentFile{
		statement:     newStatement(info, currency, start, end),
		accountName:   accountName,
		accountNumber: accountNumber,
	}
}

func (f *InvestmentFile) SuggestedFileName() string {
	accountSuffix := ""
	if f.accountNumber != "" {
		accountSuffix = "-" + lastFour(f.accountNumber)
	}

	nameSuffix := ""
	if f.accountName != "" {
		nameSuffix = "-" + fileNameToken(f.accountName, 15)
	}

	return fmt.Sprintf("%s-investment%s%s-%s-%s.ofx",
		fileNameToken(f.info.OrgName, 10),
		accountSuffix,
		nameSuffix,
		FormatFileNameDate(f.start),
		FormatFileNameDate(f.end))
}

func (f *InvestmentFile) Render() string {
	return f.renderEnvelope(f.investmentMessage())
}

func (f *InvestmentFile) investmentMessage() string {
	accountNumber := f.accountNumber
	if accountNumber == "" {
		accountNumber = f.info.AccountNumber
	}

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
		accountNumber,
		MoneyMarket,
		FormatDate(f.start),
		FormatDate(f.end),
		f.renderTransactions(),
		f.renderBalance())
}
