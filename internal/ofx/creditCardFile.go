package ofx

import (
	"fmt"
	"time"
)

// CreditCardFile is the statement variant for card accounts. The account is
// identified by the card's opaque identifier only; there is no routing or
// branch information.
type CreditCardFile struct {
	statement
	accountID   string
	card        CardInfo
	accountName string
}

func NewCreditCardFile(accountID string, card CardInfo, info BankAccountInfo, currency string, start, end time.Time, accountName string) *CreditCardFile {
	return &CreditCardFile{
		statement:   newStatement(info, currency, start, end),
		accountID:   accountID,
		card:        card,
		accountName: accountName,
	}
}

// Append stores the transaction with its sign flipped: card purchases arrive
// as positive debits but must render as outflows. The flip happens once at
// append time; the caller's transaction value is untouched.
func (f *CreditCardFile) Append(tx Transaction) {
	tx.Amount = tx.Amount.Neg()
	f.transactions = append(f.transactions, tx)
}

func (f *CreditCardFile) CardInfo() CardInfo {
	return f.card
}

func (f *CreditCardFile) SuggestedFileName() string {
	nameSuffix := ""
	if f.accountName != "" {
		nameSuffix = "-" + fileNameToken(f.accountName, 15)
	}

	return fmt.Sprintf("%s-cc-%s-%s-%s%s-%s-%s.ofx",
		fileNameToken(f.info.OrgName, 10),
		fileNameToken(f.card.Brand, 8),
		fileNameToken(f.card.Level, 8),
		lastFour(f.card.Number),
		nameSuffix,
		FormatFileNameDate(f.start),
		FormatFileNameDate(f.end))
}

func (f *CreditCardFile) Render() string {
	return f.renderEnvelope(f.cardMessage())
}

func (f *CreditCardFile) cardMessage() string {
	return fmt.Sprintf(`  <CREDITCARDMSGSRSV1>
    <CCSTMTTRNRS>
      <TRNUID>1001</TRNUID>
      <STATUS>
        <CODE>0</CODE>
        <SEVERITY>INFO</SEVERITY>
      </STATUS>
      <CCSTMTRS>
        <CURDEF>%s</CURDEF>
        <CCACCTFROM>
          <ACCTID>%s</ACCTID>
        </CCACCTFROM>
        <BANKTRANLIST>
          <DTSTART>%s</DTSTART>
          <DTEND>%s</DTEND>
%s
        </BANKTRANLIST>
%s
      </CCSTMTRS>
    </CCSTMTTRNRS>
  </CREDITCARDMSGSRSV1>`,
		f.currency,
		f.accountID,
		FormatDate(f.start),
		FormatDate(f.end),
		f.renderTransactions(),
		f.renderBalance())
}
