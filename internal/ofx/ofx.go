// Package ofx renders account statements as OFX 1.02 SGML documents. The
// codec is pure: given the same statement it always produces the same bytes,
// and it never fails regardless of which optional fields are absent.
package ofx

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const language = "POR"

// FormatDate renders a timestamp the way OFX consumers expect: UTC, whole
// seconds, GMT zone marker.
func FormatDate(t time.Time) string {
	return t.UTC().Format("20060102150405") + "[0:GMT]"
}

func FormatFileNameDate(t time.Time) string {
	return t.UTC().Format("20060102")
}

type Transaction struct {
	ID     string
	Type   string // DEBIT or CREDIT
	Amount decimal.Decimal
	Memo   string
	Date   time.Time
}

func (t Transaction) render() string {
	return fmt.Sprintf(`    <STMTTRN>
      <TRNTYPE>%s</TRNTYPE>
      <DTPOSTED>%s</DTPOSTED>
      <TRNAMT>%s</TRNAMT>
      <FITID>%s</FITID>
      <MEMO>%s</MEMO>
    </STMTTRN>`, t.Type, FormatDate(t.Date), t.Amount.String(), t.ID, t.Memo)
}

type LedgerBalance struct {
	Amount decimal.Decimal
	Date   time.Time
}

func (b LedgerBalance) render() string {
	return fmt.Sprintf(`    <LEDGERBAL>
      <BALAMT>%s</BALAMT>
      <DTASOF>%s</DTASOF>
    </LEDGERBAL>`, b.Amount.String(), FormatDate(b.Date))
}

// BankAccountInfo identifies the institution and account a statement belongs
// to. FID is the institution's numeric identifier.
type BankAccountInfo struct {
	OrgName       string
	FID           int
	AccountNumber string
	Branch        string
}

type CardInfo struct {
	Brand  string
	Level  string
	Number string
}

// File is the closed set of statement variants. Each variant renders its own
// body section; the SIGNON header is shared.
type File interface {
	Render() string
	SuggestedFileName() string
	Append(tx Transaction)
	SetBalance(amount decimal.Decimal, asOf time.Time)
	BankInfo() BankAccountInfo
	Transactions() []Transaction
}

// statement holds the state common to every variant. The server date is
// stamped at construction so rendering twice yields identical output.
type statement struct {
	info         BankAccountInfo
	currency     string
	transactions []Transaction
	serverDate   time.Time
	start        time.Time
	end          time.Time
	balance      *LedgerBalance
}

func newStatement(info BankAccountInfo, currency string, start, end time.Time) statement {
	return statement{
		info:       info,
		currency:   currency,
		serverDate: time.Now().UTC(),
		start:      start,
		end:        end,
	}
}

func (s *statement) Append(tx Transaction) {
	s.transactions = append(s.transactions, tx)
}

func (s *statement) SetBalance(amount decimal.Decimal, asOf time.Time) {
	s.balance = &LedgerBalance{Amount: amount, Date: asOf}
}

func (s *statement) BankInfo() BankAccountInfo {
	return s.info
}

func (s *statement) Transactions() []Transaction {
	return s.transactions
}

func (s *statement) renderTransactions() string {
	rendered := make([]string, 0, len(s.transactions))
	for _, tx := range s.transactions {
		rendered = append(rendered, tx.render())
	}

	return strings.Join(rendered, "\n")
}

func (s *statement) renderBalance() string {
	if s.balance == nil {
		return ""
	}

	return s.balance.render()
}

func (s *statement) renderEnvelope(body string) string {
	return fmt.Sprintf(`OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:UTF-8
CHARSET:NONE
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE
<OFX>
  <SIGNONMSGSRSV1>
    <SONRS>
      <STATUS>
        <CODE>0</CODE>
        <SEVERITY>INFO</SEVERITY>
      </STATUS>
      <DTSERVER>%s</DTSERVER>
      <LANGUAGE>%s</LANGUAGE>
      <FI>
        <ORG>%s</ORG>
        <FID>%d</FID>
      </FI>
    </SONRS>
  </SIGNONMSGSRSV1>
%s
</OFX>`, FormatDate(s.serverDate), language, s.info.OrgName, s.info.FID, body)
}

var nonAlphanumeric = regexp.MustCompile("[^A-Za-z0-9]")

// fileNameToken strips a field down to something filesystem safe.
func fileNameToken(s string, maxLen int) string {
	s = nonAlphanumeric.ReplaceAllString(s, "")
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	return s
}

func lastFour(s string) string {
	if len(s) <= 4 {
		return s
	}

	return s[len(s)-4:]
}
