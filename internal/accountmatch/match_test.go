package accountmatch

import (
	"testing"
	"time"

	"github.com/bcaldwell/bankops/internal/ofx"
	"github.com/stretchr/testify/assert"
)

var nubankInfo = ofx.BankAccountInfo{
	OrgName:       "Nu Pagamentos S.A.",
	FID:           206,
	AccountNumber: "5740350",
	Branch:        "0001",
}

var candidates = []Candidate{
	{ID: "a1", Name: "Nubank card"},
	{ID: "a2", Name: "BB (001)"},
	{ID: "a3", Name: "Nubank checking"},
}

func statementPeriod() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
}

func TestRankChecking(t *testing.T) {
	start, end := statementPeriod()
	file := ofx.NewBankFile(ofx.Checking, nubankInfo, "BRL", start, end, "", "")

	ranked := Rank(file, candidates)

	assert.Len(t, ranked, 3)
	assert.Equal(t, "a3", ranked[0].AccountID)

	id, ok := BestMatch(file, candidates)
	assert.True(t, ok)
	assert.Equal(t, "a3", id)
}

func TestRankCreditCard(t *testing.T) {
	start, end := statementPeriod()
	card := ofx.CardInfo{Brand: "Visa", Level: "Gold", Number: "1234"}
	file := ofx.NewCreditCardFile("acc-1", card, nubankInfo, "BRL", start, end, "")

	ranked := Rank(file, candidates)

	assert.Equal(t, "a1", ranked[0].AccountID)
}

func TestCardNumberFragmentBonus(t *testing.T) {
	start, end := statementPeriod()
	card := ofx.CardInfo{Brand: "Visa", Level: "Gold", Number: "1234"}
	file := ofx.NewCreditCardFile("acc-1", card, nubankInfo, "BRL", start, end, "")

	ranked := Rank(file, []Candidate{
		{ID: "a1", Name: "Nubank card"},
		{ID: "a2", Name: "Nubank card 1234"},
	})

	assert.Equal(t, "a2", ranked[0].AccountID)
}

func TestBestMatchAmbiguousTie(t *testing.T) {
	start, end := statementPeriod()
	file := ofx.NewBankFile(ofx.Checking, nubankInfo, "BRL", start, end, "", "")

	_, ok := BestMatch(file, []Candidate{
		{ID: "a1", Name: "Nubank checking"},
		{ID: "a2", Name: "Nubank checking old"},
	})

	assert.False(t, ok)
}

func TestRankEmptyCandidates(t *testing.T) {
	start, end := statementPeriod()
	file := ofx.NewBankFile(ofx.Checking, nubankInfo, "BRL", start, end, "", "")

	assert.Empty(t, Rank(file, nil))

	_, ok := BestMatch(file, nil)
	assert.False(t, ok)
}

func TestPaddedInstitutionIDPrecedence(t *testing.T) {
	start, end := statementPeriod()
	info := nubankInfo
	info.OrgName = "Banco"
	file := ofx.NewBankFile(ofx.Checking, info, "BRL", start, end, "", "")

	ranked := Rank(file, []Candidate{
		{ID: "padded4", Name: "acct 0206"},
		{ID: "padded3", Name: "acct 206"},
	})

	// zero-padded to 4 outranks the bare ("206" also matches %03d, worth 3)
	assert.Equal(t, "padded4", ranked[0].AccountID)
	assert.Equal(t, 4, ranked[0].Points)
	assert.Equal(t, 3, ranked[1].Points)
}
