// Package accountmatch scores candidate destination accounts against a
// statement's metadata. It is used when no explicit source-to-destination
// account mapping is configured.
package accountmatch

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bcaldwell/bankops/internal/ofx"
)

type Candidate struct {
	ID   string
	Name string
}

type Score struct {
	AccountID string
	Points    int
}

var (
	checkingToken = regexp.MustCompile(`\b(checking)\b`)
	cardToken     = regexp.MustCompile(`\b(cc|credit|card)\b`)
)

// Rank scores every candidate against the statement and returns them in
// descending score order. An empty candidate list yields an empty ranking.
func Rank(file ofx.File, candidates []Candidate) []Score {
	scores := make([]Score, 0, len(candidates))
	for _, candidate := range candidates {
		scores = append(scores, Score{
			AccountID: candidate.ID,
			Points:    score(file, candidate),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Points > scores[j].Points
	})

	return scores
}

// BestMatch returns the top-ranked candidate. A tie between the top two
// scores means matching is ambiguous and no candidate is returned; the
// caller must require explicit configuration instead.
func BestMatch(file ofx.File, candidates []Candidate) (string, bool) {
	ranked := Rank(file, candidates)
	if len(ranked) == 0 {
		return "", false
	}

	if len(ranked) > 1 && ranked[0].Points == ranked[1].Points {
		return "", false
	}

	return ranked[0].AccountID, true
}

func score(file ofx.File, candidate Candidate) int {
	name := strings.ToLower(candidate.Name)
	info := file.BankInfo()
	points := 0

	for _, word := range strings.Fields(strings.ToLower(info.OrgName)) {
		if strings.Contains(name, word) {
			points++
		}
	}

	// First padded match wins; the paddings are not cumulative.
	switch {
	case strings.Contains(name, fmt.Sprintf("%04d", info.FID)):
		points += 4
	case strings.Contains(name, fmt.Sprintf("%03d", info.FID)):
		points += 3
	case strings.Contains(name, strconv.Itoa(info.FID)):
		points++
	}

	switch f := file.(type) {
	case *ofx.BankFile:
		if checkingToken.MatchString(name) {
			points += 3
		}
		if cardToken.MatchString(name) {
			points -= 10
		}
	case *ofx.CreditCardFile:
		if cardToken.MatchString(name) {
			points += 3
		}
		if checkingToken.MatchString(name) {
			points -= 10
		}

		card := f.CardInfo()
		if card.Brand != "" && strings.Contains(name, strings.ToLower(card.Brand)) {
			points += 2
		}
		if card.Level != "" && strings.Contains(name, strings.ToLower(card.Level)) {
			points += 2
		}
		if card.Number != "" && strings.Contains(name, card.Number) {
			points += 4
		}
	}

	return points
}
