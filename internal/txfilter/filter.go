// Package txfilter normalizes source transactions per institution before
// they reach a statement or the budgeting ledger. Pipelines are keyed by the
// institution's numeric identifier; unknown institutions pass through
// unchanged.
package txfilter

import (
	"fmt"
	"regexp"

	"github.com/bcaldwell/bankops/internal/pluggy"
)

// Filter transforms a transaction. A false return suppresses it entirely.
type Filter func(tx pluggy.Transaction) (pluggy.Transaction, bool)

// ForInstitution returns the composed pipeline for an institution.
// Suppression wraps rewriting so a suppressed transaction is never rewritten.
func ForInstitution(fid int) Filter {
	switch fid {
	case 1:
		return suppressInternalEntries(rewriteTransfers(identity))
	case 260, 208:
		return rewriteTransfers(identity)
	default:
		return identity
	}
}

// Banco do Brasil emits internal bookkeeping entries for its automatic
// savings sweep that should never show up downstream.
var internalEntryPattern = regexp.MustCompile(`^(PGTO DEBITO CONTA|REND\.FACIL|RENDE FACIL)`)

func suppressInternalEntries(next Filter) Filter {
	return func(tx pluggy.Transaction) (pluggy.Transaction, bool) {
		if internalEntryPattern.MatchString(tx.Description) {
			return pluggy.Transaction{}, false
		}

		return next(tx)
	}
}

// rewriteTransfers replaces the institution's terse instant-transfer
// descriptions with "PIX de/para <name> (<routing>/<branch>/<account>)" when
// the counterparty is fully identified.
func rewriteTransfers(next Filter) Filter {
	return func(tx pluggy.Transaction) (pluggy.Transaction, bool) {
		payment := tx.PaymentData
		if payment == nil {
			return next(tx)
		}

		if payment.PaymentMethod != "PIX" && payment.PaymentMethod != "TEF" {
			return next(tx)
		}

		switch tx.Type {
		case pluggy.TransactionTypeCredit:
			if description, ok := transferDescription(payment.PaymentMethod, "de", payment.Payer); ok {
				tx.Description = description
			}
		case pluggy.TransactionTypeDebit:
			if description, ok := transferDescription(payment.PaymentMethod, "para", payment.Receiver); ok {
				tx.Description = description
			}
		}

		return next(tx)
	}
}

func transferDescription(method, preposition string, p *pluggy.PaymentParticipant) (string, bool) {
	if p == nil {
		return "", false
	}

	if p.RoutingNumber == "" || p.BranchNumber == "" || p.AccountNumber == "" {
		return "", false
	}

	name := p.Name
	if name == "" && p.DocumentNumber != nil {
		name = p.DocumentNumber.Value
	}

	if name == "" {
		return "", false
	}

	return fmt.Sprintf("%s %s %s (%s/%s/%s)", method, preposition, name, p.RoutingNumber, p.BranchNumber, p.AccountNumber), true
}

func identity(tx pluggy.Transaction) (pluggy.Transaction, bool) {
	return tx, true
}
