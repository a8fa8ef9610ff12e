package allocation

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// CreditPolicy controls what happens to unapplied payment credit when a new
// bill is posted.
type CreditPolicy string

const (
	// CreditStanding keeps credit on the customer until explicitly used.
	CreditStanding CreditPolicy = "standing"
	// CreditAutoApply allocates existing credit to every newly posted bill.
	CreditAutoApply CreditPolicy = "auto_apply"
)

// ParseCreditPolicy accepts a policy name. The empty string is standing.
func ParseCreditPolicy(s string) (CreditPolicy, error) {
	switch p := CreditPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CreditStanding, nil
	case CreditStanding, CreditAutoApply:
		return p, nil
	default:
		return "", fmt.Errorf("allocation: unknown credit policy %q", s)
	}
}

// ErrJournalMismatch reports that the journal does not reproduce the
// stored bills.
var ErrJournalMismatch = errors.New("allocation: journal does not reproduce bill state")

// Posting records the allocation produced by one journal entry.
type Posting struct {
	TransactionID id.TransactionID
	Type          transaction.Type
	Result        Result
}

// State is the ledger rebuilt from the journal.
type State struct {
	Bills    []*bill.Bill
	Credit   types.Money
	Postings []Posting
}

// Replay rebuilds bill paid amounts and customer credit by re-running every
// journal entry in sequence order against payment-free copies of bills.
// A payment only reaches bills posted before it.
func Replay(policy Policy, credit CreditPolicy, currency string, bills []*bill.Bill, journal []*transaction.Transaction) (*State, error) {
	state := &State{
		Bills:  make([]*bill.Bill, 0, len(bills)),
		Credit: types.Zero(currency),
	}
	byID := make(map[string]*bill.Bill, len(bills))
	for _, b := range bills {
		c := b.Clone()
		c.Reset()
		state.Bills = append(state.Bills, c)
		byID[c.ID.String()] = c
	}

	entries := slices.Clone(journal)
	slices.SortStableFunc(entries, func(a, b *transaction.Transaction) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})

	posted := make(map[string]bool, len(bills))
	active := make([]*bill.Bill, 0, len(bills))

	for _, txn := range entries {
		switch txn.Type {
		case transaction.TypeBill:
			key := txn.BillID.String()
			b, ok := byID[key]
			if !ok {
				return nil, fmt.Errorf("%w: entry %s posts unknown bill %s", ErrJournalMismatch, txn.ID, key)
			}
			if posted[key] {
				return nil, fmt.Errorf("%w: bill %s posted twice", ErrJournalMismatch, key)
			}
			if !txn.Amount.Equal(b.TotalAmount) {
				return nil, fmt.Errorf("%w: entry %s amount %s differs from bill total %s",
					ErrJournalMismatch, txn.ID, txn.Amount, b.TotalAmount)
			}
			posted[key] = true
			active = append(active, b)

			posting := Posting{TransactionID: txn.ID, Type: txn.Type}
			if credit == CreditAutoApply && state.Credit.IsPositive() {
				res, err := Allocate(policy, active, state.Credit, txn.CreatedAt)
				if err != nil {
					return nil, err
				}
				state.Credit = res.Unapplied
				posting.Result = res
			}
			state.Postings = append(state.Postings, posting)

		case transaction.TypePayment:
			res, err := Allocate(policy, active, txn.Amount, txn.CreatedAt)
			if err != nil {
				return nil, err
			}
			if txn.Unapplied.Currency != "" && !txn.Unapplied.Equal(res.Unapplied) {
				return nil, fmt.Errorf("%w: payment %s recorded %s unapplied, replay gives %s",
					ErrJournalMismatch, txn.ID, txn.Unapplied, res.Unapplied)
			}
			state.Credit = state.Credit.Add(res.Unapplied)
			state.Postings = append(state.Postings, Posting{TransactionID: txn.ID, Type: txn.Type, Result: res})

		default:
			return nil, fmt.Errorf("%w: entry %s has unknown type %q", ErrJournalMismatch, txn.ID, txn.Type)
		}
	}

	for _, b := range state.Bills {
		if !posted[b.ID.String()] {
			return nil, fmt.Errorf("%w: bill %s has no journal entry", ErrJournalMismatch, b.ID)
		}
	}
	return state, nil
}

// Compare checks that stored bills carry exactly the paid amounts and
// statuses the replay produced.
func (s *State) Compare(stored []*bill.Bill) error {
	replayed := make(map[string]*bill.Bill, len(s.Bills))
	for _, b := range s.Bills {
		replayed[b.ID.String()] = b
	}
	if len(stored) != len(replayed) {
		return fmt.Errorf("%w: %d stored bills, %d replayed", ErrJournalMismatch, len(stored), len(replayed))
	}
	for _, b := range stored {
		r, ok := replayed[b.ID.String()]
		if !ok {
			return fmt.Errorf("%w: bill %s missing from replay", ErrJournalMismatch, b.ID)
		}
		if !r.PaidAmount.Equal(b.PaidAmount) || r.Status != b.Status {
			return fmt.Errorf("%w: bill %s stored paid %s (%s), replay gives %s (%s)",
				ErrJournalMismatch, b.ID, b.PaidAmount, b.Status, r.PaidAmount, r.Status)
		}
	}
	return nil
}
