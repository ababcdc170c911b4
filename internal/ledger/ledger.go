// Package ledger rebuilds a user's point history into an ordered ledger whose
// running balances agree with the authoritative balance held by the backend.
package ledger

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a point transaction.
type Kind string

const (
	KindScan         Kind = "scan"
	KindManualAdd    Kind = "manual_add"
	KindManualRedeem Kind = "manual_redeem"
	KindRedemption   Kind = "redemption"
)

// Sign returns +1 for deposits, -1 for withdrawals and 0 for kinds the ledger
// does not recognise.
func (k Kind) Sign() int64 {
	switch k {
	case KindScan, KindManualAdd:
		return 1
	case KindManualRedeem, KindRedemption:
		return -1
	}
	return 0
}

// Known reports whether k is one of the four transaction kinds.
func (k Kind) Known() bool { return k.Sign() != 0 }

// Issue names the part of a transaction that could not be read.
type Issue string

const (
	IssueNone      Issue = ""
	IssueAmount    Issue = "amount"
	IssueKind      Issue = "kind"
	IssueTimestamp Issue = "timestamp"
	IssueID        Issue = "id"
)

// Transaction is one immutable point movement for a subject.
type Transaction struct {
	ID            string    `json:"id"`
	SubjectUserID string    `json:"subjectUserId"`
	Kind          Kind      `json:"kind"`
	Amount        int64     `json:"amount"` // magnitude, never negative
	OccurredAt    time.Time `json:"occurredAt"`
	Issue         Issue     `json:"issue,omitempty"`
}

// Entry is a transaction placed in the ledger.
type Entry struct {
	Transaction
	SignedDelta    int64 `json:"signedDelta"`
	RunningBalance int64 `json:"runningBalance"`
}

// Flagged reports whether the entry was built from data the ledger could not
// fully interpret. Entries flagged for their amount or kind contribute a delta
// of 0.
func (e Entry) Flagged() bool { return e.Issue != IssueNone }

// Ledger is a reconstructed history, oldest entry first.
type Ledger struct {
	Entries []Entry `json:"entries"`
	Balance int64   `json:"balance"`
	Offset  int64   `json:"offset"`
}

// Reconstruct orders txs chronologically and computes the balance after each
// one. Running totals start at zero and are then shifted by a single offset so
// the newest entry lands exactly on balance; the offset absorbs transactions
// missing from the fetched window.
func Reconstruct(txs []Transaction, balance int64) Ledger {
	ordered := canonical(txs)
	if len(ordered) == 0 {
		return Ledger{Entries: []Entry{}, Balance: balance}
	}

	entries := make([]Entry, len(ordered))
	var running int64
	for i, tx := range ordered {
		delta := signedDelta(tx)
		running += delta
		entries[i] = Entry{Transaction: tx, SignedDelta: delta, RunningBalance: running}
	}

	offset := balance - running
	if offset != 0 {
		for i := range entries {
			entries[i].RunningBalance += offset
		}
	}
	return Ledger{Entries: entries, Balance: balance, Offset: offset}
}

// WalkBackward computes the same running balances newest first by starting at
// balance and undoing each transaction in turn. It yields the entries of
// Reconstruct in reverse order.
func WalkBackward(txs []Transaction, balance int64) []Entry {
	ordered := canonical(txs)
	entries := make([]Entry, len(ordered))
	running := balance
	for i := len(ordered) - 1; i >= 0; i-- {
		tx := ordered[i]
		delta := signedDelta(tx)
		entries[len(ordered)-1-i] = Entry{Transaction: tx, SignedDelta: delta, RunningBalance: running}
		running -= delta
	}
	return entries
}

// NewestFirst returns the entries in display order. Values are not recomputed.
func (l Ledger) NewestFirst() []Entry {
	out := make([]Entry, len(l.Entries))
	for i, e := range l.Entries {
		out[len(l.Entries)-1-i] = e
	}
	return out
}

// Latest returns the most recent entry.
func (l Ledger) Latest() (Entry, bool) {
	if len(l.Entries) == 0 {
		return Entry{}, false
	}
	return l.Entries[len(l.Entries)-1], true
}

// Flagged counts entries that could not be fully interpreted.
func (l Ledger) Flagged() int {
	n := 0
	for _, e := range l.Entries {
		if e.Flagged() {
			n++
		}
	}
	return n
}

func signedDelta(tx Transaction) int64 {
	if tx.Issue == IssueAmount || tx.Issue == IssueKind {
		return 0
	}
	amount := tx.Amount
	if amount < 0 {
		amount = -amount
	}
	return tx.Kind.Sign() * amount
}

// canonical collapses duplicate ids and sorts by occurredAt then id. The
// representative kept for a duplicated id does not depend on input order.
// Records without an id are never collapsed; they are flagged and tie on their
// input position.
func canonical(txs []Transaction) []Transaction {
	type keyed struct {
		tx  Transaction
		pos int
	}
	byID := make(map[string]int, len(txs))
	out := make([]keyed, 0, len(txs))
	for i, tx := range txs {
		if !tx.Kind.Known() && tx.Issue == IssueNone {
			tx.Issue = IssueKind
		}
		if tx.ID == "" {
			if tx.Issue == IssueNone {
				tx.Issue = IssueID
			}
			out = append(out, keyed{tx: tx, pos: i})
			continue
		}
		at, ok := byID[tx.ID]
		if !ok {
			byID[tx.ID] = len(out)
			out = append(out, keyed{tx: tx})
			continue
		}
		if preferred(tx, out[at].tx) {
			out[at].tx = tx
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.tx.OccurredAt.Equal(b.tx.OccurredAt) {
			return a.tx.OccurredAt.Before(b.tx.OccurredAt)
		}
		if c := compareIDs(a.tx.ID, b.tx.ID); c != 0 {
			return c < 0
		}
		return a.pos < b.pos
	})
	txs = make([]Transaction, len(out))
	for i, k := range out {
		txs[i] = k.tx
	}
	return txs
}

// preferred is a total order over duplicates of one id.
func preferred(a, b Transaction) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.Before(b.OccurredAt)
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	if a.Issue != b.Issue {
		return a.Issue < b.Issue
	}
	return a.SubjectUserID < b.SubjectUserID
}

// compareIDs orders numeric ids by value so "9" sorts before "10".
func compareIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil && na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
