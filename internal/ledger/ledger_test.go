package ledger

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func at(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

func balances(entries []Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.RunningBalance
	}
	return out
}

func TestReconstruct_ScanThenRedeem(t *testing.T) {
	txs := []Transaction{
		{ID: "1", Kind: KindScan, Amount: 100, OccurredAt: at(1)},
		{ID: "2", Kind: KindManualRedeem, Amount: 30, OccurredAt: at(2)},
	}

	l := Reconstruct(txs, 70)

	require.Len(t, l.Entries, 2)
	assert.Equal(t, int64(0), l.Offset)
	assert.Equal(t, int64(100), l.Entries[0].SignedDelta)
	assert.Equal(t, int64(-30), l.Entries[1].SignedDelta)
	assert.Equal(t, []int64{100, 70}, balances(l.Entries))
}

func TestReconstruct_OffsetForMissingHistory(t *testing.T) {
	txs := []Transaction{
		{ID: "1", Kind: KindScan, Amount: 100, OccurredAt: at(1)},
		{ID: "2", Kind: KindManualRedeem, Amount: 30, OccurredAt: at(2)},
	}

	l := Reconstruct(txs, 170)

	assert.Equal(t, int64(100), l.Offset)
	assert.Equal(t, []int64{200, 170}, balances(l.Entries))
}

func TestReconstruct_Empty(t *testing.T) {
	l := Reconstruct(nil, 250)

	assert.Empty(t, l.Entries)
	assert.Equal(t, int64(0), l.Offset)
	_, ok := l.Latest()
	assert.False(t, ok)
}

func TestReconstruct_NegativeBalance(t *testing.T) {
	txs := []Transaction{
		{ID: "1", Kind: KindScan, Amount: 50, OccurredAt: at(1)},
		{ID: "2", Kind: KindRedemption, Amount: 20, OccurredAt: at(2)},
	}

	l := Reconstruct(txs, -40)

	last, ok := l.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(-40), last.RunningBalance)
	assert.Equal(t, []int64{-20, -40}, balances(l.Entries))
}

func TestReconstruct_DuplicateIDsCollapse(t *testing.T) {
	tx := Transaction{ID: "7", Kind: KindScan, Amount: 40, OccurredAt: at(3)}
	l := Reconstruct([]Transaction{tx, tx, tx}, 40)

	require.Len(t, l.Entries, 1)
	assert.Equal(t, int64(40), l.Entries[0].RunningBalance)
	assert.Equal(t, int64(0), l.Offset)
}

func TestReconstruct_DuplicateRepresentativeIgnoresInputOrder(t *testing.T) {
	a := Transaction{ID: "7", Kind: KindScan, Amount: 40, OccurredAt: at(3)}
	b := Transaction{ID: "7", Kind: KindScan, Amount: 60, OccurredAt: at(3)}

	assert.Equal(t, Reconstruct([]Transaction{a, b}, 100), Reconstruct([]Transaction{b, a}, 100))
}

func TestReconstruct_TiesBrokenByID(t *testing.T) {
	txs := []Transaction{
		{ID: "10", Kind: KindScan, Amount: 5, OccurredAt: at(1)},
		{ID: "9", Kind: KindScan, Amount: 7, OccurredAt: at(1)},
		{ID: "b", Kind: KindScan, Amount: 1, OccurredAt: at(1)},
	}

	l := Reconstruct(txs, 13)

	ids := []string{l.Entries[0].ID, l.Entries[1].ID, l.Entries[2].ID}
	assert.Equal(t, []string{"9", "10", "b"}, ids)
}

func TestReconstruct_MalformedEntryIsFlaggedNotFatal(t *testing.T) {
	txs := []Transaction{
		{ID: "1", Kind: KindScan, Amount: 100, OccurredAt: at(1)},
		{ID: "2", Kind: KindScan, Amount: 999, OccurredAt: at(2), Issue: IssueAmount},
		{ID: "3", Kind: Kind("mystery"), Amount: 5, OccurredAt: at(3)},
	}

	l := Reconstruct(txs, 100)

	require.Len(t, l.Entries, 3)
	assert.Equal(t, 2, l.Flagged())
	assert.Equal(t, int64(0), l.Entries[1].SignedDelta)
	assert.Equal(t, int64(0), l.Entries[2].SignedDelta)
	assert.Equal(t, []int64{100, 100, 100}, balances(l.Entries))
}

func TestNewestFirst(t *testing.T) {
	txs := []Transaction{
		{ID: "1", Kind: KindScan, Amount: 100, OccurredAt: at(1)},
		{ID: "2", Kind: KindManualRedeem, Amount: 30, OccurredAt: at(2)},
	}
	l := Reconstruct(txs, 70)

	display := l.NewestFirst()

	assert.Equal(t, []int64{70, 100}, balances(display))
	assert.Equal(t, []int64{100, 70}, balances(l.Entries), "reversal must not touch the ledger")
}

func randomTransactions(r *rand.Rand, n int) []Transaction {
	kinds := []Kind{KindScan, KindManualAdd, KindManualRedeem, KindRedemption}
	txs := make([]Transaction, n)
	for i := range txs {
		txs[i] = Transaction{
			ID:         strconv.Itoa(r.Intn(n * 2)),
			Kind:       kinds[r.Intn(len(kinds))],
			Amount:     int64(r.Intn(20)) * 50,
			OccurredAt: at(r.Intn(30)),
		}
	}
	return txs
}

func TestReconstruct_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		txs := randomTransactions(r, 1+r.Intn(25))
		balance := int64(r.Intn(5000) - 1000)

		first := Reconstruct(txs, balance)

		last, ok := first.Latest()
		require.True(t, ok)
		assert.Equal(t, balance, last.RunningBalance, "latest entry must equal the authoritative balance")

		assert.Equal(t, first, Reconstruct(txs, balance), "reconstruction must be deterministic")

		shuffled := append([]Transaction(nil), txs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, first, Reconstruct(shuffled, balance), "input order must not matter")
	}
}

func TestWalkBackward_AgreesWithForwardOffset(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		txs := randomTransactions(r, r.Intn(25))
		balance := int64(r.Intn(5000))

		forward := Reconstruct(txs, balance).NewestFirst()
		backward := WalkBackward(txs, balance)

		assert.Equal(t, forward, backward)
	}
}

func TestReconstruct_RecordsWithoutIDAreKept(t *testing.T) {
	txs := []Transaction{
		{Kind: KindScan, Amount: 100, OccurredAt: at(1)},
		{Kind: KindScan, Amount: 50, OccurredAt: at(1)},
		{Kind: KindManualRedeem, Amount: 30, OccurredAt: at(2)},
	}

	l := Reconstruct(txs, 120)

	require.Len(t, l.Entries, 3)
	assert.Equal(t, 3, l.Flagged())
	assert.Equal(t, IssueID, l.Entries[0].Issue)
	assert.Equal(t, int64(0), l.Offset)
	assert.Equal(t, []int64{100, 150, 120}, balances(l.Entries), "equal timestamps keep input order")
	assert.Equal(t, l.NewestFirst(), WalkBackward(txs, 120))
}
