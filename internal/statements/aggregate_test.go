package statements

import (
	"math"
	"testing"
	"time"
)

func TestAggregateAppliesNormalBalanceRules(t *testing.T) {
	balances := Aggregate(testChart(), testEntries(), currentYear())

	checks := map[int64]float64{
		accCash:       29000,  // debit-normal asset, net inflow
		accAR:         20000,  // 120,000 invoiced, 100,000 collected
		accAP:         15000,  // credit-normal liability
		accRevenue:    120000, // credit-normal revenue
		accCOGS:       40000,  // debit-normal expense
		accDividends:  -6000,  // equity account debited
		accLoan:       -5000,  // repayment reduces the liability
		accPPE:        0,      // no purchases in the window
		accInterestIn: 2000,
	}
	for id, want := range checks {
		if got := balances[id]; math.Abs(got-want) > 1e-9 {
			t.Fatalf("account %d: got %v want %v", id, got, want)
		}
	}
}

func TestAggregatePositionWindows(t *testing.T) {
	closing := Aggregate(testChart(), testEntries(), Through(currentYear().End))
	opening := Aggregate(testChart(), testEntries(), currentYear().OpeningCutoff())

	if got := opening[accCash]; math.Abs(got-51000) > 1e-9 {
		t.Fatalf("opening cash: got %v want 51000", got)
	}
	if got := closing[accCash]; math.Abs(got-80000) > 1e-9 {
		t.Fatalf("closing cash: got %v want 80000", got)
	}
	if got := closing[accPPE]; math.Abs(got-24000) > 1e-9 {
		t.Fatalf("closing plant: got %v want 24000", got)
	}
	// A flow window must equal the difference of the two positions.
	flow := Aggregate(testChart(), testEntries(), currentYear())
	for _, a := range testChart() {
		if diff := closing[a.ID] - opening[a.ID] - flow[a.ID]; math.Abs(diff) > 1e-9 {
			t.Fatalf("account %s: positions and flow disagree by %v", a.Code, diff)
		}
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	entries := testEntries()
	shuffled := append(entries[:0:0], entries...)
	for i, j := 0, len(shuffled)-1; i < j; i, j = i+1, j-1 {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	a := Aggregate(testChart(), entries, currentYear())
	b := Aggregate(testChart(), shuffled, currentYear())
	for id, want := range a {
		if got := b[id]; math.Abs(got-want) > 1e-9 {
			t.Fatalf("account %d: %v != %v after reorder", id, got, want)
		}
	}
}

func TestAggregateSkipsOrphanLines(t *testing.T) {
	entries := append(testEntries(),
		entry(day(2025, time.March, 1), dr(999, 777), cr(accCash, 777)),
	)
	balances := Aggregate(testChart(), entries, currentYear())
	if _, ok := balances[999]; ok {
		t.Fatalf("orphan account must not appear in balances")
	}
	if got := balances[accCash]; math.Abs(got-(29000-777)) > 1e-9 {
		t.Fatalf("known side of an orphan entry still posts: got %v", got)
	}
	if got := OrphanLines(testChart(), entries, currentYear()); got != 1 {
		t.Fatalf("OrphanLines: got %d want 1", got)
	}
}

func TestGrossMovements(t *testing.T) {
	debits, credits := GrossMovements(testEntries(), currentYear())
	if got := debits[accCash]; math.Abs(got-102000) > 1e-9 {
		t.Fatalf("cash debits: got %v want 102000", got)
	}
	if got := credits[accCash]; math.Abs(got-73000) > 1e-9 {
		t.Fatalf("cash credits: got %v want 73000", got)
	}
	if got := debits[accAP]; math.Abs(got-25000) > 1e-9 {
		t.Fatalf("payables debits: got %v want 25000", got)
	}
	if got := credits[accAP]; math.Abs(got-40000) > 1e-9 {
		t.Fatalf("payables credits: got %v want 40000", got)
	}
}
