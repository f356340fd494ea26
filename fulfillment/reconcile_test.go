package fulfillment

import (
	"testing"
	"time"

	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/shopspring/decimal"
)

func testOrder(id uint, sourceId int64, amount, supplierCost, shipping string) *models.Order {
	return &models.Order{
		ID:             id,
		SourceOrderId:  sourceId,
		Amount:         decimal.RequireFromString(amount),
		SupplierCost:   decimal.RequireFromString(supplierCost),
		ShippingAmount: decimal.RequireFromString(shipping),
	}
}

func testEntry(id uint, orderRef int64, amount string, createdAt time.Time) *models.LedgerEntry {
	ref := orderRef
	return &models.LedgerEntry{
		ID:             id,
		OrderRef:       &ref,
		Amount:         decimal.RequireFromString(amount),
		EntryCreatedAt: &createdAt,
	}
}

func TestMatchSettlements_ToleranceBoundary(t *testing.T) {
	// Expected payout: 100000 - 60000 - 10000 = 30000.
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		amount  string
		matched bool
	}{
		{"exact", "30000", true},
		{"within tolerance", "30000.01", true},
		{"just over tolerance", "30000.011", false},
		{"negative payout within tolerance", "-29999.99", true},
		{"way off", "25000", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			orders := []*models.Order{testOrder(1, 900, "100000", "60000", "10000")}
			entries := []*models.LedgerEntry{testEntry(10, 900, c.amount, at)}

			matches := MatchSettlements(orders, entries, DefaultAmountTolerance)
			if c.matched && len(matches) != 1 {
				t.Fatalf("amount %s: expected a match, got %d", c.amount, len(matches))
			}
			if !c.matched && len(matches) != 0 {
				t.Fatalf("amount %s: expected no match, got %d", c.amount, len(matches))
			}
		})
	}
}

func TestMatchSettlements_EarliestEntryWins(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	orders := []*models.Order{testOrder(1, 900, "50000", "30000", "5000")}
	// All three entries qualify; list them newest-first to prove the
	// result does not depend on input order.
	entries := []*models.LedgerEntry{
		testEntry(30, 900, "15000", day2),
		testEntry(22, 900, "15000", day1),
		testEntry(21, 900, "15000", day1),
	}

	matches := MatchSettlements(orders, entries, DefaultAmountTolerance)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].LedgerId != 21 {
		t.Fatalf("expected earliest-dated lowest-id entry 21, got %d", matches[0].LedgerId)
	}
	if !matches[0].MatchedAt.Equal(day1) {
		t.Fatalf("expected match time %v, got %v", day1, matches[0].MatchedAt)
	}
}

func TestMatchSettlements_OneToOne(t *testing.T) {
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	orders := []*models.Order{
		testOrder(1, 900, "50000", "30000", "5000"),
		testOrder(2, 901, "50000", "30000", "5000"),
	}
	// Two qualifying entries for order 900, none for 901.
	entries := []*models.LedgerEntry{
		testEntry(10, 900, "15000", at),
		testEntry(11, 900, "15000", at.Add(time.Hour)),
	}

	matches := MatchSettlements(orders, entries, DefaultAmountTolerance)
	if len(matches) != 1 {
		t.Fatalf("expected exactly 1 match, got %d", len(matches))
	}
	if matches[0].OrderId != 1 || matches[0].LedgerId != 10 {
		t.Fatalf("unexpected match %+v", matches[0])
	}
}

func TestMatchSettlements_SkipsSettledAndUnusableEntries(t *testing.T) {
	at := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	settledId := int64(77)
	settled := testOrder(1, 900, "50000", "30000", "5000")
	settled.SettledLedgerId = &settledId
	open := testOrder(2, 901, "50000", "30000", "5000")

	noRef := testEntry(10, 0, "15000", at)
	noRef.OrderRef = nil
	noDate := testEntry(11, 901, "15000", at)
	noDate.EntryCreatedAt = nil

	entries := []*models.LedgerEntry{
		noRef,
		noDate,
		testEntry(12, 900, "15000", at), // order already settled
		testEntry(13, 901, "15000", at),
	}

	matches := MatchSettlements([]*models.Order{settled, open}, entries, DefaultAmountTolerance)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].OrderId != 2 || matches[0].LedgerId != 13 {
		t.Fatalf("unexpected match %+v", matches[0])
	}
}

func TestMatchReturnCharges_IgnoresAmount(t *testing.T) {
	at := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	orders := []*models.Order{testOrder(1, 900, "50000", "30000", "5000")}
	// Freight charges have no relation to the expected payout.
	entries := []*models.LedgerEntry{testEntry(10, 900, "-8700", at)}

	matches := MatchReturnCharges(orders, entries)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if !matches[0].Amount.Equal(decimal.RequireFromString("-8700")) {
		t.Fatalf("expected charge amount -8700, got %s", matches[0].Amount)
	}
}

func TestMatchReturnCharges_SkipsChargedOrders(t *testing.T) {
	at := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	chargedId := int64(55)
	charged := testOrder(1, 900, "50000", "30000", "5000")
	charged.ReturnChargedLedgerId = &chargedId

	matches := MatchReturnCharges([]*models.Order{charged}, []*models.LedgerEntry{testEntry(10, 900, "-8700", at)})
	if len(matches) != 0 {
		t.Fatalf("expected no matches for an already-charged order, got %d", len(matches))
	}
}

func TestAmountToleranceFromEnv(t *testing.T) {
	t.Setenv("RECONCILE_AMOUNT_TOLERANCE", "0.5")
	if got := AmountToleranceFromEnv(); !got.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected 0.5, got %s", got)
	}

	t.Setenv("RECONCILE_AMOUNT_TOLERANCE", "-1")
	if got := AmountToleranceFromEnv(); !got.Equal(DefaultAmountTolerance) {
		t.Fatalf("negative tolerance should fall back to default, got %s", got)
	}

	t.Setenv("RECONCILE_AMOUNT_TOLERANCE", "")
	if got := AmountToleranceFromEnv(); !got.Equal(DefaultAmountTolerance) {
		t.Fatalf("empty env should fall back to default, got %s", got)
	}
}
