package analytics

import (
	"context"
	"testing"

	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/shopspring/decimal"
)

type countingStore struct {
	aggregates map[string]models.ContactAggregate
	calls      int
	lastKeys   []string
}

func (s *countingStore) AggregateContactsByAdIds(ctx context.Context, accountId string, adIds []string) (map[string]models.ContactAggregate, error) {
	s.calls++
	s.lastKeys = adIds
	return s.aggregates, nil
}

func spendRecord(adId string, spend string) SpendRecord {
	return SpendRecord{AdID: adId, AdName: "ad " + adId, Spend: decimal.RequireFromString(spend)}
}

func TestCorrelate_Ratios(t *testing.T) {
	store := &countingStore{aggregates: map[string]models.ContactAggregate{
		"120217776665554": {
			AdID:    "120217776665554",
			Leads:   40,
			Sales:   5,
			Revenue: decimal.RequireFromString("299500"),
		},
	}}

	metrics, err := Correlate(context.Background(), store, "acc-1", []SpendRecord{
		spendRecord("120217776665554", "100000"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(metrics))
	}

	m := metrics[0]
	if !m.HasData {
		t.Fatal("expected HasData")
	}
	if m.Leads != 40 || m.Sales != 5 {
		t.Fatalf("unexpected counts: leads=%d sales=%d", m.Leads, m.Sales)
	}
	if m.CPA == nil || !m.CPA.Equal(decimal.RequireFromString("20000")) {
		t.Fatalf("expected CPA 20000, got %v", m.CPA)
	}
	if m.ROAS == nil || !m.ROAS.Equal(decimal.RequireFromString("2.995")) {
		t.Fatalf("expected ROAS 2.995, got %v", m.ROAS)
	}
	if m.CPL == nil || !m.CPL.Equal(decimal.RequireFromString("2500")) {
		t.Fatalf("expected CPL 2500, got %v", m.CPL)
	}
}

func TestCorrelate_ZeroSalesUsesDenominatorOfOne(t *testing.T) {
	store := &countingStore{aggregates: map[string]models.ContactAggregate{
		"ad-1": {AdID: "ad-1", Leads: 10, Sales: 0, Revenue: decimal.Zero},
	}}

	metrics, err := Correlate(context.Background(), store, "acc-1", []SpendRecord{spendRecord("ad-1", "5000")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := metrics[0]
	// With zero sales CPA reads as cost so far toward the first sale.
	if m.CPA == nil || !m.CPA.Equal(decimal.RequireFromString("5000")) {
		t.Fatalf("expected CPA 5000, got %v", m.CPA)
	}
	if m.CPL == nil || !m.CPL.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("expected CPL 500, got %v", m.CPL)
	}
}

func TestCorrelate_ZeroSpend(t *testing.T) {
	store := &countingStore{aggregates: map[string]models.ContactAggregate{
		"ad-1": {AdID: "ad-1", Leads: 12, Sales: 2, Revenue: decimal.RequireFromString("80000")},
	}}

	metrics, err := Correlate(context.Background(), store, "acc-1", []SpendRecord{spendRecord("ad-1", "0")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := metrics[0]
	if !m.HasData {
		t.Fatal("expected HasData")
	}
	if m.CPA != nil || m.ROAS != nil {
		t.Fatalf("zero spend must leave CPA and ROAS undefined, got cpa=%v roas=%v", m.CPA, m.ROAS)
	}
	if m.CPL == nil || !m.CPL.IsZero() {
		t.Fatalf("zero spend keeps CPL defined at zero, got %v", m.CPL)
	}
}

func TestCorrelate_NoContactData(t *testing.T) {
	store := &countingStore{aggregates: map[string]models.ContactAggregate{}}

	metrics, err := Correlate(context.Background(), store, "acc-1", []SpendRecord{spendRecord("ad-1", "100")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := metrics[0]
	if m.HasData {
		t.Fatal("expected HasData false for a key with no contacts")
	}
	if m.CPA != nil || m.ROAS != nil || m.CPL != nil {
		t.Fatalf("no data means every ratio is undefined, got cpa=%v roas=%v cpl=%v", m.CPA, m.ROAS, m.CPL)
	}
	if m.Leads != 0 || m.Sales != 0 || !m.Revenue.IsZero() {
		t.Fatalf("no data means zero counts, got %+v", m)
	}
}

func TestCorrelate_SingleBatchedStoreCall(t *testing.T) {
	store := &countingStore{aggregates: map[string]models.ContactAggregate{}}

	spend := []SpendRecord{
		spendRecord("ad-1", "100"),
		spendRecord("ad-2", "200"),
		spendRecord("ad-1", "150"), // duplicate key
		spendRecord("ad-3", "300"),
	}
	metrics, err := Correlate(context.Background(), store, "acc-1", spend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected exactly one store call, got %d", store.calls)
	}
	if len(store.lastKeys) != 3 {
		t.Fatalf("expected 3 deduplicated keys, got %v", store.lastKeys)
	}
	// One metric per spend record, duplicates included.
	if len(metrics) != 4 {
		t.Fatalf("expected 4 metrics, got %d", len(metrics))
	}
}
