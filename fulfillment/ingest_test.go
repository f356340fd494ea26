package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/lucidmetrics/adsync_backend/utils"
)

type pagedClient struct {
	orderPages  [][]OrderRecord
	walletPages [][]WalletRecord
	orderCalls  int
	walletCalls int
	orderErr    error
}

func (c *pagedClient) Login(ctx context.Context) error { return nil }

func (c *pagedClient) GetOrders(ctx context.Context, start, limit int, from, until *time.Time) ([]OrderRecord, error) {
	if c.orderErr != nil {
		return nil, c.orderErr
	}
	page := c.orderCalls
	c.orderCalls++
	if page >= len(c.orderPages) {
		return nil, nil
	}
	return c.orderPages[page], nil
}

func (c *pagedClient) GetWalletMovements(ctx context.Context, start, limit int, from, until *time.Time) ([]WalletRecord, error) {
	page := c.walletCalls
	c.walletCalls++
	if page >= len(c.walletPages) {
		return nil, nil
	}
	return c.walletPages[page], nil
}

type memStore struct {
	mu      sync.Mutex
	orders  []*models.Order
	entries []*models.LedgerEntry
}

func (s *memStore) UpsertOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, order)
	return nil
}

func (s *memStore) UpsertLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func orderRecord(id int64, total string) OrderRecord {
	return OrderRecord{
		ID:             id,
		ClientName:     "Cliente",
		TotalOrder:     json.Number(total),
		ShippingAmount: json.Number("12000"),
		SupplierCost:   json.Number("40000"),
		Status:         "ENTREGADO",
		CreatedAt:      "2026-08-01 10:00:00",
	}
}

func makeOrderPage(size int, firstId int64) []OrderRecord {
	page := make([]OrderRecord, 0, size)
	for i := 0; i < size; i++ {
		page = append(page, orderRecord(firstId+int64(i), "99900"))
	}
	return page
}

func TestIngestOrders_StopsAtShortPage(t *testing.T) {
	t.Setenv("FULFILLMENT_ORDER_PAGE_SIZE", "3")

	client := &pagedClient{orderPages: [][]OrderRecord{
		makeOrderPage(3, 1),
		makeOrderPage(3, 4),
		makeOrderPage(2, 7),
	}}
	store := &memStore{}
	ing := &Ingestor{Client: client, Orders: store, Ledger: store, AccountId: "acct-1"}

	count, err := ing.IngestOrders(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("IngestOrders: %v", err)
	}
	if count != 8 {
		t.Fatalf("expected 8 orders ingested, got %d", count)
	}
	if client.orderCalls != 3 {
		t.Fatalf("a short page must stop pagination, got %d calls", client.orderCalls)
	}
}

func TestIngestOrders_MalformedRecordIsSkipped(t *testing.T) {
	t.Setenv("FULFILLMENT_ORDER_PAGE_SIZE", "10")

	bad := orderRecord(2, "not-a-number")
	missing := orderRecord(0, "100")
	client := &pagedClient{orderPages: [][]OrderRecord{
		{orderRecord(1, "99900"), bad, missing, orderRecord(3, "59900")},
	}}
	store := &memStore{}

	var skipped []string
	ing := &Ingestor{
		Client:    client,
		Orders:    store,
		Ledger:    store,
		AccountId: "acct-1",
		RecordError: func(entityType, externalId string, err error) {
			if !utils.IsMalformedRecord(err) {
				t.Fatalf("expected a malformed record error, got %v", err)
			}
			skipped = append(skipped, externalId)
		},
	}

	count, err := ing.IngestOrders(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("malformed records must not abort the run: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 good orders, got %d", count)
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped records, got %v", skipped)
	}
	if len(store.orders) != 2 {
		t.Fatalf("only good orders may be stored, got %d", len(store.orders))
	}
}

func TestIngestOrders_AuthExpiredAbortsImmediately(t *testing.T) {
	client := &pagedClient{orderErr: utils.ErrCredentialExpired}
	store := &memStore{}
	ing := &Ingestor{Client: client, Orders: store, Ledger: store, AccountId: "acct-1"}

	_, err := ing.IngestOrders(context.Background(), nil, nil)
	if !errors.Is(err, utils.ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
}

func TestIngestWalletLedger_BalanceFromFirstRecordOfFirstPage(t *testing.T) {
	t.Setenv("FULFILLMENT_WALLET_PAGE_SIZE", "2")

	client := &pagedClient{walletPages: [][]WalletRecord{
		{
			{ID: 30, Amount: json.Number("59900"), CurrentBalance: json.Number("1543200.50"), Description: "GANANCIA EN LA ORDEN #900", Type: "ENTRADA", CreatedAt: "2026-08-10 09:00:00"},
			{ID: 29, Amount: json.Number("-12000"), CurrentBalance: json.Number("1483300.50"), Description: "COBRO DE FLETE ORDEN #899", Type: "SALIDA", CreatedAt: "2026-08-09 09:00:00"},
		},
		{
			{ID: 28, Amount: json.Number("-200000"), CurrentBalance: json.Number("1495300.50"), Description: "RETIRO", Type: "SALIDA", CreatedAt: "2026-08-08 09:00:00"},
		},
	}}
	store := &memStore{}
	ing := &Ingestor{Client: client, Orders: store, Ledger: store, AccountId: "acct-1"}

	count, balance, err := ing.IngestWalletLedger(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("IngestWalletLedger: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 entries, got %d", count)
	}
	if !balance.Valid || balance.Decimal.String() != "1543200.5" {
		t.Fatalf("balance must come from the first record of the first page, got %+v", balance)
	}

	categories := map[int64]models.LedgerCategory{}
	refs := map[int64]*int64{}
	for _, entry := range store.entries {
		categories[entry.SourceEntryId] = entry.Category
		refs[entry.SourceEntryId] = entry.OrderRef
	}
	if categories[30] != models.LedgerCategoryOrderPayout {
		t.Fatalf("entry 30 expected ORDER_PAYOUT, got %s", categories[30])
	}
	if categories[29] != models.LedgerCategoryFreightCharge {
		t.Fatalf("entry 29 expected FREIGHT_CHARGE, got %s", categories[29])
	}
	if categories[28] != models.LedgerCategoryWithdrawal {
		t.Fatalf("entry 28 expected WITHDRAWAL, got %s", categories[28])
	}
	if refs[30] == nil || *refs[30] != 900 {
		t.Fatalf("entry 30 should resolve order ref 900 from the description")
	}
	if refs[28] != nil {
		t.Fatalf("entry 28 has no order reference")
	}
}

func TestCategorizeMovement(t *testing.T) {
	cases := []struct {
		description string
		movement    string
		expected    models.LedgerCategory
	}{
		{"GANANCIA EN LA ORDEN #123", "ENTRADA", models.LedgerCategoryOrderPayout},
		{"Cobro de flete orden #123", "SALIDA", models.LedgerCategoryFreightCharge},
		{"RETIRO A CUENTA BANCARIA", "SALIDA", models.LedgerCategoryWithdrawal},
		{"RECARGA DE SALDO", "ENTRADA", models.LedgerCategoryDeposit},
		{"AJUSTE MANUAL", "SALIDA", models.LedgerCategoryOtherOut},
		{"AJUSTE MANUAL", "ENTRADA", models.LedgerCategoryOtherIn},
	}
	for _, tc := range cases {
		got := CategorizeMovement(tc.description, tc.movement)
		if got != tc.expected {
			t.Fatalf("CategorizeMovement(%q, %q) expected %s, got %s", tc.description, tc.movement, tc.expected, got)
		}
	}
}

func TestOrderRefFromRecord(t *testing.T) {
	structured := int64(777)
	cases := []struct {
		name     string
		record   WalletRecord
		expected *int64
	}{
		{"structured id wins", WalletRecord{OrderID: &structured, Description: "GANANCIA EN LA ORDEN #123"}, &structured},
		{"description fallback", WalletRecord{Description: "Ganancia en la Orden # 456"}, int64Ptr(456)},
		{"no reference", WalletRecord{Description: "RETIRO"}, nil},
	}
	for _, tc := range cases {
		got := orderRefFromRecord(tc.record)
		switch {
		case tc.expected == nil && got != nil:
			t.Fatalf("%s: expected nil, got %d", tc.name, *got)
		case tc.expected != nil && (got == nil || *got != *tc.expected):
			t.Fatalf("%s: expected %d, got %v", tc.name, *tc.expected, got)
		}
	}
}

func int64Ptr(v int64) *int64 { return &v }
