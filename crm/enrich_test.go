package crm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/lucidmetrics/adsync_backend/utils"
)

type fakeClient struct {
	summaries []ContactSummary
	listErr   error
	details   map[string]*ContactDetail
	detailErr map[string]error
}

func (c *fakeClient) ListContacts(ctx context.Context) ([]ContactSummary, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.summaries, nil
}

func (c *fakeClient) GetContactDetail(ctx context.Context, contactId string) (*ContactDetail, error) {
	if err, ok := c.detailErr[contactId]; ok {
		return nil, err
	}
	detail, ok := c.details[contactId]
	if !ok {
		return nil, errors.New("contact not found")
	}
	return detail, nil
}

type fakeStore struct {
	mu   sync.Mutex
	rows map[string]*models.Contact
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]*models.Contact{}}
}

func (s *fakeStore) UpsertContact(ctx context.Context, contact *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[contact.SourceId] = contact
	return nil
}

func detailWithFields(id, name string, fields map[string]string) *ContactDetail {
	return &ContactDetail{ID: id, FullName: name, CustomFields: fields}
}

func TestEnricherRun_WritesThroughEveryContact(t *testing.T) {
	client := &fakeClient{
		summaries: []ContactSummary{
			{ID: "c1", FullName: "Ana"},
			{ID: "c2", FullName: "Beto"},
			{ID: "c3", FullName: "Carla"},
		},
		details: map[string]*ContactDetail{
			"c1": detailWithFields("c1", "Ana", map[string]string{
				"Facebook Ad":     "120210000000001",
				"Order Total":     "299500",
				"Delivery Status": "ENTREGADO",
			}),
			"c2": detailWithFields("c2", "Beto", map[string]string{
				"fb_payload": `{"ad_id":"120210000000002"}`,
			}),
			"c3": detailWithFields("c3", "Carla", map[string]string{}),
		},
	}
	store := newFakeStore()

	enricher := &Enricher{
		Client:    client,
		Store:     store,
		Fields:    testFieldNames(),
		AccountId: "acct-1",
		Workers:   2,
	}

	report, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Processed != 3 || report.WithKey != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	sale := store.rows["c1"]
	if sale == nil || sale.AdID == nil || *sale.AdID != "120210000000001" {
		t.Fatalf("c1 should carry the direct ad key, got %+v", sale)
	}
	if !sale.IsSale || !sale.SaleValue.Valid || sale.SaleValue.Decimal.String() != "299500" {
		t.Fatalf("c1 should be a sale of 299500, got %+v", sale)
	}
	if sale.Status != models.ContactStatusDelivered {
		t.Fatalf("c1 status expected DELIVERED, got %s", sale.Status)
	}

	fallback := store.rows["c2"]
	if fallback == nil || fallback.AdID == nil || *fallback.AdID != "120210000000002" {
		t.Fatalf("c2 should carry the payload ad key, got %+v", fallback)
	}

	organic := store.rows["c3"]
	if organic == nil || organic.AdID != nil {
		t.Fatalf("c3 should be stored without a key, got %+v", organic)
	}
	if organic.IsSale {
		t.Fatalf("c3 should not be a sale")
	}
}

func TestEnricherRun_DetailFailureIsIsolated(t *testing.T) {
	client := &fakeClient{
		summaries: []ContactSummary{
			{ID: "ok", FullName: "Ana"},
			{ID: "bad", FullName: "Beto", Phone: "3001112233"},
		},
		details: map[string]*ContactDetail{
			"ok": detailWithFields("ok", "Ana", map[string]string{"Facebook Ad": "1"}),
		},
		detailErr: map[string]error{
			"bad": utils.NewTransientError("crm detail", errors.New("upstream 502")),
		},
	}
	store := newFakeStore()

	var recordedMu sync.Mutex
	var recorded []string
	enricher := &Enricher{
		Client:    client,
		Store:     store,
		Fields:    testFieldNames(),
		AccountId: "acct-1",
		Workers:   4,
		RecordError: func(contactId string, err error) {
			recordedMu.Lock()
			recorded = append(recorded, contactId)
			recordedMu.Unlock()
		},
	}

	report, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("a per-contact failure must not fail the run: %v", err)
	}
	if report.Processed != 2 || report.WithKey != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(recorded) != 1 || recorded[0] != "bad" {
		t.Fatalf("expected one recorded error for %q, got %v", "bad", recorded)
	}

	failedRow := store.rows["bad"]
	if failedRow == nil {
		t.Fatalf("failed contact must still be persisted from its listing data")
	}
	if !failedRow.FetchFailed {
		t.Fatalf("failed contact must be marked fetch_failed")
	}
	if failedRow.AdID != nil {
		t.Fatalf("failed contact must not carry a correlation key")
	}
	if failedRow.FullName != "Beto" {
		t.Fatalf("failed contact should keep listing data, got %+v", failedRow)
	}
}

func TestEnricherRun_ExpiredCredentialIsFatal(t *testing.T) {
	client := &fakeClient{
		summaries: []ContactSummary{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}},
		details: map[string]*ContactDetail{
			"c2": detailWithFields("c2", "", map[string]string{}),
			"c3": detailWithFields("c3", "", map[string]string{}),
		},
		detailErr: map[string]error{"c1": utils.ErrCredentialExpired},
	}

	enricher := &Enricher{
		Client:    client,
		Store:     newFakeStore(),
		Fields:    testFieldNames(),
		AccountId: "acct-1",
		Workers:   1,
	}

	_, err := enricher.Run(context.Background())
	if !errors.Is(err, utils.ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
}

func TestEnricherRun_ListFailureAbortsRun(t *testing.T) {
	client := &fakeClient{listErr: errors.New("panel down")}
	enricher := &Enricher{
		Client:    client,
		Store:     newFakeStore(),
		Fields:    testFieldNames(),
		AccountId: "acct-1",
	}

	report, err := enricher.Run(context.Background())
	if err == nil {
		t.Fatalf("expected the run to fail when the listing fails")
	}
	if report.Processed != 0 {
		t.Fatalf("nothing should be processed, got %+v", report)
	}
}
