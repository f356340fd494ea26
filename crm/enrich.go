package crm

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lucidmetrics/adsync_backend/config"
	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/lucidmetrics/adsync_backend/utils"
	"gorm.io/gorm"
)

const moduleName = "crm"

// ContactStore is the slice of persistence the pipeline needs.
type ContactStore interface {
	UpsertContact(ctx context.Context, contact *models.Contact) error
}

// GormContactStore is the production store backed by the shared DB.
type GormContactStore struct {
	DB *gorm.DB
}

func (s *GormContactStore) UpsertContact(ctx context.Context, contact *models.Contact) error {
	return models.UpsertContact(ctx, s.DB, contact)
}

// Report summarizes one enrichment pass. Processed always equals the number
// of listed contacts when the pass ran to completion.
type Report struct {
	Processed int `json:"processed"`
	WithKey   int `json:"with_key"`
	Failed    int `json:"failed"`
}

// Enricher walks the CRM listing with a bounded worker pool, fetches each
// contact's custom fields and writes the enriched row through immediately,
// so progress survives an aborted run.
type Enricher struct {
	Client    Client
	Store     ContactStore
	Fields    FieldNames
	AccountId string
	Country   string
	Workers   int

	// RecordError, when set, is called once per failed contact (for sync
	// error bookkeeping). It must be safe for concurrent use.
	RecordError func(contactId string, err error)
}

func DefaultWorkers() int {
	if v := strings.TrimSpace(os.Getenv("CRM_ENRICH_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 8
}

// Run executes one full enrichment pass. A listing failure aborts the run;
// per-contact failures are isolated, counted and leave a key-less row behind.
// An expired credential is fatal: in-flight work finishes, nothing new starts.
func (e *Enricher) Run(ctx context.Context) (Report, error) {
	logger := config.GetLogger()

	summaries, err := e.Client.ListContacts(ctx)
	if err != nil {
		config.LogError(logger, moduleName, "Run", "list contacts", e.AccountId, err)
		return Report{}, err
	}

	workers := e.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > len(summaries) && len(summaries) > 0 {
		workers = len(summaries)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		report   Report
		fatalErr error
	)
	setFatal := func(err error) {
		mu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		mu.Unlock()
		cancel()
	}

	jobs := make(chan ContactSummary)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for summary := range jobs {
				withKey, err := e.processContact(runCtx, summary)
				mu.Lock()
				report.Processed++
				if err != nil {
					report.Failed++
				} else if withKey {
					report.WithKey++
				}
				mu.Unlock()
				if err != nil {
					if errors.Is(err, utils.ErrCredentialExpired) {
						setFatal(err)
						return
					}
					if e.RecordError != nil {
						e.RecordError(summary.ID, err)
					}
					config.LogError(logger, moduleName, "Run", "enrich contact", summary.ID, err)
				}
			}
		}()
	}

dispatch:
	for _, summary := range summaries {
		select {
		case jobs <- summary:
		case <-runCtx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if fatalErr != nil {
		return report, fatalErr
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// processContact fetches the detail, derives the enrichment fields and writes
// the row through. On a detail failure the contact is still persisted (from
// its listing data) with FetchFailed set and no correlation key, so coverage
// stats see it.
func (e *Enricher) processContact(ctx context.Context, summary ContactSummary) (bool, error) {
	now := time.Now().UTC()

	detail, err := e.Client.GetContactDetail(ctx, summary.ID)
	if err != nil {
		if errors.Is(err, utils.ErrCredentialExpired) {
			return false, err
		}
		failedRow := &models.Contact{
			AccountId:    e.AccountId,
			SourceId:     summary.ID,
			FullName:     summary.FullName,
			Phone:        utils.NormalizePhone(summary.Phone, e.Country),
			Email:        summary.Email,
			FetchFailed:  true,
			Status:       models.ContactStatusUnknown,
			LastSyncedAt: &now,
		}
		if storeErr := e.Store.UpsertContact(ctx, failedRow); storeErr != nil {
			return false, storeErr
		}
		return false, err
	}

	adID, hasKey := ExtractAdID(detail.CustomFields, e.Fields)
	isSale, saleValue := DeriveSale(detail.CustomFields, e.Fields)
	status := DeriveStatus(detail.CustomFields, e.Fields)

	fieldsJSON, _ := json.Marshal(detail.CustomFields)

	contact := &models.Contact{
		AccountId:        e.AccountId,
		SourceId:         summary.ID,
		FullName:         firstNonEmpty(detail.FullName, summary.FullName),
		Phone:            utils.NormalizePhone(firstNonEmpty(detail.Phone, summary.Phone), e.Country),
		Email:            firstNonEmpty(detail.Email, summary.Email),
		IsSale:           isSale,
		SaleValue:        saleValue,
		Status:           status,
		Rating:           detail.CustomFields[e.Fields.Rating],
		CustomFieldsJSON: fieldsJSON,
		FetchFailed:      false,
		LastSyncedAt:     &now,
	}
	if hasKey {
		contact.AdID = &adID
	}

	if err := e.Store.UpsertContact(ctx, contact); err != nil {
		return false, err
	}
	return hasKey, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
