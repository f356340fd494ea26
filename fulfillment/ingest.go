package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lucidmetrics/adsync_backend/config"
	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/lucidmetrics/adsync_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const moduleName = "fulfillment"

const (
	defaultOrderPageSize  = 100
	defaultWalletPageSize = 500
	pageRetryAttempts     = 3
)

// OrderStore / LedgerStore are the persistence slices the ingestor needs.
type OrderStore interface {
	UpsertOrder(ctx context.Context, order *models.Order) error
}

type LedgerStore interface {
	UpsertLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error
}

// GormSyncStore is the production store backed by the shared DB.
type GormSyncStore struct {
	DB *gorm.DB
}

func (s *GormSyncStore) UpsertOrder(ctx context.Context, order *models.Order) error {
	return models.UpsertOrder(ctx, s.DB, order)
}

func (s *GormSyncStore) UpsertLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return models.UpsertLedgerEntry(ctx, s.DB, entry)
}

// Ingestor mirrors the provider's orders and wallet ledger into the local
// store. Pages are fetched strictly in order and committed as they arrive, so
// a failed run keeps everything ingested before the failure.
type Ingestor struct {
	Client    Client
	Orders    OrderStore
	Ledger    LedgerStore
	AccountId string
	Timezone  string

	// RecordError, when set, is called once per skipped record.
	RecordError func(entityType, externalId string, err error)
}

func pageSizeFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// IngestOrders walks the order collection page by page. It stops at the first
// short or empty page. A page that keeps failing after bounded retries aborts
// the run; already committed pages stay.
func (ing *Ingestor) IngestOrders(ctx context.Context, from, until *time.Time) (int, error) {
	logger := config.GetLogger()
	pageSize := pageSizeFromEnv("FULFILLMENT_ORDER_PAGE_SIZE", defaultOrderPageSize)

	count := 0
	for start := 0; ; start += pageSize {
		records, err := fetchPageWithRetry(ctx, func() ([]OrderRecord, error) {
			return ing.Client.GetOrders(ctx, start, pageSize, from, until)
		})
		if err != nil {
			config.LogError(logger, moduleName, "IngestOrders", "fetch orders page", start, err)
			return count, err
		}

		for _, record := range records {
			if err := ing.storeOrder(ctx, record); err != nil {
				if ing.RecordError != nil {
					ing.RecordError("order", strconv.FormatInt(record.ID, 10), err)
				}
				config.LogError(logger, moduleName, "IngestOrders", "store order", record.ID, err)
				continue
			}
			count++
		}

		// A short page is the end of the collection.
		if len(records) < pageSize {
			return count, nil
		}
	}
}

// IngestWalletLedger walks the wallet ledger, newest first. The first record
// of the first page carries the authoritative wallet balance; the provider's
// account object reports a stale figure and is never consulted.
func (ing *Ingestor) IngestWalletLedger(ctx context.Context, from, until *time.Time) (int, decimal.NullDecimal, error) {
	logger := config.GetLogger()
	pageSize := pageSizeFromEnv("FULFILLMENT_WALLET_PAGE_SIZE", defaultWalletPageSize)

	count := 0
	var balance decimal.NullDecimal
	for start := 0; ; start += pageSize {
		records, err := fetchPageWithRetry(ctx, func() ([]WalletRecord, error) {
			return ing.Client.GetWalletMovements(ctx, start, pageSize, from, until)
		})
		if err != nil {
			config.LogError(logger, moduleName, "IngestWalletLedger", "fetch wallet page", start, err)
			return count, balance, err
		}

		if start == 0 && len(records) > 0 {
			if b, err := decimal.NewFromString(records[0].CurrentBalance.String()); err == nil {
				balance = decimal.NullDecimal{Decimal: b, Valid: true}
			}
		}

		for _, record := range records {
			if err := ing.storeWalletRecord(ctx, record); err != nil {
				if ing.RecordError != nil {
					ing.RecordError("ledger_entry", strconv.FormatInt(record.ID, 10), err)
				}
				config.LogError(logger, moduleName, "IngestWalletLedger", "store wallet record", record.ID, err)
				continue
			}
			count++
		}

		if len(records) < pageSize {
			return count, balance, nil
		}
	}
}

// fetchPageWithRetry retries transient page failures with exponential backoff.
// Auth failures and malformed responses surface immediately.
func fetchPageWithRetry[T any](ctx context.Context, fetch func() ([]T, error)) ([]T, error) {
	var lastErr error
	for attempt := 1; attempt <= pageRetryAttempts; attempt++ {
		records, err := fetch()
		if err == nil {
			return records, nil
		}
		if errors.Is(err, utils.ErrCredentialExpired) || !utils.IsTransient(err) {
			return nil, err
		}
		lastErr = err

		sleep := time.Second * time.Duration(1<<attempt)
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (ing *Ingestor) storeOrder(ctx context.Context, record OrderRecord) error {
	if record.ID == 0 {
		return &utils.MalformedRecordError{Source: moduleName, EntityId: "?", Reason: "order without id"}
	}
	amount, err := decimal.NewFromString(record.TotalOrder.String())
	if err != nil {
		return &utils.MalformedRecordError{
			Source:   moduleName,
			EntityId: strconv.FormatInt(record.ID, 10),
			Reason:   "unparseable total_order " + record.TotalOrder.String(),
		}
	}
	shipping := decimalOrZero(record.ShippingAmount)
	supplierCost := decimalOrZero(record.SupplierCost)

	now := time.Now().UTC()
	order := &models.Order{
		AccountId:      ing.AccountId,
		SourceOrderId:  record.ID,
		ClientName:     record.ClientName,
		ClientPhone:    record.ClientPhone,
		Amount:         amount,
		ShippingAmount: shipping,
		SupplierCost:   supplierCost,
		Status:         models.CanonicalOrderStatus(record.Status),
		StatusRaw:      record.Status,
		LastSyncedAt:   &now,
	}
	if id := strings.TrimSpace(record.AdID); id != "" {
		order.AdID = &id
	}
	if createdAt, err := models.ParseDateString(record.CreatedAt, ing.Timezone); err == nil {
		order.OrderCreatedAt = &createdAt
	}
	if raw, err := json.Marshal(record); err == nil {
		order.RawJSON = raw
	}

	return ing.Orders.UpsertOrder(ctx, order)
}

func (ing *Ingestor) storeWalletRecord(ctx context.Context, record WalletRecord) error {
	if record.ID == 0 {
		return &utils.MalformedRecordError{Source: moduleName, EntityId: "?", Reason: "wallet record without id"}
	}
	amount, err := decimal.NewFromString(record.Amount.String())
	if err != nil {
		return &utils.MalformedRecordError{
			Source:   moduleName,
			EntityId: strconv.FormatInt(record.ID, 10),
			Reason:   "unparseable amount " + record.Amount.String(),
		}
	}

	now := time.Now().UTC()
	entry := &models.LedgerEntry{
		AccountId:     ing.AccountId,
		SourceEntryId: record.ID,
		Amount:        amount,
		Description:   record.Description,
		EntryType:     record.Type,
		Category:      CategorizeMovement(record.Description, record.Type),
		OrderRef:      orderRefFromRecord(record),
		LastSyncedAt:  &now,
	}
	if b, err := decimal.NewFromString(record.CurrentBalance.String()); err == nil {
		entry.BalanceAfter = decimal.NullDecimal{Decimal: b, Valid: true}
	}
	if createdAt, err := models.ParseDateString(record.CreatedAt, ing.Timezone); err == nil {
		entry.EntryCreatedAt = &createdAt
	}

	return ing.Ledger.UpsertLedgerEntry(ctx, entry)
}

func decimalOrZero(num json.Number) decimal.Decimal {
	d, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CategorizeMovement classifies a wallet movement by its description, falling
// back to the movement direction.
func CategorizeMovement(description, movementType string) models.LedgerCategory {
	desc := strings.ToUpper(description)
	switch {
	case strings.Contains(desc, "GANANCIA EN LA ORDEN"):
		return models.LedgerCategoryOrderPayout
	case strings.Contains(desc, "COBRO DE FLETE"):
		return models.LedgerCategoryFreightCharge
	case strings.Contains(desc, "RETIRO"):
		return models.LedgerCategoryWithdrawal
	case strings.Contains(desc, "RECARGA"), strings.Contains(desc, "DEPOSITO"), strings.Contains(desc, "DEPÓSITO"):
		return models.LedgerCategoryDeposit
	}
	if strings.EqualFold(movementType, "SALIDA") {
		return models.LedgerCategoryOtherOut
	}
	return models.LedgerCategoryOtherIn
}

var orderRefPattern = regexp.MustCompile(`(?i)ORDEN\s*#?\s*(\d+)`)

// orderRefFromRecord prefers the structured order id; older movements only
// mention the order inside the description text.
func orderRefFromRecord(record WalletRecord) *int64 {
	if record.OrderID != nil && *record.OrderID != 0 {
		return record.OrderID
	}
	match := orderRefPattern.FindStringSubmatch(record.Description)
	if len(match) != 2 {
		return nil
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}
