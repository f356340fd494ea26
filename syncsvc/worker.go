package syncsvc

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/lucidmetrics/adsync_backend/config"
	"github.com/lucidmetrics/adsync_backend/crm"
	"github.com/lucidmetrics/adsync_backend/fulfillment"
	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/lucidmetrics/adsync_backend/utils"
	"github.com/lucidmetrics/adsync_backend/vault"
	"gorm.io/gorm"
)

const moduleName = "syncsvc"

// syncLockTTL bounds how long a crashed worker can block the account.
const syncLockTTL = 15 * time.Minute

func coverageDegradedThreshold() float64 {
	if v := strings.TrimSpace(os.Getenv("COVERAGE_DEGRADED_THRESHOLD")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			return f
		}
	}
	return 0.5
}

func syncLookbackDays() int {
	if v := strings.TrimSpace(os.Getenv("SYNC_LOOKBACK_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 90
}

func processSyncRun(ctx context.Context, payload SyncPubSubPayload) error {
	if payload.RunId == 0 || payload.AccountId == "" {
		return errors.New("invalid payload")
	}

	logger := config.GetLogger()
	ctx = utils.SetAccountIdInContext(ctx, payload.AccountId)
	db := config.GetDB().WithContext(ctx)

	var run models.SyncRun
	if err := db.Where("id = ? AND account_id = ?", payload.RunId, payload.AccountId).Take(&run).Error; err != nil {
		return err
	}
	if run.Status == models.SyncRunStatusSuccess || run.Status == models.SyncRunStatusFailed || run.Status == models.SyncRunStatusPartial {
		return nil
	}

	var conn models.SourceConnection
	if err := db.Where("id = ? AND account_id = ?", run.ConnectionId, payload.AccountId).Take(&conn).Error; err != nil {
		return err
	}
	if conn.Status != models.ConnectionStatusConnected {
		return errors.New(conn.Provider + " is not connected")
	}

	// One run per account at a time; a second worker backs off and lets
	// Pub/Sub redeliver.
	locker := config.GetRedisLock()
	if locker == nil {
		return errors.New("redis lock is not initialized")
	}
	lock, err := locker.Obtain(ctx, "SyncRun:"+payload.AccountId, syncLockTTL, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, "processSyncRun", "account sync already running", payload.AccountId, err)
		return err
	} else if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	modules := DecodeModules(run.ModulesJSON)
	if !config.SyncModuleEnabled("contacts") {
		modules.Contacts = false
	}
	if !config.SyncModuleEnabled("orders") {
		modules.Orders = false
	}
	if !config.SyncModuleEnabled("ledger") {
		modules.Ledger = false
	}
	if !config.SyncModuleEnabled("reconcile") {
		modules.Reconcile = false
	}

	cursorState := DecodeCursorState(conn.CursorStateJSON)

	now := time.Now()
	startedAt := run.StartedAt
	if startedAt == nil {
		startedAt = &now
	}
	if err := db.Model(&run).Updates(map[string]interface{}{
		"status":     models.SyncRunStatusRunning,
		"started_at": startedAt,
	}).Error; err != nil {
		return err
	}

	result := runResult{stats: map[string]int{}}
	connUpdates := map[string]interface{}{}

	switch run.Provider {
	case models.SourceProviderCRM:
		runContactSync(ctx, db, &run, &conn, modules, &cursorState, &result)
	case models.SourceProviderFulfillment:
		runFulfillmentSync(ctx, db, &run, &conn, modules, &cursorState, &result, connUpdates)
	default:
		result.errorCount++
		_ = createSyncError(ctx, db, run.ID, payload.AccountId, run.Provider, "", "unknown_provider", "no sync implementation for provider", nil, false)
	}

	finishedAt := time.Now()
	durationMs := finishedAt.Sub(*startedAt).Milliseconds()

	status := models.SyncRunStatusSuccess
	if result.authExpired || (result.errorCount > 0 && result.recordsSynced == 0) {
		status = models.SyncRunStatusFailed
	} else if result.errorCount > 0 {
		status = models.SyncRunStatusPartial
	}

	statsJSON, _ := json.Marshal(result.stats)
	cursorJSON := EncodeCursorState(cursorState)
	if err := db.Model(&run).Updates(map[string]interface{}{
		"status":            status,
		"finished_at":       finishedAt,
		"duration_ms":       durationMs,
		"records_synced":    result.recordsSynced,
		"error_count":       result.errorCount,
		"degraded":          result.degraded,
		"stats_json":        statsJSON,
		"cursor_state_json": cursorJSON,
	}).Error; err != nil {
		return err
	}

	connUpdates["last_sync_at"] = finishedAt
	connUpdates["cursor_state_json"] = cursorJSON
	if status == models.SyncRunStatusSuccess {
		connUpdates["last_success_sync_at"] = finishedAt
	}
	if result.authExpired {
		connUpdates["status"] = models.ConnectionStatusAuthExpired
	}
	if err := db.Model(&models.SourceConnection{}).
		Where("id = ? AND account_id = ?", conn.ID, payload.AccountId).
		Updates(connUpdates).Error; err != nil {
		return err
	}

	syncRunsTotal.WithLabelValues(run.Provider, status).Inc()
	syncRunDuration.WithLabelValues(run.Provider).Observe(finishedAt.Sub(*startedAt).Seconds())

	if err := utils.InvalidateAccountCaches(payload.AccountId); err != nil {
		config.LogError(logger, moduleName, "processSyncRun", "invalidate caches", payload.AccountId, err)
	}
	return nil
}

// runResult accumulates what the per-provider sync bodies produce.
type runResult struct {
	stats         map[string]int
	recordsSynced int
	errorCount    int
	degraded      bool
	authExpired   bool
}

func runContactSync(ctx context.Context, db *gorm.DB, run *models.SyncRun, conn *models.SourceConnection, modules SyncModules, cursorState *CursorState, result *runResult) {
	if !modules.Contacts {
		return
	}
	logger := config.GetLogger()
	accountId := run.AccountId

	creds := &vault.DBVault{DB: config.GetDB()}
	token, err := creds.GetToken(ctx, accountId, models.SourceProviderCRM)
	if err != nil {
		result.errorCount++
		if errors.Is(err, utils.ErrCredentialExpired) {
			result.authExpired = true
		}
		_ = createSyncError(ctx, db, run.ID, accountId, "contact", "", "credential_error", err.Error(), nil, false)
		return
	}

	client, err := crm.NewPanelClient(token)
	if err != nil {
		result.errorCount++
		_ = createSyncError(ctx, db, run.ID, accountId, "contact", "", "client_error", err.Error(), nil, false)
		return
	}

	country := conn.Country
	if country == "" {
		country = utils.CountryCode
	}

	enricher := &crm.Enricher{
		Client:    client,
		Store:     &crm.GormContactStore{DB: config.GetDB()},
		Fields:    crm.LoadFieldNames(),
		AccountId: accountId,
		Country:   country,
		RecordError: func(contactId string, err error) {
			_ = createSyncError(ctx, db, run.ID, accountId, "contact", contactId, "enrich_failed", err.Error(), nil, utils.IsTransient(err))
		},
	}

	report, err := enricher.Run(ctx)
	result.stats["contacts"] = report.Processed
	result.stats["contacts_with_key"] = report.WithKey
	result.stats["contacts_failed"] = report.Failed
	result.recordsSynced += report.Processed
	result.errorCount += report.Failed
	syncRecordsTotal.WithLabelValues(run.Provider, "contact").Add(float64(report.Processed))

	if err != nil {
		config.LogError(logger, moduleName, "runContactSync", "enrichment run", accountId, err)
		if errors.Is(err, utils.ErrCredentialExpired) {
			result.authExpired = true
			_ = createSyncError(ctx, db, run.ID, accountId, "contact", "", "credential_expired", err.Error(), nil, false)
		} else {
			result.errorCount++
			_ = createSyncError(ctx, db, run.ID, accountId, "contact", "", "sync_failed", err.Error(), nil, true)
		}
		return
	}

	cursorState.Contacts.UpdatedSince = time.Now().UTC().Format(time.RFC3339)

	if report.Processed > 0 {
		coverage := float64(report.WithKey) / float64(report.Processed)
		if coverage < coverageDegradedThreshold() {
			result.degraded = true
			logger.WithField("account_id", accountId).
				WithField("coverage", coverage).
				Warn("correlation key coverage below threshold")
		}
	}
}

func runFulfillmentSync(ctx context.Context, db *gorm.DB, run *models.SyncRun, conn *models.SourceConnection, modules SyncModules, cursorState *CursorState, result *runResult, connUpdates map[string]interface{}) {
	if !modules.Orders && !modules.Ledger && !modules.Reconcile {
		return
	}
	logger := config.GetLogger()
	accountId := run.AccountId

	creds := &vault.DBVault{DB: config.GetDB()}
	email, password, err := creds.GetBasicCredentials(ctx, accountId, models.SourceProviderFulfillment)
	if err != nil {
		result.errorCount++
		if errors.Is(err, utils.ErrCredentialExpired) {
			result.authExpired = true
		}
		_ = createSyncError(ctx, db, run.ID, accountId, "order", "", "credential_error", err.Error(), nil, false)
		return
	}

	settings := DecodeSettings(conn.SettingsJSON)
	client, err := fulfillment.NewDropexClient(conn.Country, email, password, conn.ExternalUserId, settings.WalletId)
	if err != nil {
		result.errorCount++
		_ = createSyncError(ctx, db, run.ID, accountId, "order", "", "client_error", err.Error(), nil, false)
		return
	}

	if err := client.Login(ctx); err != nil {
		config.LogError(logger, moduleName, "runFulfillmentSync", "login", accountId, err)
		result.errorCount++
		if errors.Is(err, utils.ErrCredentialExpired) {
			result.authExpired = true
			_ = createSyncError(ctx, db, run.ID, accountId, "order", "", "credential_expired", err.Error(), nil, false)
		} else {
			_ = createSyncError(ctx, db, run.ID, accountId, "order", "", "login_failed", err.Error(), nil, utils.IsTransient(err))
		}
		return
	}
	if conn.ExternalUserId == "" && client.UserId() != "" {
		connUpdates["external_user_id"] = client.UserId()
	}

	store := &fulfillment.GormSyncStore{DB: config.GetDB()}
	ing := &fulfillment.Ingestor{
		Client:    client,
		Orders:    store,
		Ledger:    store,
		AccountId: accountId,
		Timezone:  os.Getenv("SYNC_TIMEZONE"),
		RecordError: func(entityType, externalId string, err error) {
			result.errorCount++
			_ = createSyncError(ctx, db, run.ID, accountId, entityType, externalId, "store_failed", err.Error(), nil, utils.IsTransient(err))
		},
	}

	if modules.Orders {
		from := sinceForCursor(cursorState.Orders, conn)
		count, err := ing.IngestOrders(ctx, from, nil)
		result.stats["orders"] = count
		result.recordsSynced += count
		syncRecordsTotal.WithLabelValues(run.Provider, "order").Add(float64(count))
		if err != nil {
			config.LogError(logger, moduleName, "runFulfillmentSync", "ingest orders", accountId, err)
			if errors.Is(err, utils.ErrCredentialExpired) {
				result.authExpired = true
				_ = createSyncError(ctx, db, run.ID, accountId, "order", "", "credential_expired", err.Error(), nil, false)
				return
			}
			result.errorCount++
			_ = createSyncError(ctx, db, run.ID, accountId, "order", "", "sync_failed", err.Error(), nil, true)
		} else {
			cursorState.Orders.UpdatedSince = time.Now().UTC().Format(time.RFC3339)
		}
	}

	if modules.Ledger {
		from := sinceForCursor(cursorState.Ledger, conn)
		count, balance, err := ing.IngestWalletLedger(ctx, from, nil)
		result.stats["ledger_entries"] = count
		result.recordsSynced += count
		syncRecordsTotal.WithLabelValues(run.Provider, "ledger_entry").Add(float64(count))
		if balance.Valid {
			connUpdates["wallet_balance"] = balance.Decimal
			connUpdates["wallet_balance_at"] = time.Now()
		}
		if err != nil {
			config.LogError(logger, moduleName, "runFulfillmentSync", "ingest wallet ledger", accountId, err)
			if errors.Is(err, utils.ErrCredentialExpired) {
				result.authExpired = true
				_ = createSyncError(ctx, db, run.ID, accountId, "ledger_entry", "", "credential_expired", err.Error(), nil, false)
				return
			}
			result.errorCount++
			_ = createSyncError(ctx, db, run.ID, accountId, "ledger_entry", "", "sync_failed", err.Error(), nil, true)
		} else {
			cursorState.Ledger.UpdatedSince = time.Now().UTC().Format(time.RFC3339)
		}
	}

	if modules.Reconcile {
		report, err := fulfillment.Reconcile(ctx, config.GetDB(), accountId)
		result.stats["settled"] = report.Settled
		result.stats["return_charged"] = report.ReturnCharged
		reconcileMatchesTotal.WithLabelValues("settlement").Add(float64(report.Settled))
		reconcileMatchesTotal.WithLabelValues("return_charge").Add(float64(report.ReturnCharged))
		if err != nil {
			config.LogError(logger, moduleName, "runFulfillmentSync", "reconcile", accountId, err)
			result.errorCount++
			_ = createSyncError(ctx, db, run.ID, accountId, "order", "", "reconcile_failed", err.Error(), nil, true)
		}
	}
}

// sinceForCursor resolves the incremental window start: last cursor point,
// else last fully successful run, else a bounded lookback.
func sinceForCursor(cursor CursorEntry, conn *models.SourceConnection) *time.Time {
	if s := strings.TrimSpace(cursor.UpdatedSince); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return &t
		}
	}
	if conn.LastSuccessSyncAt != nil {
		t := conn.LastSuccessSyncAt.UTC()
		return &t
	}
	t := time.Now().AddDate(0, 0, -syncLookbackDays()).UTC()
	return &t
}

func createSyncError(ctx context.Context, db *gorm.DB, runId uint, accountId string, entityType string, externalId string, code string, message string, payload []byte, retryable bool) error {
	errRec := models.SyncError{
		SyncRunId:   runId,
		AccountId:   accountId,
		EntityType:  entityType,
		ExternalId:  externalId,
		ErrorCode:   code,
		Message:     message,
		PayloadJSON: payload,
		Retryable:   retryable,
	}
	return db.WithContext(ctx).Create(&errRec).Error
}
