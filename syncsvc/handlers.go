package syncsvc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/lucidmetrics/adsync_backend/ads"
	"github.com/lucidmetrics/adsync_backend/analytics"
	"github.com/lucidmetrics/adsync_backend/config"
	"github.com/lucidmetrics/adsync_backend/middlewares"
	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/lucidmetrics/adsync_backend/utils"
	"github.com/lucidmetrics/adsync_backend/vault"
	"gorm.io/gorm"
)

var syncProviders = []string{
	models.SourceProviderCRM,
	models.SourceProviderFulfillment,
	models.SourceProviderAds,
}

func StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)

		conns, errs := middlewares.GetSourceConnections(ctx, syncProviders)
		for _, err := range errs {
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		resp := StatusResponse{Modules: DefaultModules()}
		for i, provider := range syncProviders {
			conn := conns[i]
			if conn == nil {
				resp.Connections = append(resp.Connections, ConnectionResponse{
					Provider: provider,
					Status:   models.ConnectionStatusDisconnected,
				})
				continue
			}
			item := ConnectionResponse{
				Provider:          provider,
				Status:            conn.Status,
				Country:           conn.Country,
				LastSyncAt:        formatTime(conn.LastSyncAt),
				LastSuccessSyncAt: formatTime(conn.LastSuccessSyncAt),
			}
			if conn.WalletBalance.Valid {
				balance := conn.WalletBalance.Decimal.String()
				item.WalletBalance = &balance
				item.WalletBalanceAt = formatTime(conn.WalletBalanceAt)
			}
			resp.Connections = append(resp.Connections, item)
			if settings := DecodeSettings(conn.SettingsJSON); settings.Modules != nil {
				resp.Modules = mergeModules(resp.Modules, provider, *settings.Modules)
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

func ConnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		provider := c.Param("provider")
		if !isSyncProvider(provider) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
			return
		}

		var req ConnectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		secret, authType, settings, err := buildConnectPayload(provider, req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)
		db := config.GetDB().WithContext(ctx)

		conn, err := getConnection(db, accountId, provider)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		now := time.Now()
		if conn == nil {
			conn = &models.SourceConnection{
				AccountId:     accountId,
				Provider:      provider,
				Status:        models.ConnectionStatusConnected,
				AuthType:      authType,
				AuthSecretRef: secret,
				Country:       strings.ToLower(strings.TrimSpace(req.Country)),
				SettingsJSON:  EncodeSettings(settings),
				UpdatedAt:     now,
			}
			if err := db.Create(conn).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		} else {
			existing := DecodeSettings(conn.SettingsJSON)
			settings.Modules = existing.Modules
			update := map[string]interface{}{
				"status":          models.ConnectionStatusConnected,
				"auth_type":       authType,
				"auth_secret_ref": secret,
				"settings_json":   EncodeSettings(settings),
				"updated_at":      now,
			}
			if country := strings.ToLower(strings.TrimSpace(req.Country)); country != "" {
				update["country"] = country
			}
			if err := db.Model(conn).Updates(update).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		_ = utils.InvalidateAccountCaches(accountId)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func DisconnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		provider := c.Param("provider")
		if !isSyncProvider(provider) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
			return
		}

		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)
		db := config.GetDB().WithContext(ctx)

		conn, err := getConnection(db, accountId, provider)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if conn == nil {
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}

		if err := db.Model(conn).Updates(map[string]interface{}{
			"status":          models.ConnectionStatusDisconnected,
			"auth_secret_ref": "",
			"updated_at":      time.Now(),
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func UpdateSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req UpdateSettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if !isSyncProvider(req.Provider) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
			return
		}

		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)
		db := config.GetDB().WithContext(ctx)

		conn, err := getConnection(db, accountId, req.Provider)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		modules := NormalizeModules(req.Modules)
		if conn == nil {
			conn = &models.SourceConnection{
				AccountId:    accountId,
				Provider:     req.Provider,
				Status:       models.ConnectionStatusDisconnected,
				SettingsJSON: EncodeSettings(ConnectionSettings{Modules: &modules}),
			}
			if err := db.Create(conn).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		} else {
			settings := DecodeSettings(conn.SettingsJSON)
			settings.Modules = &modules
			if err := db.Model(conn).Updates(map[string]interface{}{
				"settings_json": EncodeSettings(settings),
				"updated_at":    time.Now(),
			}).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req TriggerSyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)
		db := config.GetDB().WithContext(ctx)

		providers := []string{models.SourceProviderCRM, models.SourceProviderFulfillment}
		if req.Provider != "" {
			if !isSyncProvider(req.Provider) || req.Provider == models.SourceProviderAds {
				c.JSON(http.StatusBadRequest, gin.H{"error": "provider does not support sync runs"})
				return
			}
			providers = []string{req.Provider}
		}

		ids := make([]uint, 0, len(providers))
		for _, provider := range providers {
			conn, err := getConnection(db, accountId, provider)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if conn == nil || conn.Status != models.ConnectionStatusConnected {
				if req.Provider != "" {
					c.JSON(http.StatusConflict, gin.H{"error": provider + " is not connected"})
					return
				}
				continue
			}

			modules := req.Modules
			if isEmptyModules(modules) {
				settings := DecodeSettings(conn.SettingsJSON)
				if settings.Modules != nil {
					modules = *settings.Modules
				} else {
					modules = DefaultModules()
				}
			}

			run := models.SyncRun{
				AccountId:    accountId,
				ConnectionId: conn.ID,
				Provider:     provider,
				Status:       models.SyncRunStatusQueued,
				TriggeredBy:  models.SyncTriggeredManual,
				ModulesJSON:  EncodeModules(modules),
			}
			if err := db.Create(&run).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			_ = PublishSyncRun(c.Request.Context(), run.ID, accountId, conn.ID)
			ids = append(ids, run.ID)
		}

		if len(ids) == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "no connected providers to sync"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ids": ids})
	}
}

func SyncHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit := 20
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)
		db := config.GetDB().WithContext(ctx)

		query := db.Where("account_id = ?", accountId)
		if provider := strings.TrimSpace(c.Query("provider")); provider != "" {
			query = query.Where("provider = ?", provider)
		}

		var runs []models.SyncRun
		if err := query.Order("id desc").Limit(limit).Find(&runs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]SyncRunResponse, 0, len(runs))
		for _, run := range runs {
			items = append(items, mapRunToResponse(run))
		}
		c.JSON(http.StatusOK, SyncHistoryResponse{Items: items})
	}
}

func SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)
		db := config.GetDB().WithContext(ctx)

		var run models.SyncRun
		if err := db.Where("id = ? AND account_id = ?", id, accountId).Take(&run).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var errs []models.SyncError
		if err := db.Where("sync_run_id = ?", run.ID).Order("id desc").Find(&errs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		stats := map[string]int{}
		if len(run.StatsJSON) > 0 {
			_ = json.Unmarshal(run.StatsJSON, &stats)
		}

		resp := SyncRunDetailResponse{
			SyncRunResponse: mapRunToResponse(run),
			Stats:           stats,
			Errors:          mapErrors(errs),
		}
		c.JSON(http.StatusOK, resp)
	}
}

func RetrySyncRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)
		db := config.GetDB().WithContext(ctx)

		var run models.SyncRun
		if err := db.Where("id = ? AND account_id = ?", id, accountId).Take(&run).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		newRun := models.SyncRun{
			AccountId:    accountId,
			ConnectionId: run.ConnectionId,
			Provider:     run.Provider,
			Status:       models.SyncRunStatusQueued,
			TriggeredBy:  models.SyncTriggeredRetry,
			ModulesJSON:  run.ModulesJSON,
			ParentRunId:  &run.ID,
		}
		if err := db.Create(&newRun).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		_ = PublishSyncRun(c.Request.Context(), newRun.ID, accountId, run.ConnectionId)

		c.JSON(http.StatusOK, gin.H{"id": newRun.ID})
	}
}

// CoverageHandler reports how many contacts carry a usable correlation key.
// The stats are cached per account and invalidated by the next sync run.
func CoverageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)

		if cached, err := utils.RetrieveRedis[models.CoverageStats](accountId); err == nil && cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}

		stats, err := models.GetCoverageStats(ctx, config.GetDB(), accountId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		_ = utils.StoreRedis[models.CoverageStats](stats, accountId)
		c.JSON(http.StatusOK, stats)
	}
}

// AggregatesHandler returns the raw per-ad contact aggregates for a set of
// keys. The batched loader answers the whole set with one grouped query; a
// missing aggregate comes back as null, not zero.
func AggregatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)

		adIds := utils.UniqueSlice(splitAndTrim(c.Query("ad_ids")))
		if len(adIds) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ad_ids is required"})
			return
		}

		aggregates, errs := middlewares.GetContactAggregates(ctx, adIds)
		for _, err := range errs {
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		items := make(map[string]*models.ContactAggregate, len(adIds))
		for i, adId := range adIds {
			items[adId] = aggregates[i]
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CorrelationHandler joins live ad spend with the synced contact aggregates.
// ?format=xlsx streams the report as a spreadsheet instead of JSON.
func CorrelationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := resolveAccountID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := utils.SetAccountIdInContext(c.Request.Context(), accountId)
		db := config.GetDB()

		from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		conn, err := getConnection(db.WithContext(ctx), accountId, models.SourceProviderAds)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if conn == nil || conn.Status != models.ConnectionStatusConnected {
			c.JSON(http.StatusConflict, gin.H{"error": "ads is not connected"})
			return
		}
		settings := DecodeSettings(conn.SettingsJSON)
		if settings.AdAccountId == "" {
			c.JSON(http.StatusConflict, gin.H{"error": "ads account id is not configured"})
			return
		}

		creds := &vault.DBVault{DB: db}
		token, err := creds.GetToken(ctx, accountId, models.SourceProviderAds)
		if err != nil {
			if errors.Is(err, utils.ErrCredentialExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "ads credential expired"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		adsClient, err := ads.NewGraphClient(token)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		spend, err := adsClient.GetSpend(ctx, settings.AdAccountId, from, to)
		if err != nil {
			if errors.Is(err, utils.ErrCredentialExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "ads credential expired"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		metrics, err := analytics.Correlate(ctx, &analytics.GormAggregateStore{DB: db}, accountId, spend)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if strings.EqualFold(c.Query("format"), "xlsx") {
			filename := "ad-performance-" + from.Format("2006-01-02") + "-" + to.Format("2006-01-02") + ".xlsx"
			c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
			c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			if err := analytics.ExportMetricsXLSX(metrics, c.Writer); err != nil {
				config.LogError(config.GetLogger(), "syncsvc", "CorrelationHandler", "export xlsx", accountId, err)
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": metrics})
	}
}

func resolveAccountID(c *gin.Context) (string, error) {
	accountId, ok := utils.GetAccountIdFromContext(c.Request.Context())
	if !ok || strings.TrimSpace(accountId) == "" {
		return "", errors.New("unauthorized")
	}

	if override := strings.TrimSpace(c.Query("account_id")); override != "" && override != accountId {
		if isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context()); !isAdmin {
			return "", errors.New("unauthorized")
		}
		return override, nil
	}
	return accountId, nil
}

func buildConnectPayload(provider string, req ConnectRequest) (string, string, ConnectionSettings, error) {
	var settings ConnectionSettings
	switch provider {
	case models.SourceProviderCRM:
		if strings.TrimSpace(req.Token) == "" {
			return "", "", settings, errors.New("token is required")
		}
		secret, _ := json.Marshal(map[string]string{"token": req.Token})
		return string(secret), "token", settings, nil
	case models.SourceProviderFulfillment:
		if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
			return "", "", settings, errors.New("email and password are required")
		}
		settings.WalletId = strings.TrimSpace(req.WalletId)
		secret, _ := json.Marshal(map[string]string{"email": req.Email, "password": req.Password})
		return string(secret), "password", settings, nil
	case models.SourceProviderAds:
		if strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.AdAccountId) == "" {
			return "", "", settings, errors.New("token and adAccountId are required")
		}
		settings.AdAccountId = strings.TrimSpace(req.AdAccountId)
		secret, _ := json.Marshal(map[string]string{"token": req.Token})
		return string(secret), "token", settings, nil
	}
	return "", "", settings, errors.New("unknown provider")
}

func getConnection(db *gorm.DB, accountId, provider string) (*models.SourceConnection, error) {
	var conn models.SourceConnection
	err := db.Where("account_id = ? AND provider = ?", accountId, provider).Take(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func isSyncProvider(provider string) bool {
	for _, p := range syncProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// mergeModules overlays the provider's stored toggles onto the merged view.
// Each provider only owns its own modules.
func mergeModules(merged SyncModules, provider string, stored SyncModules) SyncModules {
	switch provider {
	case models.SourceProviderCRM:
		merged.Contacts = stored.Contacts
	case models.SourceProviderFulfillment:
		merged.Orders = stored.Orders
		merged.Ledger = stored.Ledger
		merged.Reconcile = stored.Reconcile
	}
	return merged
}

func parseDateRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	to := now
	from := now.AddDate(0, 0, -30)

	if strings.TrimSpace(fromRaw) != "" {
		parsed, err := time.Parse("2006-01-02", fromRaw)
		if err != nil {
			return from, to, errors.New("invalid from date, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if strings.TrimSpace(toRaw) != "" {
		parsed, err := time.Parse("2006-01-02", toRaw)
		if err != nil {
			return from, to, errors.New("invalid to date, expected YYYY-MM-DD")
		}
		to = parsed
	}
	if to.Before(from) {
		return from, to, errors.New("to date is before from date")
	}
	return from, to, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func mapRunToResponse(run models.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:            run.ID,
		Provider:      run.Provider,
		Status:        run.Status,
		StartedAt:     formatTime(run.StartedAt),
		FinishedAt:    formatTime(run.FinishedAt),
		DurationMs:    run.DurationMs,
		RecordsSynced: run.RecordsSynced,
		ErrorCount:    run.ErrorCount,
		Degraded:      run.Degraded,
		TriggeredBy:   run.TriggeredBy,
	}
}

func mapErrors(errorsList []models.SyncError) []SyncErrorResponse {
	out := make([]SyncErrorResponse, 0, len(errorsList))
	for _, errItem := range errorsList {
		out = append(out, SyncErrorResponse{
			ID:         errItem.ID,
			EntityType: errItem.EntityType,
			ExternalId: errItem.ExternalId,
			Message:    errItem.Message,
			Retryable:  errItem.Retryable,
		})
	}
	return out
}

func isEmptyModules(mod SyncModules) bool {
	return !mod.Contacts && !mod.Orders && !mod.Ledger && !mod.Reconcile
}
