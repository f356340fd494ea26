package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceProviderCRM         = "crm"
	SourceProviderFulfillment = "fulfillment"
	SourceProviderAds         = "ads"
)

const (
	ConnectionStatusConnected    = "connected"
	ConnectionStatusDisconnected = "disconnected"
	ConnectionStatusAuthExpired  = "auth_expired"
	ConnectionStatusError        = "error"
)

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredRetry  = "retry"
	SyncTriggeredSystem = "system"
)

// SourceConnection holds per-(account, provider) credentials reference and
// sync state. The secret itself lives in the credential vault; this row only
// carries the reference.
type SourceConnection struct {
	ID            uint   `gorm:"primary_key" json:"id"`
	AccountId     string `gorm:"uniqueIndex:idx_source_conn,priority:1;not null" json:"account_id"`
	Provider      string `gorm:"uniqueIndex:idx_source_conn,priority:2;size:50;not null" json:"provider"`
	Status        string `gorm:"size:20;not null" json:"status"`
	AuthType      string `gorm:"size:20" json:"auth_type"`
	AuthSecretRef string `gorm:"type:text" json:"auth_secret_ref"`

	// Country selects the fulfillment provider's regional app (login origin,
	// API host). Empty for CRM/ads connections.
	Country string `gorm:"size:5" json:"country"`

	// ExternalUserId is the provider-side user id (needed by wallet queries).
	ExternalUserId string `gorm:"size:64" json:"external_user_id"`

	SettingsJSON    []byte `gorm:"type:json" json:"settings"`
	CursorStateJSON []byte `gorm:"type:json" json:"cursor_state"`

	// WalletBalance mirrors the balance reported by the first (most recent)
	// wallet movement of the last ledger sync.
	WalletBalance   decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"wallet_balance"`
	WalletBalanceAt *time.Time          `json:"wallet_balance_at"`

	LastSyncAt        *time.Time `json:"last_sync_at"`
	LastSuccessSyncAt *time.Time `json:"last_success_sync_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type SyncRun struct {
	ID              uint       `gorm:"primary_key" json:"id"`
	AccountId       string     `gorm:"index;not null" json:"account_id"`
	ConnectionId    uint       `gorm:"index;not null" json:"connection_id"`
	Provider        string     `gorm:"index;size:50;not null" json:"provider"`
	Status          string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy     string     `gorm:"size:20" json:"triggered_by"`
	ModulesJSON     []byte     `gorm:"type:json" json:"modules"`
	StatsJSON       []byte     `gorm:"type:json" json:"stats"`
	CursorStateJSON []byte     `gorm:"type:json" json:"cursor_state"`
	RecordsSynced   int        `json:"records_synced"`
	ErrorCount      int        `json:"error_count"`
	Degraded        bool       `gorm:"default:false" json:"degraded"`
	ParentRunId     *uint      `gorm:"index" json:"parent_run_id"`
	StartedAt       *time.Time `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	DurationMs      int64      `json:"duration_ms"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type SyncError struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	SyncRunId   uint      `gorm:"index;not null" json:"sync_run_id"`
	AccountId   string    `gorm:"index;not null" json:"account_id"`
	EntityType  string    `gorm:"size:50" json:"entity_type"`
	ExternalId  string    `gorm:"size:128" json:"external_id"`
	ErrorCode   string    `gorm:"size:64" json:"error_code"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	Retryable   bool      `gorm:"default:false" json:"retryable"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
