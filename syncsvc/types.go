package syncsvc

import "encoding/json"

// SyncModules selects what a sync run touches. Contacts applies to the CRM
// provider; Orders, Ledger and Reconcile apply to the fulfillment provider.
type SyncModules struct {
	Contacts  bool `json:"contacts"`
	Orders    bool `json:"orders"`
	Ledger    bool `json:"ledger"`
	Reconcile bool `json:"reconcile"`
}

func DefaultModules() SyncModules {
	return SyncModules{
		Contacts:  true,
		Orders:    true,
		Ledger:    true,
		Reconcile: true,
	}
}

func NormalizeModules(mod SyncModules) SyncModules {
	// Reconciliation without a fresh ledger matches against stale data.
	if mod.Reconcile {
		mod.Ledger = true
	}
	return mod
}

func DecodeModules(raw []byte) SyncModules {
	if len(raw) == 0 {
		return DefaultModules()
	}
	var mod SyncModules
	if err := json.Unmarshal(raw, &mod); err != nil {
		return DefaultModules()
	}
	return NormalizeModules(mod)
}

func EncodeModules(mod SyncModules) []byte {
	b, _ := json.Marshal(NormalizeModules(mod))
	return b
}

type CursorEntry struct {
	UpdatedSince string `json:"updated_since"`
}

type CursorState struct {
	Contacts CursorEntry `json:"contacts"`
	Orders   CursorEntry `json:"orders"`
	Ledger   CursorEntry `json:"ledger"`
}

func DecodeCursorState(raw []byte) CursorState {
	if len(raw) == 0 {
		return CursorState{}
	}
	var state CursorState
	if err := json.Unmarshal(raw, &state); err != nil {
		return CursorState{}
	}
	return state
}

func EncodeCursorState(state CursorState) []byte {
	b, _ := json.Marshal(state)
	return b
}

// ConnectRequest carries the credentials for one provider. Token connects the
// CRM panel and the ads account; email/password connect the fulfillment app.
type ConnectRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password"`

	// Country selects the fulfillment provider's regional app.
	Country string `json:"country"`
	// WalletId is required by the fulfillment wallet endpoints.
	WalletId string `json:"walletId"`
	// AdAccountId is the ads account the spend queries run against.
	AdAccountId string `json:"adAccountId"`
}

// ConnectionSettings is the SettingsJSON payload of a SourceConnection.
// WalletId only applies to fulfillment, AdAccountId only to ads; Modules hold
// the per-provider sync toggles.
type ConnectionSettings struct {
	WalletId    string       `json:"walletId,omitempty"`
	AdAccountId string       `json:"adAccountId,omitempty"`
	Modules     *SyncModules `json:"modules,omitempty"`
}

func DecodeSettings(raw []byte) ConnectionSettings {
	var settings ConnectionSettings
	if len(raw) == 0 {
		return settings
	}
	_ = json.Unmarshal(raw, &settings)
	return settings
}

func EncodeSettings(settings ConnectionSettings) []byte {
	b, _ := json.Marshal(settings)
	return b
}

type UpdateSettingsRequest struct {
	Provider string      `json:"provider"`
	Modules  SyncModules `json:"modules"`
}

type TriggerSyncRequest struct {
	Provider string      `json:"provider"`
	Modules  SyncModules `json:"modules"`
}

type StatusResponse struct {
	Connections []ConnectionResponse `json:"connections"`
	Modules     SyncModules          `json:"modules"`
}

type ConnectionResponse struct {
	Provider          string  `json:"provider"`
	Status            string  `json:"status"`
	Country           string  `json:"country,omitempty"`
	WalletBalance     *string `json:"walletBalance,omitempty"`
	WalletBalanceAt   *string `json:"walletBalanceAt,omitempty"`
	LastSyncAt        *string `json:"lastSyncAt"`
	LastSuccessSyncAt *string `json:"lastSuccessSyncAt"`
}

type SyncHistoryResponse struct {
	Items []SyncRunResponse `json:"items"`
}

type SyncRunResponse struct {
	ID            uint    `json:"id"`
	Provider      string  `json:"provider"`
	Status        string  `json:"status"`
	StartedAt     *string `json:"startedAt"`
	FinishedAt    *string `json:"finishedAt"`
	DurationMs    int64   `json:"durationMs"`
	RecordsSynced int     `json:"recordsSynced"`
	ErrorCount    int     `json:"errorCount"`
	Degraded      bool    `json:"degraded"`
	TriggeredBy   string  `json:"triggeredBy"`
}

type SyncRunDetailResponse struct {
	SyncRunResponse
	Stats  map[string]int      `json:"stats"`
	Errors []SyncErrorResponse `json:"errors"`
}

type SyncErrorResponse struct {
	ID         uint   `json:"id"`
	EntityType string `json:"entityType"`
	ExternalId string `json:"externalId"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncPubSubPayload struct {
	RunId        uint   `json:"run_id"`
	AccountId    string `json:"account_id"`
	ConnectionId uint   `json:"connection_id"`
}
