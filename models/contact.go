package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContactStatus string

const (
	ContactStatusDelivered ContactStatus = "DELIVERED"
	ContactStatusReturned  ContactStatus = "RETURNED"
	ContactStatusCancelled ContactStatus = "CANCELLED"
	ContactStatusPending   ContactStatus = "PENDING"
	ContactStatusInTransit ContactStatus = "IN_TRANSIT"
	ContactStatusUnknown   ContactStatus = "UNKNOWN"
)

// Contact is a CRM lead mirrored into the local store. One row per
// (account, upstream contact id); every enrichment pass overwrites the row
// with the freshest upstream state.
type Contact struct {
	ID        uint   `gorm:"primary_key" json:"id"`
	AccountId string `gorm:"uniqueIndex:idx_contact_source,priority:1;not null" json:"account_id"`
	SourceId  string `gorm:"uniqueIndex:idx_contact_source,priority:2;size:64;not null" json:"source_id"`

	FullName string `gorm:"size:255" json:"full_name"`
	Phone    string `gorm:"size:32" json:"phone"`
	Email    string `gorm:"size:255" json:"email"`

	// AdID is the correlation key extracted from the contact's custom fields.
	// Nil when neither the direct field nor the payload fallback yielded one.
	AdID *string `gorm:"index;size:64" json:"ad_id"`

	IsSale    bool                `json:"is_sale"`
	SaleValue decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"sale_value"`
	Status    ContactStatus       `gorm:"size:20;not null;default:'UNKNOWN'" json:"status"`
	Rating    string              `gorm:"size:50" json:"rating"`

	// CustomFieldsJSON keeps the raw upstream field map for audit/debugging.
	CustomFieldsJSON []byte `gorm:"type:json" json:"custom_fields"`

	// FetchFailed marks a contact whose detail fetch failed during the last
	// enrichment pass. The row keeps its listing data and no correlation key.
	FetchFailed bool `gorm:"default:false" json:"fetch_failed"`

	LastSyncedAt *time.Time `json:"last_synced_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpsertContact inserts or fully overwrites the row identified by
// (account_id, source_id). Safe to re-run: a second identical pass leaves the
// store unchanged apart from sync timestamps.
func UpsertContact(ctx context.Context, db *gorm.DB, contact *Contact) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name", "phone", "email", "ad_id", "is_sale", "sale_value",
			"status", "rating", "custom_fields_json", "fetch_failed", "last_synced_at",
		}),
	}).Create(contact).Error
}

// ContactAggregate is one GROUP BY bucket of contacts sharing a correlation key.
type ContactAggregate struct {
	AdID    string          `json:"ad_id"`
	Leads   int64           `json:"leads"`
	Sales   int64           `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

// AggregateContactsByAdIds returns per-key lead/sale/revenue totals for the
// whole key set in a single grouped query. Keys with no contacts are absent
// from the result map; callers must treat absence as "no data", not zero.
func AggregateContactsByAdIds(ctx context.Context, db *gorm.DB, accountId string, adIds []string) (map[string]ContactAggregate, error) {
	result := make(map[string]ContactAggregate, len(adIds))
	if len(adIds) == 0 {
		return result, nil
	}

	var rows []ContactAggregate
	err := db.WithContext(ctx).Model(&Contact{}).
		Select("ad_id as ad_id, COUNT(*) as leads, SUM(CASE WHEN is_sale THEN 1 ELSE 0 END) as sales, COALESCE(SUM(CASE WHEN is_sale THEN sale_value ELSE 0 END), 0) as revenue").
		Where("account_id = ? AND ad_id IN ?", accountId, adIds).
		Group("ad_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.AdID] = row
	}
	return result, nil
}

// CoverageStats summarizes how well the enrichment pass extracted correlation keys.
type CoverageStats struct {
	TotalContacts int64   `json:"total_contacts"`
	WithKey       int64   `json:"with_key"`
	FetchFailed   int64   `json:"fetch_failed"`
	Coverage      float64 `json:"coverage"`
}

func GetCoverageStats(ctx context.Context, db *gorm.DB, accountId string) (*CoverageStats, error) {
	var stats CoverageStats
	err := db.WithContext(ctx).Model(&Contact{}).
		Select("COUNT(*) as total_contacts, SUM(CASE WHEN ad_id IS NOT NULL THEN 1 ELSE 0 END) as with_key, SUM(CASE WHEN fetch_failed THEN 1 ELSE 0 END) as fetch_failed").
		Where("account_id = ?", accountId).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	if stats.TotalContacts > 0 {
		stats.Coverage = float64(stats.WithKey) / float64(stats.TotalContacts)
	}
	return &stats, nil
}
