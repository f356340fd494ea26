package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lucidmetrics/adsync_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerCategory string

const (
	LedgerCategoryOrderPayout   LedgerCategory = "ORDER_PAYOUT"
	LedgerCategoryFreightCharge LedgerCategory = "FREIGHT_CHARGE"
	LedgerCategoryWithdrawal    LedgerCategory = "WITHDRAWAL"
	LedgerCategoryDeposit       LedgerCategory = "DEPOSIT"
	LedgerCategoryOtherIn       LedgerCategory = "OTHER_IN"
	LedgerCategoryOtherOut      LedgerCategory = "OTHER_OUT"
)

// LedgerEntry is a wallet movement mirrored from the fulfillment provider.
// Entries are immutable: re-ingesting an existing (account, entry id) pair
// keeps the stored values and only refreshes last_synced_at.
type LedgerEntry struct {
	ID            uint   `gorm:"primary_key" json:"id"`
	AccountId     string `gorm:"uniqueIndex:idx_ledger_source,priority:1;not null" json:"account_id"`
	SourceEntryId int64  `gorm:"uniqueIndex:idx_ledger_source,priority:2;not null" json:"source_entry_id"`

	Amount       decimal.Decimal     `gorm:"type:decimal(20,4)" json:"amount"`
	BalanceAfter decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"balance_after"`

	Description string         `gorm:"size:512" json:"description"`
	EntryType   string         `gorm:"size:50" json:"entry_type"`
	Category    LedgerCategory `gorm:"index;size:20;not null;default:'OTHER_IN'" json:"category"`

	// OrderRef is the upstream order id this movement refers to, when the
	// provider includes one. It is the reconciliation match key.
	OrderRef *int64 `gorm:"index" json:"order_ref"`

	EntryCreatedAt *time.Time `gorm:"index" json:"entry_created_at"`

	LastSyncedAt *time.Time `json:"last_synced_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// UpsertLedgerEntry inserts the entry or, when it already exists, refreshes
// only last_synced_at. Ledger rows never change once written; with strict
// immutability enabled a re-ingest that carries a different amount is an
// error instead of a silent skip.
func UpsertLedgerEntry(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error {
	if config.StrictLedgerImmutability() {
		var existing LedgerEntry
		err := db.WithContext(ctx).
			Where("account_id = ? AND source_entry_id = ?", entry.AccountId, entry.SourceEntryId).
			Take(&existing).Error
		if err == nil && !existing.Amount.Equal(entry.Amount) {
			return fmt.Errorf("ledger entry %d changed amount on re-ingest: stored %s, got %s",
				entry.SourceEntryId, existing.Amount, entry.Amount)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "source_entry_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_synced_at"}),
	}).Create(entry).Error
}

// ListPayoutEntries returns ORDER_PAYOUT movements that carry an order
// reference, oldest first. Reconciliation's deterministic tie-break depends
// on this ordering.
func ListPayoutEntries(ctx context.Context, db *gorm.DB, accountId string) ([]*LedgerEntry, error) {
	var entries []*LedgerEntry
	err := db.WithContext(ctx).
		Where("account_id = ? AND category = ? AND order_ref IS NOT NULL", accountId, LedgerCategoryOrderPayout).
		Order("entry_created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// ListFreightChargeEntries is the return-charge analog of ListPayoutEntries.
func ListFreightChargeEntries(ctx context.Context, db *gorm.DB, accountId string) ([]*LedgerEntry, error) {
	var entries []*LedgerEntry
	err := db.WithContext(ctx).
		Where("account_id = ? AND category = ? AND order_ref IS NOT NULL", accountId, LedgerCategoryFreightCharge).
		Order("entry_created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
