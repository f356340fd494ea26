package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderStatus string

const (
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusReturned  OrderStatus = "RETURNED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusInTransit OrderStatus = "IN_TRANSIT"
	OrderStatusUnknown   OrderStatus = "UNKNOWN"
)

// Order is a fulfillment order mirrored into the local store, one row per
// (account, upstream order id). Settlement fields are written exactly once by
// the reconciler; ingestion never touches them.
type Order struct {
	ID            uint   `gorm:"primary_key" json:"id"`
	AccountId     string `gorm:"uniqueIndex:idx_order_source,priority:1;not null" json:"account_id"`
	SourceOrderId int64  `gorm:"uniqueIndex:idx_order_source,priority:2;not null" json:"source_order_id"`

	AdID *string `gorm:"index;size:64" json:"ad_id"`

	ClientName  string `gorm:"size:255" json:"client_name"`
	ClientPhone string `gorm:"size:32" json:"client_phone"`

	Amount         decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount"`
	ShippingAmount decimal.Decimal `gorm:"type:decimal(20,4)" json:"shipping_amount"`
	SupplierCost   decimal.Decimal `gorm:"type:decimal(20,4)" json:"supplier_cost"`

	Status    OrderStatus `gorm:"index;size:20;not null;default:'UNKNOWN'" json:"status"`
	StatusRaw string      `gorm:"size:100" json:"status_raw"`

	OrderCreatedAt *time.Time `gorm:"index" json:"order_created_at"`

	// Settlement (payout received in the wallet ledger).
	SettledLedgerId *int64              `gorm:"index" json:"settled_ledger_id"`
	SettledAt       *time.Time          `json:"settled_at"`
	SettledAmount   decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"settled_amount"`

	// Return-freight charge (money taken back for a returned order).
	ReturnChargedLedgerId *int64              `gorm:"index" json:"return_charged_ledger_id"`
	ReturnChargedAt       *time.Time          `json:"return_charged_at"`
	ReturnChargedAmount   decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"return_charged_amount"`

	RawJSON []byte `gorm:"type:json" json:"raw"`

	LastSyncedAt *time.Time `json:"last_synced_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ExpectedPayout is the margin the provider pays out once the order is
// delivered: order total minus supplier cost minus freight.
func (o *Order) ExpectedPayout() decimal.Decimal {
	return o.Amount.Sub(o.SupplierCost).Sub(o.ShippingAmount)
}

// UpsertOrder inserts or refreshes the upstream-owned columns of the row for
// (account_id, source_order_id). Settlement columns are deliberately excluded
// from the update set so re-ingesting an already reconciled order can never
// clear its settlement.
func UpsertOrder(ctx context.Context, db *gorm.DB, order *Order) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "source_order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ad_id", "client_name", "client_phone", "amount", "shipping_amount",
			"supplier_cost", "status", "status_raw", "order_created_at",
			"raw_json", "last_synced_at",
		}),
	}).Create(order).Error
}

// ListUnsettledOrders returns orders with no settlement yet, oldest first.
func ListUnsettledOrders(ctx context.Context, db *gorm.DB, accountId string) ([]*Order, error) {
	var orders []*Order
	err := db.WithContext(ctx).
		Where("account_id = ? AND settled_ledger_id IS NULL", accountId).
		Order("order_created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

// ListUnchargedReturns returns RETURNED orders that have not had their
// return freight charge matched yet.
func ListUnchargedReturns(ctx context.Context, db *gorm.DB, accountId string) ([]*Order, error) {
	var orders []*Order
	err := db.WithContext(ctx).
		Where("account_id = ? AND status = ? AND return_charged_ledger_id IS NULL", accountId, OrderStatusReturned).
		Order("order_created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

// ApplySettlement marks the order as paid by the given ledger entry. The
// WHERE settled_ledger_id IS NULL guard makes the write idempotent: a
// settlement can be set at most once, later attempts are no-ops.
func ApplySettlement(ctx context.Context, db *gorm.DB, accountId string, orderId uint, ledgerId int64, settledAt time.Time, amount decimal.Decimal) (bool, error) {
	res := db.WithContext(ctx).Model(&Order{}).
		Where("account_id = ? AND id = ? AND settled_ledger_id IS NULL", accountId, orderId).
		Updates(map[string]interface{}{
			"settled_ledger_id": ledgerId,
			"settled_at":        settledAt,
			"settled_amount":    amount,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApplyReturnCharge is the return-freight analog of ApplySettlement.
func ApplyReturnCharge(ctx context.Context, db *gorm.DB, accountId string, orderId uint, ledgerId int64, chargedAt time.Time, amount decimal.Decimal) (bool, error) {
	res := db.WithContext(ctx).Model(&Order{}).
		Where("account_id = ? AND id = ? AND return_charged_ledger_id IS NULL", accountId, orderId).
		Updates(map[string]interface{}{
			"return_charged_ledger_id": ledgerId,
			"return_charged_at":        chargedAt,
			"return_charged_amount":    amount,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
