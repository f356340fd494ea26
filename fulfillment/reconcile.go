package fulfillment

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lucidmetrics/adsync_backend/config"
	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultAmountTolerance is the absolute difference allowed between a payout
// entry and the order's expected payout. Providers round to whole cents.
var DefaultAmountTolerance = decimal.NewFromFloat(0.01)

func AmountToleranceFromEnv() decimal.Decimal {
	if v := strings.TrimSpace(os.Getenv("RECONCILE_AMOUNT_TOLERANCE")); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			return d
		}
	}
	return DefaultAmountTolerance
}

// SettlementMatch pairs one order with the ledger entry that settles it.
type SettlementMatch struct {
	OrderId   uint
	LedgerId  int64
	MatchedAt time.Time
	Amount    decimal.Decimal
}

// MatchSettlements pairs unsettled orders with payout entries.
//
// A candidate entry must reference the order and its (absolute) amount must
// be within tolerance of the order's expected payout. When several entries
// qualify for one order, the earliest-dated entry wins; among same-dated
// entries the lowest entry id wins. The result is deterministic for a given
// input regardless of slice order.
func MatchSettlements(orders []*models.Order, entries []*models.LedgerEntry, tolerance decimal.Decimal) []SettlementMatch {
	byRef := make(map[int64]*models.Order, len(orders))
	for _, order := range orders {
		if order.SettledLedgerId == nil {
			byRef[order.SourceOrderId] = order
		}
	}

	sorted := sortEntries(entries)

	matched := make(map[uint]bool, len(orders))
	var matches []SettlementMatch
	for _, entry := range sorted {
		if entry.OrderRef == nil || entry.EntryCreatedAt == nil {
			continue
		}
		order, ok := byRef[*entry.OrderRef]
		if !ok || matched[order.ID] {
			continue
		}
		diff := entry.Amount.Abs().Sub(order.ExpectedPayout().Abs()).Abs()
		if diff.GreaterThan(tolerance) {
			continue
		}
		matched[order.ID] = true
		matches = append(matches, SettlementMatch{
			OrderId:   order.ID,
			LedgerId:  int64(entry.ID),
			MatchedAt: *entry.EntryCreatedAt,
			Amount:    entry.Amount,
		})
	}
	return matches
}

// MatchReturnCharges pairs RETURNED orders with their freight-charge entry.
// Amount is not checked: the charge is whatever the provider billed.
func MatchReturnCharges(orders []*models.Order, entries []*models.LedgerEntry) []SettlementMatch {
	byRef := make(map[int64]*models.Order, len(orders))
	for _, order := range orders {
		if order.ReturnChargedLedgerId == nil {
			byRef[order.SourceOrderId] = order
		}
	}

	sorted := sortEntries(entries)

	matched := make(map[uint]bool, len(orders))
	var matches []SettlementMatch
	for _, entry := range sorted {
		if entry.OrderRef == nil || entry.EntryCreatedAt == nil {
			continue
		}
		order, ok := byRef[*entry.OrderRef]
		if !ok || matched[order.ID] {
			continue
		}
		matched[order.ID] = true
		matches = append(matches, SettlementMatch{
			OrderId:   order.ID,
			LedgerId:  int64(entry.ID),
			MatchedAt: *entry.EntryCreatedAt,
			Amount:    entry.Amount,
		})
	}
	return matches
}

func sortEntries(entries []*models.LedgerEntry) []*models.LedgerEntry {
	sorted := make([]*models.LedgerEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.EntryCreatedAt == nil:
			return false
		case b.EntryCreatedAt == nil:
			return true
		case a.EntryCreatedAt.Equal(*b.EntryCreatedAt):
			return a.ID < b.ID
		default:
			return a.EntryCreatedAt.Before(*b.EntryCreatedAt)
		}
	})
	return sorted
}

// ReconcileReport counts what one reconciliation pass changed.
type ReconcileReport struct {
	Settled       int `json:"settled"`
	ReturnCharged int `json:"return_charged"`
}

// Reconcile matches payout and freight-charge entries against the stored
// orders and persists the matches. Idempotent: settled orders are excluded
// up front and the persistence layer guards against double writes, so a
// second pass over the same data changes nothing.
func Reconcile(ctx context.Context, db *gorm.DB, accountId string) (ReconcileReport, error) {
	logger := config.GetLogger()
	tolerance := AmountToleranceFromEnv()
	var report ReconcileReport

	unsettled, err := models.ListUnsettledOrders(ctx, db, accountId)
	if err != nil {
		return report, err
	}
	payouts, err := models.ListPayoutEntries(ctx, db, accountId)
	if err != nil {
		return report, err
	}
	for _, match := range MatchSettlements(unsettled, payouts, tolerance) {
		applied, err := models.ApplySettlement(ctx, db, accountId, match.OrderId, match.LedgerId, match.MatchedAt, match.Amount)
		if err != nil {
			config.LogError(logger, moduleName, "Reconcile", "apply settlement", match.OrderId, err)
			return report, err
		}
		if applied {
			report.Settled++
		}
	}

	uncharged, err := models.ListUnchargedReturns(ctx, db, accountId)
	if err != nil {
		return report, err
	}
	charges, err := models.ListFreightChargeEntries(ctx, db, accountId)
	if err != nil {
		return report, err
	}
	for _, match := range MatchReturnCharges(uncharged, charges) {
		applied, err := models.ApplyReturnCharge(ctx, db, accountId, match.OrderId, match.LedgerId, match.MatchedAt, match.Amount)
		if err != nil {
			config.LogError(logger, moduleName, "Reconcile", "apply return charge", match.OrderId, err)
			return report, err
		}
		if applied {
			report.ReturnCharged++
		}
	}

	return report, nil
}
