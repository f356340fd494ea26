package analytics

import (
	"context"
	"time"

	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/lucidmetrics/adsync_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SpendRecord is one ad's spend for a time range, as reported by the ad
// platform. AdID is the correlation key shared with the CRM contacts.
type SpendRecord struct {
	AdID        string          `json:"ad_id"`
	AdName      string          `json:"ad_name"`
	Spend       decimal.Decimal `json:"spend"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
}

// Metric is the correlated result for one ad. The ratio pointers are nil when
// the ratio is undefined; an undefined ratio is NOT zero. HasData is false
// when no contact data exists for the key, which is distinguishable both from
// a lookup error and from an ad with contacts but zero spend.
type Metric struct {
	AdID    string          `json:"ad_id"`
	AdName  string          `json:"ad_name"`
	Leads   int64           `json:"leads"`
	Sales   int64           `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
	Spend   decimal.Decimal `json:"spend"`

	CPA  *decimal.Decimal `json:"cpa"`
	ROAS *decimal.Decimal `json:"roas"`
	CPL  *decimal.Decimal `json:"cpl"`

	HasData bool `json:"has_data"`
}

// AggregateStore is the single read the engine performs. Implementations must
// answer the whole key set with one grouped query.
type AggregateStore interface {
	AggregateContactsByAdIds(ctx context.Context, accountId string, adIds []string) (map[string]models.ContactAggregate, error)
}

// GormAggregateStore is the production store backed by the shared DB.
type GormAggregateStore struct {
	DB *gorm.DB
}

func (s *GormAggregateStore) AggregateContactsByAdIds(ctx context.Context, accountId string, adIds []string) (map[string]models.ContactAggregate, error) {
	return models.AggregateContactsByAdIds(ctx, s.DB, accountId, adIds)
}

// Correlate joins per-ad spend with the contact aggregates for the same keys.
// It issues exactly one store call for the whole batch regardless of how many
// keys are requested.
func Correlate(ctx context.Context, store AggregateStore, accountId string, spend []SpendRecord) ([]Metric, error) {
	keys := make([]string, 0, len(spend))
	for _, record := range spend {
		keys = append(keys, record.AdID)
	}
	keys = utils.UniqueSlice(keys)

	aggregates, err := store.AggregateContactsByAdIds(ctx, accountId, keys)
	if err != nil {
		return nil, err
	}

	metrics := make([]Metric, 0, len(spend))
	for _, record := range spend {
		aggregate, ok := aggregates[record.AdID]
		metrics = append(metrics, buildMetric(record, aggregate, ok))
	}
	return metrics, nil
}

func buildMetric(record SpendRecord, aggregate models.ContactAggregate, hasData bool) Metric {
	metric := Metric{
		AdID:    record.AdID,
		AdName:  record.AdName,
		Spend:   record.Spend,
		HasData: hasData,
	}
	if !hasData {
		// No contact data at all: every ratio is undefined, not zero.
		return metric
	}

	metric.Leads = aggregate.Leads
	metric.Sales = aggregate.Sales
	metric.Revenue = aggregate.Revenue

	if record.Spend.IsZero() {
		// Zero spend leaves CPA and ROAS undefined; CPL stays defined (zero
		// cost per lead).
		cpl := decimal.Zero
		metric.CPL = &cpl
		return metric
	}

	salesDenominator := decimal.NewFromInt(maxInt64(aggregate.Sales, 1))
	leadsDenominator := decimal.NewFromInt(maxInt64(aggregate.Leads, 1))

	cpa := record.Spend.Div(salesDenominator)
	roas := metric.Revenue.Div(record.Spend)
	cpl := record.Spend.Div(leadsDenominator)

	metric.CPA = &cpa
	metric.ROAS = &roas
	metric.CPL = &cpl
	return metric
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
