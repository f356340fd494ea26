package middlewares

import (
	"context"
	"errors"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/lucidmetrics/adsync_backend/utils"
	"gorm.io/gorm"
)

type contactAggregateReader struct {
	db *gorm.DB
}

func (r *contactAggregateReader) getContactAggregates(ctx context.Context, adIds []string) []*dataloader.Result[*models.ContactAggregate] {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return handleError[*models.ContactAggregate](len(adIds), errors.New("account id not found in context"))
	}

	aggregates, err := models.AggregateContactsByAdIds(ctx, r.db, accountId, adIds)
	if err != nil {
		return handleError[*models.ContactAggregate](len(adIds), err)
	}

	// Ad ids with no contacts resolve to nil data, not an error. The caller
	// treats nil as "no data yet" rather than a failed lookup.
	loaderResults := make([]*dataloader.Result[*models.ContactAggregate], 0, len(adIds))
	for _, adId := range adIds {
		if agg, found := aggregates[adId]; found {
			copy := agg
			loaderResults = append(loaderResults, &dataloader.Result[*models.ContactAggregate]{Data: &copy})
		} else {
			loaderResults = append(loaderResults, &dataloader.Result[*models.ContactAggregate]{Data: nil})
		}
	}
	return loaderResults
}

func GetContactAggregate(ctx context.Context, adId string) (*models.ContactAggregate, error) {
	loaders := For(ctx)
	return loaders.contactAggregateLoader.Load(ctx, adId)()
}

func GetContactAggregates(ctx context.Context, adIds []string) ([]*models.ContactAggregate, []error) {
	loaders := For(ctx)
	return loaders.contactAggregateLoader.LoadMany(ctx, adIds)()
}
