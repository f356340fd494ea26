package middlewares

import (
	"context"
	"errors"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/lucidmetrics/adsync_backend/utils"
	"gorm.io/gorm"
)

type sourceConnectionReader struct {
	db *gorm.DB
}

func (r *sourceConnectionReader) getSourceConnections(ctx context.Context, providers []string) []*dataloader.Result[*models.SourceConnection] {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return handleError[*models.SourceConnection](len(providers), errors.New("account id not found in context"))
	}

	var results []models.SourceConnection
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND provider IN ?", accountId, providers).
		Find(&results).Error
	if err != nil {
		return handleError[*models.SourceConnection](len(providers), err)
	}

	resultMap := make(map[string]*models.SourceConnection, len(results))
	for i := range results {
		resultMap[results[i].Provider] = &results[i]
	}

	loaderResults := make([]*dataloader.Result[*models.SourceConnection], 0, len(providers))
	for _, provider := range providers {
		loaderResults = append(loaderResults, &dataloader.Result[*models.SourceConnection]{Data: resultMap[provider]})
	}
	return loaderResults
}

func GetSourceConnection(ctx context.Context, provider string) (*models.SourceConnection, error) {
	loaders := For(ctx)
	return loaders.sourceConnectionLoader.Load(ctx, provider)()
}

func GetSourceConnections(ctx context.Context, providers []string) ([]*models.SourceConnection, []error) {
	loaders := For(ctx)
	return loaders.sourceConnectionLoader.LoadMany(ctx, providers)()
}
