package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/lucidmetrics/adsync_backend/config"
	"github.com/lucidmetrics/adsync_backend/models"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	contactAggregateLoader *dataloader.Loader[string, *models.ContactAggregate]
	sourceConnectionLoader *dataloader.Loader[string, *models.SourceConnection]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(conn *gorm.DB) *Loaders {
	contactAggregateReader := &contactAggregateReader{db: conn}
	sourceConnectionReader := &sourceConnectionReader{db: conn}

	return &Loaders{
		contactAggregateLoader: dataloader.NewBatchedLoader(contactAggregateReader.getContactAggregates, dataloader.WithWait[string, *models.ContactAggregate](time.Millisecond)),
		sourceConnectionLoader: dataloader.NewBatchedLoader(sourceConnectionReader.getSourceConnections, dataloader.WithWait[string, *models.SourceConnection](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}
