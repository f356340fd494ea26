package utils

import (
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/lucidmetrics/adsync_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// aggregates go stale as soon as a sync run lands, so they always expire
func typeHasExpiration(typeName string) bool {
	expirableTypes := map[string]bool{
		"ContactAggregate": true,
		"CoverageStats":    true,
	}
	return expirableTypes[typeName]
}

// store instance, obj should be a pointer
func StoreRedis[T any](obj any, id string) error {
	typeName := GetTypeName[T]()
	key := typeName + ":" + id

	var duration time.Duration
	if typeHasExpiration(typeName) {
		duration = GetCacheLifespan()
	}
	return config.SetRedisObject(key, &obj, duration)
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](id string) (*T, error) {
	var result *T
	key := GetTypeName[T]() + ":" + id
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// InvalidateAccountCaches drops the cached aggregates for an account after a
// sync run changes the underlying rows.
func InvalidateAccountCaches(accountId string) error {
	keys := []string{
		"CoverageStats:" + accountId,
		"ContactAggregate:" + accountId,
	}
	return config.RemoveRedisKey(keys...)
}
