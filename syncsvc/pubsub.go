package syncsvc

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lucidmetrics/adsync_backend/config"
)

func syncTopicName() string {
	topicName := strings.TrimSpace(os.Getenv("SOURCE_SYNC_TOPIC"))
	if topicName == "" {
		topicName = "source-sync"
	}
	return topicName
}

func PublishSyncRun(ctx context.Context, runId uint, accountId string, connectionId uint) error {
	payload := SyncPubSubPayload{
		RunId:        runId,
		AccountId:    accountId,
		ConnectionId: connectionId,
	}
	_, err := config.PublishJSON(ctx, syncTopicName(), payload)
	return err
}

func PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_SYNC_PUBSUB_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload SyncPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			c.Status(204)
			return
		}
		if payload.RunId == 0 || payload.AccountId == "" {
			c.Status(204)
			return
		}

		// Malformed envelopes above are acked so the subscription does not
		// loop on them; real processing failures (lock contention, DB errors)
		// are nacked for redelivery with backoff.
		if err := processSyncRun(c.Request.Context(), payload); err != nil {
			c.Status(500)
			return
		}
		c.Status(204)
	}
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
