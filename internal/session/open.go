package session

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"github.com/garyellow/campus-interview-bot/internal/config"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/storage"
)

// Backend names, as accepted by SESSION_STORE.
const (
	StoreSQLite   = config.StoreSQLite
	StoreRedis    = config.StoreRedis
	StoreDynamoDB = config.StoreDynamoDB
)

// Open builds the store selected by cfg. db backs the sqlite store and
// may be nil for the other backends.
func Open(ctx context.Context, cfg config.SessionConfig, db *storage.DB, m *metrics.Metrics) (Store, error) {
	switch cfg.Store {
	case StoreSQLite:
		if db == nil {
			return nil, fmt.Errorf("session: sqlite store needs a database")
		}
		return NewSQLiteStore(db, cfg.TTL, m), nil

	case StoreRedis:
		client := redis.NewClient(RedisOptions(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
		store := NewRedisStore(client, cfg.TTL, m)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
		return store, nil

	case StoreDynamoDB:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.DynamoDBRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.DynamoDBRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, cfg.TTL, m)

	default:
		return nil, fmt.Errorf("session: unknown store %q", cfg.Store)
	}
}
