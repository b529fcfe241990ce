package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/plenasaude/quote-assistant/internal/config"
	"github.com/plenasaude/quote-assistant/internal/remarketing"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// BuildRegistry selects where remarketing snapshots are kept.
func BuildRegistry(cfg *appconfig.Config, redisClient *redis.Client, awsCfg *aws.Config, logger *logging.Logger) remarketing.Registry {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.RemarketingBackend {
	case "redis":
		if redisClient != nil {
			logger.Info("remarketing registry: redis")
			return remarketing.NewRedisRegistry(redisClient, nil)
		}
		logger.Warn("remarketing backend redis requested but redis unavailable; using memory")
	case "dynamodb":
		if awsCfg != nil && cfg.RemarketingTable != "" {
			logger.Info("remarketing registry: dynamodb", "table", cfg.RemarketingTable)
			return remarketing.NewDynamoRegistry(dynamodb.NewFromConfig(*awsCfg), cfg.RemarketingTable, logger)
		}
		logger.Warn("remarketing backend dynamodb requested without aws config or table; using memory")
	case "", "memory":
	default:
		logger.Warn("unknown remarketing backend; using memory", "backend", cfg.RemarketingBackend)
	}
	return remarketing.NewMemoryRegistry()
}

// remarketingConfig maps env settings onto the scheduler configuration.
func remarketingConfig(cfg *appconfig.Config) remarketing.Config {
	return remarketing.Config{
		Inactivity:    cfg.RemarketingInactivity,
		RetryInterval: cfg.RemarketingRetryInterval,
		MaxAttempts:   cfg.RemarketingMaxAttempts,
	}
}
