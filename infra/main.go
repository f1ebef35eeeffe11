package infra

import (
	"log"

	"github.com/picvault/picvault-service/cache"
	"github.com/picvault/picvault-service/config"
	"github.com/picvault/picvault-service/infra/produce"
	"github.com/picvault/picvault-service/storage"
)

type Infra struct {
	Postgres *PostgresClient
	Logger   *LoggerClient
	RabbitMQ *RabbitMQClient
	Produce  *produce.Produce
	HotCache cache.Cache
	ColdStore storage.ColdStore
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	logger := InitLoggerClient(cfg.EnvConfig)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	postgres := InitPostgresClient(cfg.EnvConfig)
	if postgres == nil {
		panic("Failed to initialize Postgres service")
	}

	rabbitMQ := InitRabbitMQClient(cfg.EnvConfig)
	if rabbitMQ == nil {
		panic("Failed to initialize RabbitMQ service")
	}

	produceService := produce.InitProduce(rabbitMQ.Channel)
	if produceService == nil {
		panic("Failed to initialize Produce service")
	}

	hotCache := initHotCache(cfg.EnvConfig)
	if hotCache == nil {
		panic("Failed to initialize hot cache")
	}

	coldStore, err := storage.NewMinio(cfg.EnvConfig)
	if err != nil {
		panic("Failed to initialize MinIO cold store: " + err.Error())
	}

	infraInstance = &Infra{
		Postgres:  postgres,
		Logger:    logger,
		RabbitMQ:  rabbitMQ,
		Produce:   produceService,
		HotCache:  hotCache,
		ColdStore: coldStore,
	}

	return infraInstance
}

// initHotCache selects the hot-tier backend from configuration; the rest of
// the service only sees the cache.Cache capability interface.
func initHotCache(cfg *config.EnvConfig) cache.Cache {
	switch cfg.CacheTier.Backend {
	case "memory":
		log.Println("Hot cache backend: in-process memory")
		return cache.NewMemory(cfg.CacheTier.MaxMemory, cfg.CacheTier.DefaultTTL)
	case "redis":
		c, err := cache.NewRedis(cfg)
		if err != nil {
			panic("Failed to initialize Redis hot cache: " + err.Error())
		}
		log.Println("Hot cache backend: redis", cfg.Redis.Host+":"+cfg.Redis.Port)
		return c
	default:
		panic("Unknown cache backend: " + cfg.CacheTier.Backend)
	}
}

func GetClient() *Infra {
	if infraInstance == nil {
		panic("Infra not initialized. Call InitInfra() first.")
	}
	return infraInstance
}
