package bootstrap

import (
	"context"
	"log"

	"madlen-ai-be/internal/config"
	"madlen-ai-be/internal/controller"
	"madlen-ai-be/internal/pkg/logger"
	"madlen-ai-be/internal/pkg/serverutils"
	"madlen-ai-be/internal/repository/memory"
	"madlen-ai-be/internal/repository/unitofwork"
	"madlen-ai-be/internal/service"
	"madlen-ai-be/pkg/openrouter"

	pktNats "madlen-ai-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Middleware
	ClerkAuth *serverutils.ClerkAuth

	// Background Services (Exposed for main.go to run)
	UsageConsumerService service.IUsageConsumerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS (optional; lifecycle events are skipped when unavailable)
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// Redis (optional; the catalog cache degrades to in-process only)
	var rdb *redis.Client
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb = redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	catalogCache := memory.NewCatalogCache(rdb)

	// 3. Upstream Provider
	if cfg.OpenRouter.APIKey == "" {
		log.Printf("[WARN] OPENROUTER_API_KEY is not set; completions will return mock responses")
	}
	orClient := openrouter.NewClient(openrouter.Config{
		APIKey:    cfg.OpenRouter.APIKey,
		BaseURL:   cfg.OpenRouter.BaseURL,
		SiteURL:   cfg.OpenRouter.SiteURL,
		AppName:   cfg.OpenRouter.AppName,
		Timeout:   cfg.OpenRouter.Timeout,
		RetryBase: cfg.OpenRouter.RetryBase,
	})

	// 4. Services
	publisherService := service.NewPublisherService(pubSub, natsPub, sysLogger)
	usageConsumerService := service.NewUsageConsumerService(
		pubSub,
		service.TopicUsageRecorded,
		uowFactory,
	)

	chatService := service.NewChatService(
		uowFactory,
		orClient,
		catalogCache,
		publisherService,
		sysLogger,
	)

	// 5. Controllers
	return &Container{
		ChatController:       controller.NewChatController(chatService),
		ClerkAuth:            serverutils.NewClerkAuth(cfg, sysLogger),
		UsageConsumerService: usageConsumerService,
		Logger:               sysLogger,
	}
}
