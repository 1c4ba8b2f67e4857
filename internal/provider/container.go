package provider

import (
	"github.com/pinmart/pinmart/internal/cache"
	"github.com/pinmart/pinmart/internal/config"
	"github.com/pinmart/pinmart/internal/gateway/paystack"
	"github.com/pinmart/pinmart/internal/logger"
	"github.com/pinmart/pinmart/internal/queue"
	"github.com/pinmart/pinmart/internal/repository"
	"github.com/pinmart/pinmart/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds every wired dependency. The database handle and the
// intent store are passed in explicitly; nothing here reaches for package
// globals.
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	QueueClient *queue.Client
	IntentStore cache.IntentStore
	Gateway     service.PaymentGateway

	// Repositories
	CardRepo        repository.CardRepository
	OrderRepo       repository.OrderRepository
	TransactionRepo repository.TransactionRepository

	// Services
	AllocationService *service.AllocationService
	OrderService      *service.OrderService
	PaymentService    *service.PaymentService
	CardService       *service.CardService
}

// NewContainer wires the application graph.
func NewContainer(cfg *config.Config, db *gorm.DB) *Container {
	redisClient := cache.NewRedisClient(&cfg.Redis)

	var intents cache.IntentStore
	if redisClient != nil {
		intents = cache.NewRedisIntentStore(redisClient, cache.KeyPrefix(&cfg.Redis))
	} else {
		logger.Warnw("provider_redis_disabled_using_memory_intents")
		intents = cache.NewMemoryIntentStore()
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}
	if queueClient == nil {
		queueClient, _ = queue.NewClient(nil)
	}

	var gateway service.PaymentGateway
	gw, err := paystack.NewClient(paystack.Config{
		BaseURL:     cfg.Gateway.BaseURL,
		SecretKey:   cfg.Gateway.SecretKey,
		CallbackURL: cfg.Gateway.CallbackURL,
		TimeoutMS:   cfg.Gateway.TimeoutMS,
	})
	if err != nil {
		// Checkout will refuse until a secret key is configured; catalog
		// and order reads still work.
		logger.Warnw("provider_init_gateway_failed", "error", err)
	} else {
		gateway = gw
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		Redis:       redisClient,
		QueueClient: queueClient,
		IntentStore: intents,
		Gateway:     gateway,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	c.CardRepo = repository.NewCardRepository(c.DB)
	c.OrderRepo = repository.NewOrderRepository(c.DB)
	c.TransactionRepo = repository.NewTransactionRepository(c.DB)
}

func (c *Container) initServices() {
	c.AllocationService = service.NewAllocationService(c.DB, c.CardRepo, c.OrderRepo)
	c.OrderService = service.NewOrderService(c.Config, c.AllocationService, c.OrderRepo, c.CardRepo, c.IntentStore, c.Gateway, c.QueueClient)
	c.PaymentService = service.NewPaymentService(c.Config, c.DB, c.AllocationService, c.OrderRepo, c.CardRepo, c.TransactionRepo, c.IntentStore, c.Gateway)
	c.CardService = service.NewCardService(c.CardRepo)
}
