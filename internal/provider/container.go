package provider

import (
	"github.com/giftcard-next/internal/cache"
	"github.com/giftcard-next/internal/config"
	"github.com/giftcard-next/internal/logger"
	"github.com/giftcard-next/internal/models"
	"github.com/giftcard-next/internal/queue"
	"github.com/giftcard-next/internal/repository"
	"github.com/giftcard-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	CustomerRepo      repository.CustomerRepository
	GiftCardRepo      repository.GiftCardRepository
	GiftCardUsageRepo repository.GiftCardUsageRepository

	// Services
	AuthService           *service.AuthService
	GiftCardService       *service.GiftCardService
	GiftCardReportService *service.GiftCardReportService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.GiftCardRepo = repository.NewGiftCardRepository(db)
	c.GiftCardUsageRepo = repository.NewGiftCardUsageRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.GiftCardService = service.NewGiftCardService(c.GiftCardRepo, c.GiftCardUsageRepo, c.Config.Card.CodePrefix, c.Config.Card.ExpireAfterDays)
	c.GiftCardReportService = service.NewGiftCardReportService(c.GiftCardUsageRepo)
}
