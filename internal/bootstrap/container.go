package bootstrap

import (
	"context"
	"log"

	"evidence-intel-be/internal/config"
	"evidence-intel-be/internal/controller"
	"evidence-intel-be/internal/handler"
	"evidence-intel-be/internal/pkg/logger"
	"evidence-intel-be/internal/pkg/mailer"
	"evidence-intel-be/internal/repository/memory"
	"evidence-intel-be/internal/repository/unitofwork"
	"evidence-intel-be/internal/service"
	"evidence-intel-be/internal/websocket"
	"evidence-intel-be/pkg/collector"
	"evidence-intel-be/pkg/events"
	"evidence-intel-be/pkg/llm/factory"
	"evidence-intel-be/pkg/synthesis"

	pktNats "evidence-intel-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController   controller.ISessionController
	DiscoveryController controller.IDiscoveryController
	ApprovalController  controller.IApprovalController
	ResearchController  controller.IResearchController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Progress Streaming
	ProgressHandler *handler.ProgressHandler
	WebSocketHub    *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	generator := synthesis.NewGenerator(llmProvider)

	// Evidence Collectors
	rps := cfg.Collectors.RequestsPerSecond
	collectors := collector.Set{
		Literature:  collector.NewLiteratureCollector(cfg.Collectors.LiteratureBaseURL, cfg.Collectors.LiteratureKey, rps),
		Regulatory:  collector.NewRegulatoryCollector(cfg.Collectors.RegulatoryBaseURL, cfg.Collectors.RegulatoryKey, rps),
		Registry:    collector.NewRegistryCollector(),
		Competitive: collector.NewCompetitiveCollector(cfg.Collectors.CompetitiveBaseURL, cfg.Collectors.CompetitiveKey, rps),
		Trials:      collector.NewTrialsCollector(cfg.Collectors.TrialsBaseURL, "", rps),
	}

	// In-Memory Session Cache
	sessionCache := memory.NewSessionCache(cfg.Cache.MaxSessions, cfg.Cache.SessionTTL)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Durable journal of every domain event: the stream survives restarts,
	// the journal file gives operators a local trail.
	eventLogger := logger.NewIsolatedLogger("logs/events.log")
	if err := natsSub.Subscribe("evidence.>", "evidence-intel-journal", func(ctx context.Context, event events.Event) error {
		eventLogger.Info("EVENTS", "Domain event received", map[string]interface{}{
			"type":    event.EventType(),
			"payload": event.Payload(),
		})
		return nil
	}); err != nil {
		log.Printf("[WARN] Failed to subscribe to evidence events: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/progress.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Services
	publisherService := service.NewPublisherService(cfg.App.ProgressTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.ProgressTopic,
		wsHub,
		natsPub,
		emailService,
	)

	sessionService := service.NewSessionService(uowFactory, sessionCache, natsPub, sysLogger)
	discoveryService := service.NewDiscoveryService(sessionService, collectors, sysLogger)
	approvalService := service.NewApprovalService(sessionService, natsPub, sysLogger)
	researchService := service.NewResearchService(
		sessionService,
		uowFactory,
		generator,
		publisherService,
		sysLogger,
	)

	// Progress Streaming Handler
	progressHandler := handler.NewProgressHandler(sessionService, researchService, wsHub, wsLogger)

	// 4. Controllers
	return &Container{
		SessionController:   controller.NewSessionController(sessionService),
		DiscoveryController: controller.NewDiscoveryController(discoveryService),
		ApprovalController:  controller.NewApprovalController(approvalService),
		ResearchController:  controller.NewResearchController(researchService),

		ConsumerService: consumerService,

		ProgressHandler: progressHandler,
		WebSocketHub:    wsHub,
	}
}
