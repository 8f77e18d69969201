package bootstrap

import (
	"context"
	"time"

	"skalgpt-be/internal/config"
	"skalgpt-be/internal/controller"
	"skalgpt-be/internal/handler"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/internal/repository/memory"
	"skalgpt-be/internal/repository/unitofwork"
	"skalgpt-be/internal/service"
	"skalgpt-be/internal/websocket"
	"skalgpt-be/pkg/embedding"
	"skalgpt-be/pkg/events"
	"skalgpt-be/pkg/llm"
	"skalgpt-be/pkg/llm/factory"
	pktNats "skalgpt-be/pkg/nats"
	"skalgpt-be/pkg/rag/prompt"
	"skalgpt-be/pkg/rag/search"
	"skalgpt-be/pkg/rag/stream"
	"skalgpt-be/pkg/rag/title"
	"skalgpt-be/pkg/vectorstore"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController

	// Background Services (Exposed for main.go to run)
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// Close releases the broker connections opened by NewContainer.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	c := &Container{}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	ragLogger := logger.NewIsolatedLogger(cfg.App.RagLogFilePath)
	wsLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)
	c.Logger = sysLogger

	if missing := cfg.Validate(); len(missing) > 0 {
		sysLogger.Error("Bootstrap", "Missing configuration, chat endpoints will answer with a configuration error", map[string]interface{}{"missing": missing})
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Model providers. A failure here leaves them nil and the chat
	// service reports ErrConfiguration per request.
	embeddingProvider := newEmbeddingProvider(ctx, cfg, sysLogger)
	llmProvider := newLLMProvider(ctx, cfg, sysLogger)

	var passageStore search.PassageStore = search.NewPgvectorStore(uowFactory)
	if cfg.Rag.VectorBackend == "chromem" && embeddingProvider != nil {
		chromemStore, err := vectorstore.NewChromemStore(cfg.Rag.ChromemPath, cfg.Rag.ChromemName, vectorstore.EmbeddingFunc(embeddingProvider))
		if err != nil {
			sysLogger.Error("Bootstrap", "Failed to open chromem store, falling back to pgvector", map[string]interface{}{"error": err})
		} else {
			passageStore = chromemStore
			sysLogger.Info("Bootstrap", "Using chromem passage store", map[string]interface{}{"documents": chromemStore.Count()})
		}
	}

	// 4. Infrastructure
	// NATS
	var eventPublisher events.Publisher = events.NopPublisher{}
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err})
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, wsLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err})
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to Redis, websocket events stay on this instance", map[string]interface{}{"error": err})
		rdb = nil
	} else {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	cancel()

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run(ctx)
	c.WebSocketHub = wsHub

	// 5. Services
	sessionRepo := memory.NewSessionRepository()
	titleJobs := memory.NewTitleJobRepository(5 * time.Minute)
	publisherService := service.NewPublisherService(cfg.Keys.TitleTopic, pubSub)

	chatbotService := service.NewChatbotService(
		uowFactory,
		embeddingProvider,
		llmProvider,
		passageStore,
		sessionRepo,
		titleJobs,
		publisherService,
		eventPublisher,
		chatbotSettings(cfg),
		ragLogger,
	)

	var titleGenerator *title.Generator
	if llmProvider != nil {
		titleGenerator = title.NewGenerator(llmProvider, cfg.Ai.TitleModel)
	}

	// With NATS the relay subscriber pushes title events to the hub,
	// otherwise the consumer does it directly.
	var directDelivery service.NotificationDelivery
	if natsSub != nil && natsPub != nil {
		c.NotificationService = service.NewNotificationService(natsSub, wsHub, wsLogger)
	} else {
		directDelivery = wsHub
	}

	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.Keys.TitleTopic,
		uowFactory,
		titleGenerator,
		titleJobs,
		eventPublisher,
		directDelivery,
		ragLogger,
	)

	// 6. Controllers
	c.ChatbotController = controller.NewChatbotController(chatbotService, cfg.App.JwtSecret, sysLogger)
	c.NotificationHandler = handler.NewNotificationHandler(wsHub, cfg.App.JwtSecret, wsLogger)

	return c
}

func chatbotSettings(cfg *config.Config) service.ChatbotSettings {
	return service.ChatbotSettings{
		TopK:          cfg.Rag.TopK,
		HistoryWindow: cfg.Rag.HistoryWindow,
		RerankModel:   cfg.Ai.RerankModel,
		TitleModel:    cfg.Ai.TitleModel,
		Persona: prompt.Persona{
			Name:          cfg.Persona.AssistantName,
			School:        cfg.Persona.SchoolName,
			SupportEmail:  cfg.Persona.SupportEmail,
			RetentionDays: cfg.Persona.RetentionDays,
		},
		Decoding: stream.DecodingParams{
			Model:           cfg.Ai.LLMModel,
			Temperature:     cfg.Ai.Temperature,
			TopK:            1,
			TopP:            1,
			MaxOutputTokens: cfg.Ai.MaxOutputTokens,
		},
	}
}

func newEmbeddingProvider(ctx context.Context, cfg *config.Config, log logger.ILogger) embedding.EmbeddingProvider {
	if cfg.Ai.EmbeddingProvider == "ollama" {
		log.Info("Bootstrap", "Using Embedding Provider: OLLAMA", map[string]interface{}{"model": cfg.Ai.OllamaModel})
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	}

	if cfg.Keys.GoogleGemini == "" {
		log.Error("Bootstrap", "GOOGLE_GEMINI_API_KEY is not set, embeddings disabled", nil)
		return nil
	}
	p, err := embedding.NewGeminiProvider(ctx, cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel)
	if err != nil {
		log.Error("Bootstrap", "Failed to initialize Gemini embeddings", map[string]interface{}{"error": err})
		return nil
	}
	log.Info("Bootstrap", "Using Embedding Provider: GEMINI", map[string]interface{}{"model": cfg.Ai.EmbeddingModel})
	return p
}

func newLLMProvider(ctx context.Context, cfg *config.Config, log logger.ILogger) llm.LLMProvider {
	p, err := factory.NewLLMProvider(ctx, factory.Params{
		Provider:          cfg.Ai.LLMProvider,
		Model:             cfg.Ai.LLMModel,
		BaseURL:           cfg.Ai.OllamaBaseURL,
		APIKey:            cfg.Keys.GoogleGemini,
		RequestsPerMinute: cfg.Ai.RequestsPerMinute,
	})
	if err != nil {
		log.Error("Bootstrap", "Failed to initialize LLM Provider", map[string]interface{}{"error": err})
		return nil
	}
	log.Info("Bootstrap", "Using LLM Provider", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})
	return p
}
