package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"skalgpt-be/internal/constant"
	"skalgpt-be/internal/dto"
	"skalgpt-be/internal/entity"
	"skalgpt-be/internal/pkg/apperror"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/internal/repository/memory"
	"skalgpt-be/internal/repository/specification"
	"skalgpt-be/internal/repository/unitofwork"
	"skalgpt-be/pkg/embedding"
	"skalgpt-be/pkg/events"
	"skalgpt-be/pkg/llm"
	"skalgpt-be/pkg/metrics"
	"skalgpt-be/pkg/rag/history"
	"skalgpt-be/pkg/rag/prompt"
	"skalgpt-be/pkg/rag/ragcontext"
	"skalgpt-be/pkg/rag/rerank"
	"skalgpt-be/pkg/rag/search"
	"skalgpt-be/pkg/rag/session"
	"skalgpt-be/pkg/rag/stream"
	"skalgpt-be/pkg/rag/title"
	"skalgpt-be/pkg/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const chatbotModule = "ChatbotService"

var tracer = otel.Tracer("skalgpt/rag")

// IChatbotService defines the chatbot service interface
type IChatbotService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	RenameSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.RenameSessionRequest) (*dto.RenameSessionResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	GenerateTitle(ctx context.Context, request *dto.GenerateTitleRequest) (*dto.GenerateTitleResponse, error)

	// PrepareChat runs everything up to the first streamed byte: checks,
	// user message persistence, retrieval, re-ranking and prompt composition.
	PrepareChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*ChatTurn, error)
	// StreamReply streams the answer for a prepared turn and stores it on success.
	StreamReply(ctx context.Context, turn *ChatTurn, emit stream.EmitFunc) error
	// StreamChat is PrepareChat followed by StreamReply.
	StreamChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emit stream.EmitFunc) error
}

// ChatTurn is a user turn that passed every pre-stream step.
type ChatTurn struct {
	UserId         uuid.UUID
	SessionId      uuid.UUID
	UserMessage    *entity.ChatMessage
	Prompt         []llm.Message
	Passages       int
	RerankFellBack bool
}

// ChatbotSettings are the tunables of the chat pipeline.
type ChatbotSettings struct {
	TopK          int
	HistoryWindow int
	RerankModel   string
	TitleModel    string
	Persona       prompt.Persona
	Decoding      stream.DecodingParams
}

type chatbotService struct {
	uowFactory     unitofwork.RepositoryFactory
	titleJobs      *memory.TitleJobRepository
	titlePublisher IPublisherService
	eventPublisher events.Publisher
	settings       ChatbotSettings
	logger         logger.ILogger

	// nil when the model provider is not configured
	llmProvider llm.LLMProvider

	searchOrchestrator *search.Orchestrator
	historyWindower    *history.Windower
	reranker           *rerank.Reranker
	streamController   *stream.Controller
	titleGenerator     *title.Generator
	sessionManager     *session.Manager
	aliasResolver      *session.AliasResolver
}

func NewChatbotService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	passageStore search.PassageStore,
	sessionRepo *memory.SessionRepository,
	titleJobs *memory.TitleJobRepository,
	titlePublisher IPublisherService,
	eventPublisher events.Publisher,
	settings ChatbotSettings,
	ragLogger logger.ILogger,
) IChatbotService {
	if eventPublisher == nil {
		eventPublisher = events.NopPublisher{}
	}

	s := &chatbotService{
		uowFactory:      uowFactory,
		titleJobs:       titleJobs,
		titlePublisher:  titlePublisher,
		eventPublisher:  eventPublisher,
		settings:        settings,
		logger:          ragLogger,
		historyWindower: history.NewWindower(uowFactory),
		sessionManager:  session.NewManager(sessionRepo),
		aliasResolver:   session.NewAliasResolver(30 * time.Minute),
	}

	if llmProvider != nil && embeddingProvider != nil {
		s.llmProvider = llmProvider
		s.searchOrchestrator = search.NewOrchestrator(embeddingProvider, passageStore, ragLogger)
		s.reranker = rerank.NewReranker(llmProvider, settings.RerankModel, ragLogger)
		s.streamController = stream.NewController(llmProvider, settings.Decoding, ragLogger)
		s.titleGenerator = title.NewGenerator(llmProvider, settings.TitleModel)
	}

	return s
}

func (c *chatbotService) ready() error {
	if c.llmProvider == nil {
		return apperror.Wrap(apperror.ErrConfiguration, errors.New("model provider is not configured"))
	}
	return nil
}

func (c *chatbotService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	now := time.Now()
	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     constant.ChatSessionPlaceholderTitle,
		CreatedAt: now,
		UpdatedAt: &now,
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}

	c.sessionManager.Remember(chatSession.Id, userId)
	c.aliasResolver.Remember(userId, request.ClientSessionId, chatSession.Id)

	generating := c.enqueueTitleJob(ctx, &chatSession, request.Message)

	return &dto.CreateSessionResponse{
		Id:                chatSession.Id,
		Title:             chatSession.Title,
		ClientSessionId:   request.ClientSessionId,
		IsGeneratingTitle: generating,
		CreatedAt:         chatSession.CreatedAt,
	}, nil
}

// enqueueTitleJob reports whether a title job is in flight. A failed publish
// leaves the placeholder title in place.
func (c *chatbotService) enqueueTitleJob(ctx context.Context, chatSession *entity.ChatSession, message string) bool {
	payload, err := json.Marshal(dto.PublishTitleJobMessage{
		SessionId: chatSession.Id,
		UserId:    chatSession.UserId,
		Message:   message,
	})
	if err != nil {
		return false
	}

	// Mark first, the consumer may finish before Publish returns
	c.titleJobs.MarkPending(chatSession.Id)
	if err := c.titlePublisher.Publish(ctx, payload); err != nil {
		c.titleJobs.Done(chatSession.Id)
		c.logger.Warn(chatbotModule, "failed to enqueue title job", map[string]interface{}{
			"error":      err,
			"session_id": chatSession.Id.String(),
		})
		return false
	}
	return true
}

func (c *chatbotService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, chatSession := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:                chatSession.Id,
			Title:             chatSession.Title,
			IsGeneratingTitle: c.titleJobs.IsPending(chatSession.Id),
			CreatedAt:         chatSession.CreatedAt,
			UpdatedAt:         chatSession.UpdatedAt,
		})
	}

	return response, nil
}

func (c *chatbotService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := c.sessionManager.VerifyOwnership(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, chatMessage := range chatMessages {
		response = append(response, &dto.GetChatHistoryResponse{
			Id:            chatMessage.Id,
			ChatSessionId: chatMessage.ChatSessionId,
			Role:          chatMessage.Role,
			Content:       chatMessage.Content,
			CreatedAt:     chatMessage.CreatedAt,
		})
	}

	return response, nil
}

func (c *chatbotService) RenameSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.RenameSessionRequest) (*dto.RenameSessionResponse, error) {
	newTitle := strings.TrimSpace(request.Title)
	if newTitle == "" {
		return nil, fmt.Errorf("%w: title must not be blank", apperror.ErrValidation)
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if _, err := c.sessionManager.VerifyChatSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	if err := uow.ChatSessionRepository().UpdateTitle(ctx, sessionId, newTitle); err != nil {
		return nil, err
	}
	// A manual title wins over a pending generated one
	c.titleJobs.Done(sessionId)

	return &dto.RenameSessionResponse{Id: sessionId, Title: newTitle}, nil
}

func (c *chatbotService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if _, err := c.sessionManager.VerifyChatSession(ctx, uow, userId, sessionId); err != nil {
		return err
	}

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	c.sessionManager.Forget(sessionId)
	c.titleJobs.Done(sessionId)
	return nil
}

func (c *chatbotService) GenerateTitle(ctx context.Context, request *dto.GenerateTitleRequest) (*dto.GenerateTitleResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	generated, err := c.titleGenerator.Generate(ctx, request.Message)
	if err != nil {
		return nil, fmt.Errorf("generate title: %w", err)
	}

	return &dto.GenerateTitleResponse{Title: generated}, nil
}

func validateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: message must not be blank", apperror.ErrValidation)
	}
	if utf8.RuneCountInString(message) > constant.MaxChatMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", apperror.ErrValidation, constant.MaxChatMessageLength)
	}
	return nil
}

func (c *chatbotService) PrepareChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*ChatTurn, error) {
	ctx, span := tracer.Start(ctx, "chat.prepare", trace.WithAttributes(attribute.String("user.id", userId.String())))
	defer span.End()

	// Nothing is written before these checks pass
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := validateMessage(request.Message); err != nil {
		return nil, err
	}

	sessionId, err := c.aliasResolver.ResolveSessionID(userId, request.SessionId)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", sessionId.String()))

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := c.sessionManager.VerifyOwnership(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	turn := &ChatTurn{UserId: userId, SessionId: sessionId}

	// The window is read before the new message lands so it never contains
	// the current query. Retrieval runs alongside.
	var (
		g          errgroup.Group
		turnsSoFar []llm.Message
		passages   []store.Passage
	)
	g.Go(func() error {
		start := time.Now()
		loaded, err := c.historyWindower.Load(ctx, sessionId, c.settings.HistoryWindow)
		metrics.ObserveStage(metrics.StageHistory, start)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		turnsSoFar = loaded

		userMessage := &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: sessionId,
			UserId:        userId,
			Role:          constant.ChatMessageRoleUser,
			Content:       request.Message,
			CreatedAt:     time.Now(),
		}
		// The ownership cache may predate a delete made on another instance,
		// and a soft-deleted row still satisfies the foreign key.
		if err := uow.ChatSessionRepository().Touch(ctx, sessionId); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		if err := uow.ChatMessageRepository().Create(ctx, userMessage); err != nil {
			return fmt.Errorf("persist user message: %w", err)
		}
		turn.UserMessage = userMessage
		return nil
	})
	g.Go(func() error {
		found, err := c.searchOrchestrator.Search(ctx, request.Message, c.settings.TopK)
		if err != nil {
			return err
		}
		passages = found
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		if errors.Is(err, apperror.ErrSessionNotFound) {
			c.sessionManager.Forget(sessionId)
		}
		c.logger.Error(chatbotModule, "chat preparation failed", map[string]interface{}{
			"error":          err,
			"session_id":     sessionId.String(),
			"user_persisted": turn.UserMessage != nil,
		})
		return nil, err
	}

	ranked := c.reranker.Rerank(ctx, request.Message, passages)
	contextBlock := ragcontext.Assemble(ranked.Segments)

	turn.Prompt = prompt.ComposePrompt(c.settings.Persona, turnsSoFar, contextBlock, request.Message)
	turn.Passages = len(passages)
	turn.RerankFellBack = ranked.FellBack

	span.SetAttributes(
		attribute.Int("rag.passages", turn.Passages),
		attribute.Int("rag.history_turns", len(turnsSoFar)),
		attribute.Bool("rag.rerank_fallback", ranked.FellBack),
	)
	c.logger.Info(chatbotModule, "chat turn prepared", map[string]interface{}{
		"session_id":      sessionId.String(),
		"passages":        turn.Passages,
		"history_turns":   len(turnsSoFar),
		"rerank_fallback": ranked.FellBack,
		"context_bytes":   len(contextBlock),
	})

	return turn, nil
}

func (c *chatbotService) StreamReply(ctx context.Context, turn *ChatTurn, emit stream.EmitFunc) error {
	ctx, span := tracer.Start(ctx, "chat.stream", trace.WithAttributes(attribute.String("session.id", turn.SessionId.String())))
	defer span.End()

	if err := c.ready(); err != nil {
		return err
	}

	outcome, err := c.streamController.Run(ctx, turn.Prompt, emit)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("stream.chunks", outcome.Chunks))

	// The client already has the whole answer; store it even if the
	// request context is gone by now.
	persistCtx := context.WithoutCancel(ctx)
	reply := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: turn.SessionId,
		UserId:        turn.UserId,
		Role:          constant.ChatMessageRoleAssistant,
		Content:       outcome.Text,
		CreatedAt:     time.Now(),
	}
	if err := c.storeReply(persistCtx, reply); err != nil {
		c.logger.Error(chatbotModule, "failed to persist assistant message", map[string]interface{}{
			"error":      err,
			"session_id": turn.SessionId.String(),
		})
		return err
	}

	var userMessageId uuid.UUID
	if turn.UserMessage != nil {
		userMessageId = turn.UserMessage.Id
	}
	evt := events.ChatTurnCompleted(turn.UserId, turn.SessionId, userMessageId, reply.Id, len(outcome.Text))
	if err := c.eventPublisher.Publish(persistCtx, evt); err != nil {
		c.logger.Warn(chatbotModule, "failed to publish chat turn event", map[string]interface{}{"error": err})
	}

	return nil
}

func (c *chatbotService) storeReply(ctx context.Context, reply *entity.ChatMessage) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Create(ctx, reply); err != nil {
		return fmt.Errorf("persist assistant message: %w", err)
	}
	if err := uow.ChatSessionRepository().Touch(ctx, reply.ChatSessionId); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	return uow.Commit()
}

func (c *chatbotService) StreamChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emit stream.EmitFunc) error {
	turn, err := c.PrepareChat(ctx, userId, request)
	if err != nil {
		return err
	}
	return c.StreamReply(ctx, turn, emit)
}
