package controller

import (
	"context"
	"io"
	"time"

	"skalgpt-be/internal/dto"
	"skalgpt-be/internal/pkg/apperror"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/internal/pkg/serverutils"
	"skalgpt-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Upper bound for one streamed reply, the client connection aside.
const streamTimeout = 5 * time.Minute

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	RenameSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	GenerateTitle(ctx *fiber.Ctx) error
}

type chatbotController struct {
	service       service.IChatbotService
	jwtMiddleware fiber.Handler
	logger        logger.ILogger
}

func NewChatbotController(service service.IChatbotService, jwtSecret string, logger logger.ILogger) IChatbotController {
	return &chatbotController{
		service:       service,
		jwtMiddleware: serverutils.NewJwtMiddleware(jwtSecret),
		logger:        logger,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(c.jwtMiddleware)
	h.Post("/session", c.CreateSession)
	h.Get("/sessions", c.GetAllSessions)
	h.Get("/session/:id/messages", c.GetChatHistory)
	h.Put("/session/:id", c.RenameSession)
	h.Delete("/session/:id", c.DeleteSession)
	h.Post("/send", c.Send)
	h.Post("/title", c.GenerateTitle)
}

func parseBody(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return apperror.Wrap(apperror.ErrValidation, err)
	}
	return serverutils.ValidateRequest(req)
}

func sessionIdParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.Wrap(apperror.ErrValidation, err)
	}
	return id, nil
}

func (c *chatbotController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateSessionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.CreateSession(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatbotController) GetAllSessions(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetAllSessions(ctx.UserContext(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all sessions", res))
}

func (c *chatbotController) GetChatHistory(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetChatHistory(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *chatbotController) RenameSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.RenameSessionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.RenameSession(ctx.UserContext(), userId, sessionId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success rename session", res))
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteSession(ctx.UserContext(), userId, sessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

// Send streams the reply as raw UTF-8 text with no framing. Everything that
// can fail with a proper status runs before the first byte is written.
// After that a failure aborts the chunked body without its terminating
// chunk, so the client sees a broken stream rather than a short answer.
func (c *chatbotController) Send(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}

	var req dto.SendChatRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	turn, err := c.service.PrepareChat(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	// The reply is produced after this handler returns
	streamCtx := context.WithoutCancel(ctx.UserContext())

	ctx.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set("X-Accel-Buffering", "no")
	ctx.Set("X-Session-Id", turn.SessionId.String())

	pr, pw := io.Pipe()
	go func() {
		runCtx, cancel := context.WithTimeout(streamCtx, streamTimeout)
		defer cancel()

		emit := func(chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			// Write fails once fasthttp closes the reader, i.e. the client is gone
			_, err := pw.Write(chunk)
			return err
		}

		if err := c.service.StreamReply(runCtx, turn, emit); err != nil {
			c.logger.Warn("ChatbotController", "reply stream ended early", map[string]interface{}{
				"error":      err,
				"session_id": turn.SessionId.String(),
			})
			pw.CloseWithError(err)
			return
		}
		pw.Close()
	}()

	ctx.Context().SetBodyStream(pr, -1)
	return nil
}

func (c *chatbotController) GenerateTitle(ctx *fiber.Ctx) error {
	var req dto.GenerateTitleRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.GenerateTitle(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate title", res))
}
