package controller

import (
	"bufio"
	"encoding/json"
	"fmt"

	"madlen-ai-be/internal/dto"
	"madlen-ai-be/internal/pkg/serverutils"
	"madlen-ai-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	GetModels(ctx *fiber.Ctx) error
	GetSessions(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	GetSessionMessages(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	StreamChat(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	ExportSession(ctx *fiber.Ctx) error
	GetLimits(ctx *fiber.Ctx) error
	GetStats(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/models", c.GetModels) // ✅ PUBLIC

	h := r.Group("")
	h.Use(auth) // ✅ PROTECTED
	h.Get("/sessions", c.GetSessions)
	h.Post("/sessions", c.CreateSession)
	h.Get("/sessions/:id/messages", c.GetSessionMessages)
	h.Post("/sessions/:id/chat", c.Chat)
	h.Post("/sessions/:id/chat/stream", c.StreamChat)
	h.Delete("/sessions/:id", c.DeleteSession)
	h.Get("/sessions/:id/export", c.ExportSession)
	h.Get("/limits", c.GetLimits)
	h.Get("/stats", c.GetStats)
}

func (c *chatController) GetModels(ctx *fiber.Ctx) error {
	res, err := c.service.ListModels(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) GetSessions(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)
	email, _ := ctx.Locals("email").(string)

	res, err := c.service.GetSessions(ctx.Context(), userId, email)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)
	email, _ := ctx.Locals("email").(string)

	res, err := c.service.CreateSession(ctx.Context(), userId, email)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) GetSessionMessages(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)
	sessionId, err := parseSessionId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetSessionMessages(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)
	sessionId, err := parseSessionId(ctx)
	if err != nil {
		return err
	}

	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewBadRequest("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.Context(), userId, sessionId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) StreamChat(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)
	sessionId, err := parseSessionId(ctx)
	if err != nil {
		return err
	}

	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewBadRequest("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// Ownership checks and the user-turn insert run before streaming starts,
	// so failures here still map to normal HTTP statuses.
	frames, err := c.service.StreamMessage(ctx.Context(), userId, sessionId, &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for frame := range frames {
			payload, err := json.Marshal(frame)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))

	return nil
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)
	sessionId, err := parseSessionId(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteSession(ctx.Context(), userId, sessionId); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"message": "Session deleted successfully"})
}

func (c *chatController) ExportSession(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)
	sessionId, err := parseSessionId(ctx)
	if err != nil {
		return err
	}

	format := ctx.Query("format", "txt")

	res, err := c.service.ExportSession(ctx.Context(), userId, sessionId, format)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, res.ContentType)
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename))
	return ctx.Send(res.Body)
}

func (c *chatController) GetLimits(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.GetRateLimit())
}

func (c *chatController) GetStats(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	res, err := c.service.GetUsageStats(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

// parseSessionId hides malformed ids behind the same 404 as unknown ones.
func parseSessionId(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, serverutils.NewNotFound("Session not found")
	}
	return id, nil
}
