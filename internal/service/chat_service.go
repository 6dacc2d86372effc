package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"madlen-ai-be/internal/dto"
	"madlen-ai-be/internal/entity"
	"madlen-ai-be/internal/pkg/logger"
	"madlen-ai-be/internal/pkg/serverutils"
	"madlen-ai-be/internal/repository/memory"
	"madlen-ai-be/internal/repository/specification"
	"madlen-ai-be/internal/repository/unitofwork"
	"madlen-ai-be/pkg/events"
	"madlen-ai-be/pkg/openrouter"

	"github.com/google/uuid"
)

const (
	sessionTitleMaxRunes = 30
	previewMaxRunes      = 50
)

type IChatService interface {
	GetSessions(ctx context.Context, userId string, email string) ([]*dto.SessionResponse, error)
	CreateSession(ctx context.Context, userId string, email string) (*dto.SessionResponse, error)
	GetSessionMessages(ctx context.Context, userId string, sessionId uuid.UUID) ([]*dto.MessageResponse, error)
	SendMessage(ctx context.Context, userId string, sessionId uuid.UUID, req *dto.ChatRequest) (*dto.MessageResponse, error)
	StreamMessage(ctx context.Context, userId string, sessionId uuid.UUID, req *dto.ChatRequest) (<-chan dto.StreamFrame, error)
	DeleteSession(ctx context.Context, userId string, sessionId uuid.UUID) error
	ExportSession(ctx context.Context, userId string, sessionId uuid.UUID, format string) (*dto.ExportResponse, error)
	ListModels(ctx context.Context) ([]*dto.AIModelDTO, error)
	GetRateLimit() *dto.RateLimitResponse
	GetUsageStats(ctx context.Context, userId string) ([]*dto.ModelUsageResponse, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	provider         openrouter.Provider
	catalogCache     *memory.CatalogCache
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	provider openrouter.Provider,
	catalogCache *memory.CatalogCache,
	publisherService IPublisherService,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		provider:         provider,
		catalogCache:     catalogCache,
		publisherService: publisherService,
		logger:           log,
	}
}

// ensureUser lazily creates the local row for an externally-issued identity.
// The auth middleware already verified the token; this only mirrors it.
func (c *chatService) ensureUser(ctx context.Context, uow unitofwork.UnitOfWork, userId, email string) error {
	user, err := uow.UserRepository().FindByID(ctx, userId)
	if err != nil {
		return err
	}
	if user != nil {
		return nil
	}

	newUser := entity.User{
		Id:        userId,
		CreatedAt: time.Now(),
	}
	if email != "" {
		newUser.Email = &email
	}
	return uow.UserRepository().Create(ctx, &newUser)
}

func (c *chatService) GetSessions(ctx context.Context, userId string, email string) ([]*dto.SessionResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if err := c.ensureUser(ctx, uow, userId, email); err != nil {
		return nil, err
	}

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		res := mapSessionToResponse(session)

		// Preview is the latest turn, truncated.
		last, err := uow.ChatMessageRepository().FindOne(ctx,
			specification.ByChatSessionID{ChatSessionID: session.Id},
			specification.OrderBy{Field: "created_at", Desc: true},
		)
		if err != nil {
			return nil, err
		}
		if last != nil {
			res.Preview = truncateRunes(last.Content, previewMaxRunes)
		}

		result = append(result, res)
	}

	return result, nil
}

func (c *chatService) CreateSession(ctx context.Context, userId string, email string) (*dto.SessionResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if err := c.ensureUser(ctx, uow, userId, email); err != nil {
		return nil, err
	}

	now := time.Now()
	session := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     entity.DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: &now,
	}

	if err := uow.ChatSessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	c.publisherService.PublishLifecycleEvent(events.TypeSessionCreated, map[string]interface{}{
		"session_id": session.Id.String(),
		"user_id":    userId,
	})

	return mapSessionToResponse(&session), nil
}

func (c *chatService) GetSessionMessages(ctx context.Context, userId string, sessionId uuid.UUID) ([]*dto.MessageResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if _, err := c.findOwnedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		result = append(result, mapMessageToResponse(msg))
	}
	return result, nil
}

func (c *chatService) SendMessage(ctx context.Context, userId string, sessionId uuid.UUID, req *dto.ChatRequest) (*dto.MessageResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	session, err := c.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	history, err := c.appendUserTurn(ctx, uow, session, req)
	if err != nil {
		return nil, err
	}

	reply, err := c.provider.ChatCompletion(ctx, req.Model, assembleMessages(history))
	if err != nil {
		return nil, err
	}

	assistantMsg, err := c.completeTurn(ctx, uow, session, req.Model, reply, len(history), req.Message)
	if err != nil {
		return nil, err
	}

	c.recordUsage(ctx, userId, session.Id, req.Model, len(reply), false)

	return mapMessageToResponse(assistantMsg), nil
}

func (c *chatService) StreamMessage(ctx context.Context, userId string, sessionId uuid.UUID, req *dto.ChatRequest) (<-chan dto.StreamFrame, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	session, err := c.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	history, err := c.appendUserTurn(ctx, uow, session, req)
	if err != nil {
		return nil, err
	}

	chunks, err := c.provider.ChatCompletionStream(ctx, req.Model, assembleMessages(history))
	if err != nil {
		return nil, err
	}

	frames := make(chan dto.StreamFrame)
	go func() {
		defer close(frames)

		var full strings.Builder
		for chunk := range chunks {
			if chunk.Err != nil {
				c.emitFrame(ctx, frames, dto.StreamFrame{Error: chunk.Err.Error(), Done: true})
				return
			}

			full.WriteString(chunk.Content)
			if !c.emitFrame(ctx, frames, dto.StreamFrame{Content: chunk.Content}) {
				return
			}
		}

		// Client gone mid-stream: drop the partial reply rather than
		// persisting a truncated assistant turn.
		if ctx.Err() != nil {
			return
		}

		reply := full.String()
		if reply == "" {
			c.emitFrame(ctx, frames, dto.StreamFrame{Done: true})
			return
		}

		// The request context may be torn down as soon as the done frame is
		// written, so persistence runs on a detached context.
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()

		persistUow := c.uowFactory.NewUnitOfWork(persistCtx)
		if _, err := c.completeTurn(persistCtx, persistUow, session, req.Model, reply, len(history), req.Message); err != nil {
			c.logger.Error("ChatService", "Failed to persist streamed reply", map[string]interface{}{
				"session_id": session.Id.String(),
				"error":      err.Error(),
			})
			c.emitFrame(ctx, frames, dto.StreamFrame{Error: "Failed to save response", Done: true})
			return
		}

		c.recordUsage(persistCtx, userId, session.Id, req.Model, len(reply), true)

		c.emitFrame(ctx, frames, dto.StreamFrame{Done: true})
	}()

	return frames, nil
}

func (c *chatService) DeleteSession(ctx context.Context, userId string, sessionId uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if _, err := c.findOwnedSession(ctx, uow, userId, sessionId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return err
	}

	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	c.publisherService.PublishLifecycleEvent(events.TypeSessionDeleted, map[string]interface{}{
		"session_id": sessionId.String(),
		"user_id":    userId,
	})

	return nil
}

func (c *chatService) ExportSession(ctx context.Context, userId string, sessionId uuid.UUID, format string) (*dto.ExportResponse, error) {
	if format != "txt" && format != "json" {
		return nil, serverutils.NewBadRequest("Unsupported export format. Use 'txt' or 'json'.")
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)

	session, err := c.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("chat-%s.%s", sessionId, format)

	if format == "json" {
		doc := dto.ExportDocument{
			Id:        session.Id,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
		}
		for _, msg := range messages {
			doc.Messages = append(doc.Messages, mapMessageToResponse(msg))
		}

		body, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return &dto.ExportResponse{Filename: filename, ContentType: "application/json", Body: body}, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n", session.Title))
	sb.WriteString(fmt.Sprintf("Exported %s\n\n", time.Now().Format(time.RFC3339)))
	for _, msg := range messages {
		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", msg.CreatedAt.Format(time.RFC3339), msg.Role, msg.Content))
	}

	return &dto.ExportResponse{Filename: filename, ContentType: "text/plain; charset=utf-8", Body: []byte(sb.String())}, nil
}

func (c *chatService) ListModels(ctx context.Context) ([]*dto.AIModelDTO, error) {
	models, found := c.catalogCache.Get(ctx)
	if !found {
		models = c.provider.ListModels(ctx)
		c.catalogCache.Set(ctx, models)
	}

	result := make([]*dto.AIModelDTO, 0, len(models))
	for _, m := range models {
		result = append(result, &dto.AIModelDTO{
			Id:            m.ID,
			Name:          m.Name,
			Provider:      m.Provider,
			IsFree:        m.IsFree,
			ContextWindow: m.ContextLength,
		})
	}
	return result, nil
}

func (c *chatService) GetRateLimit() *dto.RateLimitResponse {
	limits := c.provider.RateLimit()
	return &dto.RateLimitResponse{
		RequestsRemaining: limits.Remaining,
		RequestsLimit:     limits.Limit,
		Reset:             limits.Reset,
	}
}

func (c *chatService) GetUsageStats(ctx context.Context, userId string) ([]*dto.ModelUsageResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	rows, err := uow.UsageStatRepository().AggregateByModel(ctx, userId)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ModelUsageResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, &dto.ModelUsageResponse{
			Model:      row.Model,
			Turns:      row.Turns,
			ReplyChars: row.ReplyChars,
		})
	}
	return result, nil
}

// findOwnedSession resolves the session only if it belongs to the caller.
// A foreign or missing session is indistinguishable to the client.
func (c *chatService) findOwnedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId string, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFound("Session not found")
	}
	return session, nil
}

// appendUserTurn persists the inbound message and re-reads the ordered
// history, which then includes that turn.
func (c *chatService) appendUserTurn(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.ChatSession, req *dto.ChatRequest) ([]*entity.ChatMessage, error) {
	userMsg := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          entity.ChatMessageRoleUser,
		Content:       req.Message,
		ImageURL:      req.Image,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &userMsg); err != nil {
		return nil, err
	}

	return uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
}

// completeTurn persists the assistant reply and refreshes session metadata.
// When the history held exactly one message (the turn that opened the
// conversation), the session is titled from that first message.
func (c *chatService) completeTurn(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.ChatSession, model, reply string, historyLen int, firstMessage string) (*entity.ChatMessage, error) {
	assistantMsg := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          entity.ChatMessageRoleAssistant,
		Content:       reply,
		Model:         &model,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &assistantMsg); err != nil {
		return nil, err
	}

	if historyLen == 1 {
		session.Title = truncateRunes(firstMessage, sessionTitleMaxRunes)
	}
	now := time.Now()
	session.UpdatedAt = &now
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}

	return &assistantMsg, nil
}

func (c *chatService) recordUsage(ctx context.Context, userId string, sessionId uuid.UUID, model string, replyChars int, streamed bool) {
	c.publisherService.PublishUsageRecorded(ctx, &dto.UsageRecordedMessage{
		UserId:     userId,
		SessionId:  sessionId,
		Model:      model,
		ReplyChars: replyChars,
		Streamed:   streamed,
	})

	c.publisherService.PublishLifecycleEvent(events.TypeTurnCompleted, map[string]interface{}{
		"session_id": sessionId.String(),
		"user_id":    userId,
		"model":      model,
	})
}

// emitFrame writes a frame unless the consumer has gone away. It reports
// whether the write happened.
func (c *chatService) emitFrame(ctx context.Context, frames chan<- dto.StreamFrame, frame dto.StreamFrame) bool {
	select {
	case frames <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

func mapSessionToResponse(session *entity.ChatSession) *dto.SessionResponse {
	res := &dto.SessionResponse{
		Id:        session.Id,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
	}
	if session.UpdatedAt != nil {
		res.UpdatedAt = *session.UpdatedAt
	} else {
		res.UpdatedAt = session.CreatedAt
	}
	return res
}

func mapMessageToResponse(msg *entity.ChatMessage) *dto.MessageResponse {
	return &dto.MessageResponse{
		Id:        msg.Id,
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.CreatedAt,
		Model:     msg.Model,
		ImageURL:  msg.ImageURL,
	}
}
