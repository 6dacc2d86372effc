package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"madlen-ai-be/internal/dto"
	"madlen-ai-be/internal/entity"
	"madlen-ai-be/internal/model"
	"madlen-ai-be/internal/pkg/serverutils"
	"madlen-ai-be/internal/repository/contract"
	"madlen-ai-be/internal/repository/memory"
	"madlen-ai-be/internal/repository/specification"
	"madlen-ai-be/internal/repository/unitofwork"
	"madlen-ai-be/pkg/openrouter"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// --- In-memory fakes ---

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*entity.User
	sessions map[uuid.UUID]*entity.ChatSession
	messages []*entity.ChatMessage
	usage    []*model.UsageStat
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*entity.User),
		sessions: make(map[uuid.UUID]*entity.ChatSession),
	}
}

type specFilter struct {
	byID        *uuid.UUID
	bySessionID *uuid.UUID
	byUser      *string
	desc        bool
}

func parseSpecs(specs []specification.Specification) specFilter {
	var f specFilter
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByID:
			id := spec.ID
			f.byID = &id
		case specification.ByChatSessionID:
			id := spec.ChatSessionID
			f.bySessionID = &id
		case specification.UserOwnedBy:
			u := spec.UserID
			f.byUser = &u
		case specification.OrderBy:
			f.desc = spec.Desc
		}
	}
	return f
}

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u := *user
	r.store.users[user.Id] = &u
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if u, ok := r.store.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

type fakeSessionRepo struct{ store *fakeStore }

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s := *session
	r.store.sessions[session.Id] = &s
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s := *session
	r.store.sessions[session.Id] = &s
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.sessions, id)
	return nil
}

func (r *fakeSessionRepo) match(f specFilter) []*entity.ChatSession {
	var out []*entity.ChatSession
	for _, s := range r.store.sessions {
		if f.byID != nil && s.Id != *f.byID {
			continue
		}
		if f.byUser != nil && s.UserId != *f.byUser {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matched := r.match(parseSpecs(specs))
	if len(matched) == 0 {
		return nil, nil
	}
	return matched[0], nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.match(parseSpecs(specs)), nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.match(parseSpecs(specs)))), nil
}

type fakeMessageRepo struct{ store *fakeStore }

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m := *message
	r.store.messages = append(r.store.messages, &m)
	return nil
}

func (r *fakeMessageRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.messages[:0]
	for _, m := range r.store.messages {
		if m.ChatSessionId != sessionId {
			kept = append(kept, m)
		}
	}
	r.store.messages = kept
	return nil
}

// match returns messages in insertion order, reversed when descending.
func (r *fakeMessageRepo) match(f specFilter) []*entity.ChatMessage {
	var out []*entity.ChatMessage
	for _, m := range r.store.messages {
		if f.bySessionID != nil && m.ChatSessionId != *f.bySessionID {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	if f.desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matched := r.match(parseSpecs(specs))
	if len(matched) == 0 {
		return nil, nil
	}
	return matched[0], nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.match(parseSpecs(specs)), nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.match(parseSpecs(specs)))), nil
}

type fakeUsageRepo struct{ store *fakeStore }

func (r *fakeUsageRepo) Create(ctx context.Context, stat *model.UsageStat) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s := *stat
	r.store.usage = append(r.store.usage, &s)
	return nil
}

func (r *fakeUsageRepo) AggregateByModel(ctx context.Context, userId string) ([]model.ModelUsage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	agg := make(map[string]*model.ModelUsage)
	var order []string
	for _, s := range r.store.usage {
		if s.UserId != userId {
			continue
		}
		row, ok := agg[s.Model]
		if !ok {
			row = &model.ModelUsage{Model: s.Model}
			agg[s.Model] = row
			order = append(order, s.Model)
		}
		row.Turns++
		row.ReplyChars += int64(s.ReplyChars)
	}
	out := make([]model.ModelUsage, 0, len(order))
	for _, m := range order {
		out = append(out, *agg[m])
	}
	return out, nil
}

type fakeUow struct{ store *fakeStore }

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) UserRepository() contract.UserRepository {
	return &fakeUserRepo{store: u.store}
}

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{store: u.store}
}

func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{store: u.store}
}

func (u *fakeUow) UsageStatRepository() contract.UsageStatRepository {
	return &fakeUsageRepo{store: u.store}
}

type fakeFactory struct{ store *fakeStore }

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeProvider struct {
	mu           sync.Mutex
	reply        string
	err          error
	streamChunks []openrouter.StreamChunk
	streamErr    error
	models       []openrouter.ModelInfo
	listCalls    int
	limits       openrouter.RateLimit
	gotModel     string
	gotMessages  []openrouter.Message
}

func (p *fakeProvider) ChatCompletion(ctx context.Context, model string, messages []openrouter.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gotModel = model
	p.gotMessages = messages
	return p.reply, p.err
}

func (p *fakeProvider) ChatCompletionStream(ctx context.Context, model string, messages []openrouter.Message) (<-chan openrouter.StreamChunk, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	p.gotModel = model
	p.gotMessages = messages

	out := make(chan openrouter.StreamChunk)
	chunks := p.streamChunks
	go func() {
		defer close(out)
		for _, c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *fakeProvider) ListModels(ctx context.Context) []openrouter.ModelInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls = p.listCalls + 1
	return p.models
}

func (p *fakeProvider) RateLimit() openrouter.RateLimit {
	return p.limits
}

type fakePublisher struct {
	mu        sync.Mutex
	usage     []*dto.UsageRecordedMessage
	lifecycle []string
}

func (p *fakePublisher) PublishUsageRecorded(ctx context.Context, msg *dto.UsageRecordedMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage = append(p.usage, msg)
}

func (p *fakePublisher) PublishLifecycleEvent(eventType string, payload map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lifecycle = append(p.lifecycle, eventType)
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error { return nil }

func newTestService(store *fakeStore, provider *fakeProvider) (IChatService, *fakePublisher) {
	pub := &fakePublisher{}
	svc := NewChatService(
		&fakeFactory{store: store},
		provider,
		memory.NewCatalogCache(nil),
		pub,
		nopLogger{},
	)
	return svc, pub
}

func seedSession(store *fakeStore, userId string) *entity.ChatSession {
	now := time.Now()
	session := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     entity.DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: &now,
	}
	store.sessions[session.Id] = session
	return session
}

// --- Tests ---

func TestCreateSessionCreatesUserLazily(t *testing.T) {
	store := newFakeStore()
	svc, pub := newTestService(store, &fakeProvider{})

	res, err := svc.CreateSession(context.Background(), "user_abc", "abc@example.com")

	assert.NoError(t, err)
	assert.Equal(t, entity.DefaultSessionTitle, res.Title)

	user := store.users["user_abc"]
	assert.NotNil(t, user)
	assert.Equal(t, "abc@example.com", *user.Email)
	assert.Contains(t, pub.lifecycle, "CHAT_SESSION_CREATED")
}

func TestCreateSessionKeepsExistingUser(t *testing.T) {
	store := newFakeStore()
	email := "old@example.com"
	store.users["user_abc"] = &entity.User{Id: "user_abc", Email: &email}
	svc, _ := newTestService(store, &fakeProvider{})

	_, err := svc.CreateSession(context.Background(), "user_abc", "new@example.com")

	assert.NoError(t, err)
	assert.Equal(t, "old@example.com", *store.users["user_abc"].Email)
}

func TestGetSessionsReturnsPreview(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	store.messages = append(store.messages,
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: session.Id, Role: "user", Content: "first"},
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: session.Id, Role: "assistant", Content: strings.Repeat("x", 80)},
	)
	svc, _ := newTestService(store, &fakeProvider{})

	sessions, err := svc.GetSessions(context.Background(), "user_abc", "")

	assert.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, strings.Repeat("x", 50), sessions[0].Preview)
}

func TestGetSessionsHidesForeignSessions(t *testing.T) {
	store := newFakeStore()
	seedSession(store, "someone_else")
	svc, _ := newTestService(store, &fakeProvider{})

	sessions, err := svc.GetSessions(context.Background(), "user_abc", "")

	assert.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSendMessagePersistsBothTurns(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	provider := &fakeProvider{reply: "Hello back"}
	svc, pub := newTestService(store, provider)

	res, err := svc.SendMessage(context.Background(), "user_abc", session.Id, &dto.ChatRequest{
		Message: "Hello",
		Model:   "ns/model:free",
	})

	assert.NoError(t, err)
	assert.Equal(t, entity.ChatMessageRoleAssistant, res.Role)
	assert.Equal(t, "Hello back", res.Content)
	assert.Equal(t, "ns/model:free", *res.Model)

	assert.Len(t, store.messages, 2)
	assert.Equal(t, entity.ChatMessageRoleUser, store.messages[0].Role)
	assert.Equal(t, entity.ChatMessageRoleAssistant, store.messages[1].Role)

	// The upstream call saw the user turn.
	assert.Len(t, provider.gotMessages, 1)

	assert.Len(t, pub.usage, 1)
	assert.Equal(t, "ns/model:free", pub.usage[0].Model)
	assert.Equal(t, len("Hello back"), pub.usage[0].ReplyChars)
	assert.False(t, pub.usage[0].Streamed)
}

func TestSendMessageTitlesSessionFromFirstTurn(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	svc, _ := newTestService(store, &fakeProvider{reply: "ok"})

	longMessage := strings.Repeat("a", 40)
	_, err := svc.SendMessage(context.Background(), "user_abc", session.Id, &dto.ChatRequest{
		Message: longMessage,
		Model:   "m",
	})

	assert.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 30), store.sessions[session.Id].Title)
}

func TestSendMessageKeepsTitleOnLaterTurns(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	session.Title = "Existing title"
	store.messages = append(store.messages,
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: session.Id, Role: "user", Content: "earlier"},
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: session.Id, Role: "assistant", Content: "earlier reply"},
	)
	svc, _ := newTestService(store, &fakeProvider{reply: "ok"})

	_, err := svc.SendMessage(context.Background(), "user_abc", session.Id, &dto.ChatRequest{
		Message: "follow up",
		Model:   "m",
	})

	assert.NoError(t, err)
	assert.Equal(t, "Existing title", store.sessions[session.Id].Title)
}

func TestSendMessageUnknownSessionIs404(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeProvider{reply: "ok"})

	_, err := svc.SendMessage(context.Background(), "user_abc", uuid.New(), &dto.ChatRequest{Message: "hi", Model: "m"})

	var appErr *serverutils.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
	assert.Empty(t, store.messages)
}

func TestSendMessageForeignSessionIs404(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "someone_else")
	svc, _ := newTestService(store, &fakeProvider{reply: "ok"})

	_, err := svc.SendMessage(context.Background(), "user_abc", session.Id, &dto.ChatRequest{Message: "hi", Model: "m"})

	var appErr *serverutils.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
}

func TestSendMessageUpstreamErrorKeepsUserTurn(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	svc, pub := newTestService(store, &fakeProvider{err: &openrouter.RateLimitError{}})

	_, err := svc.SendMessage(context.Background(), "user_abc", session.Id, &dto.ChatRequest{Message: "hi", Model: "m"})

	var rateLimited *openrouter.RateLimitError
	assert.ErrorAs(t, err, &rateLimited)

	// The user turn stays; no assistant turn, no usage.
	assert.Len(t, store.messages, 1)
	assert.Equal(t, entity.ChatMessageRoleUser, store.messages[0].Role)
	assert.Empty(t, pub.usage)
}

func TestSendMessageWithImageBuildsMultimodalTurn(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	provider := &fakeProvider{reply: "nice picture"}
	svc, _ := newTestService(store, provider)

	image := "data:image/png;base64,AAAA"
	_, err := svc.SendMessage(context.Background(), "user_abc", session.Id, &dto.ChatRequest{
		Message: "what is this?",
		Model:   "m",
		Image:   &image,
	})

	assert.NoError(t, err)
	parts, ok := provider.gotMessages[0].Content.([]openrouter.ContentPart)
	assert.True(t, ok)
	assert.Len(t, parts, 2)
	assert.Equal(t, image, parts[1].ImageURL.URL)
}

func TestStreamMessageAccumulatesAndPersists(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	provider := &fakeProvider{streamChunks: []openrouter.StreamChunk{
		{Content: "Hel"},
		{Content: "lo!"},
	}}
	svc, pub := newTestService(store, provider)

	frames, err := svc.StreamMessage(context.Background(), "user_abc", session.Id, &dto.ChatRequest{
		Message: "hi",
		Model:   "m",
	})
	assert.NoError(t, err)

	var contents []string
	var done bool
	for frame := range frames {
		if frame.Done {
			done = true
			assert.Empty(t, frame.Error)
			continue
		}
		contents = append(contents, frame.Content)
	}

	assert.True(t, done)
	assert.Equal(t, []string{"Hel", "lo!"}, contents)

	assert.Len(t, store.messages, 2)
	assert.Equal(t, "Hello!", store.messages[1].Content)
	assert.Equal(t, entity.ChatMessageRoleAssistant, store.messages[1].Role)

	assert.Len(t, pub.usage, 1)
	assert.True(t, pub.usage[0].Streamed)
}

func TestStreamMessageErrorFrameSkipsPersist(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	provider := &fakeProvider{streamChunks: []openrouter.StreamChunk{
		{Content: "partial"},
		{Err: errors.New("upstream broke")},
	}}
	svc, pub := newTestService(store, provider)

	frames, err := svc.StreamMessage(context.Background(), "user_abc", session.Id, &dto.ChatRequest{
		Message: "hi",
		Model:   "m",
	})
	assert.NoError(t, err)

	var last dto.StreamFrame
	for frame := range frames {
		last = frame
	}

	assert.True(t, last.Done)
	assert.Equal(t, "upstream broke", last.Error)

	// Only the user turn was persisted.
	assert.Len(t, store.messages, 1)
	assert.Empty(t, pub.usage)
}

func TestStreamMessageUnknownSessionFailsBeforeStreaming(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeProvider{})

	_, err := svc.StreamMessage(context.Background(), "user_abc", uuid.New(), &dto.ChatRequest{Message: "hi", Model: "m"})

	var appErr *serverutils.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	other := seedSession(store, "user_abc")
	store.messages = append(store.messages,
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: session.Id, Role: "user", Content: "bye"},
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: other.Id, Role: "user", Content: "keep"},
	)
	svc, pub := newTestService(store, &fakeProvider{})

	err := svc.DeleteSession(context.Background(), "user_abc", session.Id)

	assert.NoError(t, err)
	assert.NotContains(t, store.sessions, session.Id)
	assert.Len(t, store.messages, 1)
	assert.Equal(t, "keep", store.messages[0].Content)
	assert.Contains(t, pub.lifecycle, "CHAT_SESSION_DELETED")
}

func TestDeleteForeignSessionIs404(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "someone_else")
	svc, _ := newTestService(store, &fakeProvider{})

	err := svc.DeleteSession(context.Background(), "user_abc", session.Id)

	var appErr *serverutils.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
	assert.Contains(t, store.sessions, session.Id)
}

func TestExportSessionTxt(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	session.Title = "My chat"
	store.messages = append(store.messages,
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: session.Id, Role: "user", Content: "hi", CreatedAt: time.Now()},
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: session.Id, Role: "assistant", Content: "hello", CreatedAt: time.Now()},
	)
	svc, _ := newTestService(store, &fakeProvider{})

	res, err := svc.ExportSession(context.Background(), "user_abc", session.Id, "txt")

	assert.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", res.ContentType)
	assert.Contains(t, res.Filename, session.Id.String())
	body := string(res.Body)
	assert.Contains(t, body, "My chat")
	assert.Contains(t, body, "user: hi")
	assert.Contains(t, body, "assistant: hello")
}

func TestExportSessionJson(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	store.messages = append(store.messages,
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: session.Id, Role: "user", Content: "hi", CreatedAt: time.Now()},
	)
	svc, _ := newTestService(store, &fakeProvider{})

	res, err := svc.ExportSession(context.Background(), "user_abc", session.Id, "json")

	assert.NoError(t, err)
	assert.Equal(t, "application/json", res.ContentType)
	assert.Contains(t, string(res.Body), `"messages"`)
}

func TestExportSessionRejectsUnknownFormat(t *testing.T) {
	store := newFakeStore()
	session := seedSession(store, "user_abc")
	svc, _ := newTestService(store, &fakeProvider{})

	_, err := svc.ExportSession(context.Background(), "user_abc", session.Id, "pdf")

	var appErr *serverutils.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)
}

func TestListModelsCachesCatalog(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{models: []openrouter.ModelInfo{
		{ID: "ns/a:free", Name: "A", Provider: "Ns", ContextLength: 8192, IsFree: true},
	}}
	svc, _ := newTestService(store, provider)

	first, err := svc.ListModels(context.Background())
	assert.NoError(t, err)
	second, err := svc.ListModels(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.listCalls)
	assert.Equal(t, "ns/a:free", first[0].Id)
	assert.Equal(t, 8192, first[0].ContextWindow)
}

func TestGetRateLimitPassthrough(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{limits: openrouter.RateLimit{Remaining: "9", Limit: "50", Reset: "60s"}}
	svc, _ := newTestService(store, provider)

	res := svc.GetRateLimit()

	assert.Equal(t, "9", res.RequestsRemaining)
	assert.Equal(t, "50", res.RequestsLimit)
	assert.Equal(t, "60s", res.Reset)
}

func TestGetUsageStatsAggregates(t *testing.T) {
	store := newFakeStore()
	store.usage = append(store.usage,
		&model.UsageStat{UserId: "user_abc", Model: "m1", ReplyChars: 10},
		&model.UsageStat{UserId: "user_abc", Model: "m1", ReplyChars: 5},
		&model.UsageStat{UserId: "someone_else", Model: "m2", ReplyChars: 99},
	)
	svc, _ := newTestService(store, &fakeProvider{})

	rows, err := svc.GetUsageStats(context.Background(), "user_abc")

	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "m1", rows[0].Model)
	assert.Equal(t, int64(2), rows[0].Turns)
	assert.Equal(t, int64(15), rows[0].ReplyChars)
}
