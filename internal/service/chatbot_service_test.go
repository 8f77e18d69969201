package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"skalgpt-be/internal/constant"
	"skalgpt-be/internal/dto"
	"skalgpt-be/internal/entity"
	"skalgpt-be/internal/pkg/apperror"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/internal/repository/memory"
	"skalgpt-be/pkg/events"
	"skalgpt-be/pkg/llm"
	"skalgpt-be/pkg/rag/prompt"
	"skalgpt-be/pkg/rag/stream"
	"skalgpt-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatFixture struct {
	store    *memStore
	llm      *fakeLLM
	embedder *fakeEmbedder
	passages *fakePassages
	queue    *fakeTitleQueue
	events   *fakeEvents
	jobs     *memory.TitleJobRepository
	svc      IChatbotService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		store:    newMemStore(),
		llm:      &fakeLLM{chunks: []string{"Merhaba", ", kütüphane ", "09:00'da açılır."}, titleReply: "Kütüphane Saatleri"},
		embedder: &fakeEmbedder{},
		passages: &fakePassages{passages: []store.Passage{
			{ID: "a", Content: "Kütüphane hafta içi 09:00-17:00 açıktır.", Similarity: 0.91},
			{ID: "b", Content: "Kantin 12:00'de kapanır.", Similarity: 0.42},
		}},
		queue:  &fakeTitleQueue{},
		events: &fakeEvents{},
		jobs:   memory.NewTitleJobRepository(time.Minute),
	}
	f.llm.rerankReply = "Kütüphane hafta içi 09:00-17:00 açıktır." + constant.RerankDelimiter + "Kantin 12:00'de kapanır."
	f.svc = f.build(f.llm)
	return f
}

func (f *chatFixture) build(provider llm.LLMProvider) IChatbotService {
	return NewChatbotService(
		&fakeFactory{store: f.store},
		f.embedder,
		provider,
		f.passages,
		memory.NewSessionRepository(),
		f.jobs,
		f.queue,
		f.events,
		ChatbotSettings{
			TopK:          50,
			HistoryWindow: 30,
			Persona:       prompt.Persona{Name: "SkalGPT", School: "Test Lisesi", SupportEmail: "destek@example.com", RetentionDays: 30},
			Decoding:      stream.DecodingParams{Temperature: 0.2, TopK: 1, TopP: 1, MaxOutputTokens: 2048},
		},
		logger.NewNop(),
	)
}

type collector struct {
	chunks []string
	failAt int // 1-based chunk index that fails; 0 never fails
}

func (c *collector) emit(chunk []byte) error {
	if c.failAt > 0 && len(c.chunks)+1 == c.failAt {
		return errors.New("client gone")
	}
	c.chunks = append(c.chunks, string(chunk))
	return nil
}

func (c *collector) text() string { return strings.Join(c.chunks, "") }

func TestStreamChatPersistsBothTurns(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()
	cs := f.store.addSession(userId)
	before := *cs.UpdatedAt

	var out collector
	err := f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: "Kütüphane ne zaman açık?"}, out.emit)
	require.NoError(t, err)

	msgs := f.store.messagesOf(cs.Id)
	require.Len(t, msgs, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)
	assert.Equal(t, "Kütüphane ne zaman açık?", msgs[0].Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, msgs[1].Role)
	assert.Equal(t, out.text(), msgs[1].Content)
	assert.Equal(t, "Merhaba, kütüphane 09:00'da açılır.", msgs[1].Content)

	assert.False(t, f.store.session(cs.Id).UpdatedAt.Before(before))

	evts := f.events.all()
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeChatTurnCompleted, evts[0].EventType())
	assert.Equal(t, msgs[1].Id.String(), evts[0].Payload()["assistant_message_id"])
}

func TestStreamChatPromptShape(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()
	cs := f.store.addSession(userId)

	f.store.messages = append(f.store.messages,
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: cs.Id, Role: constant.ChatMessageRoleUser, Content: "önceki soru"},
		&entity.ChatMessage{Id: uuid.New(), ChatSessionId: cs.Id, Role: constant.ChatMessageRoleAssistant, Content: "önceki cevap"},
	)

	var out collector
	require.NoError(t, f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: "yeni soru"}, out.emit))

	turns := f.llm.turns()
	require.Len(t, turns, 5)
	assert.Equal(t, constant.PrimingUserInstruction, turns[0].Content)
	assert.Equal(t, constant.ModelTurnModel, turns[1].Role)
	assert.Contains(t, turns[1].Content, "Kütüphane hafta içi 09:00-17:00 açıktır.\n\nKantin 12:00'de kapanır.")
	assert.Equal(t, llm.Message{Role: constant.ModelTurnUser, Content: "önceki soru"}, turns[2])
	assert.Equal(t, llm.Message{Role: constant.ModelTurnModel, Content: "önceki cevap"}, turns[3])
	// The current query appears once, as the final turn
	assert.Equal(t, llm.Message{Role: constant.ModelTurnUser, Content: "yeni soru"}, turns[4])
}

func TestStreamChatRerankFailureKeepsRetrievalOrder(t *testing.T) {
	f := newChatFixture(t)
	f.llm.rerankErr = errors.New("quota exceeded")
	userId := uuid.New()
	cs := f.store.addSession(userId)

	var out collector
	require.NoError(t, f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: "soru"}, out.emit))

	system := f.llm.turns()[1].Content
	assert.Contains(t, system, f.passages.passages[0].Content+"\n\n"+f.passages.passages[1].Content)
	assert.Len(t, f.store.messagesOf(cs.Id), 2)
}

func TestStreamChatWithoutPassages(t *testing.T) {
	f := newChatFixture(t)
	f.passages.passages = nil
	userId := uuid.New()
	cs := f.store.addSession(userId)

	var out collector
	require.NoError(t, f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: "merhaba"}, out.emit))

	assert.NotContains(t, f.llm.turns()[1].Content, "Ek Bilgiler")
	assert.Len(t, f.store.messagesOf(cs.Id), 2)
}

func TestStreamChatFailureStoresNoReply(t *testing.T) {
	tests := []struct {
		name      string
		streamErr error
		chunks    []string
		failAt    int
	}{
		{name: "model error mid stream", streamErr: errors.New("connection reset"), chunks: []string{"Yarım "}},
		{name: "client disconnect", chunks: []string{"bir ", "iki ", "üç"}, failAt: 2},
		{name: "empty response", chunks: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t)
			f.llm.chunks = tt.chunks
			f.llm.streamErr = tt.streamErr
			userId := uuid.New()
			cs := f.store.addSession(userId)

			out := collector{failAt: tt.failAt}
			err := f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: "soru"}, out.emit)
			require.ErrorIs(t, err, apperror.ErrGeneration)

			msgs := f.store.messagesOf(cs.Id)
			require.Len(t, msgs, 1)
			assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)
			assert.Empty(t, f.events.all())
		})
	}
}

func TestStreamChatRetrievalFailure(t *testing.T) {
	f := newChatFixture(t)
	f.embedder.err = errors.New("embedding quota")
	userId := uuid.New()
	cs := f.store.addSession(userId)

	var out collector
	err := f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: "soru"}, out.emit)
	require.ErrorIs(t, err, apperror.ErrRetrieval)

	assert.Empty(t, out.chunks)
	msgs := f.store.messagesOf(cs.Id)
	require.Len(t, msgs, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)
}

func TestStreamChatRejectsBeforeWriting(t *testing.T) {
	userId := uuid.New()

	tests := []struct {
		name    string
		message string
		session func(f *chatFixture) string
		want    error
	}{
		{"too long", strings.Repeat("a", constant.MaxChatMessageLength+1), func(f *chatFixture) string { return f.store.addSession(userId).Id.String() }, apperror.ErrValidation},
		{"blank", "   \n", func(f *chatFixture) string { return f.store.addSession(userId).Id.String() }, apperror.ErrValidation},
		{"malformed session id", "soru", func(f *chatFixture) string { return "not-a-uuid" }, apperror.ErrValidation},
		{"unknown session", "soru", func(f *chatFixture) string { return uuid.NewString() }, apperror.ErrSessionNotFound},
		{"foreign session", "soru", func(f *chatFixture) string { return f.store.addSession(uuid.New()).Id.String() }, apperror.ErrSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t)
			var out collector
			err := f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: tt.session(f), Message: tt.message}, out.emit)
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.store.messages)
			assert.Nil(t, f.llm.turns())
		})
	}
}

func TestStreamChatAcceptsMaximumLength(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()
	cs := f.store.addSession(userId)
	message := strings.Repeat("ğ", constant.MaxChatMessageLength)

	var out collector
	require.NoError(t, f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: message}, out.emit))
	assert.Equal(t, message, f.store.messagesOf(cs.Id)[0].Content)
}

func TestStreamChatWithoutModelProvider(t *testing.T) {
	f := newChatFixture(t)
	svc := f.build(nil)
	userId := uuid.New()
	cs := f.store.addSession(userId)

	var out collector
	err := svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: "soru"}, out.emit)
	require.ErrorIs(t, err, apperror.ErrConfiguration)
	assert.Empty(t, f.store.messages)

	_, err = svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{Message: "soru"})
	assert.ErrorIs(t, err, apperror.ErrConfiguration)
}

func TestCreateSessionEnqueuesTitleJobAndResolvesAlias(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()

	res, err := f.svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{Message: "Kütüphane ne zaman açık?", ClientSessionId: "local-1"})
	require.NoError(t, err)

	assert.Equal(t, constant.ChatSessionPlaceholderTitle, res.Title)
	assert.Equal(t, "local-1", res.ClientSessionId)
	assert.True(t, res.IsGeneratingTitle)
	assert.True(t, f.jobs.IsPending(res.Id))

	require.Len(t, f.queue.payloads, 1)
	var job dto.PublishTitleJobMessage
	require.NoError(t, json.Unmarshal(f.queue.payloads[0], &job))
	assert.Equal(t, dto.PublishTitleJobMessage{SessionId: res.Id, UserId: userId, Message: "Kütüphane ne zaman açık?"}, job)

	// A send racing the client side id swap still lands in the new session
	var out collector
	require.NoError(t, f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: "local-1", Message: "Kütüphane ne zaman açık?"}, out.emit))
	assert.Len(t, f.store.messagesOf(res.Id), 2)

	// Aliases belong to the user that created them
	err = f.svc.StreamChat(context.Background(), uuid.New(), &dto.SendChatRequest{SessionId: "local-1", Message: "x"}, out.emit)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCreateSessionQueueFailure(t *testing.T) {
	f := newChatFixture(t)
	f.queue.err = errors.New("closed")

	res, err := f.svc.CreateSession(context.Background(), uuid.New(), &dto.CreateSessionRequest{Message: "soru"})
	require.NoError(t, err)
	assert.False(t, res.IsGeneratingTitle)
	assert.False(t, f.jobs.IsPending(res.Id))
	assert.NotNil(t, f.store.session(res.Id))
}

func TestGetAllSessionsNewestFirst(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()
	older := f.store.addSession(userId)
	newer := f.store.addSession(userId)
	f.store.addSession(uuid.New())

	later := time.Now().Add(time.Minute)
	f.store.sessions[newer.Id].UpdatedAt = &later
	f.jobs.MarkPending(newer.Id)

	res, err := f.svc.GetAllSessions(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, newer.Id, res[0].Id)
	assert.True(t, res[0].IsGeneratingTitle)
	assert.Equal(t, older.Id, res[1].Id)
	assert.False(t, res[1].IsGeneratingTitle)
}

func TestRenameSession(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()
	cs := f.store.addSession(userId)
	f.jobs.MarkPending(cs.Id)

	_, err := f.svc.RenameSession(context.Background(), userId, cs.Id, &dto.RenameSessionRequest{Title: "  "})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.RenameSession(context.Background(), uuid.New(), cs.Id, &dto.RenameSessionRequest{Title: "Başka"})
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)

	res, err := f.svc.RenameSession(context.Background(), userId, cs.Id, &dto.RenameSessionRequest{Title: " Sınav Takvimi "})
	require.NoError(t, err)
	assert.Equal(t, "Sınav Takvimi", res.Title)
	assert.Equal(t, "Sınav Takvimi", f.store.session(cs.Id).Title)
	assert.False(t, f.jobs.IsPending(cs.Id))
}

func TestDeleteSession(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()
	cs := f.store.addSession(userId)

	var out collector
	require.NoError(t, f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: "soru"}, out.emit))

	history, err := f.svc.GetChatHistory(context.Background(), userId, cs.Id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, history[0].Role)

	assert.ErrorIs(t, f.svc.DeleteSession(context.Background(), uuid.New(), cs.Id), apperror.ErrSessionNotFound)
	require.NoError(t, f.svc.DeleteSession(context.Background(), userId, cs.Id))

	assert.Nil(t, f.store.session(cs.Id))
	assert.Empty(t, f.store.messagesOf(cs.Id))

	// The ownership cache must not outlive the session
	_, err = f.svc.GetChatHistory(context.Background(), userId, cs.Id)
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
}

func TestStreamChatIntoSessionDeletedElsewhere(t *testing.T) {
	f := newChatFixture(t)
	userId := uuid.New()
	cs := f.store.addSession(userId)

	// First send fills the ownership cache
	var out collector
	require.NoError(t, f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: "ilk soru"}, out.emit))
	require.Len(t, f.store.messagesOf(cs.Id), 2)

	// Another instance soft deletes the session; the cache here still says it is owned
	f.store.softDelete(cs.Id)

	var again collector
	err := f.svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{SessionId: cs.Id.String(), Message: "ikinci soru"}, again.emit)
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
	assert.Empty(t, again.chunks)
	assert.Len(t, f.store.messagesOf(cs.Id), 2)

	_, err = f.svc.GetChatHistory(context.Background(), userId, cs.Id)
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
}

func TestGenerateTitle(t *testing.T) {
	f := newChatFixture(t)
	f.llm.titleReply = `"Okul Kütüphanesi Çalışma Saatleri Hakkında Bilgi"`

	res, err := f.svc.GenerateTitle(context.Background(), &dto.GenerateTitleRequest{Message: "Kütüphane ne zaman açık?"})
	require.NoError(t, err)
	assert.Equal(t, "Okul Kütüphanesi Çalışma Saatleri Hakkında", res.Title)

	f.llm.titleErr = errors.New("boom")
	_, err = f.svc.GenerateTitle(context.Background(), &dto.GenerateTitleRequest{Message: "x"})
	assert.Error(t, err)
}
