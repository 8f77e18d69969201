package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"skalgpt-be/internal/constant"
	"skalgpt-be/internal/entity"
	"skalgpt-be/internal/pkg/apperror"
	"skalgpt-be/internal/repository/contract"
	"skalgpt-be/internal/repository/specification"
	"skalgpt-be/internal/repository/unitofwork"
	"skalgpt-be/pkg/embedding"
	"skalgpt-be/pkg/events"
	"skalgpt-be/pkg/llm"
	"skalgpt-be/pkg/store"

	"github.com/google/uuid"
)

// memStore backs the fake repositories. Messages keep insertion order.
// Deleted sessions stay in the map, like soft-deleted rows.
type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.ChatSession
	deleted  map[uuid.UUID]bool
	messages []*entity.ChatMessage
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[uuid.UUID]*entity.ChatSession), deleted: make(map[uuid.UUID]bool)}
}

func (s *memStore) softDelete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[id] = true
}

func (s *memStore) addSession(userId uuid.UUID) *entity.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	cs := &entity.ChatSession{Id: uuid.New(), UserId: userId, Title: constant.ChatSessionPlaceholderTitle, CreatedAt: now, UpdatedAt: &now}
	s.sessions[cs.Id] = cs
	return cs
}

func (s *memStore) session(id uuid.UUID) *entity.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted[id] {
		return nil
	}
	return s.sessions[id]
}

func (s *memStore) messagesOf(sessionId uuid.UUID) []*entity.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.ChatMessage
	for _, m := range s.messages {
		if m.ChatSessionId == sessionId {
			out = append(out, m)
		}
	}
	return out
}

type filter struct {
	id      *uuid.UUID
	userId  *uuid.UUID
	session *uuid.UUID
	order   *specification.OrderBy
	limit   int
}

func readSpecs(specs []specification.Specification) filter {
	f := filter{limit: -1}
	for _, sp := range specs {
		switch v := sp.(type) {
		case specification.ByID:
			f.id = &v.ID
		case specification.UserOwnedBy:
			f.userId = &v.UserID
		case specification.ByChatSessionID:
			f.session = &v.ChatSessionID
		case specification.OrderBy:
			f.order = &v
		case specification.Pagination:
			if v.Limit > 0 {
				f.limit = v.Limit
			}
		}
	}
	return f
}

type fakeSessions struct {
	contract.ChatSessionRepository
	store *memStore
}

func (r *fakeSessions) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *session
	r.store.sessions[session.Id] = &cp
	return nil
}

func (r *fakeSessions) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if cs, ok := r.store.sessions[id]; ok {
		cs.Title = title
	}
	return nil
}

func (r *fakeSessions) Touch(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cs, ok := r.store.sessions[id]
	if !ok || r.store.deleted[id] {
		return apperror.ErrSessionNotFound
	}
	now := time.Now()
	cs.UpdatedAt = &now
	return nil
}

func (r *fakeSessions) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.deleted[id] = true
	return nil
}

func (r *fakeSessions) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeSessions) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	f := readSpecs(specs)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.ChatSession
	for _, cs := range r.store.sessions {
		if r.store.deleted[cs.Id] {
			continue
		}
		if f.id != nil && cs.Id != *f.id {
			continue
		}
		if f.userId != nil && cs.UserId != *f.userId {
			continue
		}
		cp := *cs
		out = append(out, &cp)
	}
	if f.order != nil && f.order.Field == "updated_at" {
		sort.Slice(out, func(i, j int) bool {
			if f.order.Desc {
				return out[i].UpdatedAt.After(*out[j].UpdatedAt)
			}
			return out[i].UpdatedAt.Before(*out[j].UpdatedAt)
		})
	}
	return out, nil
}

type fakeMessages struct {
	contract.ChatMessageRepository
	store *memStore
}

func (r *fakeMessages) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	// Foreign key semantics: soft-deleted sessions still count
	if _, ok := r.store.sessions[message.ChatSessionId]; !ok {
		return apperror.ErrSessionNotFound
	}
	cp := *message
	r.store.messages = append(r.store.messages, &cp)
	return nil
}

func (r *fakeMessages) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
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

func (r *fakeMessages) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	f := readSpecs(specs)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.ChatMessage
	for _, m := range r.store.messages {
		if f.session != nil && m.ChatSessionId != *f.session {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	if f.order != nil && f.order.Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if f.limit >= 0 && len(out) > f.limit {
		out = out[:f.limit]
	}
	return out, nil
}

type fakeUow struct {
	unitofwork.UnitOfWork
	store *memStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessions{store: u.store}
}

func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessages{store: u.store}
}

type fakeFactory struct{ store *memStore }

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

// fakeStream replays chunks, then returns err (io.EOF when nil).
type fakeStream struct {
	chunks [][]byte
	err    error
	i      int
}

func (s *fakeStream) Recv() ([]byte, error) {
	if s.i < len(s.chunks) {
		s.i++
		return s.chunks[s.i-1], nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

func (s *fakeStream) Close() error { return nil }

// fakeLLM answers rerank prompts, title prompts and chat streams.
type fakeLLM struct {
	mu sync.Mutex

	rerankReply string
	rerankErr   error
	titleReply  string
	titleErr    error
	chunks      []string
	streamErr   error

	lastTurns []llm.Message
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	if strings.Contains(prompt, constant.RerankDelimiter) {
		return f.rerankReply, f.rerankErr
	}
	return f.titleReply, f.titleErr
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (llm.Stream, error) {
	f.mu.Lock()
	f.lastTurns = history
	f.mu.Unlock()

	s := &fakeStream{err: f.streamErr}
	for _, c := range f.chunks {
		s.chunks = append(s.chunks, []byte(c))
	}
	return s, nil
}

func (f *fakeLLM) turns() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastTurns
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0, 0}}}, nil
}

type fakePassages struct {
	passages []store.Passage
	err      error
}

func (f *fakePassages) SearchSimilar(ctx context.Context, vector []float32, k int) ([]store.Passage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.passages) > k {
		return f.passages[:k], nil
	}
	return f.passages, nil
}

type fakeTitleQueue struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (f *fakeTitleQueue) Publish(ctx context.Context, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeEvents) Publish(ctx context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEvents) all() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.Event(nil), f.events...)
}

type delivered struct {
	userID    uuid.UUID
	eventType string
	data      interface{}
}

type fakeDelivery struct {
	mu   sync.Mutex
	sent []delivered
}

func (f *fakeDelivery) Send(userID uuid.UUID, eventType string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, delivered{userID: userID, eventType: eventType, data: data})
}

func (f *fakeDelivery) all() []delivered {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delivered(nil), f.sent...)
}
