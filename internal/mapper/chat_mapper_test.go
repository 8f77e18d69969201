package mapper

import (
	"testing"
	"time"

	"skalgpt-be/internal/entity"
	"skalgpt-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestChatSessionSoftDeleteMapping(t *testing.T) {
	m := NewChatMapper()
	deletedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	e := m.ChatSessionToEntity(&model.ChatSession{
		Id:        uuid.New(),
		Title:     "Fizik ödevi",
		DeletedAt: gorm.DeletedAt{Time: deletedAt, Valid: true},
	})
	assert.True(t, e.IsDeleted)
	assert.Equal(t, deletedAt, *e.DeletedAt)
	assert.Nil(t, e.UpdatedAt)

	back := m.ChatSessionToModel(&entity.ChatSession{IsDeleted: true})
	assert.True(t, back.DeletedAt.Valid)

	live := m.ChatSessionToModel(&entity.ChatSession{})
	assert.False(t, live.DeletedAt.Valid)
}

func TestChatMessageMappingKeepsContentAndOwner(t *testing.T) {
	m := NewChatMapper()
	msg := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: uuid.New(),
		UserId:        uuid.New(),
		Role:          "assistant",
		Content:       "Merhaba 👋",
	}

	got := m.ChatMessageToEntity(m.ChatMessageToModel(msg))

	assert.Equal(t, msg.Content, got.Content)
	assert.Equal(t, msg.UserId, got.UserId)
	assert.Equal(t, msg.ChatSessionId, got.ChatSessionId)
	assert.Nil(t, m.ChatMessageToEntity(nil))
}

func TestDocumentChunkMetadata(t *testing.T) {
	m := NewDocumentChunkMapper()

	e := m.ToEntity(&model.DocumentChunk{Content: "x", Metadata: datatypes.JSON(`{"source":"yonetmelik.pdf"}`)})
	assert.Equal(t, "yonetmelik.pdf", e.Metadata["source"])

	broken := m.ToEntity(&model.DocumentChunk{Content: "x", Metadata: datatypes.JSON(`{not json`)})
	assert.Nil(t, broken.Metadata)
}
