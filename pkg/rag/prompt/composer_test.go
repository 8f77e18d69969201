package prompt

import (
	"strings"
	"testing"

	"skalgpt-be/internal/constant"
	"skalgpt-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPersona = Persona{
	Name:          "SkalGPT",
	School:        "Sezai Karakoç Anadolu Lisesi",
	SupportEmail:  "destek@example.org",
	RetentionDays: 30,
}

func TestBuildSystemPromptRendersPersona(t *testing.T) {
	out := BuildSystemPrompt(testPersona, "")

	assert.Contains(t, out, "Ad: SkalGPT")
	assert.Contains(t, out, "Sezai Karakoç Anadolu Lisesi öğrencileri")
	assert.Contains(t, out, "en fazla 30 gün")
	assert.Contains(t, out, "destek@example.org")
	assert.NotContains(t, out, "%!")
}

func TestBuildSystemPromptOmitsAdditionalDataWhenEmpty(t *testing.T) {
	assert.NotContains(t, BuildSystemPrompt(testPersona, ""), "Ek Bilgiler")
	assert.NotContains(t, BuildSystemPrompt(testPersona, "  \n"), "Ek Bilgiler")

	withContext := BuildSystemPrompt(testPersona, "Okul 08:30'da başlar.")
	assert.Contains(t, withContext, "Ek Bilgiler")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(withContext), "Okul 08:30'da başlar."))
}

func TestComposePromptOrder(t *testing.T) {
	history := []llm.Message{
		{Role: "user", Content: "merhaba"},
		{Role: "model", Content: "selam"},
	}

	turns := ComposePrompt(testPersona, history, "bağlam", "sınav ne zaman?")

	require.Len(t, turns, 5)
	assert.Equal(t, llm.Message{Role: "user", Content: constant.PrimingUserInstruction}, turns[0])
	assert.Equal(t, "model", turns[1].Role)
	assert.True(t, strings.HasPrefix(turns[1].Content, constant.PrimingModelAckPrefix))
	assert.Contains(t, turns[1].Content, "bağlam")
	assert.Equal(t, history, turns[2:4])
	assert.Equal(t, llm.Message{Role: "user", Content: "sınav ne zaman?"}, turns[4])
}

func TestComposePromptIsPure(t *testing.T) {
	history := []llm.Message{{Role: "user", Content: "a"}}

	first := ComposePrompt(testPersona, history, "c", "q")
	second := ComposePrompt(testPersona, history, "c", "q")

	assert.Equal(t, first, second)
	assert.Equal(t, []llm.Message{{Role: "user", Content: "a"}}, history)
}

func TestComposePromptEmptyHistory(t *testing.T) {
	turns := ComposePrompt(testPersona, nil, "", "q")
	require.Len(t, turns, 3)
	assert.Equal(t, "q", turns[2].Content)
}
