package prompt

import (
	"fmt"
	"strings"

	"skalgpt-be/internal/constant"
	"skalgpt-be/pkg/llm"
)

// Persona holds the school specific values rendered into the system prompt.
type Persona struct {
	Name          string
	School        string
	SupportEmail  string
	RetentionDays int
}

// BuildSystemPrompt renders the persona. The additional data section is only
// emitted when context has content.
func BuildSystemPrompt(persona Persona, context string) string {
	var prompt strings.Builder

	writePersona(&prompt, persona)
	writeAdditionalData(&prompt, context)

	return prompt.String()
}

func writePersona(prompt *strings.Builder, persona Persona) {
	fmt.Fprintf(prompt, constant.PersonaTemplate,
		persona.Name,
		persona.School,
		persona.RetentionDays,
		persona.SupportEmail,
	)
}

func writeAdditionalData(prompt *strings.Builder, context string) {
	if strings.TrimSpace(context) == "" {
		return
	}
	fmt.Fprintf(prompt, constant.PersonaAdditionalDataTemplate, context)
}

// ComposePrompt lays out the turns sent to the model:
//
//	user:  adopt-persona instruction
//	model: acknowledgement + system prompt
//	...history
//	user:  query
//
// The priming pair is synthetic and must never be persisted.
func ComposePrompt(persona Persona, history []llm.Message, context, query string) []llm.Message {
	turns := make([]llm.Message, 0, len(history)+3)
	turns = append(turns,
		llm.Message{Role: constant.ModelTurnUser, Content: constant.PrimingUserInstruction},
		llm.Message{Role: constant.ModelTurnModel, Content: constant.PrimingModelAckPrefix + BuildSystemPrompt(persona, context)},
	)
	turns = append(turns, history...)
	turns = append(turns, llm.Message{Role: constant.ModelTurnUser, Content: query})
	return turns
}
