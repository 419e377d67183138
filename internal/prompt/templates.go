package prompt

import (
	"strings"

	"github.com/bimmerbailey/advisor/internal/llm"
)

// Build constructs the []llm.Message slice for one chat request.
//
// The returned slice always begins with a system message built from
// opts.Language and opts.Verbosity, followed by opts.History in order, and
// ends with the user message. When opts.Context is non-empty it is appended
// to the user message under a "Context:" heading.
//
// Returns ErrMissingField if opts.Question is empty.
func Build(opts BuildOptions) ([]llm.Message, error) {
	if strings.TrimSpace(opts.Question) == "" {
		return nil, missingField("Question")
	}

	messages := make([]llm.Message, 0, len(opts.History)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: SystemPrompt(opts.Language, opts.Verbosity),
	})
	messages = append(messages, opts.History...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: UserMessage(opts.Question, opts.Context),
	})

	return messages, nil
}

// UserMessage returns the outgoing user-turn content.
func UserMessage(question, context string) string {
	context = strings.TrimSpace(context)
	if context == "" {
		return question
	}

	var sb strings.Builder
	sb.WriteString(question)
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(context)
	return sb.String()
}
