package pipeline

import (
	"context"
	"fmt"

	"github.com/docuchat/docuchat/models"
)

// Completer is the completion capability the pipeline depends on.
type Completer interface {
	ChatCompletion(ctx context.Context, model string, messages []models.Message) (string, error)
}

// Reformulator rewrites a follow-up question into a standalone one using the
// chat history, so the retriever sees a self-contained query.
type Reformulator struct {
	llm   Completer
	model string
}

func NewReformulator(llm Completer, model string) *Reformulator {
	return &Reformulator{llm: llm, model: model}
}

// Reformulate returns a standalone version of question. With no history there
// is nothing to resolve, so the question is returned as-is without calling the
// model.
func (r *Reformulator) Reformulate(ctx context.Context, history []models.Message, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	msgs := make([]models.Message, 0, len(history)+2)
	msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: contextualizeInstruction})
	msgs = append(msgs, history...)
	msgs = append(msgs, models.Message{Role: models.RoleHuman, Content: question})

	out, err := r.llm.ChatCompletion(ctx, r.model, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: reformulate: %v", ErrCompletion, err)
	}
	out = sanitizeCompletion(out)
	if out == "" {
		// A blank rewrite is useless; fall back to the original wording.
		return question, nil
	}
	return out, nil
}
