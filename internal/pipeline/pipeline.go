// Package pipeline runs one chat turn end to end: load session history,
// reformulate the question, retrieve supporting passages, synthesize a
// grounded answer, and append the turn to the session log.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/models"
)

// Store is the persistence the pipeline needs for a turn.
type Store interface {
	GetHistory(ctx context.Context, sessionID string) ([]models.Message, error)
	AppendLog(ctx context.Context, sessionID, userQuery, response string, model models.ModelName) (int64, error)
}

// Retriever returns the top-k passages for a standalone question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.Passage, error)
}

// Answer is the result of one pipeline turn.
type Answer struct {
	Answer    string
	SessionID string
	Model     models.ModelName
}

// Orchestrator wires the pipeline stages together. Construct with New and
// share across requests; all fields are read-only after construction.
type Orchestrator struct {
	store        Store
	retriever    Retriever
	reformulator *Reformulator
	synthesizer  *Synthesizer
	locker       Locker
	topK         int
	logger       *log.Logger

	// OnAppendFailure is invoked when a turn's answer was produced but the
	// log append failed. Used to feed a metrics counter.
	OnAppendFailure func()
}

func New(store Store, retriever Retriever, reformulator *Reformulator, synthesizer *Synthesizer, locker Locker, topK int, logger *log.Logger) *Orchestrator {
	if topK <= 0 {
		topK = 2
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		store:        store,
		retriever:    retriever,
		reformulator: reformulator,
		synthesizer:  synthesizer,
		locker:       locker,
		topK:         topK,
		logger:       logger,
	}
}

// Answer runs one turn. An empty session id starts a fresh session; the
// generated id is returned so the client can continue the conversation.
//
// The turn is logged only after the answer is produced, so a failed
// completion leaves no trace in the session history. A failed append, on the
// other hand, does not discard a perfectly good answer: it is returned to the
// caller and the append failure is logged and counted.
func (o *Orchestrator) Answer(ctx context.Context, sessionID, question string, model models.ModelName) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	if model == "" {
		model = models.DefaultModel
	}
	if !model.Valid() {
		return Answer{}, fmt.Errorf("%w: %s", models.ErrUnsupportedModel, model)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock, err := o.locker.Lock(ctx, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return Answer{}, ctx.Err()
		}
		// The lock only serializes concurrent turns of one session; losing
		// it degrades ordering, not correctness.
		o.logger.Printf("[ORCH] session %s: lock unavailable, proceeding unserialized: %v", sessionID, err)
	} else {
		defer unlock()
	}

	history, err := o.store.GetHistory(ctx, sessionID)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: load history: %v", ErrStorage, err)
	}

	standalone, err := o.reformulator.Reformulate(ctx, history, question)
	if err != nil {
		return Answer{}, err
	}

	passages, err := o.retriever.Retrieve(ctx, standalone, o.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	answer, err := o.synthesizer.Synthesize(ctx, sessionID, model, passages, history, question)
	if err != nil {
		return Answer{}, err
	}

	if ctx.Err() != nil {
		// The caller is gone; do not record a turn nobody received.
		return Answer{}, ctx.Err()
	}

	if _, err := o.store.AppendLog(ctx, sessionID, question, answer, model); err != nil {
		o.logger.Printf("[ORCH] session %s: answer produced but log append failed: %v", sessionID, err)
		if o.OnAppendFailure != nil {
			o.OnAppendFailure()
		}
	}

	return Answer{Answer: answer, SessionID: sessionID, Model: model}, nil
}
