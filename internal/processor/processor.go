package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/lingo/internal/conversation"
	"github.com/MikeSquared-Agency/lingo/internal/hermes"
	"github.com/MikeSquared-Agency/lingo/internal/summarize"
)

const (
	noHistorySummary = "No conversation history found to summarize."
	sessionTimeout   = 2 * time.Minute

	// closedSessionWorkers bounds concurrent summaries started from NATS.
	closedSessionWorkers = 4
)

type Store interface {
	ListTurns(ctx context.Context, sessionID string) ([]conversation.Turn, error)
	UpsertSummary(ctx context.Context, sessionID, text string, actions json.RawMessage) error
}

type Summarizer interface {
	Summarize(ctx context.Context, sessionID string, turns []conversation.Turn) (*summarize.Result, error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Pipeline turns a stored session into a persisted summary. It backs both
// the summarize HTTP route and the session-closed NATS handler.
type Pipeline struct {
	store      Store
	summarizer Summarizer
	hermes     Publisher
	logger     *slog.Logger
	now        func() time.Time

	slots chan struct{}
	wg    sync.WaitGroup
}

// New returns a Pipeline. pub may be nil.
func New(store Store, summarizer Summarizer, pub Publisher, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		summarizer: summarizer,
		hermes:     pub,
		logger:     logger,
		now:        time.Now,
		slots:      make(chan struct{}, closedSessionWorkers),
	}
}

// SummarizeSession loads the session's turns, summarizes them and upserts
// the result. A failed save is logged and the summary is still returned.
func (p *Pipeline) SummarizeSession(ctx context.Context, sessionID string) (*summarize.Result, error) {
	turns, err := p.store.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	if len(turns) == 0 {
		return &summarize.Result{Summary: noHistorySummary, Actions: []any{}}, nil
	}

	result, err := p.summarizer.Summarize(ctx, sessionID, turns)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	if err := p.store.UpsertSummary(ctx, sessionID, result.Summary, result.ActionsJSON()); err != nil {
		p.logger.Error("failed to save summary", "session_id", sessionID, "error", err)
		return result, nil
	}
	p.logger.Info("summary saved", "session_id", sessionID, "actions", len(result.Actions))

	if p.hermes != nil {
		if err := p.hermes.Publish(hermes.SubjectSummaryCreated, hermes.SummaryCreatedEvent{
			EventID:     uuid.NewString(),
			SessionID:   sessionID,
			ActionCount: len(result.Actions),
			Timestamp:   p.now().UTC(),
		}); err != nil {
			p.logger.Warn("failed to publish summary created", "session_id", sessionID, "error", err)
		}
	}
	return result, nil
}

// HandleSessionClosed is the NATS handler for lingo.session.closed. The
// summary runs on a worker so the subscription keeps delivering; once every
// worker is busy the handler blocks until one frees up.
func (p *Pipeline) HandleSessionClosed(subject string, data []byte) {
	var evt hermes.SessionClosedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse session closed event", "subject", subject, "error", err)
		return
	}
	if evt.SessionID == "" {
		p.logger.Warn("session closed event without session_id", "subject", subject)
		return
	}

	p.slots <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.slots
			p.wg.Done()
		}()
		p.summarizeClosed(evt.SessionID)
	}()
}

func (p *Pipeline) summarizeClosed(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
	defer cancel()

	p.logger.Info("summarizing closed session", "session_id", sessionID)
	if _, err := p.SummarizeSession(ctx, sessionID); err != nil {
		p.logger.Error("session summarization failed", "session_id", sessionID, "error", err)
	}
}

// Wait blocks until every summary started by HandleSessionClosed is done.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
