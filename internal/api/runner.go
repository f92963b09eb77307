// Package api exposes the research agent over HTTP: gin handlers backed
// by a Runner that starts/tracks agent runs, a sessionstore for
// durability, and an optional vectorstore for cross-session similarity.
// Grounded on the teacher's internal/api package (gin.Engine wiring,
// AuthMiddleware-gated routes, a websocket handler per live resource)
// generalized from chat sessions to research sessions.
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-deep-research/internal/agent"
	"go-deep-research/internal/interaction"
	"go-deep-research/internal/reference"
	"go-deep-research/internal/sessionstore"
	"go-deep-research/internal/types"
	"go-deep-research/internal/vectorstore"
)

// DepsFactory builds a fresh set of agent dependencies for one research
// question. cmd/research-server supplies this from its wired
// llmclient/searchclient/reader/persona/etc. singletons so every run
// shares rate limiters and caches instead of reallocating them per
// request.
type DepsFactory func(question string) agent.Dependencies

// Runner tracks every agent run live in this process, alongside the
// durable sessionstore record for each.
type Runner struct {
	store       sessionstore.Store
	vectors     *vectorstore.Store
	embedder    reference.Embedder
	newDeps     DepsFactory
	agentConfig agent.Config

	mu     sync.Mutex
	active map[string]*runningSession
}

type runningSession struct {
	agent *agent.Agent
	hub   *interaction.Hub
}

// NewRunner builds a Runner. vectors and embedder may both be nil when no
// Qdrant endpoint is configured, in which case similarity search is
// simply unavailable.
func NewRunner(store sessionstore.Store, vectors *vectorstore.Store, embedder reference.Embedder, newDeps DepsFactory, cfg agent.Config) *Runner {
	return &Runner{
		store:       store,
		vectors:     vectors,
		embedder:    embedder,
		newDeps:     newDeps,
		agentConfig: cfg,
		active:      make(map[string]*runningSession),
	}
}

// Start creates a new research session for question, persists it, and
// drives it to completion in a background goroutine. It returns the
// session ID immediately.
func (r *Runner) Start(ctx context.Context, question string) (string, error) {
	id := uuid.NewString()
	if err := r.store.Create(ctx, id, question); err != nil {
		return "", fmt.Errorf("api: create session: %w", err)
	}

	deps := r.newDeps(question)
	hub := deps.Hub
	if hub == nil {
		hub = interaction.New(interaction.DefaultQueueCapacity)
		deps.Hub = hub
	}
	ag := agent.New(question, deps, r.agentConfig)

	r.mu.Lock()
	r.active[id] = &runningSession{agent: ag, hub: hub}
	r.mu.Unlock()

	runCtx := context.Background()
	go r.drive(runCtx, id, question, ag, deps)

	return id, nil
}

// drive runs the agent loop to completion, persisting progress
// periodically and the final outcome once the run reaches a terminal
// state. Grounded on the teacher's ws_chat_handler.go pattern of a
// background goroutine streaming state into storage while serving reads
// from memory.
func (r *Runner) drive(ctx context.Context, id, question string, ag *agent.Agent, deps agent.Dependencies) {
	stopProgress := make(chan struct{})
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.persistProgress(ctx, id, ag)
			case <-stopProgress:
				return
			}
		}
	}()

	final := ag.Run(ctx)
	close(stopProgress)
	<-progressDone

	tokensUsed := uint64(0)
	if deps.Tracker != nil {
		tokensUsed = deps.Tracker.Used()
	}

	switch final.Kind {
	case types.StateCompleted:
		_ = r.store.Complete(ctx, id, final.Answer, final.References, tokensUsed)
		if r.vectors != nil && deps.RefEmbedder != nil {
			r.indexCompletedSession(ctx, id, question, final, deps)
		}
	case types.StateFailed:
		_ = r.store.Fail(ctx, id, final.Reason)
	}

	r.mu.Lock()
	delete(r.active, id)
	r.mu.Unlock()
}

// indexCompletedSession embeds the finished question+answer pair and
// upserts it into the vectorstore so future sessions can be compared
// against it. Indexing failures are logged, not fatal — similarity
// search is a best-effort convenience, not load-bearing for the answer
// itself.
func (r *Runner) indexCompletedSession(ctx context.Context, id, question string, final types.AgentState, deps agent.Dependencies) {
	vecs, err := deps.RefEmbedder.EmbedBatch(ctx, []string{question + "\n\n" + final.Answer})
	if err != nil || len(vecs) == 0 {
		log.Printf("[api] embedding session %s for vectorstore: %v", id, err)
		return
	}
	if _, err := r.vectors.UpsertSession(ctx, id, question, final.Answer, vecs[0]); err != nil {
		log.Printf("[api] indexing session %s in vectorstore: %v", id, err)
	}
}

func (r *Runner) persistProgress(ctx context.Context, id string, ag *agent.Agent) {
	state := ag.State()
	diary := ag.Diary()

	switch state.Kind {
	case types.StateInputRequired:
		_ = r.store.AwaitingInput(ctx, id)
	default:
		_ = r.store.UpdateProgress(ctx, id, diary, 0)
	}
}

// Get returns the durable session record.
func (r *Runner) Get(ctx context.Context, id string) (sessionstore.Session, error) {
	return r.store.Get(ctx, id)
}

// List returns up to limit sessions, most recent first.
func (r *Runner) List(ctx context.Context, limit int) ([]sessionstore.Session, error) {
	return r.store.List(ctx, limit)
}

// Respond delivers a user's answer to a blocking question raised by the
// live agent for id. Only works while the originating process is still
// running that session — there is no cross-process hub handoff.
func (r *Runner) Respond(id, questionID, answer string) error {
	r.mu.Lock()
	rs, ok := r.active[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("api: no live session %q to respond to", id)
	}
	return rs.hub.Respond(types.UserResponse{QuestionID: questionID, Answer: answer})
}

// Diary returns a live snapshot of id's diary, for the websocket streamer.
func (r *Runner) Diary(id string) ([]types.DiaryEntry, bool) {
	r.mu.Lock()
	rs, ok := r.active[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return rs.agent.Diary(), true
}

// SearchSimilar embeds id's question+answer and returns the closest
// sessions previously indexed in the vectorstore, excluding id itself.
// Returns an error if no vectorstore/embedder is configured.
func (r *Runner) SearchSimilar(ctx context.Context, id string, limit uint64) ([]vectorstore.Match, error) {
	if r.vectors == nil || r.embedder == nil {
		return nil, fmt.Errorf("api: similarity search is not configured")
	}

	session, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	vecs, err := r.embedder.EmbedBatch(ctx, []string{session.Question + "\n\n" + session.Answer})
	if err != nil || len(vecs) == 0 {
		return nil, fmt.Errorf("api: embedding session %s: %w", id, err)
	}

	matches, err := r.vectors.SearchSimilar(ctx, vecs[0], limit+1)
	if err != nil {
		return nil, err
	}

	out := make([]vectorstore.Match, 0, len(matches))
	for _, m := range matches {
		if m.SessionID == id {
			continue
		}
		out = append(out, m)
		if uint64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

// State returns the live agent state for id, if the session is active in
// this process.
func (r *Runner) State(id string) (types.AgentState, bool) {
	r.mu.Lock()
	rs, ok := r.active[id]
	r.mu.Unlock()
	if !ok {
		return types.AgentState{}, false
	}
	return rs.agent.State(), true
}
