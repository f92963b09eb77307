// Package vectorstore persists answer embeddings into Qdrant so
// cmd/research-server can answer "has something like this already been
// researched?" across sessions — a capability the single-run agent loop
// has no way to offer on its own. Grounded on the retrieval pack's Qdrant
// adapter (Shreyash019-personal-agentic-assistant's internal/vector
// package) generalized from its REST client onto the teacher's actual
// go.mod dependency, github.com/qdrant/go-client, since that is the
// client this module's dependency set commits to.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Match is one prior research answer found to be similar to a new
// question's embedding.
type Match struct {
	ID         string
	Score      float32
	SessionID  string
	Question   string
	Answer     string
}

// Store wraps a Qdrant collection holding one point per completed research
// session, keyed by the embedding of its question.
type Store struct {
	client     *qdrant.Client
	collection string
}

// NewStore connects to Qdrant at host:port and ensures collection exists
// with the given vector dimensionality, cosine-distance indexed — mirrors
// the teacher's GrowerAIConfig.Qdrant settings, generalized from memory
// embeddings to research-answer embeddings.
func NewStore(ctx context.Context, host string, port int, apiKey, collection string, vectorSize uint64) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: connect: %w", err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: collection exists check: %w", err)
	}
	if !exists {
		if err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     vectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return nil, fmt.Errorf("vectorstore: create collection: %w", err)
		}
	}

	return &Store{client: client, collection: collection}, nil
}

// UpsertSession stores one completed session's question/answer embedding,
// returning the generated point ID.
func (s *Store) UpsertSession(ctx context.Context, sessionID, question, answer string, vector []float32) (string, error) {
	id := uuid.New().String()
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"session_id": sessionID,
					"question":   question,
					"answer":     answer,
				}),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("vectorstore: upsert: %w", err)
	}
	return id, nil
}

// SearchSimilar returns up to limit prior sessions whose question
// embedding is closest to vector.
func (s *Store) SearchSimilar(ctx context.Context, vector []float32, limit uint64) ([]Match, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}

	out := make([]Match, 0, len(points))
	for _, p := range points {
		m := Match{Score: p.GetScore()}
		if id := p.GetId(); id != nil {
			m.ID = id.GetUuid()
		}
		payload := p.GetPayload()
		if v, ok := payload["session_id"]; ok {
			m.SessionID = v.GetStringValue()
		}
		if v, ok := payload["question"]; ok {
			m.Question = v.GetStringValue()
		}
		if v, ok := payload["answer"]; ok {
			m.Answer = v.GetStringValue()
		}
		out = append(out, m)
	}
	return out, nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}
