package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go-deep-research/internal/resilience"
	"go-deep-research/internal/types"
)

// HTTPClient is the concrete Client implementation, adapted from the
// teacher's queue-backed llm.Client into a direct HTTP caller guarded by a
// circuit breaker, since this runtime has no multi-tenant queue to
// arbitrate between requests. Failed calls, rate limits included, are
// returned to the caller without a retry.
type HTTPClient struct {
	cfg    Config
	http   *http.Client
	cb     *resilience.CircuitBreaker
	tokens atomic.Uint64
}

// NewHTTPClient builds an HTTPClient for cfg.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.EmbeddingBaseURL == "" {
		cfg.EmbeddingBaseURL = cfg.APIBaseURL
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
		cb:   resilience.NewCircuitBreaker(5, 30*time.Second),
	}
}

func (c *HTTPClient) TokensUsed() uint64 { return c.tokens.Load() }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// chat issues a single chat-completion call and returns the first choice's
// content plus token usage. Wrapped in the circuit breaker; no caller in
// this module wraps it in resilience.RetryWithBackoff, so a failed call is
// not retried.
func (c *HTTPClient) chat(ctx context.Context, system, user string, temperature float64) (string, int, int, error) {
	if temperature < 0 {
		temperature = 0
	}
	if temperature > 2 {
		temperature = 2
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	}

	var content string
	var promptTokens, completionTokens int

	err := c.cb.Call(func() error {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return newParse("failed to marshal chat request", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL(), bytes.NewReader(payload))
		if err != nil {
			return newNetwork("failed to build request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return newNetwork("chat request failed", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode == http.StatusTooManyRequests {
			return newRateLimited(fmt.Sprintf("rate limited: %s", string(body)), nil)
		}
		if resp.StatusCode != http.StatusOK {
			return newAPI(fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)), nil)
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return newParse("failed to decode chat response", err)
		}
		if len(parsed.Choices) == 0 {
			return newParse("no choices returned", nil)
		}

		content = parsed.Choices[0].Message.Content
		promptTokens = parsed.Usage.PromptTokens
		completionTokens = parsed.Usage.CompletionTokens
		return nil
	})

	if err != nil {
		return "", 0, 0, err
	}

	c.tokens.Add(uint64(promptTokens + completionTokens))
	return content, promptTokens, completionTokens, nil
}

func (c *HTTPClient) chatURL() string {
	base := strings.TrimSuffix(c.cfg.APIBaseURL, "/")
	switch c.cfg.Provider {
	case ProviderAnthropic:
		return base + "/v1/messages"
	default:
		return base + "/v1/chat/completions"
	}
}

func (c *HTTPClient) embeddingsURL() string {
	return strings.TrimSuffix(c.cfg.EmbeddingBaseURL, "/") + "/v1/embeddings"
}

// DecideAction asks the model to choose one permitted action and parses the
// JSON response into types.Action.
func (c *HTTPClient) DecideAction(ctx context.Context, prompt Prompt, perms types.ActionPermissions) (types.Action, error) {
	system := prompt.System + "\n\n" + actionInstructions(perms)
	user := prompt.Diary + "\n\n" + prompt.User

	content, _, _, err := c.chat(ctx, system, user, c.cfg.Temperature)
	if err != nil {
		return types.Action{}, err
	}

	action, err := parseAction(content)
	if err != nil {
		return types.Action{}, newParse("could not parse action from model output", err)
	}
	if !perms.Allows(action.Kind) {
		return types.Action{}, newParse(fmt.Sprintf("model chose disallowed action %q", action.Kind), nil)
	}
	return action, nil
}

// GenerateAnswer asks the model for a final answer with references.
func (c *HTTPClient) GenerateAnswer(ctx context.Context, prompt Prompt, temperature float64) (GeneratedAnswer, error) {
	system := prompt.System + "\n\nRespond with a JSON object: {\"answer\": string, \"references\": [{\"url\":string,\"title\":string,\"exact_quote\":string}]}."
	user := prompt.Diary + "\n\n" + prompt.User

	content, pt, ct, err := c.chat(ctx, system, user, temperature)
	if err != nil {
		return GeneratedAnswer{}, err
	}

	var parsed struct {
		Answer     string `json:"answer"`
		References []struct {
			URL        string `json:"url"`
			Title      string `json:"title"`
			ExactQuote string `json:"exact_quote"`
		} `json:"references"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		// Degrade gracefully: treat the whole content as the answer with
		// no references, rather than failing generation outright.
		return GeneratedAnswer{Answer: content, PromptTokens: pt, CompletionTokens: ct}, nil
	}

	refs := make([]types.Reference, 0, len(parsed.References))
	for _, r := range parsed.References {
		refs = append(refs, types.Reference{URL: r.URL, Title: r.Title, ExactQuote: r.ExactQuote})
	}

	return GeneratedAnswer{
		Answer:           parsed.Answer,
		References:       refs,
		PromptTokens:     pt,
		CompletionTokens: ct,
	}, nil
}

type embeddingRequest struct {
	Input any    `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns a single embedding for text.
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, newParse("no embedding returned", nil)
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one request, preserving order.
func (c *HTTPClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := embeddingRequest{Input: texts, Model: c.cfg.EmbeddingModel}

	var result [][]float32
	err := c.cb.Call(func() error {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return newParse("failed to marshal embedding request", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.embeddingsURL(), bytes.NewReader(payload))
		if err != nil {
			return newNetwork("failed to build embedding request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return newNetwork("embedding request failed", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusTooManyRequests {
			return newRateLimited("embedding rate limited", nil)
		}
		if resp.StatusCode != http.StatusOK {
			return newAPI(fmt.Sprintf("embedding status %d: %s", resp.StatusCode, string(body)), nil)
		}

		var parsed embeddingResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return newParse("failed to decode embedding response", err)
		}

		result = make([][]float32, len(texts))
		for _, d := range parsed.Data {
			if d.Index >= 0 && d.Index < len(result) {
				result[d.Index] = d.Embedding
			}
		}
		return nil
	})

	return result, err
}

// Evaluate judges answer against question using criteria.
func (c *HTTPClient) Evaluate(ctx context.Context, question, answer, criteria string) (EvaluateResult, error) {
	system := "You are a strict evaluator. Respond with JSON: {\"passed\": bool, \"reasoning\": string, \"confidence\": number between 0 and 1}."
	user := fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nCriteria: %s", question, answer, criteria)

	content, _, _, err := c.chat(ctx, system, user, 0.2)
	if err != nil {
		return EvaluateResult{}, err
	}

	var parsed EvaluateResult
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return EvaluateResult{}, newParse("could not parse evaluation result", err)
	}
	return parsed, nil
}

// DetermineEvalTypes asks the model which evaluation categories apply.
func (c *HTTPClient) DetermineEvalTypes(ctx context.Context, question string) ([]types.EvaluationKind, error) {
	system := "Given a question, decide which evaluation categories apply from: definitive, freshness, plurality, completeness. Respond with JSON: {\"categories\": [string]}."
	content, _, _, err := c.chat(ctx, system, question, 0.2)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return nil, newParse("could not parse eval types", err)
	}

	kinds := make([]types.EvaluationKind, 0, len(parsed.Categories)+1)
	for _, cat := range parsed.Categories {
		k := types.EvaluationKind(strings.ToLower(strings.TrimSpace(cat)))
		switch k {
		case types.EvalDefinitive, types.EvalFreshness, types.EvalPlurality, types.EvalCompleteness:
			kinds = append(kinds, k)
		}
	}
	if len(kinds) > 0 {
		kinds = append(kinds, types.EvalStrict)
	}
	return kinds, nil
}

// GenerateCode asks the model to solve problem in the target language.
func (c *HTTPClient) GenerateCode(ctx context.Context, problem, availableVarsDescription string, prior []PriorAttempt, lang Language) (CodeGenResult, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write %s code that solves the problem below. Available context variables:\n%s\n\n", lang, availableVarsDescription))
	if len(prior) > 0 {
		sb.WriteString("Prior failed attempts:\n")
		for i, p := range prior {
			sb.WriteString(fmt.Sprintf("Attempt %d code:\n%s\nError: %s\n\n", i+1, p.Code, p.Error))
		}
	}
	sb.WriteString("Respond with JSON: {\"code\": string, \"think\": string}.")

	content, _, _, err := c.chat(ctx, sb.String(), problem, 0.3)
	if err != nil {
		return CodeGenResult{}, err
	}

	var parsed CodeGenResult
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return CodeGenResult{}, newParse("could not parse generated code", err)
	}
	return parsed, nil
}
