// Package planner decomposes a research question into team_size
// orthogonal subproblems for parallel investigation, grounded on the
// original implementation's tools::research_planner module: an
// LLM-driven decomposition with a heuristic fallback, an estimated
// overlap matrix, and a coverage score.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-deep-research/internal/llmclient"
	"go-deep-research/internal/types"
)

// Config bounds the planner's team size and decomposition thresholds.
type Config struct {
	MinTeamSize        int
	MaxTeamSize        int
	Temperature        float64
	MinQuestionLength  int
}

// DefaultConfig mirrors the original implementation's PlannerConfig::default().
func DefaultConfig() Config {
	return Config{MinTeamSize: 2, MaxTeamSize: 10, Temperature: 0.7, MinQuestionLength: 20}
}

var (
	ErrQuestionTooSimple = errors.New("planner: question too simple for decomposition")
	ErrInvalidTeamSize   = errors.New("planner: invalid team size")
)

// Plan is a research decomposition: the reasoning behind it, the
// orthogonal subproblems, an estimated pairwise overlap matrix, and an
// estimated coverage score.
type Plan struct {
	Think         string      `json:"think"`
	Subproblems   []string    `json:"subproblems"`
	OverlapMatrix [][]float64 `json:"overlap_matrix,omitempty"`
	CoverageScore float64     `json:"coverage_score"`
}

// Planner breaks a complex research topic into focused subproblems for a
// team of junior researchers, LLM-first with a heuristic fallback.
type Planner struct {
	llm    llmclient.Client
	config Config
}

// New builds a Planner with default configuration.
func New(llm llmclient.Client) *Planner {
	return &Planner{llm: llm, config: DefaultConfig()}
}

// WithConfig builds a Planner with custom configuration.
func WithConfig(llm llmclient.Client, config Config) *Planner {
	return &Planner{llm: llm, config: config}
}

// PlanResearch decomposes question into teamSize orthogonal subproblems,
// returning just the subproblem strings.
func (p *Planner) PlanResearch(ctx context.Context, question string, teamSize int, soundBites string, tracker *types.TokenTracker) ([]string, error) {
	if teamSize < p.config.MinTeamSize || teamSize > p.config.MaxTeamSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTeamSize, teamSize)
	}
	if len(question) < p.config.MinQuestionLength {
		return nil, ErrQuestionTooSimple
	}

	plan, err := p.generatePlan(ctx, question, teamSize, soundBites)
	if err != nil {
		return nil, err
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	p.trackTokens(question, soundBites, plan, tracker)
	return plan.Subproblems, nil
}

// PlanResearchFull decomposes question and returns the full Plan,
// including the overlap matrix and coverage score.
func (p *Planner) PlanResearchFull(ctx context.Context, question string, teamSize int, soundBites string, tracker *types.TokenTracker) (Plan, error) {
	if teamSize < p.config.MinTeamSize || teamSize > p.config.MaxTeamSize {
		return Plan{}, fmt.Errorf("%w: %d", ErrInvalidTeamSize, teamSize)
	}

	plan, err := p.generatePlan(ctx, question, teamSize, soundBites)
	if err != nil {
		return Plan{}, err
	}

	p.trackTokens(question, soundBites, plan, tracker)
	return plan, nil
}

func (p *Planner) trackTokens(question, soundBites string, plan Plan, tracker *types.TokenTracker) {
	if tracker == nil {
		return
	}
	inputTokens := uint64((len(question) + len(soundBites)) / 4)
	var outputChars int
	for _, s := range plan.Subproblems {
		outputChars += len(s)
	}
	tracker.Add(inputTokens + uint64(outputChars/4))
}

func validatePlan(plan Plan) error {
	if len(plan.Subproblems) == 0 {
		return errors.New("planner: generated plan has no subproblems")
	}
	return nil
}

// generatePlan tries the LLM path first, falling back to heuristics on
// any failure (call error or malformed JSON).
func (p *Planner) generatePlan(ctx context.Context, question string, teamSize int, soundBites string) (Plan, error) {
	if p.llm != nil {
		if plan, err := p.generatePlanWithLLM(ctx, question, teamSize, soundBites); err == nil {
			return plan, nil
		}
	}
	return p.generatePlanHeuristic(question, teamSize, soundBites), nil
}

func (p *Planner) generatePlanWithLLM(ctx context.Context, question string, teamSize int, soundBites string) (Plan, error) {
	prompt := llmclient.Prompt{
		System: p.buildSystemPrompt(teamSize),
		User:   p.buildUserPrompt(question, soundBites),
	}

	resp, err := p.llm.GenerateAnswer(ctx, prompt, p.config.Temperature)
	if err != nil {
		return Plan{}, fmt.Errorf("planner: llm call failed: %w", err)
	}

	var plan Plan
	if err := json.Unmarshal([]byte(resp.Answer), &plan); err != nil {
		return Plan{}, fmt.Errorf("planner: failed to parse llm response: %w", err)
	}
	return plan, nil
}

func (p *Planner) buildSystemPrompt(teamSize int) string {
	now := time.Now().UTC()
	return fmt.Sprintf(`You are a Principal Research Lead managing a team of %d junior researchers. Your role is to break down a complex research topic into focused, manageable subproblems and assign them to your team members.

User gives you a research topic and some soundbites about the topic, and you follow this systematic approach:
<approach>
First, analyze the main research topic and identify:
- Core research questions that need to be answered
- Key domains/disciplines involved
- Critical dependencies between different aspects
- Potential knowledge gaps or challenges

Then decompose the topic into %d distinct, focused subproblems using these ORTHOGONALITY & DEPTH PRINCIPLES:
</approach>

<requirements>
Orthogonality Requirements:
- Each subproblem must address a fundamentally different aspect/dimension of the main topic
- Use different decomposition axes (temporal, stakeholder-based, technical, economic, etc.)
- Minimize subproblem overlap - if two subproblems share >20%% of their scope, redesign them
- Apply the substitution test: removing any single subproblem should create a significant gap

Depth Requirements:
- Each subproblem should require 15-25 hours of focused research to properly address
- Must go beyond surface-level information
- Include both "what" and "why/how" questions

Coverage Completeness: The union of all subproblems should address 90%%+ of the main topic's scope
</requirements>

The current time is %s.

Structure your response as valid JSON matching this exact schema:
{
  "think": "Your reasoning about the decomposition",
  "subproblems": ["subproblem 1", "subproblem 2", ...],
  "overlap_matrix": [[0.0, 0.15, ...], [0.15, 0.0, ...], ...],
  "coverage_score": 0.95
}

Do not refer to "this subproblem" or other subproblems in the problem statement; use second person.`,
		teamSize, teamSize, now.Format(time.RFC3339))
}

func (p *Planner) buildUserPrompt(question, soundBites string) string {
	return fmt.Sprintf("%s\n\n<soundbites>\n%s\n</soundbites>\n\n<think>", question, soundBites)
}

// generatePlanHeuristic builds a plan without an LLM call: identify
// dimensions from keyword matches, map each to a templated subproblem,
// then estimate overlap and coverage from word sets.
func (p *Planner) generatePlanHeuristic(question string, teamSize int, soundBites string) Plan {
	dimensions := identifyDimensions(question, soundBites)
	subproblems := generateSubproblems(question, dimensions, teamSize)
	overlap := estimateOverlapMatrix(subproblems)
	coverage := estimateCoverage(subproblems, question)

	return Plan{
		Think: fmt.Sprintf(
			"Identified %d key dimensions in the research question. Decomposed into %d orthogonal subproblems with estimated %.0f%% coverage.",
			len(dimensions), len(subproblems), coverage*100),
		Subproblems:   subproblems,
		OverlapMatrix: overlap,
		CoverageScore: coverage,
	}
}

var dimensionKeywords = []struct {
	dimension string
	keywords  []string
}{
	{"temporal_future", []string{"future", "2024", "2025", "2026"}},
	{"temporal_past", []string{"history", "past"}},
	{"stakeholder_consumer", []string{"user", "customer", "consumer"}},
	{"stakeholder_business", []string{"business", "company", "enterprise"}},
	{"stakeholder_government", []string{"government", "regulation", "policy"}},
	{"technical_implementation", []string{"technical", "technology", "implementation"}},
	{"technical_security", []string{"security", "privacy", "risk"}},
	{"impact_analysis", []string{"impact", "effect", "consequence"}},
	{"impact_positive", []string{"benefit", "advantage", "opportunity"}},
	{"impact_challenges", []string{"challenge", "problem", "limitation"}},
	{"economic_analysis", []string{"cost", "price", "economic", "market"}},
}

func identifyDimensions(question, soundBites string) []string {
	text := strings.ToLower(question + " " + soundBites)

	var dims []string
	for _, dk := range dimensionKeywords {
		for _, kw := range dk.keywords {
			if strings.Contains(text, kw) {
				dims = append(dims, dk.dimension)
				break
			}
		}
	}

	if len(dims) < 2 {
		return []string{"overview_definition", "current_state", "key_players", "challenges_opportunities", "future_outlook"}
	}
	return dims
}

func generateSubproblems(question string, dimensions []string, teamSize int) []string {
	topic := extractTopic(question)

	selected := dimensions
	if len(selected) > teamSize {
		selected = selected[:teamSize]
	}
	if len(selected) < teamSize {
		return genericSubproblems(topic, teamSize)
	}

	out := make([]string, 0, len(selected))
	for _, dim := range selected {
		out = append(out, dimensionToSubproblem(topic, dim))
	}
	return out
}

var topicStripPhrases = []string{"what is", "what are", "how does", "how do", "why is", "why are", "can you explain", "tell me about", "?"}

func extractTopic(question string) string {
	cleaned := strings.ToLower(question)
	for _, phrase := range topicStripPhrases {
		cleaned = strings.ReplaceAll(cleaned, phrase, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > 10 {
		return cleaned
	}
	return question
}

func dimensionToSubproblem(topic, dimension string) string {
	switch dimension {
	case "temporal_future":
		return fmt.Sprintf("Investigate the future trajectory and emerging trends of %s. What developments are expected in the next 3-5 years? What factors will drive these changes?", topic)
	case "temporal_past":
		return fmt.Sprintf("Research the historical evolution of %s. How did it develop over time? What were the key milestones and turning points?", topic)
	case "stakeholder_consumer":
		return fmt.Sprintf("Analyze how %s impacts end users and consumers. What are their experiences, needs, and pain points? How can user experience be improved?", topic)
	case "stakeholder_business":
		return fmt.Sprintf("Examine the business implications of %s. What are the opportunities and challenges for organizations? What business models are emerging?", topic)
	case "stakeholder_government":
		return fmt.Sprintf("Investigate the regulatory landscape surrounding %s. What policies and regulations exist? How might future regulation evolve?", topic)
	case "technical_implementation":
		return fmt.Sprintf("Deep dive into the technical architecture and implementation of %s. What are the core technologies involved? What are the best practices and common patterns?", topic)
	case "technical_security":
		return fmt.Sprintf("Analyze the security and privacy aspects of %s. What are the risks and vulnerabilities? What mitigation strategies exist?", topic)
	case "impact_analysis":
		return fmt.Sprintf("Evaluate the broader impact and consequences of %s. What are the second-order effects? How does it affect different sectors?", topic)
	case "impact_positive":
		return fmt.Sprintf("Identify the benefits and opportunities presented by %s. What positive outcomes have been observed? What potential remains untapped?", topic)
	case "impact_challenges":
		return fmt.Sprintf("Examine the challenges and limitations of %s. What obstacles exist? How are they being addressed?", topic)
	case "economic_analysis":
		return fmt.Sprintf("Analyze the economic aspects of %s. What are the costs and revenue potential? What market dynamics are at play?", topic)
	case "overview_definition":
		return fmt.Sprintf("Provide a comprehensive overview and definition of %s. What are its core components? How is it commonly understood?", topic)
	case "current_state":
		return fmt.Sprintf("Research the current state of %s. What is the present landscape? Who are the key players?", topic)
	case "key_players":
		return fmt.Sprintf("Identify and analyze the key players in %s. Who are the leaders? What differentiates them?", topic)
	case "challenges_opportunities":
		return fmt.Sprintf("Explore both the challenges and opportunities in %s. What barriers exist? What potential is yet to be realized?", topic)
	case "future_outlook":
		return fmt.Sprintf("Project the future outlook for %s. What trends are emerging? What scenarios are possible?", topic)
	default:
		return fmt.Sprintf("Investigate the %s dimension of %s. What key insights can be uncovered? What implications do they have?", dimension, topic)
	}
}

func genericSubproblems(topic string, teamSize int) []string {
	templates := []string{
		fmt.Sprintf("What is the current state and landscape of %s?", topic),
		fmt.Sprintf("Who are the key players and stakeholders in %s?", topic),
		fmt.Sprintf("What are the main challenges and limitations of %s?", topic),
		fmt.Sprintf("What opportunities and benefits does %s present?", topic),
		fmt.Sprintf("What is the future outlook and emerging trends for %s?", topic),
		fmt.Sprintf("How does %s impact different sectors and industries?", topic),
		fmt.Sprintf("What are the technical foundations and implementation details of %s?", topic),
		fmt.Sprintf("What regulatory and policy considerations affect %s?", topic),
		fmt.Sprintf("What are the economic and market dynamics of %s?", topic),
		fmt.Sprintf("What are the ethical and social implications of %s?", topic),
	}
	if teamSize > len(templates) {
		teamSize = len(templates)
	}
	return templates[:teamSize]
}

// estimateOverlapMatrix scores pairwise subproblem overlap by Jaccard
// similarity over whitespace-split tokens.
func estimateOverlapMatrix(subproblems []string) [][]float64 {
	n := len(subproblems)
	matrix := make([][]float64, n)
	wordSets := make([]map[string]bool, n)
	for i, s := range subproblems {
		wordSets[i] = tokenSet(s)
	}

	for i := 0; i < n; i++ {
		matrix[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				matrix[i][j] = 1.0
				continue
			}
			matrix[i][j] = jaccard(wordSets[i], wordSets[j])
		}
	}
	return matrix
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		out[w] = true
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// estimateCoverage scores what fraction of the question's distinct words
// reappear somewhere across the subproblems, with a mild per-subproblem
// boost capped at 1.0.
func estimateCoverage(subproblems []string, question string) float64 {
	questionWords := tokenSet(question)
	if len(questionWords) == 0 {
		return 0
	}

	covered := make(map[string]bool)
	for _, sp := range subproblems {
		for _, w := range strings.Fields(sp) {
			if questionWords[w] {
				covered[w] = true
			}
		}
	}

	wordCoverage := float64(len(covered)) / float64(len(questionWords))
	boost := float64(len(subproblems)) * 0.03
	score := wordCoverage + boost
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// sortedDimensionNames is exposed for tests that want deterministic
// iteration over the keyword table.
func sortedDimensionNames() []string {
	names := make([]string, 0, len(dimensionKeywords))
	for _, dk := range dimensionKeywords {
		names = append(names, dk.dimension)
	}
	sort.Strings(names)
	return names
}
